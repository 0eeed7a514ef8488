// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package resource

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"rivaas.dev/restkit/binding"
	"rivaas.dev/restkit/router"
)

// Decode decodes resource T from the path parameters and query string of
// the request, then validates it when T carries `validate` tags.
//
// Errors:
//   - [*SchemaError]: T is not a routable resource
//   - [*BadRequestError]: a required query parameter is missing, a value
//     does not convert, or validation failed
func Decode[T any](c *router.Context, opts ...Option) (T, error) {
	d, err := Describe[T]()
	if err != nil {
		var zero T
		return zero, err
	}

	return decode[T](c, d, newConfig(d, opts))
}

// FromContext returns the resource decoded for the current request, for
// middleware that runs after the resource handler stored it.
func FromContext[T any](ctx context.Context) (T, bool) {
	res, ok := ctx.Value(contextKey[T]{}).(T)
	return res, ok
}

func decode[T any](c *router.Context, d *Descriptor, cfg *config) (T, error) {
	ctx, span := c.Router().Tracer().Start(c.RequestContext(), "resource.decode",
		trace.WithAttributes(
			attribute.String("resource.type", d.Name()),
			attribute.String("resource.template", d.Template.Raw),
		),
	)
	defer span.End()

	var res T
	if err := decodeInto(ctx, &res, c, d, cfg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")

		var zero T
		return zero, &BadRequestError{Resource: d.Name(), Err: err}
	}

	return res, nil
}

func decodeInto(ctx context.Context, out any, c *router.Context, d *Descriptor, cfg *config) error {
	query := c.QueryValues()

	getter := binding.NewQueryGetter(query)
	var missing []error
	for _, q := range d.QueryFields {
		if !q.Optional && !getter.Has(q.Name) {
			missing = append(missing, &DecodeError{Field: q.Name, Source: binding.SourceQuery, Err: ErrMissingField})
		}
	}
	if len(missing) > 0 {
		return errors.Join(missing...)
	}

	opts := make([]binding.Option, 0, len(cfg.bindingOpts)+2)
	opts = append(opts, binding.FromPath(c.Params()), binding.FromQuery(query))
	opts = append(opts, cfg.bindingOpts...)
	if err := binding.BindTo(out, opts...); err != nil {
		return decodeErrors(err)
	}

	if cfg.validate {
		return cfg.validator.StructCtx(ctx, out)
	}

	return nil
}

// decodeErrors converts binding failures into DecodeErrors. Errors that are
// not tied to a field are returned unchanged.
func decodeErrors(err error) error {
	var out []error

	var walk func(error)
	walk = func(err error) {
		switch x := err.(type) {
		case *binding.MultiError:
			for _, be := range x.Errors {
				walk(be)
			}
		case *binding.BindError:
			out = append(out, &DecodeError{Field: x.Field, Source: x.Source, Err: x})
		case interface{ Unwrap() []error }:
			for _, e := range x.Unwrap() {
				walk(e)
			}
		}
	}
	walk(err)

	if len(out) == 0 {
		return err
	}

	return errors.Join(out...)
}
