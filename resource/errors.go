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
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"rivaas.dev/restkit/binding"
)

// Static errors for resource registration and decoding.
var (
	// ErrSchema is wrapped by every [SchemaError].
	ErrSchema = errors.New("invalid resource schema")

	// ErrMissingField indicates a required query parameter absent from the request.
	ErrMissingField = errors.New("required field is missing")

	// ErrMissingPathValue indicates a nil path field when building an href.
	ErrMissingPathValue = errors.New("path value is missing")
)

// SchemaError reports a resource type that cannot be routed. It is returned
// at registration time and is not recoverable.
type SchemaError struct {
	Type   reflect.Type
	Reason string
}

// Error returns the error message.
func (e *SchemaError) Error() string {
	name := "<nil>"
	if e.Type != nil {
		name = e.Type.String()
	}

	return fmt.Sprintf("resource %s: %s", name, e.Reason)
}

// Unwrap returns [ErrSchema].
func (e *SchemaError) Unwrap() error { return ErrSchema }

func schemaErrorf(t reflect.Type, format string, args ...any) *SchemaError {
	return &SchemaError{Type: t, Reason: fmt.Sprintf(format, args...)}
}

// DecodeError reports one field that could not be decoded from a request.
type DecodeError struct {
	Field  string
	Source binding.Source
	Err    error
}

// Error returns the error message.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s parameter %q: %v", e.Source, e.Field, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error { return e.Err }

// FieldError is one entry of a bad request's details.
type FieldError struct {
	Field  string `json:"field"`
	Source string `json:"source"`
	Reason string `json:"reason"`
}

// BadRequestError rejects a request whose resource could not be decoded or
// validated. It renders as a 400 problem response; the handler is not called.
type BadRequestError struct {
	Resource string
	Err      error
}

// Error returns the error message.
func (e *BadRequestError) Error() string {
	return fmt.Sprintf("invalid %s request: %v", e.Resource, e.Err)
}

// Unwrap returns the decode or validation error.
func (e *BadRequestError) Unwrap() error { return e.Err }

// HTTPStatus implements errors.ErrorType.
func (e *BadRequestError) HTTPStatus() int { return http.StatusBadRequest }

// Code implements errors.ErrorCode.
func (e *BadRequestError) Code() string { return "bad_request" }

// Details implements errors.ErrorDetails, listing every failed field.
func (e *BadRequestError) Details() any {
	return fieldErrors(e.Err)
}

// fieldErrors flattens decode and validation failures into field entries.
func fieldErrors(err error) []FieldError {
	var out []FieldError

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			out = append(out, FieldError{
				Field:  validationFieldName(fe),
				Source: "validation",
				Reason: validationReason(fe),
			})
		}

		return out
	}

	var walk func(error)
	walk = func(err error) {
		var de *DecodeError
		switch x := err.(type) {
		case nil:
		case interface{ Unwrap() []error }:
			for _, e := range x.Unwrap() {
				walk(e)
			}
		default:
			if errors.As(err, &de) {
				out = append(out, FieldError{Field: de.Field, Source: de.Source.String(), Reason: decodeReason(de)})
			}
		}
	}
	walk(err)

	return out
}

func decodeReason(de *DecodeError) string {
	var be *binding.BindError
	if errors.As(de.Err, &be) && be.Type != nil {
		return fmt.Sprintf("cannot use %q as %s", be.Value, be.Type)
	}

	return de.Err.Error()
}

// validationFieldName strips the root struct name from the namespace,
// "Article.Author.Name" becomes "Author.Name".
func validationFieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}

	return fe.Field()
}

func validationReason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Type().Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Type().Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	default:
		return fmt.Sprintf("failed validation (%s)", fe.Tag())
	}
}
