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

package binding

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
)

// Source represents the binding source type.
type Source int

const (
	// SourceUnknown is a custom source registered with [FromGetter] or [Raw].
	SourceUnknown Source = iota

	// SourceQuery represents URL query parameters.
	SourceQuery

	// SourcePath represents URL path parameters.
	SourcePath
)

// String returns the string representation of the source.
func (s Source) String() string {
	switch s {
	case SourceQuery:
		return "query"
	case SourcePath:
		return "path"
	default:
		return "unknown"
	}
}

// SourceFromTag converts a struct tag name to its [Source].
func SourceFromTag(tag string) Source {
	switch tag {
	case TagQuery:
		return SourceQuery
	case TagPath:
		return SourcePath
	default:
		return SourceUnknown
	}
}

// Static errors for binding operations.
var (
	ErrOutMustBePointer      = errors.New("out must be a pointer to struct")
	ErrOutPointerNil         = errors.New("out pointer is nil")
	ErrUnsupportedType       = errors.New("unsupported type")
	ErrInvalidBooleanValue   = errors.New("invalid boolean value")
	ErrEmptyTimeValue        = errors.New("empty time value")
	ErrUnableToParseTime     = errors.New("unable to parse time")
	ErrInvalidIPAddress      = errors.New("invalid IP address")
	ErrMaxDepthExceeded      = errors.New("exceeded maximum nesting depth")
	ErrSliceExceedsMaxLength = errors.New("slice exceeds max length")
	ErrNoSourcesProvided     = errors.New("no binding sources provided")
	ErrValueMustBeStruct     = errors.New("value must be a struct or pointer to struct")
)

// BindError represents a binding error with field-level context.
//
// Use [errors.As] to check for BindError:
//
//	var bindErr *BindError
//	if errors.As(err, &bindErr) {
//	    fmt.Printf("Field: %s, Source: %s\n", bindErr.Field, bindErr.Source)
//	}
type BindError struct {
	Field  string       // Tag name of the field that failed binding
	Source Source       // Binding source
	Value  string       // The value that failed conversion
	Type   reflect.Type // Expected Go type
	Err    error        // Underlying error
}

// Error returns a formatted error message with a contextual hint.
func (e *BindError) Error() string {
	typeName := "unknown"
	if e.Type != nil {
		typeName = e.Type.String()
	}
	msg := fmt.Sprintf("binding field %q (%s): failed to convert %q to %s: %v",
		e.Field, e.Source, e.Value, typeName, e.Err)

	if hint := e.hint(); hint != "" {
		msg += " (hint: " + hint + ")"
	}

	return msg
}

// hint suggests a fix for common mistakes based on the target type and value.
func (e *BindError) hint() string {
	t := e.Type
	if t == nil {
		return ""
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch {
	case isIntType(t) && strings.Contains(e.Value, "."):
		return "use float type for decimal values"
	case t == timeType:
		return "use RFC3339 format (2006-01-02T15:04:05Z07:00) or add layouts with WithTimeLayouts"
	case t == durationType:
		return "use Go duration format (e.g. '1h30m', '500ms')"
	case t.Kind() == reflect.Bool:
		return "accepted values: true/false, yes/no, 1/0, on/off"
	case t.Kind() == reflect.Slice && strings.Contains(e.Value, ","):
		return "send repeated parameters or enable WithSliceMode(SliceCSV)"
	}

	return ""
}

func isIntType(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}

// Unwrap returns the underlying error for errors.Is/As compatibility.
func (e *BindError) Unwrap() error {
	return e.Err
}

// HTTPStatus implements rivaas.dev/restkit/errors.ErrorType.
func (e *BindError) HTTPStatus() int {
	return http.StatusBadRequest
}

// Code implements rivaas.dev/restkit/errors.ErrorCode.
func (e *BindError) Code() string {
	return "binding_error"
}

// MultiError aggregates binding errors collected with [WithAllErrors].
type MultiError struct {
	Errors []*BindError
}

// Error returns a formatted error message.
func (m *MultiError) Error() string {
	switch len(m.Errors) {
	case 0:
		return "no errors"
	case 1:
		return m.Errors[0].Error()
	default:
		return fmt.Sprintf("%d binding errors occurred", len(m.Errors))
	}
}

// Unwrap returns all errors for errors.Is/As compatibility.
func (m *MultiError) Unwrap() []error {
	errs := make([]error, 0, len(m.Errors))
	for _, e := range m.Errors {
		errs = append(errs, e)
	}

	return errs
}

// HTTPStatus implements rivaas.dev/restkit/errors.ErrorType.
func (m *MultiError) HTTPStatus() int {
	return http.StatusBadRequest
}

// Code implements rivaas.dev/restkit/errors.ErrorCode.
func (m *MultiError) Code() string {
	return "multiple_binding_errors"
}

// Add appends an error to the MultiError.
func (m *MultiError) Add(err *BindError) {
	m.Errors = append(m.Errors, err)
}

// HasErrors returns true if there are any errors.
func (m *MultiError) HasErrors() bool {
	return len(m.Errors) > 0
}
