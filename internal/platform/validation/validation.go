// Package validation decodes request bodies strictly and checks them against
// struct tags, reporting every offending field by its JSON name.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/medisight/portal/internal/platform/apierror"
)

// Validator implements echo.Validator on top of go-playground/validator.
type Validator struct {
	v *validator.Validate
}

// New returns a Validator that reports fields by their JSON names and knows
// the "notblank" rule.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() == reflect.String {
			return strings.TrimSpace(field.String()) != ""
		}
		return true
	})
	return &Validator{v: v}
}

// Validate satisfies echo.Validator. Failures come back as a slice of
// apierror.FieldError wrapped in FieldErrors.
func (cv *Validator) Validate(i interface{}) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(FieldErrors, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apierror.FieldError{Field: fe.Field(), Message: describe(fe)})
	}
	return fields
}

// FieldErrors is the error Validate returns.
type FieldErrors []apierror.FieldError

func (f FieldErrors) Error() string {
	parts := make([]string, len(f))
	for i, fe := range f {
		parts[i] = fe.String()
	}
	return strings.Join(parts, "; ")
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), "'", "")
	case "gt":
		return "must be greater than " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "url":
		return "must be a valid URL"
	case "datetime":
		return "must be an RFC 3339 timestamp"
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

// Bind decodes the JSON body of c into dst, rejecting unknown fields and
// type mismatches, and then runs the echo validator. Decode and validation
// failures are returned as a 400 apierror carrying message; an
// *echo.HTTPError raised while reading the body (such as the body limit's
// 413) is returned unchanged.
func Bind(c echo.Context, dst interface{}, message string) error {
	if err := Decode(c.Request().Body, dst); err != nil {
		var fields FieldErrors
		if errors.As(err, &fields) {
			return apierror.Validation(message, fields...)
		}
		return err
	}
	if err := c.Validate(dst); err != nil {
		var fields FieldErrors
		if errors.As(err, &fields) {
			return apierror.Validation(message, fields...)
		}
		return apierror.Validation(message, apierror.FieldError{Field: "body", Message: err.Error()})
	}
	return nil
}

// Decode strictly decodes a single JSON value from r into dst. Malformed
// input is reported as FieldErrors; an *echo.HTTPError from the reader is
// passed through.
func Decode(r io.Reader, dst interface{}) error {
	if r == nil {
		return FieldErrors{{Field: "body", Message: "is required"}}
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var he *echo.HTTPError
	if err := dec.Decode(dst); err != nil {
		if errors.As(err, &he) {
			return he
		}
		return FieldErrors{decodeError(err)}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if errors.As(err, &he) {
			return he
		}
		return FieldErrors{{Field: "body", Message: "must contain a single JSON object"}}
	}
	return nil
}

func decodeError(err error) apierror.FieldError {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.Is(err, io.EOF):
		return apierror.FieldError{Field: "body", Message: "is required"}
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return apierror.FieldError{Field: field, Message: "must be " + jsonKind(typeErr.Type)}
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return apierror.FieldError{Field: "body", Message: "is not valid JSON"}
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		name := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		return apierror.FieldError{Field: name, Message: "is not allowed"}
	default:
		return apierror.FieldError{Field: "body", Message: err.Error()}
	}
}

func jsonKind(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "a string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "an integer"
	case reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.Bool:
		return "a boolean"
	case reflect.Slice, reflect.Array:
		return "an array"
	default:
		return "an object"
	}
}

// PathID parses the named path parameter as a positive integer id. A
// malformed value is a 400 apierror carrying message.
func PathID(c echo.Context, name, message string) (int64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apierror.Validation(message, apierror.FieldError{Field: name, Message: "must be a positive integer"})
	}
	return id, nil
}
