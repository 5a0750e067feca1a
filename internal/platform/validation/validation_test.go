package validation

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/medisight/portal/internal/platform/apierror"
)

type samplePayload struct {
	UserID   int64   `json:"userId" validate:"required,gt=0"`
	Name     string  `json:"name" validate:"required,notblank"`
	Email    string  `json:"email" validate:"required,email"`
	Kind     string  `json:"kind" validate:"required,oneof='Lab Results' Imaging Other"`
	Nickname *string `json:"nickname,omitempty" validate:"omitempty,max=10"`
}

func bindBody(t *testing.T, body string) (*samplePayload, error) {
	t.Helper()
	e := echo.New()
	e.Validator = New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	var p samplePayload
	err := Bind(c, &p, "Invalid sample data")
	return &p, err
}

func fieldsOf(t *testing.T, err error) []apierror.FieldError {
	t.Helper()
	var apiErr *apierror.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *apierror.Error, got %T (%v)", err, err)
	}
	if apiErr.Kind != apierror.KindValidation {
		t.Fatalf("expected validation kind, got %d", apiErr.Kind)
	}
	if apiErr.Message != "Invalid sample data" {
		t.Errorf("unexpected message %q", apiErr.Message)
	}
	return apiErr.Fields
}

func hasField(fields []apierror.FieldError, name string) bool {
	for _, f := range fields {
		if f.Field == name {
			return true
		}
	}
	return false
}

func TestBind_Valid(t *testing.T) {
	p, err := bindBody(t, `{"userId":1,"name":"scan.pdf","email":"a@x.com","kind":"Lab Results"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.UserID != 1 || p.Kind != "Lab Results" {
		t.Errorf("unexpected payload: %+v", p)
	}
}

func TestBind_Failures(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing userId", `{"name":"a","email":"a@x.com","kind":"Other"}`, "userId"},
		{"wrong type", `{"userId":"1","name":"a","email":"a@x.com","kind":"Other"}`, "userId"},
		{"unknown field", `{"userId":1,"name":"a","email":"a@x.com","kind":"Other","id":5}`, "id"},
		{"blank name", `{"userId":1,"name":"   ","email":"a@x.com","kind":"Other"}`, "name"},
		{"bad email", `{"userId":1,"name":"a","email":"nope","kind":"Other"}`, "email"},
		{"bad enum", `{"userId":1,"name":"a","email":"a@x.com","kind":"X-Ray"}`, "kind"},
		{"too long", `{"userId":1,"name":"a","email":"a@x.com","kind":"Other","nickname":"abcdefghijklmnop"}`, "nickname"},
		{"empty body", ``, "body"},
		{"malformed", `{"userId":`, "body"},
		{"trailing data", `{"userId":1,"name":"a","email":"a@x.com","kind":"Other"} {}`, "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := bindBody(t, tt.body)
			if err == nil {
				t.Fatal("expected validation error")
			}
			fields := fieldsOf(t, err)
			if !hasField(fields, tt.field) {
				t.Errorf("expected field %q in %+v", tt.field, fields)
			}
		})
	}
}

func TestBind_ReportsAllMissingFields(t *testing.T) {
	_, err := bindBody(t, `{}`)
	fields := fieldsOf(t, err)
	for _, name := range []string{"userId", "name", "email", "kind"} {
		if !hasField(fields, name) {
			t.Errorf("expected %q in %+v", name, fields)
		}
	}
}

// failingReader yields prefix and then err.
type failingReader struct {
	prefix string
	err    error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.prefix == "" {
		return 0, r.err
	}
	n := copy(p, r.prefix)
	r.prefix = r.prefix[n:]
	return n, nil
}

func TestBind_ReaderHTTPErrorPassesThrough(t *testing.T) {
	e := echo.New()
	e.Validator = New()
	tooLarge := echo.NewHTTPError(http.StatusRequestEntityTooLarge, "Request body too large")
	req := httptest.NewRequest(http.MethodPost, "/", io.NopCloser(&failingReader{prefix: `{"name":"abc`, err: tooLarge}))
	req.ContentLength = -1
	c := e.NewContext(req, httptest.NewRecorder())

	var p samplePayload
	err := Bind(c, &p, "Invalid sample data")
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 HTTPError, got %T (%v)", err, err)
	}
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		t.Errorf("read failure was rewrapped as %v", apiErr)
	}
}

func TestValidate_ReturnsFieldErrors(t *testing.T) {
	err := New().Validate(&samplePayload{})
	var fields FieldErrors
	if !errors.As(err, &fields) {
		t.Fatalf("expected FieldErrors, got %T", err)
	}
	if !strings.Contains(fields.Error(), "userId: is required") {
		t.Errorf("unexpected message %q", fields.Error())
	}
}

func TestPathID(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{"42", 42, false},
		{"abc", 0, true},
		{"0", 0, true},
		{"-3", 0, true},
		{"1.5", 0, true},
	}
	e := echo.New()
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
			c.SetParamNames("id")
			c.SetParamValues(tt.raw)

			got, err := PathID(c, "id", "Invalid request")
			if (err != nil) != tt.wantErr {
				t.Fatalf("PathID(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if err != nil {
				if f := fieldsOf(t, err); f[0].Field != "id" {
					t.Errorf("expected field id, got %+v", f)
				}
				return
			}
			if got != tt.want {
				t.Errorf("PathID(%q) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}
