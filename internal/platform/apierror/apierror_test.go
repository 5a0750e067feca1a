package apierror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestKind_Status(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindAuth, http.StatusUnauthorized},
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
		{KindUpstream, http.StatusBadGateway},
		{KindTimeout, http.StatusGatewayTimeout},
		{KindServer, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := tt.kind.Status(); got != tt.want {
			t.Errorf("Kind(%d).Status() = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestError_Detail(t *testing.T) {
	v := Validation("Invalid user data",
		FieldError{Field: "username", Message: "is required"},
		FieldError{Field: "email", Message: "must be a valid email"},
	)
	want := "username: is required; email: must be a valid email"
	if got := v.Detail(); got != want {
		t.Errorf("Detail() = %q, want %q", got, want)
	}

	s := Server(errors.New("connection reset"))
	if s.Detail() != "connection reset" {
		t.Errorf("server detail should surface the raw cause, got %q", s.Detail())
	}

	a := Auth("Invalid credentials")
	if a.Detail() != "Invalid credentials" {
		t.Errorf("auth detail = %q", a.Detail())
	}
}

func TestFrom(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"not found", fmt.Errorf("get user: %w", ErrNotFound), KindNotFound},
		{"conflict", fmt.Errorf("insert: %w", ErrConflict), KindConflict},
		{"bad reference", fmt.Errorf("insert: %w", ErrInvalidReference), KindValidation},
		{"typed", fmt.Errorf("wrap: %w", Auth("Invalid credentials")), KindAuth},
		{"other", errors.New("disk full"), KindServer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := From(tt.err); got.Kind != tt.want {
				t.Errorf("From() kind = %d, want %d", got.Kind, tt.want)
			}
		})
	}
	if From(nil) != nil {
		t.Error("From(nil) should be nil")
	}
}

func serveError(t *testing.T, err error) (*httptest.ResponseRecorder, Failure) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/users/1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	HTTPErrorHandler(zerolog.Nop())(err, c)

	var body Failure
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return rec, body
}

func TestHTTPErrorHandler_Typed(t *testing.T) {
	rec, body := serveError(t, NotFound("User not found"))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if body.Success || body.Message != "User not found" {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestHTTPErrorHandler_ValidationFields(t *testing.T) {
	rec, body := serveError(t, Validation("Invalid record data", FieldError{Field: "recordType", Message: "must be one of"}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if len(body.Fields) != 1 || body.Fields[0].Field != "recordType" {
		t.Errorf("expected recordType field error, got %+v", body.Fields)
	}
}

func TestHTTPErrorHandler_EchoErrors(t *testing.T) {
	rec, body := serveError(t, echo.ErrNotFound)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if body.Message != "Not Found" {
		t.Errorf("unexpected message %q", body.Message)
	}

	rec, _ = serveError(t, echo.ErrMethodNotAllowed)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestHTTPErrorHandler_Untyped(t *testing.T) {
	rec, body := serveError(t, errors.New("pool closed"))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if body.Message != "Server error" || body.Error != "pool closed" {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestHTTPErrorHandler_Deadline(t *testing.T) {
	rec, _ := serveError(t, fmt.Errorf("query: %w", context.DeadlineExceeded))
	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("expected 504, got %d", rec.Code)
	}
}

func TestOK(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	if err := OK(c, "records", []string{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if body["success"] != true {
		t.Errorf("expected success=true, got %v", body["success"])
	}
	if _, ok := body["records"]; !ok {
		t.Error("expected records key")
	}
}
