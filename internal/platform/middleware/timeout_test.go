package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medisight/portal/internal/platform/apierror"
)

func TestRequestTimeout_CompletesWithinDeadline(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/records/1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	handler := func(c echo.Context) error {
		called = true
		return c.String(http.StatusOK, "ok")
	}

	if err := RequestTimeout(5 * time.Second)(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("expected handler to be called")
	}
}

func newTimeoutServer(timeout time.Duration) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = apierror.HTTPErrorHandler(zerolog.Nop())
	e.Use(RequestTimeout(timeout))
	return e
}

func TestRequestTimeout_ReturnsEnvelopeOnExpiry(t *testing.T) {
	e := newTimeoutServer(50 * time.Millisecond)
	e.GET("/api/records/1", func(c echo.Context) error {
		<-c.Request().Context().Done()
		return fmt.Errorf("list records: %w", c.Request().Context().Err())
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/records/1", nil))
	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("expected status 504, got %d", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if body["success"] != false || body["message"] != "Request timed out" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestRequestTimeout_LateWritesStayInTheirOwnResponse(t *testing.T) {
	e := newTimeoutServer(20 * time.Millisecond)
	e.GET("/api/slow", func(c echo.Context) error {
		time.Sleep(60 * time.Millisecond)
		return c.JSON(http.StatusOK, map[string]string{"owner": "slow-user"})
	})
	e.GET("/api/expired", func(c echo.Context) error {
		<-c.Request().Context().Done()
		return c.Request().Context().Err()
	})
	e.GET("/api/fast", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"owner": "fast-user"})
	})

	expired := httptest.NewRecorder()
	e.ServeHTTP(expired, httptest.NewRequest(http.MethodGet, "/api/expired", nil))
	slow := httptest.NewRecorder()
	e.ServeHTTP(slow, httptest.NewRequest(http.MethodGet, "/api/slow", nil))
	fast := httptest.NewRecorder()
	e.ServeHTTP(fast, httptest.NewRequest(http.MethodGet, "/api/fast", nil))

	if expired.Code != http.StatusGatewayTimeout || strings.Contains(expired.Body.String(), "owner") {
		t.Errorf("unexpected expired response %d %s", expired.Code, expired.Body.String())
	}
	if strings.Count(slow.Body.String(), "{") != 1 || !strings.Contains(slow.Body.String(), "slow-user") {
		t.Errorf("slow response should hold exactly its own body, got %s", slow.Body.String())
	}
	if got := strings.TrimSpace(fast.Body.String()); got != `{"owner":"fast-user"}` {
		t.Errorf("fast response polluted: %s", got)
	}
}

func TestRequestTimeout_SkipsWebSocketPaths(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/ws/chat", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		if _, ok := c.Request().Context().Deadline(); ok {
			t.Error("websocket requests must not carry a deadline")
		}
		return nil
	}

	if err := RequestTimeout(time.Second)(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequestTimeout_ContextHasDeadline(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/appointments/1", nil), httptest.NewRecorder())

	handler := func(c echo.Context) error {
		if _, ok := c.Request().Context().Deadline(); !ok {
			t.Error("expected context deadline")
		}
		return nil
	}

	RequestTimeout(time.Second)(handler)(c)
}

func TestRequestTimeout_PropagatesHandlerError(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/users/1", nil), httptest.NewRecorder())

	wantErr := errors.New("handler failed")
	err := RequestTimeout(time.Second)(func(c echo.Context) error { return wantErr })(c)
	if !errors.Is(err, wantErr) {
		t.Errorf("expected %v, got %v", wantErr, err)
	}
}
