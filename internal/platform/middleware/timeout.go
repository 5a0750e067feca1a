package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/medisight/portal/internal/platform/apierror"
)

// RequestTimeout puts a deadline on each request's context. The handler runs
// on the request goroutine; storage calls observe the deadline and an error
// wrapping context.DeadlineExceeded becomes a 504 envelope.
//
// Websocket paths (/ws/) are long-lived and excluded.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return echomw.ContextTimeoutWithConfig(echomw.ContextTimeoutConfig{
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Request().URL.Path, "/ws/")
		},
		Timeout: timeout,
		ErrorHandler: func(err error, c echo.Context) error {
			if errors.Is(err, context.DeadlineExceeded) {
				return &apierror.Error{
					Kind:    apierror.KindTimeout,
					Message: "Request timed out",
					Err:     err,
				}
			}
			return err
		},
	})
}
