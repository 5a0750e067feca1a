package apierror

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Failure is the body of every non-2xx JSON response.
type Failure struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Error   string       `json:"error"`
	Fields  []FieldError `json:"fields,omitempty"`
}

// OK writes {"success": true, key: value} with status 200.
func OK(c echo.Context, key string, value interface{}) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		key:       value,
	})
}

// OKWith writes a success envelope with several keys.
func OKWith(c echo.Context, fields map[string]interface{}) error {
	body := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["success"] = true
	return c.JSON(http.StatusOK, body)
}

// Write renders err as a failure envelope.
func Write(c echo.Context, err *Error) error {
	return c.JSON(err.Status(), Failure{
		Message: err.Message,
		Error:   err.Detail(),
		Fields:  err.Fields,
	})
}

// fromHTTPError adapts errors raised by echo itself (unknown routes, bad
// methods, oversized bodies) to the taxonomy.
func fromHTTPError(he *echo.HTTPError) *Error {
	msg := http.StatusText(he.Code)
	if m, ok := he.Message.(string); ok && m != "" {
		msg = m
	}
	e := &Error{Message: msg, Err: he.Internal}
	switch he.Code {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		e.Kind = KindValidation
	case http.StatusUnauthorized:
		e.Kind = KindAuth
	case http.StatusNotFound:
		e.Kind = KindNotFound
	case http.StatusConflict:
		e.Kind = KindConflict
	case http.StatusGatewayTimeout:
		e.Kind = KindTimeout
	default:
		e.Kind = KindServer
	}
	return e
}

// HTTPErrorHandler returns an echo.HTTPErrorHandler that renders every error
// as the failure envelope, preserving echo's own status codes.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		body := Failure{Message: "Server error", Error: err.Error()}

		var he *echo.HTTPError
		var apiErr *Error
		switch {
		case errors.As(err, &apiErr):
			status = apiErr.Status()
			body = Failure{Message: apiErr.Message, Error: apiErr.Detail(), Fields: apiErr.Fields}
		case errors.As(err, &he):
			// Status codes outside the taxonomy (405, 429, 413) keep echo's code.
			mapped := fromHTTPError(he)
			status = he.Code
			body = Failure{Message: mapped.Message, Error: mapped.Detail()}
		case errors.Is(err, context.DeadlineExceeded):
			status = http.StatusGatewayTimeout
			body = Failure{Message: "Request timed out", Error: err.Error()}
		default:
			mapped := From(err)
			status = mapped.Status()
			body = Failure{Message: mapped.Message, Error: mapped.Detail(), Fields: mapped.Fields}
		}

		if status >= http.StatusInternalServerError {
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).
				Str("request_id", rid).
				Str("path", c.Request().URL.Path).
				Int("status", status).
				Msg("request failed")
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, body)
		}
		if writeErr != nil {
			logger.Error().Err(writeErr).Msg("write error response")
		}
	}
}
