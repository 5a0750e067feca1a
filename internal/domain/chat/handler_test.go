package chat

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/medisight/portal/internal/platform/apierror"
	"github.com/medisight/portal/internal/platform/validation"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc, _, _ := newTestService()
	e := echo.New()
	e.Validator = validation.New()
	return NewHandler(svc), e
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var apiErr *apierror.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *apierror.Error, got %T (%v)", err, err)
	}
	return apiErr.Status()
}

func postJSON(e *echo.Echo, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_CreateAndList(t *testing.T) {
	h, e := newTestHandler()

	for _, body := range []string{
		`{"userId":1,"sender":"user","content":"hello"}`,
		`{"userId":1,"sender":"assistant","content":"hi there"}`,
	} {
		c, _ := postJSON(e, body)
		if err := h.CreateMessage(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("userId")
	c.SetParamValues("1")
	if err := h.ListMessages(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		Messages []ChatMessage `json:"messages"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Messages) != 2 || resp.Messages[0].Content != "hello" || resp.Messages[1].Sender != SenderAssistant {
		t.Errorf("unexpected messages: %s", rec.Body.String())
	}
}

func TestHandler_CreateMessage_BadSender(t *testing.T) {
	h, e := newTestHandler()
	c, _ := postJSON(e, `{"userId":1,"sender":"doctor","content":"hello"}`)

	err := h.CreateMessage(c)
	if statusOf(t, err) != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
	var apiErr *apierror.Error
	errors.As(err, &apiErr)
	if apiErr.Message != "Invalid message data" || apiErr.Fields[0].Field != "sender" {
		t.Errorf("unexpected error: %+v", apiErr)
	}
}

func TestHandler_AskAssistant(t *testing.T) {
	h, e := newTestHandler()
	c, rec := postJSON(e, `{"userId":1,"message":"is 38C a fever?"}`)

	if err := h.AskAssistant(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		Success bool        `json:"success"`
		Message ChatMessage `json:"message"`
		Reply   ChatMessage `json:"reply"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp.Success || resp.Message.Sender != SenderUser || resp.Reply.Content != "You said: is 38C a fever?" {
		t.Errorf("unexpected response: %s", rec.Body.String())
	}
}
