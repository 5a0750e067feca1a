package chat

import (
	"github.com/labstack/echo/v4"

	"github.com/medisight/portal/internal/platform/apierror"
	"github.com/medisight/portal/internal/platform/validation"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/chat-messages/:userId", h.ListMessages)
	api.POST("/chat-messages", h.CreateMessage)
	api.POST("/assistant/chat", h.AskAssistant)
}

func (h *Handler) ListMessages(c echo.Context) error {
	userID, err := validation.PathID(c, "userId", "Invalid request")
	if err != nil {
		return err
	}
	msgs, err := h.svc.List(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return apierror.OK(c, "messages", msgs)
}

func (h *Handler) CreateMessage(c echo.Context) error {
	var in InsertChatMessage
	if err := validation.Bind(c, &in, msgInvalidMessage); err != nil {
		return err
	}
	m, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return apierror.OK(c, "message", m)
}

func (h *Handler) AskAssistant(c echo.Context) error {
	var req AssistantRequest
	if err := validation.Bind(c, &req, msgInvalidMessage); err != nil {
		return err
	}
	question, reply, err := h.svc.Ask(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return apierror.OKWith(c, map[string]interface{}{
		"message": question,
		"reply":   reply,
	})
}
