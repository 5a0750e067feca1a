package appointments

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
	api.GET("/appointments/:userId", h.ListAppointments)
	api.POST("/appointments", h.CreateAppointment)
	api.PATCH("/appointments/:id", h.PatchAppointment)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	userID, err := validation.PathID(c, "userId", "Invalid request")
	if err != nil {
		return err
	}
	list, err := h.svc.List(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return apierror.OK(c, "appointments", list)
}

func (h *Handler) CreateAppointment(c echo.Context) error {
	var in InsertAppointment
	if err := validation.Bind(c, &in, msgInvalidAppointment); err != nil {
		return err
	}
	a, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return apierror.OK(c, "appointment", a)
}

func (h *Handler) PatchAppointment(c echo.Context) error {
	id, err := validation.PathID(c, "id", "Invalid request")
	if err != nil {
		return err
	}
	var patch AppointmentPatch
	if err := validation.Bind(c, &patch, msgInvalidUpdate); err != nil {
		return err
	}
	a, err := h.svc.Patch(c.Request().Context(), id, patch)
	if err != nil {
		return err
	}
	return apierror.OK(c, "appointment", a)
}
