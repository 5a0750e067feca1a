package records

import (
	"net/http"

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
	api.GET("/records/:userId", h.ListRecords)
	api.POST("/records", h.CreateRecord)
	api.DELETE("/records/:id", h.DeleteRecord)
}

func (h *Handler) ListRecords(c echo.Context) error {
	userID, err := validation.PathID(c, "userId", "Invalid request")
	if err != nil {
		return err
	}
	recs, err := h.svc.List(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return apierror.OK(c, "records", recs)
}

func (h *Handler) CreateRecord(c echo.Context) error {
	var in InsertMedicalRecord
	if err := validation.Bind(c, &in, msgInvalidRecord); err != nil {
		return err
	}
	rec, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return apierror.OK(c, "record", rec)
}

func (h *Handler) DeleteRecord(c echo.Context) error {
	id, err := validation.PathID(c, "id", "Invalid request")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Record deleted",
	})
}
