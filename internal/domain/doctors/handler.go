package doctors

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/medisight/portal/internal/platform/apierror"
)

type Handler struct {
	dir *Directory
}

func NewHandler(dir *Directory) *Handler {
	return &Handler{dir: dir}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/doctors", h.ListDoctors)
	api.GET("/doctors/specialties", h.ListSpecialties)
	api.GET("/doctors/:id", h.GetDoctor)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	f := Filter{
		Specialty: c.QueryParam("specialty"),
		Language:  c.QueryParam("language"),
	}
	if raw := c.QueryParam("available"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return apierror.Validation("Invalid request",
				apierror.FieldError{Field: "available", Message: "must be true or false"})
		}
		f.AvailableOnly = v
	}
	return apierror.OK(c, "doctors", h.dir.List(f))
}

func (h *Handler) ListSpecialties(c echo.Context) error {
	return apierror.OK(c, "specialties", h.dir.Specialties())
}

func (h *Handler) GetDoctor(c echo.Context) error {
	doc, ok := h.dir.Get(c.Param("id"))
	if !ok {
		return apierror.NotFound("Doctor not found")
	}
	return apierror.OK(c, "doctor", doc)
}
