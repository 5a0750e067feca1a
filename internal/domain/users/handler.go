package users

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
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.POST("/auth/firebase", h.LoginWithFirebase)
	api.GET("/users/:id", h.GetUser)
}

func (h *Handler) Register(c echo.Context) error {
	var in InsertUser
	if err := validation.Bind(c, &in, msgInvalidUser); err != nil {
		return err
	}
	u, err := h.svc.Register(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return apierror.OK(c, "user", u)
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := validation.Bind(c, &req, "Invalid request"); err != nil {
		return err
	}
	u, err := h.svc.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return apierror.OK(c, "user", u)
}

func (h *Handler) LoginWithFirebase(c echo.Context) error {
	var req FirebaseLoginRequest
	if err := validation.Bind(c, &req, "Invalid request"); err != nil {
		return err
	}
	u, err := h.svc.LoginWithFirebase(c.Request().Context(), req.IDToken)
	if err != nil {
		return err
	}
	return apierror.OK(c, "user", u)
}

func (h *Handler) GetUser(c echo.Context) error {
	id, err := validation.PathID(c, "id", "Invalid request")
	if err != nil {
		return err
	}
	u, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return apierror.OK(c, "user", u)
}
