package screening

import (
	"context"
	"io"
	"strconv"

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
	api.GET("/screening-results/:userId", h.ListResults)
	api.POST("/screening-results", h.CreateResult)
	api.POST("/screening-results/voice", h.AnalyzeVoice)
	api.POST("/screening-results/image", h.ClassifyImage)
}

func (h *Handler) ListResults(c echo.Context) error {
	userID, err := validation.PathID(c, "userId", "Invalid request")
	if err != nil {
		return err
	}
	results, err := h.svc.List(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return apierror.OK(c, "results", results)
}

func (h *Handler) CreateResult(c echo.Context) error {
	var in InsertScreeningResult
	if err := validation.Bind(c, &in, msgInvalidResult); err != nil {
		return err
	}
	res, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return apierror.OK(c, "result", res)
}

func (h *Handler) AnalyzeVoice(c echo.Context) error {
	return h.analyze(c, "audio", h.svc.AnalyzeVoice)
}

func (h *Handler) ClassifyImage(c echo.Context) error {
	return h.analyze(c, "image", h.svc.ClassifyImage)
}

type analyzeFunc func(ctx context.Context, userID int64, filename string, r io.Reader) (*ScreeningResult, error)

// analyze reads a multipart upload with a userId field and a file in
// fileField, and hands it to fn.
func (h *Handler) analyze(c echo.Context, fileField string, fn analyzeFunc) error {
	var fields []apierror.FieldError

	userID, err := strconv.ParseInt(c.FormValue("userId"), 10, 64)
	if err != nil || userID <= 0 {
		fields = append(fields, apierror.FieldError{Field: "userId", Message: "must be a positive integer"})
	}
	fh, err := c.FormFile(fileField)
	if err != nil {
		fields = append(fields, apierror.FieldError{Field: fileField, Message: "is required"})
	}
	if len(fields) > 0 {
		return apierror.Validation(msgInvalidResult, fields...)
	}

	f, err := fh.Open()
	if err != nil {
		return apierror.Server(err)
	}
	defer f.Close()

	res, err := fn(c.Request().Context(), userID, fh.Filename, f)
	if err != nil {
		return err
	}
	return apierror.OK(c, "result", res)
}
