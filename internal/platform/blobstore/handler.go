package blobstore

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/medisight/portal/internal/platform/apierror"
)

const msgInvalidUpload = "Invalid upload"

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithPublicURL makes returned URLs absolute under base, e.g. a CDN host.
func WithPublicURL(base string) HandlerOption {
	return func(h *Handler) {
		if base != "" {
			h.urlPrefix = strings.TrimRight(base, "/") + "/upload/"
		}
	}
}

// Handler serves the /upload controller.
type Handler struct {
	store     BlobStore
	urlPrefix string
}

func NewHandler(store BlobStore, opts ...HandlerOption) *Handler {
	h := &Handler{store: store, urlPrefix: "/upload/"}
	for _, o := range opts {
		o(h)
	}
	return h
}

// RegisterRoutes mounts the controller on g, which is expected at /upload.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.handleUpload)
	g.GET("/:id/metadata", h.handleGetMetadata)
	g.GET("/:id", h.handleDownload)
	g.DELETE("/:id", h.handleDelete)
}

func (h *Handler) handleUpload(c echo.Context) error {
	var fields []apierror.FieldError

	file, err := c.FormFile("file")
	if err != nil {
		fields = append(fields, apierror.FieldError{Field: "file", Message: "is required"})
	}
	var userID int64
	if raw := c.FormValue("userId"); raw != "" {
		userID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			fields = append(fields, apierror.FieldError{Field: "userId", Message: "must be a positive integer"})
		}
	}
	category := c.FormValue("category")
	if len(category) > 64 {
		fields = append(fields, apierror.FieldError{Field: "category", Message: "must be at most 64 characters"})
	}
	if len(fields) > 0 {
		return apierror.Validation(msgInvalidUpload, fields...)
	}
	if file.Size > MaxFileSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, ErrFileTooLarge.Error())
	}

	src, err := file.Open()
	if err != nil {
		return apierror.Server(fmt.Errorf("open uploaded file: %w", err))
	}
	defer src.Close()

	// Sniff the type when the client did not declare a useful one.
	var content io.Reader = src
	contentType := file.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		head := make([]byte, 512)
		n, _ := io.ReadFull(src, head)
		contentType = http.DetectContentType(head[:n])
		content = io.MultiReader(strings.NewReader(string(head[:n])), src)
	}
	contentType, err = CheckContentType(contentType)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, err.Error())
	}

	meta, err := h.store.Upload(c.Request().Context(), Metadata{
		FileName:    file.Filename,
		ContentType: contentType,
		UserID:      userID,
		Category:    category,
	}, content)
	if err != nil {
		return h.storeError(err)
	}
	meta.URL = h.urlPrefix + meta.ID

	return apierror.OKWith(c, map[string]interface{}{
		"url":  meta.URL,
		"file": meta,
	})
}

func (h *Handler) handleDownload(c echo.Context) error {
	rc, meta, err := h.store.Download(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.storeError(err)
	}
	defer rc.Close()

	c.Response().Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, meta.FileName))
	c.Response().Header().Set(echo.HeaderContentLength, strconv.FormatInt(meta.Size, 10))
	return c.Stream(http.StatusOK, meta.ContentType, rc)
}

func (h *Handler) handleGetMetadata(c echo.Context) error {
	meta, err := h.store.GetMetadata(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.storeError(err)
	}
	meta.URL = h.urlPrefix + meta.ID
	return apierror.OK(c, "file", meta)
}

func (h *Handler) handleDelete(c echo.Context) error {
	if err := h.store.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return h.storeError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "File deleted",
	})
}

func (h *Handler) storeError(err error) error {
	switch {
	case errors.Is(err, ErrBlobNotFound):
		return apierror.NotFound("File not found")
	case errors.Is(err, ErrFileTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, ErrMissingFileName):
		return apierror.Validation(msgInvalidUpload, apierror.FieldError{Field: "file", Message: "must have a file name"})
	case errors.Is(err, ErrInvalidContentType):
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, err.Error())
	default:
		return apierror.Server(err)
	}
}
