package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"siteworks/internal/config"
	"siteworks/internal/models"
	"siteworks/internal/observability"
	"siteworks/internal/services"
	contextutils "siteworks/internal/utils"

	"github.com/gin-gonic/gin"
)

// photoFormField is the multipart field carrying the image
const photoFormField = "photo"

// PhotoHandler serves report photos
type PhotoHandler struct {
	photos services.PhotoServiceInterface
	cfg    *config.Config
	logger *observability.Logger
}

// NewPhotoHandler creates a PhotoHandler
func NewPhotoHandler(photos services.PhotoServiceInterface, cfg *config.Config, logger *observability.Logger) *PhotoHandler {
	return &PhotoHandler{photos: photos, cfg: cfg, logger: logger}
}

// UploadPhoto handles POST /v1/reports/:id/photos (multipart: photo, service_type, description)
func (h *PhotoHandler) UploadPhoto(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "upload_photo")
	defer observability.FinishSpan(span, nil)

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	reportID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile(photoFormField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			HandleAppError(c, contextutils.WrapError(contextutils.ErrMissingRequired, "no photo was uploaded"))
			return
		}
		HandleBindError(c, err)
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		HandleBindError(c, err)
		return
	}
	defer func() { _ = f.Close() }()

	// One byte past the limit is enough for the service to reject oversized uploads.
	data, err := io.ReadAll(io.LimitReader(f, h.cfg.Server.MaxUploadBytes+1))
	if err != nil {
		HandleBindError(c, err)
		return
	}

	photo, err := h.photos.UploadPhoto(ctx, actor, reportID, models.PhotoInput{
		FileName:    fileHeader.Filename,
		ServiceType: c.PostForm("service_type"),
		Description: c.PostForm("description"),
		Data:        data,
	})
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, photo)
}

// ListPhotos handles GET /v1/reports/:id/photos
func (h *PhotoHandler) ListPhotos(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_photos")
	defer observability.FinishSpan(span, nil)

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	reportID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	photos, err := h.photos.ListPhotos(ctx, actor, reportID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"photos": photos})
}

// ServePhoto handles GET /v1/photos/:id/file
func (h *PhotoHandler) ServePhoto(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "serve_photo")
	defer observability.FinishSpan(span, nil)

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	photoID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	photo, rc, err := h.photos.OpenPhoto(ctx, actor, photoID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	defer func() { _ = rc.Close() }()

	contentType := mime.TypeByExtension(filepath.Ext(photo.FileName))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Cache-Control", "private, max-age=3600")
	c.DataFromReader(http.StatusOK, photo.SizeBytes, contentType, rc, nil)
}
