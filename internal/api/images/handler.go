package images

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"image-metadata-app/internal/domain/media"
	"image-metadata-app/internal/infra/archive"
	applog "image-metadata-app/internal/log"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Service is what the HTTP surface needs from the data-access layer.
type Service interface {
	Upload(ctx context.Context, in UploadInput) (*media.ImageMetadata, error)
	List(ctx context.Context, skip, limit int) ([]media.ImageMetadata, error)
	Update(ctx context.Context, id uint, label string, metadata *string) (*media.ImageMetadata, error)
	Delete(ctx context.Context, id uint) (*media.ImageMetadata, error)
	Open(ctx context.Context, id uint) (*media.ImageMetadata, error)
	Export(ctx context.Context) ([]byte, error)
}

type Handler struct {
	svc    Service
	logger *zap.Logger
}

func NewHandler(svc Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// ------------------------------
// POST /image_metadata/
// ------------------------------
func (h *Handler) UploadImage(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.abortWithError(c, http.StatusBadRequest, "File is required", err)
		return
	}

	label, ok := c.GetPostForm("label")
	if !ok || strings.TrimSpace(label) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Label is required"})
		return
	}
	if utf8.RuneCountInString(label) > media.MaxLabelLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Label is too long"})
		return
	}

	metadata, ok := c.GetPostForm("image_metadata")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image metadata is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.abortWithError(c, http.StatusBadRequest, "Failed to read file", err)
		return
	}
	defer file.Close()

	rec, err := h.svc.Upload(c.Request.Context(), UploadInput{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Body:        file,
		Label:       label,
		Metadata:    &metadata,
	})
	if err != nil {
		h.abortWithStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, toResponse(*rec))
}

// ------------------------------
// GET /image_metadata/?skip=&limit=
// ------------------------------
func (h *Handler) ListImages(c *gin.Context) {
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	records, err := h.svc.List(c.Request.Context(), q.Skip, q.Limit)
	if err != nil {
		h.abortWithStoreError(c, err)
		return
	}

	out := make([]ImageMetadataResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toResponse(rec))
	}
	c.JSON(http.StatusOK, out)
}

// ------------------------------
// PUT /image_metadata/:id
// ------------------------------
func (h *Handler) UpdateImage(c *gin.Context) {
	id, ok := imageID(c)
	if !ok {
		return
	}

	var req UpdateImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Label) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Label is required"})
		return
	}

	rec, err := h.svc.Update(c.Request.Context(), id, req.Label, req.ImageMetadata)
	if err != nil {
		h.abortWithStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, UpdateImageResponse{
		Message: "Image updated successfully",
		Data:    toResponse(*rec),
	})
}

// ------------------------------
// DELETE /image_metadata/:id
// ------------------------------
func (h *Handler) DeleteImage(c *gin.Context) {
	id, ok := imageID(c)
	if !ok {
		return
	}

	rec, err := h.svc.Delete(c.Request.Context(), id)
	if err != nil {
		h.abortWithStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, DeleteImageResponse{
		Message: "Image and record deleted successfully",
		ImageID: rec.ID,
	})
}

// ------------------------------
// GET /image_metadata/:id  -> raw image bytes
// ------------------------------
func (h *Handler) GetImage(c *gin.Context) {
	id, ok := imageID(c)
	if !ok {
		return
	}

	rec, err := h.svc.Open(c.Request.Context(), id)
	if err != nil {
		h.abortWithStoreError(c, err)
		return
	}

	c.File(rec.ImagePath)
}

// ------------------------------
// GET /image_metadata_export_h5
// ------------------------------
func (h *Handler) ExportImages(c *gin.Context) {
	data, err := h.svc.Export(c.Request.Context())
	if err != nil {
		h.abortWithStoreError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+archive.FileName)
	c.Data(http.StatusOK, archive.ContentType, data)
}

func imageID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image id"})
		return 0, false
	}
	return uint(id), true
}

func (h *Handler) abortWithStoreError(c *gin.Context, err error) {
	code, message := httpError(err)
	h.abortWithError(c, code, message, err)
}

func (h *Handler) abortWithError(c *gin.Context, code int, message string, traceErr error) {
	if code >= http.StatusInternalServerError {
		h.logger.Error(message, applog.SourceHTTP, zap.String("path", c.FullPath()), zap.Error(traceErr))
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			hub.CaptureException(traceErr)
		}
		c.AbortWithStatusJSON(code, gin.H{"error": message, "details": traceErr.Error()})
		return
	}

	h.logger.Debug(message, applog.SourceHTTP, zap.String("path", c.FullPath()), zap.Error(traceErr))
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}
