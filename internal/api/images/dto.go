package images

import (
	"time"

	"image-metadata-app/internal/domain/media"
)

// ---------- requests

type ListQuery struct {
	Skip  int `form:"skip,default=0" binding:"min=0"`
	Limit int `form:"limit,default=10" binding:"min=1,max=100"`
}

type UpdateImageRequest struct {
	Label         string  `json:"label" binding:"required,max=100"`
	ImageMetadata *string `json:"image_metadata" binding:"required"`
}

// ---------- responses

type ImageMetadataResponse struct {
	ID            uint      `json:"id"`
	ImagePath     string    `json:"image_path"`
	Label         string    `json:"label"`
	ImageMetadata *string   `json:"image_metadata"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type UpdateImageResponse struct {
	Message string                `json:"message"`
	Data    ImageMetadataResponse `json:"data"`
}

type DeleteImageResponse struct {
	Message string `json:"message"`
	ImageID uint   `json:"image_id"`
}

func toResponse(rec media.ImageMetadata) ImageMetadataResponse {
	return ImageMetadataResponse{
		ID:            rec.ID,
		ImagePath:     rec.ImagePath,
		Label:         rec.Label,
		ImageMetadata: rec.Metadata,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
}
