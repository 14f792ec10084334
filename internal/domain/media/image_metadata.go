package media

import "time"

// ImageMetadata is one uploaded image: where its bytes live on disk plus the
// user-supplied label and free-form metadata.
type ImageMetadata struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	ImagePath string  `gorm:"type:varchar(255);not null" json:"image_path"`
	Label     string  `gorm:"type:varchar(100);not null" json:"label"`
	Metadata  *string `gorm:"column:image_metadata;type:text" json:"image_metadata"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ImageMetadata) TableName() string {
	return "image_metadata"
}

const (
	MaxLabelLength = 100
	MaxPathLength  = 255
)
