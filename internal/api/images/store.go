package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"image-metadata-app/internal/domain/media"
	"image-metadata-app/internal/infra/archive"
	applog "image-metadata-app/internal/log"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// sniffLen matches mimetype's default read limit.
const sniffLen = 3072

type FileStore interface {
	Save(originalName string, data io.Reader) (string, error)
	Read(path string) ([]byte, error)
	Exists(path string) (bool, error)
	Remove(path string) (bool, error)
}

type ArchiveEncoder interface {
	Encode(entries []archive.Entry) ([]byte, error)
}

// Store is the data-access layer over the image_metadata table and the
// upload directory. It is the only component that deletes image files.
type Store struct {
	db      *gorm.DB
	files   FileStore
	archive ArchiveEncoder
	logger  *zap.Logger
}

func NewStore(db *gorm.DB, files FileStore, enc ArchiveEncoder, logger *zap.Logger) *Store {
	return &Store{
		db:      db,
		files:   files,
		archive: enc,
		logger:  logger,
	}
}

type UploadInput struct {
	Filename    string
	ContentType string
	Body        io.Reader
	Label       string
	Metadata    *string
}

// Upload validates that the body is an image, stores it and creates the
// record. The stored file is removed again if the record cannot be created.
func (s *Store) Upload(ctx context.Context, in UploadInput) (*media.ImageMetadata, error) {
	if !strings.HasPrefix(in.ContentType, "image") {
		return nil, ErrNotAnImage
	}

	header := make([]byte, sniffLen)
	n, err := io.ReadFull(in.Body, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	header = header[:n]

	mimeType := mimetype.Detect(header).String()
	if !strings.HasPrefix(mimeType, "image/") {
		s.logger.Debug("rejecting upload",
			applog.SourceFiles,
			zap.String("filename", in.Filename),
			zap.String("declaredType", in.ContentType),
			zap.String("mimeType", mimeType))
		return nil, ErrNotAnImage
	}

	path, err := s.files.Save(in.Filename, io.MultiReader(bytes.NewReader(header), in.Body))
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	rec, err := s.Create(ctx, path, in.Label, in.Metadata)
	if err != nil {
		if _, rmErr := s.files.Remove(path); rmErr != nil {
			s.logger.Warn("failed to remove orphaned upload",
				applog.SourceFiles, zap.String("path", path), zap.Error(rmErr))
		}
		return nil, err
	}

	s.logger.Info("image uploaded",
		zap.Uint("id", rec.ID),
		zap.String("filename", in.Filename),
		zap.String("path", path),
		zap.String("mimeType", mimeType))

	return rec, nil
}

func (s *Store) Create(ctx context.Context, imagePath, label string, metadata *string) (*media.ImageMetadata, error) {
	if len(imagePath) > media.MaxPathLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrImagePathTooLong, len(imagePath))
	}

	rec := &media.ImageMetadata{
		ImagePath: imagePath,
		Label:     label,
		Metadata:  metadata,
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, fmt.Errorf("create image metadata: %w", err)
	}
	return rec, nil
}

func (s *Store) List(ctx context.Context, skip, limit int) ([]media.ImageMetadata, error) {
	records := []media.ImageMetadata{}
	err := s.db.WithContext(ctx).
		Order("id ASC").
		Offset(skip).
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list image metadata: %w", err)
	}
	return records, nil
}

func (s *Store) Get(ctx context.Context, id uint) (*media.ImageMetadata, error) {
	var rec media.ImageMetadata
	if err := s.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("get image metadata %d: %w", id, err)
	}
	return &rec, nil
}

// Update overwrites label and metadata only; image_path and created_at are
// never touched.
func (s *Store) Update(ctx context.Context, id uint, label string, metadata *string) (*media.ImageMetadata, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	rec.Label = label
	rec.Metadata = metadata
	rec.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).
		Model(rec).
		Select("Label", "Metadata", "UpdatedAt").
		Updates(rec).Error; err != nil {
		return nil, fmt.Errorf("update image metadata %d: %w", id, err)
	}

	return rec, nil
}

// Delete removes the image file (if it still exists) and then the record.
// The two steps are not atomic.
func (s *Store) Delete(ctx context.Context, id uint) (*media.ImageMetadata, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	removed, err := s.files.Remove(rec.ImagePath)
	if err != nil {
		return nil, fmt.Errorf("delete image file %s: %w", rec.ImagePath, err)
	}
	if !removed {
		s.logger.Warn("image file already missing",
			applog.SourceFiles, zap.Uint("id", rec.ID), zap.String("path", rec.ImagePath))
	}

	res := s.db.WithContext(ctx).Delete(rec)
	if res.Error != nil {
		return nil, fmt.Errorf("delete image metadata %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrImageNotFound
	}

	return rec, nil
}

// Open returns the record together with a confirmation that its file exists.
func (s *Store) Open(ctx context.Context, id uint) (*media.ImageMetadata, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	exists, err := s.files.Exists(rec.ImagePath)
	if err != nil {
		return nil, fmt.Errorf("stat image file %s: %w", rec.ImagePath, err)
	}
	if !exists {
		return nil, ErrImageFileNotFound
	}

	return rec, nil
}

// Export bundles every record and its image bytes into one archive. Any
// unreadable image fails the whole export.
func (s *Store) Export(ctx context.Context) ([]byte, error) {
	var records []media.ImageMetadata
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("load image metadata: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNoImageData
	}

	entries := make([]archive.Entry, 0, len(records))
	for _, rec := range records {
		content, err := s.files.Read(rec.ImagePath)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrImageUnreadable, rec.ImagePath, err)
		}

		entries = append(entries, archive.Entry{
			ID:            rec.ID,
			ImagePath:     rec.ImagePath,
			Label:         rec.Label,
			ImageMetadata: rec.Metadata,
			CreatedAt:     archive.FormatTime(rec.CreatedAt),
			UpdatedAt:     archive.FormatTime(rec.UpdatedAt),
			ImageContent:  content,
		})
	}

	data, err := s.archive.Encode(entries)
	if err != nil {
		s.logger.Error("export failed", applog.SourceArchive, zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrExportFailed, err)
	}

	s.logger.Info("exported images", applog.SourceArchive,
		zap.Int("count", len(entries)), zap.Int("bytes", len(data)))

	return data, nil
}
