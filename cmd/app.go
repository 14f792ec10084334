package cmd

import (
	"fmt"

	"image-metadata-app/config"
	"image-metadata-app/database"
	imagesapi "image-metadata-app/internal/api/images"
	"image-metadata-app/internal/infra/archive"
	"image-metadata-app/internal/infra/files"
	applog "image-metadata-app/internal/log"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app holds the process-wide handles. They are built once per command and
// released by close.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	store  *imagesapi.Store
}

func newApp(migrate bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := applog.New(cfg.LogLevel, cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("logger initialization failed: %w", err)
	}

	db, err := database.Open(cfg.DBURL, cfg.DBLogLevel)
	if err != nil {
		return nil, err
	}

	if migrate {
		if err := database.Migrate(db); err != nil {
			_ = database.Close(db)
			return nil, err
		}
		logger.Info("connected and migrated successfully", applog.SourceDB)
	}

	dir, err := files.NewDir(cfg.UploadDir)
	if err != nil {
		_ = database.Close(db)
		return nil, err
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		db:     db,
		store:  imagesapi.NewStore(db, dir, archive.NewHDF5(""), logger),
	}, nil
}

func (a *app) close() {
	if err := database.Close(a.db); err != nil {
		a.logger.Warn("failed to close database", applog.SourceDB, zap.Error(err))
	}
	_ = a.logger.Sync()
}
