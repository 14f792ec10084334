package database

import (
	"fmt"
	"time"

	"image-metadata-app/internal/domain/media"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	maxOpenConns    = 50
	connMaxLifetime = time.Hour
)

// Open connects to PostgreSQL. logLevel follows gorm's logger.LogLevel
// (1 silent .. 4 info).
func Open(dsn string, logLevel int) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DB_URL not set")
	}
	return OpenDialector(postgres.Open(dsn), logLevel)
}

func OpenDialector(dialector gorm.Dialector, logLevel int) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.LogLevel(logLevel)),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqldb, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqldb.SetMaxOpenConns(maxOpenConns)
	sqldb.SetConnMaxLifetime(connMaxLifetime)

	return db, nil
}

// Migrate creates or updates the image_metadata table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&media.ImageMetadata{}); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqldb, err := db.DB()
	if err != nil {
		return err
	}
	return sqldb.Close()
}
