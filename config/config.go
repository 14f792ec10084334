package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port       string
	DBURL      string
	DBLogLevel int
	UploadDir  string
	CORSOrigin string

	LogLevel string
	Debug    bool

	SentryDSN   string
	Environment string
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("PORT", "8080")
	v.SetDefault("UPLOAD_DIR", "app/images")
	v.SetDefault("CORS_ORIGIN", "http://localhost:5173")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DEBUG", false)
	v.SetDefault("DB_LOG_LEVEL", 1)
	v.SetDefault("ENVIRONMENT", "development")

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:        v.GetString("PORT"),
		DBURL:       v.GetString("DB_URL"),
		DBLogLevel:  v.GetInt("DB_LOG_LEVEL"),
		UploadDir:   v.GetString("UPLOAD_DIR"),
		CORSOrigin:  v.GetString("CORS_ORIGIN"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		Debug:       v.GetBool("DEBUG"),
		SentryDSN:   v.GetString("SENTRY_DSN"),
		Environment: v.GetString("ENVIRONMENT"),
	}

	if cfg.DBURL == "" {
		return nil, fmt.Errorf("missing required environment variable: %s", "DB_URL")
	}
	if cfg.UploadDir == "" {
		return nil, fmt.Errorf("missing required environment variable: %s", "UPLOAD_DIR")
	}

	return cfg, nil
}
