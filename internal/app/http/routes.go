package routes

import (
	"net/http"
	"time"

	imagesapi "image-metadata-app/internal/api/images"
	"image-metadata-app/internal/app/http/middleware"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Deps struct {
	Images   *imagesapi.Handler
	Metrics  *middleware.Metrics
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger

	CORSOrigin    string
	SentryEnabled bool
}

// NewRouter builds the engine with the global middleware stack and all routes.
func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(deps.Logger))

	if deps.SentryEnabled {
		r.Use(sentrygin.New(sentrygin.Options{
			Repanic: true,
		}))
	}

	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	if deps.CORSOrigin != "" {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{deps.CORSOrigin},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	RegisterRoutes(r, deps)
	return r
}

func RegisterRoutes(r *gin.Engine, deps Deps) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	images := r.Group("/")
	images.Use(middleware.SanitizeFields("label"))

	images.POST("/image_metadata/", deps.Images.UploadImage)
	images.GET("/image_metadata/", deps.Images.ListImages)
	images.PUT("/image_metadata/:id", deps.Images.UpdateImage)
	images.DELETE("/image_metadata/:id", deps.Images.DeleteImage)
	images.GET("/image_metadata/:id", deps.Images.GetImage)

	images.GET("/image_metadata_export_h5", deps.Images.ExportImages)
}
