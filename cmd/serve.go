package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	imagesapi "image-metadata-app/internal/api/images"
	routes "image-metadata-app/internal/app/http"
	"image-metadata-app/internal/app/http/middleware"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Migrates the database and starts the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.close()

		return serve(ctx, a)
	},
}

func serve(ctx context.Context, a *app) error {
	if !a.cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	sentryEnabled := a.cfg.SentryDSN != ""
	if sentryEnabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         a.cfg.SentryDSN,
			Environment: a.cfg.Environment,
		}); err != nil {
			return fmt.Errorf("sentry initialization failed: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if sqldb, err := a.db.DB(); err == nil {
		reg.MustRegister(collectors.NewDBStatsCollector(sqldb, "image_metadata"))
	}

	router := routes.NewRouter(routes.Deps{
		Images:        imagesapi.NewHandler(a.store, a.logger),
		Metrics:       middleware.NewMetrics(reg, "http"),
		Gatherer:      reg,
		Logger:        a.logger,
		CORSOrigin:    a.cfg.CORSOrigin,
		SentryEnabled: sentryEnabled,
	})

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	a.logger.Info("server stopped")
	return nil
}
