// Command earlyvue-server runs the screening backend API: session and child
// profile management, screening orchestration against the external ML
// service, the result cache, the rule-based assistant, and the static
// education/specialist resources.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/earlyvue/go-screening-backend/internal/config"
	httpapi "github.com/earlyvue/go-screening-backend/internal/http"
	"github.com/earlyvue/go-screening-backend/internal/mlbackend"
	"github.com/earlyvue/go-screening-backend/internal/observability"
	"github.com/earlyvue/go-screening-backend/internal/repo"
	"github.com/earlyvue/go-screening-backend/internal/sysutil"
)

var version = "dev" // set via -ldflags "-X main.version=..."

func main() {
	// .env is optional; real deployments configure through the environment.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(ctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open datastore failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}
	if cfg.HostedMode() {
		log.Info().Msg("datastore: hosted postgres")
	} else {
		log.Info().Str("path", cfg.DBPath).Msg("datastore: local sqlite")
	}

	backend := mlbackend.New(cfg.ML.BaseURL, cfg.ML.HealthTimeout, cfg.ML.CalibrationBuffer)
	if err := backend.Health(ctx); err != nil {
		// The screening service is started separately; runs will 503 until it is up.
		log.Warn().Err(err).Str("url", cfg.ML.BaseURL).Msg("ml backend not reachable at startup")
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, backend, cfg)

	// Live screening runs and the result stream outlast the server-wide
	// write timeout; their routes get dedicated deadlines.
	handler := httpapi.ExtendWriteDeadlines(r, cfg.APIBasePath, httpapi.RunWindow(cfg))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("stopped")
}
