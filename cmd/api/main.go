// @title       Pet Adoption API
// @version     1.0
// @description Catálogo de animales, solicitudes de adopción y revisión administrativa.
// @BasePath    /
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"pet-adoption/internal/adapters/auth/jwtauth"
	"pet-adoption/internal/adapters/geocoding/nominatim"
	s3images "pet-adoption/internal/adapters/images/s3"
	pg "pet-adoption/internal/adapters/storage/postgres"
	"pet-adoption/internal/platform/config"
	"pet-adoption/internal/platform/logger"
	"pet-adoption/internal/platform/metrics"
	"pet-adoption/internal/platform/redis"
	"pet-adoption/internal/ports/auth"
	"pet-adoption/internal/ports/geocoding"
	"pet-adoption/internal/ports/images"
	"pet-adoption/internal/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewFromEnv().Error("config load failed", map[string]any{"error": err})
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: logger.ParseFormat(cfg.Log.Format),
		App:    cfg.Log.App,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", map[string]any{"error": err})
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log logger.Logger) error {
	var db *sql.DB
	if cfg.Database.DSN != "" {
		opened, err := pg.Open(cfg.Database.DSN)
		if err != nil {
			return err
		}
		defer opened.Close()
		if err := pg.Migrate(ctx, opened); err != nil {
			return err
		}
		db = opened
		log.Info("storage: postgres", nil)
	} else {
		log.Warn("storage: in-memory (DB_DSN not set)", nil)
	}

	rc, err := redis.New(ctx, cfg.Redis.URL)
	if err != nil {
		// sin cache las stats se calculan en cada request
		log.Warn("redis unavailable, stats cache disabled", map[string]any{"error": err})
	}
	if rc != nil {
		defer rc.Close()
	}

	var geocoder geocoding.Geocoder
	if cfg.Geocoder.Enabled {
		g, err := nominatim.New(cfg.Geocoder.URL, cfg.Geocoder.Timeout)
		if err != nil {
			return err
		}
		geocoder = g
	}

	var imgs images.Store
	if cfg.S3.Bucket != "" {
		st, err := s3images.New(ctx, s3images.Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			PathStyle: cfg.S3.PathStyle,
			PublicURL: cfg.S3.PublicURL,
		})
		if err != nil {
			return err
		}
		imgs = st
	}

	var verifier auth.AuthVerifier
	if cfg.JWT.Secret != "" {
		verifier = jwtauth.NewVerifier(cfg.JWT.Secret)
	} else {
		log.Warn("auth: dev mode (X-Debug-User-ID headers)", nil)
	}

	h := router.NewRouter(router.Options{
		AuthVerifier: verifier,
		DB:           db,
		Logger:       log,
		Metrics:      metrics.New(),
		Geocoder:     geocoder,
		Images:       imgs,
		Redis:        rc,
		StatsTTL:     cfg.Redis.StatsTTL,
		Context:      ctx,
		GeoRefresh:   cfg.Database.GeoRefresh,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", map[string]any{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down", nil)
	sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}
