package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"ficehub/internal/config"
	"ficehub/internal/db"
	"ficehub/internal/dbretry"
	"ficehub/internal/events"
	"ficehub/internal/lock"
	"ficehub/internal/logger"
	"ficehub/internal/router"
	"ficehub/internal/services"
	"ficehub/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/redis/rueidis"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	ReadTimeout     = 10 * time.Second
	WriteTimeout    = 30 * time.Second
	ShutdownTimeout = 15 * time.Second
)

// app holds what every command needs. Services are built on top of it per command.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	store  *store.Store
	locker lock.Locker
	redis  rueidis.Client
}

func setup() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log.Debug)
	if err != nil {
		return nil, err
	}

	gdb, err := db.Open(cfg.Database, log, cfg.Log.Debug)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(gdb); err != nil {
		return nil, err
	}
	if cfg.Database.SeedDefaults {
		if err := db.Seed(gdb, log); err != nil {
			return nil, err
		}
	}

	a := &app{
		cfg:    cfg,
		logger: log,
		db:     gdb,
		store:  store.New(gdb, dbretry.FromConfig(cfg.Store)),
	}

	var base lock.Locker = lock.NewLocal()
	if cfg.Redis.Addr != "" {
		client, err := rueidis.NewClient(rueidis.ClientOption{
			InitAddress: []string{cfg.Redis.Addr},
			Username:    cfg.Redis.Username,
			Password:    cfg.Redis.Password,
			SelectDB:    cfg.Redis.DB,
			ClientName:  "ficehub",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis client: %w", err)
		}
		a.redis = client
		base = lock.NewRedis(client, cfg.Lock.TTL, log)
		log.Info("Using Redis locks", zap.String("addr", cfg.Redis.Addr))
	}
	a.locker = lock.WithWait(base, cfg.Lock.Wait)
	return a, nil
}

func (a *app) close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.logger.Sync()
}

func runMigrate(*cobra.Command, []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()
	a.logger.Info("Database migrated")
	return nil
}

func runRecompute(cmd *cobra.Command, _ []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	rating := services.NewRatingAggregator(a.store, a.locker, a.cfg.Rating, a.logger)
	n, err := rating.RecomputeAll(cmd.Context())
	if err != nil {
		return err
	}
	a.logger.Info("Ratings recomputed", zap.Int("users", n))
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	if !a.cfg.Log.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rating := services.NewRatingAggregator(a.store, a.locker, a.cfg.Rating, a.logger)
	dispatcher := events.NewDispatcher(context.WithoutCancel(ctx), rating, events.Options{
		Workers:        a.cfg.Rating.Workers,
		QueueSize:      a.cfg.Rating.QueueSize,
		MaxRedelivery:  a.cfg.Rating.MaxRedelivery,
		RedeliverDelay: a.cfg.Rating.RedeliverDelay,
		ShouldRetry:    services.IsRetryable,
	}, a.logger)

	search, err := services.NewSearchService(a.store, a.cfg.Search, a.logger)
	if err != nil {
		return err
	}
	slugs := services.NewSlugAssigner(a.store, a.locker, a.cfg.Slug, a.logger)
	handler := router.New(router.Deps{
		DB:       a.db,
		Content:  services.NewContentService(a.store, a.locker, slugs, search, dispatcher, a.logger),
		Search:   search,
		Users:    services.NewUserService(a.store, slugs, a.logger),
		Taxonomy: services.NewTaxonomyService(a.store, slugs, search, a.logger),
		Logger:   a.logger,
	})

	srv := &http.Server{
		Addr:         ":" + a.cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  ReadTimeout,
		WriteTimeout: WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("Ficehub server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
		if runErr != nil {
			a.logger.Error("Failed to start server", zap.Error(runErr))
		}
	}

	a.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Server forced to shutdown", zap.Error(err))
	}
	// pending rating updates are delivered before the store goes away
	if err := dispatcher.Close(shutdownCtx); err != nil {
		a.logger.Error("Rating queue not drained", zap.Error(err))
	}

	a.logger.Info("Server gracefully stopped")
	return runErr
}
