package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"tasklist/internal/cache"
	"tasklist/internal/config"
	"tasklist/internal/controller"
	"tasklist/internal/database"
	"tasklist/internal/hub"
	"tasklist/internal/middleware"
	"tasklist/internal/queue"
	"tasklist/internal/repository"
	"tasklist/internal/revalidate"
	"tasklist/internal/routes"
	"tasklist/internal/service"
	"tasklist/internal/worker"
	"tasklist/pkg/logger"
)

func main() {
	config.LoadEnvFile(".env")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cfg := config.Get()
	replica := cfg.ReplicaID
	if replica == "" {
		replica = uuid.NewString()
	}
	ctx = logger.With(ctx, "replica", replica)

	db := database.DB(ctx)
	if db == nil {
		logger.Error(ctx, "Database not available; exiting")
		os.Exit(1)
	}
	if err := database.MigrateOrCreateSchema(ctx, db, cfg.DatabaseDriver); err != nil {
		logger.Error(ctx, "Schema migration failed", "error", err)
		os.Exit(1)
	}

	// Redis is optional; without it every list read goes to the store.
	rdb := cache.Client(ctx)
	pages := cache.NewPageCache(rdb, time.Duration(cfg.CacheTTL)*time.Second)

	h := hub.New()
	sig := &revalidate.Signal{Cache: pages, Local: h, Origin: replica}
	if queue.Enabled() {
		queue.EnsureTopic(ctx)
		sig.Publisher = queue.DefaultPublisher(ctx)
	}

	svc := service.NewTaskService(repository.NewTasks(db, cfg.DatabaseDriver), sig, pages)
	ready := map[string]controller.Pinger{"database": db}
	if rdb != nil {
		ready["redis"] = controller.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}
	tasks := controller.NewTasks(svc, h, middleware.OriginChecker(cfg.CORSAllowedOrigins), ready)

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      routes.Router(tasks, cfg.CORSAllowedOrigins),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return worker.Run(gctx, replica, pages, h)
	})
	g.Go(func() error {
		logger.Info(ctx, "HTTP server listening", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info(ctx, "Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(ctx, "Server error", "error", err)
		if cerr := db.Close(); cerr != nil {
			logger.Warn(ctx, "Database close failed", "error", cerr)
		}
		os.Exit(1)
	}
	if err := db.Close(); err != nil {
		logger.Warn(ctx, "Database close failed", "error", err)
	}
	logger.Info(ctx, "Server stopped")
}
