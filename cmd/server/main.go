package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-pathfinder/internal/api"
	"github.com/p-n-ai/pai-pathfinder/internal/curriculum"
	"github.com/p-n-ai/pai-pathfinder/internal/pathing"
	"github.com/p-n-ai/pai-pathfinder/internal/platform/cache"
	"github.com/p-n-ai/pai-pathfinder/internal/platform/config"
	"github.com/p-n-ai/pai-pathfinder/internal/platform/database"
	"github.com/p-n-ai/pai-pathfinder/internal/platform/graphdb"
	"github.com/p-n-ai/pai-pathfinder/internal/progress"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(os.Stdout, cfg.Log))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger from LEARN_LOG_FORMAT and
// LEARN_LOG_LEVEL.
func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func run(ctx context.Context, cfg *config.Config) error {
	checks := map[string]api.ReadinessCheck{}
	svcCfg := pathing.ServiceConfig{}

	policy, err := pathing.ParseWeakTopicPolicy(cfg.Progress.WeakTopicPolicy)
	if err != nil {
		return err
	}
	svcCfg.WeakTopicPolicy = policy

	var graph *graphdb.Graph
	if cfg.Catalogue.Source == "neo4j" {
		graph, err = graphdb.New(ctx, graphdb.Options{
			URI:      cfg.Graph.URI,
			Username: cfg.Graph.Username,
			Password: cfg.Graph.Password,
			Database: cfg.Graph.Database,
		})
		if err != nil {
			return fmt.Errorf("connecting to graph: %w", err)
		}
		defer graph.Close(context.Background())
		checks["graph"] = graph.HealthCheck
	}

	source, err := buildSource(cfg.Catalogue, graph)
	if err != nil {
		return err
	}
	store, err := curriculum.NewStore(ctx, source, curriculum.WithStrictValidation(cfg.Catalogue.Strict))
	if err != nil {
		return err
	}
	svcCfg.Catalogue = store

	if cfg.NeedsDatabase() {
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		checks["database"] = db.HealthCheck

		pg, err := progress.NewPostgresStore(db.Pool)
		if err != nil {
			return err
		}
		svcCfg.Progress = pg
		svcCfg.WeakTopics = pg
		svcCfg.Problems = pg
		svcCfg.Events = progress.NewPostgresEventLogger(db.Pool)
		slog.Info("progress backend", "backend", "postgres")
	} else {
		mem := progress.NewMemoryStore()
		svcCfg.Progress = mem
		svcCfg.WeakTopics = mem
		svcCfg.Problems = mem
		slog.Warn("progress backend is in-memory; progress is lost on restart")
	}

	if cfg.NeedsCache() {
		c, err := cache.New(ctx, cache.Options{URL: cfg.Cache.URL, KeyPrefix: cfg.Cache.KeyPrefix})
		if err != nil {
			return fmt.Errorf("connecting to cache: %w", err)
		}
		defer c.Close()
		checks["cache"] = c.HealthCheck
		svcCfg.Locker = cache.NewRedisLocker(c, time.Duration(cfg.Progress.LockTTLSeconds)*time.Second)
	} else {
		svcCfg.Locker = progress.NewKeyedMutex()
	}

	svc, err := pathing.NewService(svcCfg)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewServer(svc, checks).Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr)
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
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	return nil
}

// buildSource picks the catalogue source named by LEARN_CATALOGUE_SOURCE.
func buildSource(cfg config.CatalogueConfig, graph *graphdb.Graph) (curriculum.Source, error) {
	switch cfg.Source {
	case "dir":
		return curriculum.NewDirSource(cfg.Path)
	case "xlsx":
		return curriculum.NewXLSXSource(cfg.Path, cfg.Sheet), nil
	case "neo4j":
		if graph == nil {
			return nil, fmt.Errorf("neo4j source needs a graph connection")
		}
		return curriculum.NewNeo4jSource(graph), nil
	}
	return nil, fmt.Errorf("unknown catalogue source %q", cfg.Source)
}
