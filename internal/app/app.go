// Package app wires the configured components together.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/treefix50/reelshelf/internal/config"
	"github.com/treefix50/reelshelf/internal/controller"
	"github.com/treefix50/reelshelf/internal/ffmpeg"
	"github.com/treefix50/reelshelf/internal/media"
	"github.com/treefix50/reelshelf/internal/metrics"
	"github.com/treefix50/reelshelf/internal/server"
	"github.com/treefix50/reelshelf/internal/storage"
)

type Container struct {
	Config     *config.Config
	Logger     *logrus.Logger
	Metrics    *metrics.Metrics
	Substrate  storage.Substrate
	Store      *storage.CatalogStore
	Media      *media.Registry
	Controller *controller.Controller
}

// New opens the substrate, loads the catalog and returns the wired
// container. Close it when done.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	m := metrics.New()

	kv, err := NewSubstrate(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	logger.WithField("backend", cfg.Storage.Backend).Info("Storage ready")

	store := storage.NewCatalogStore(kv, storage.CatalogStoreConfig{
		Key:     cfg.Storage.Key,
		Logger:  logger,
		Metrics: m,
	})

	registry, err := media.NewRegistry(newProber(cfg.Media.FFprobe, logger), media.Options{
		UploadDir: cfg.Media.UploadDir,
		Logger:    logger,
	})
	if err != nil {
		_ = kv.Close()
		return nil, err
	}

	probeTimeout := cfg.Media.ProbeTimeout
	if probeTimeout == 0 {
		probeTimeout = -1
	}
	ctl := controller.New(store, registry, controller.Options{
		ProbeTimeout:   probeTimeout,
		FlushPerSecond: cfg.Progress.FlushPerSecond,
		Logger:         logger,
		Metrics:        m,
	})
	ctl.Initialize(ctx)

	return &Container{
		Config:     cfg,
		Logger:     logger,
		Metrics:    m,
		Substrate:  kv,
		Store:      store,
		Media:      registry,
		Controller: ctl,
	}, nil
}

// NewSubstrate opens the backend named by storage.backend.
func NewSubstrate(ctx context.Context, cfg *config.Config) (storage.Substrate, error) {
	switch cfg.Storage.Backend {
	case "", "sqlite":
		if dir := filepath.Dir(cfg.Storage.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		return storage.Open(cfg.Storage.Path, storage.Options{BusyTimeout: 5 * time.Second})
	case "file":
		return storage.NewFileSubstrate(cfg.Storage.Dir)
	case "redis":
		return storage.OpenRedis(ctx, storage.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   config.AppName + ":",
		})
	case "postgres":
		return storage.OpenPostgres(ctx, cfg.Postgres.DSN)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func newProber(explicit string, logger *logrus.Logger) ffmpeg.Prober {
	baseDir := "."
	if exePath, err := os.Executable(); err == nil {
		baseDir = filepath.Dir(exePath)
	}
	path, err := ffmpeg.Locate(explicit, baseDir)
	if err != nil {
		// uploads will fail with a probe error until ffprobe is installed
		logger.WithError(err).Warn("ffprobe not available")
		return ffmpeg.Prober{}
	}
	logger.WithField("path", path).Debug("Using ffprobe")
	return ffmpeg.Prober{Path: path}
}

// NewServer builds the HTTP server for this container.
func (c *Container) NewServer() (*server.Server, error) {
	return server.New(c.Controller, c.Media, server.Options{
		Addr:        c.Config.Server.Addr,
		UploadDir:   c.Config.Media.UploadDir,
		CORS:        c.Config.Server.CORS,
		UploadRate:  c.Config.Server.UploadRate,
		UploadBurst: c.Config.Server.UploadBurst,
		Logger:      c.Logger,
		Metrics:     c.Metrics,
	})
}

// Close writes pending progress and closes the substrate.
func (c *Container) Close(ctx context.Context) {
	if c.Controller != nil {
		c.Controller.Close(ctx)
	}
	if c.Substrate != nil {
		if err := c.Substrate.Close(); err != nil {
			c.Logger.WithError(err).Warn("Closing storage failed")
			return
		}
		c.Logger.Info("Storage closed")
	}
}
