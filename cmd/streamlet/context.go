package main

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"streamlet/internal/config"
	"streamlet/internal/feed"
	"streamlet/internal/logging"
	"streamlet/internal/poster"
	"streamlet/internal/posts"
	"streamlet/internal/progress"
	"streamlet/internal/store/blobfs"
	"streamlet/internal/store/docdb"
	"streamlet/internal/upload"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		logger, err := logging.New(logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
		})
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		c.logger = logger
	})
	return c.logger
}

// openStores opens the object and document stores; the returned func closes
// them.
func (c *commandContext) openStores() (*blobfs.Store, *docdb.Store, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	objectOpts := []blobfs.Option{
		blobfs.WithMinFreeBytes(cfg.Store.MinFreeMB * 1024 * 1024),
		blobfs.WithLogger(c.ensureLogger()),
	}
	if cfg.Store.PublicBaseURL != "" {
		objectOpts = append(objectOpts, blobfs.WithBaseURL(cfg.Store.PublicBaseURL))
	}
	objects, err := blobfs.New(cfg.Paths.LibraryDir, objectOpts...)
	if err != nil {
		return nil, nil, nil, err
	}

	documents, err := docdb.Open(cfg.Paths.DataDir, c.ensureLogger())
	if err != nil {
		return nil, nil, nil, err
	}
	return objects, documents, func() { documents.Close() }, nil
}

func (c *commandContext) newCoordinator(objects *blobfs.Store, documents *docdb.Store) *upload.Coordinator {
	cfg := c.config
	return upload.NewCoordinator(objects, documents, upload.Options{
		AcceptedTypes:        cfg.Upload.AcceptedTypes,
		PlaceholderPosterURL: cfg.Poster.PlaceholderURL,
		Logger:               c.ensureLogger(),
	})
}

func (c *commandContext) newExtractor() *poster.Extractor {
	cfg := c.config
	return poster.NewExtractor(poster.Options{
		FFmpegBinary:  cfg.Poster.FFmpegBinary,
		FFprobeBinary: cfg.Poster.FFprobeBinary,
		Quality:       cfg.Poster.Quality,
		Timeout:       time.Duration(cfg.Poster.TimeoutSeconds) * time.Second,
		Logger:        c.ensureLogger(),
	})
}

func (c *commandContext) newSynchronizer(documents *docdb.Store) *progress.Synchronizer {
	cfg := c.config
	return progress.NewSynchronizer(documents, progress.Options{
		Throttle: time.Duration(cfg.Progress.ThrottleSeconds) * time.Second,
		Logger:   c.ensureLogger(),
	})
}

func (c *commandContext) newCurator(documents *docdb.Store) *feed.Curator {
	cfg := c.config
	return feed.NewCurator(documents, feed.Options{
		PlaceholderPosterURL: cfg.Poster.PlaceholderURL,
		PageSize:             cfg.Feed.PageSize,
		ContinueFetchLimit:   cfg.Feed.ContinueFetchLimit,
		BrowseFetchLimit:     cfg.Feed.BrowseFetchLimit,
		DiscoverTimeout:      time.Duration(cfg.Feed.DiscoverTimeoutSeconds) * time.Second,
		Logger:               c.ensureLogger(),
	})
}

func (c *commandContext) newPosts(documents *docdb.Store) *posts.Service {
	cfg := c.config
	return posts.NewService(documents, posts.Options{
		PageSize: cfg.Feed.PageSize,
		Logger:   c.ensureLogger(),
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
