package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePoster(); err != nil {
		return err
	}
	if err := c.validateIntervals(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		return errors.New("paths.library_dir must be set")
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Store.MinFreeMB < 0 {
		return errors.New("store.min_free_mb must not be negative")
	}
	return nil
}

func (c *Config) validatePoster() error {
	if c.Poster.Quality < 2 || c.Poster.Quality > 31 {
		return fmt.Errorf("poster.quality must be between 2 and 31, got %d", c.Poster.Quality)
	}
	if strings.TrimSpace(c.Poster.PlaceholderURL) == "" {
		return errors.New("poster.placeholder_url must be set")
	}
	return nil
}

func (c *Config) validateIntervals() error {
	return ensurePositiveMap(map[string]int{
		"poster.timeout_seconds":        c.Poster.TimeoutSeconds,
		"progress.throttle_seconds":     c.Progress.ThrottleSeconds,
		"feed.page_size":                c.Feed.PageSize,
		"feed.continue_fetch_limit":     c.Feed.ContinueFetchLimit,
		"feed.browse_fetch_limit":       c.Feed.BrowseFetchLimit,
		"feed.discover_timeout_seconds": c.Feed.DiscoverTimeoutSeconds,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for name, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, value)
		}
	}
	return nil
}
