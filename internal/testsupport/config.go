package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"streamlet/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LibraryDir = filepath.Join(base, "library")
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Store.MinFreeMB = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithPublicBaseURL sets the object-store base URL on the test config.
func WithPublicBaseURL(base string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Store.PublicBaseURL = base
	}
}

// WithAcceptedTypes overrides the content-type prefixes accepted for upload.
func WithAcceptedTypes(prefixes ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Upload.AcceptedTypes = prefixes
	}
}

// WithStubbedBinaries writes stub ffmpeg/ffprobe executables that emit a
// fixed frame and duration, and points the poster config at them.
func WithStubbedBinaries() ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		stubs := map[string]string{
			"ffmpeg":  "#!/bin/sh\nprintf 'STUBFRAME'\n",
			"ffprobe": "#!/bin/sh\necho '{\"format\":{\"duration\":\"60.0\"}}'\n",
		}
		for name, script := range stubs {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		b.cfg.Poster.FFmpegBinary = filepath.Join(binDir, "ffmpeg")
		b.cfg.Poster.FFprobeBinary = filepath.Join(binDir, "ffprobe")
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LibraryDir)
}
