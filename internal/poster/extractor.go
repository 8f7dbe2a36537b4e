package poster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"streamlet/internal/logging"
	"streamlet/internal/services"
)

const (
	defaultQuality = 4
	defaultTimeout = 10 * time.Second
	// fallbackSeek is used when the container reports no usable duration.
	fallbackSeek = 0.5
	seekMargin   = 0.1
)

// Options configures an Extractor.
type Options struct {
	FFmpegBinary  string
	FFprobeBinary string
	// Quality is ffmpeg's -q:v scale, 2 (best) to 31.
	Quality int
	Timeout time.Duration
	Logger  *slog.Logger
}

// Extractor derives a JPEG poster frame from a media file by shelling out to
// ffprobe and ffmpeg. Every failure classifies as a thumbnail error; callers
// treat derivation as best effort and fall back to the shared placeholder.
type Extractor struct {
	ffmpeg  string
	ffprobe string
	quality int
	timeout time.Duration
	logger  *slog.Logger
}

// NewExtractor constructs an Extractor, filling unset options with defaults.
func NewExtractor(opts Options) *Extractor {
	e := &Extractor{
		ffmpeg:  opts.FFmpegBinary,
		ffprobe: opts.FFprobeBinary,
		quality: opts.Quality,
		timeout: opts.Timeout,
		logger:  logging.NewComponentLogger(opts.Logger, "poster"),
	}
	if e.ffmpeg == "" {
		e.ffmpeg = "ffmpeg"
	}
	if e.ffprobe == "" {
		e.ffprobe = "ffprobe"
	}
	if e.quality <= 0 {
		e.quality = defaultQuality
	}
	if e.timeout <= 0 {
		e.timeout = defaultTimeout
	}
	return e
}

// Derive extracts a single poster frame from sourcePath and returns it as
// JPEG bytes. The seek point sits a quarter of the way into the media,
// clamped away from both edges; when the duration is unknown the first half
// second is sampled instead.
func (e *Extractor) Derive(ctx context.Context, sourcePath string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	duration, known := e.probeDuration(ctx, sourcePath)
	seek := seekPoint(duration, known)

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-ss", strconv.FormatFloat(seek, 'f', 3, 64),
		"-i", sourcePath,
		"-frames:v", "1",
		"-q:v", strconv.Itoa(e.quality),
		"-f", "image2",
		"pipe:1",
	}
	frame, err := runCommand(ctx, e.ffmpeg, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrThumbnail, "poster", "derive", "extract frame", err)
	}
	if len(frame) == 0 {
		return nil, services.Wrap(services.ErrThumbnail, "poster", "derive", "ffmpeg produced no frame", nil)
	}

	e.logger.Debug("poster derived",
		logging.String("source", sourcePath),
		logging.Float64("seek_seconds", seek),
		logging.Int("bytes", len(frame)))
	return frame, nil
}

// probeDuration asks ffprobe for the container duration. Probe failures are
// absorbed; derivation proceeds with the fallback seek point.
func (e *Extractor) probeDuration(ctx context.Context, sourcePath string) (float64, bool) {
	out, err := runCommand(ctx, e.ffprobe,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		sourcePath)
	if err != nil {
		e.logger.Debug("duration probe failed", logging.String("source", sourcePath), logging.Error(err))
		return 0, false
	}

	var payload struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out, &payload); err != nil {
		e.logger.Debug("duration probe unparsable", logging.String("source", sourcePath), logging.Error(err))
		return 0, false
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(payload.Format.Duration), 64)
	if err != nil {
		return 0, false
	}
	return duration, true
}

// seekPoint picks the frame timestamp: a quarter into the media, at least
// 0.1s from the start and 0.1s from the end.
func seekPoint(duration float64, known bool) float64 {
	if !known || duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return fallbackSeek
	}
	seek := duration * 0.25
	if seek < seekMargin {
		seek = seekMargin
	}
	if limit := duration - seekMargin; seek > limit {
		seek = math.Max(limit, seekMargin)
	}
	return seek
}

func runCommand(ctx context.Context, binary string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s timed out: %w", binary, ctxErr)
		}
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, fmt.Errorf("%s: %w: %s", binary, err, detail)
		}
		return nil, fmt.Errorf("%s: %w", binary, err)
	}
	return stdout.Bytes(), nil
}
