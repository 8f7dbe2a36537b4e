package blobfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sys/unix"

	"streamlet/internal/logging"
	"streamlet/internal/services"
	"streamlet/internal/store"
)

const chunkSize = 256 * 1024

// partSuffix marks in-flight objects. A failed or canceled transfer leaves
// its .part file behind; sweeping those is the store operator's job, not the
// core's.
const partSuffix = ".part"

// Store is a filesystem-backed ObjectStore rooted at a library directory.
type Store struct {
	root    string
	baseURL string
	minFree int64
	logger  *slog.Logger
	statfs  func(path string) (free int64, err error)
}

// Option configures the store.
type Option func(*Store)

// WithBaseURL makes DownloadReference produce baseURL-joined links instead
// of file:// URLs.
func WithBaseURL(base string) Option {
	return func(s *Store) { s.baseURL = strings.TrimRight(base, "/") }
}

// WithMinFreeBytes refuses new transfers when the volume has less free space.
func WithMinFreeBytes(minFree int64) Option {
	return func(s *Store) { s.minFree = minFree }
}

// WithLogger attaches a logger; a no-op logger is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New constructs a Store rooted at dir.
func New(dir string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("blobfs: root directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("blobfs: create root: %w", err)
	}
	s := &Store{root: dir, statfs: freeBytes}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "blobfs")
	return s, nil
}

// Put starts a chunked transfer of content to path. The returned handle
// streams monotonic progress and can be canceled mid-flight; cancellation
// leaves any partial object behind under the part suffix.
func (s *Store) Put(ctx context.Context, objectPath string, content io.Reader, size int64, contentType string) (store.Transfer, error) {
	target, err := s.resolve(objectPath)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, services.Wrap(services.ErrValidation, "blobfs", "put", "nil content", nil)
	}
	if err := s.checkFreeSpace(size); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, services.Wrap(services.ErrTransfer, "blobfs", "put", "create object directory", err)
	}

	tctx, cancel := context.WithCancel(ctx)
	t := &transfer{
		progress: make(chan store.Progress, 1),
		done:     make(chan struct{}),
		cancel:   cancel,
	}
	go t.run(tctx, target, content, size)

	s.logger.Debug("transfer started",
		logging.String("path", objectPath),
		logging.Int64("bytes_total", size),
		logging.String("content_type", contentType))
	return t, nil
}

// DownloadReference resolves a stored object path to a URL. The object must
// exist; a reference to a never-landed object would break the commit gate.
func (s *Store) DownloadReference(_ context.Context, objectPath string) (string, error) {
	target, err := s.resolve(objectPath)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(target); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", services.Wrap(services.ErrNotFound, "blobfs", "download_reference", objectPath, nil)
		}
		return "", services.Wrap(services.ErrQuery, "blobfs", "download_reference", "stat object", err)
	}
	if s.baseURL != "" {
		return s.baseURL + "/" + path.Clean(objectPath), nil
	}
	return (&url.URL{Scheme: "file", Path: target}).String(), nil
}

func (s *Store) resolve(objectPath string) (string, error) {
	cleaned := path.Clean(strings.TrimSpace(objectPath))
	if cleaned == "" || cleaned == "." || strings.HasPrefix(cleaned, "..") || path.IsAbs(cleaned) {
		return "", services.Wrap(services.ErrValidation, "blobfs", "resolve", fmt.Sprintf("invalid object path %q", objectPath), nil)
	}
	return filepath.Join(s.root, filepath.FromSlash(cleaned)), nil
}

func (s *Store) checkFreeSpace(size int64) error {
	if s.minFree <= 0 && size <= 0 {
		return nil
	}
	free, err := s.statfs(s.root)
	if err != nil {
		// Statfs failing is not worth refusing an upload over.
		s.logger.Warn("free space check failed", logging.Error(err))
		return nil
	}
	need := size + s.minFree
	if free < need {
		return services.Wrap(services.ErrValidation, "blobfs", "put",
			fmt.Sprintf("insufficient free space: %d bytes available, %d required", free, need), nil)
	}
	return nil
}

func freeBytes(dir string) (int64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return 0, err
	}
	return int64(st.Bavail) * int64(st.Bsize), nil
}

type transfer struct {
	progress chan store.Progress
	done     chan struct{}
	cancel   context.CancelFunc

	mu  sync.Mutex
	err error
}

func (t *transfer) Progress() <-chan store.Progress { return t.progress }

func (t *transfer) Cancel() { t.cancel() }

func (t *transfer) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.done:
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *transfer) run(ctx context.Context, target string, content io.Reader, size int64) {
	defer close(t.done)
	defer close(t.progress)
	defer t.cancel()

	err := t.copy(ctx, target, content, size)
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()
}

func (t *transfer) copy(ctx context.Context, target string, content io.Reader, size int64) error {
	part := target + partSuffix
	out, err := os.Create(part)
	if err != nil {
		return services.Wrap(services.ErrTransfer, "blobfs", "transfer", "create object", err)
	}
	defer out.Close()

	var sent int64
	buf := make([]byte, chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return services.Wrap(services.ErrTransfer, "blobfs", "transfer", "canceled", err)
		}
		n, readErr := content.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				return services.Wrap(services.ErrTransfer, "blobfs", "transfer", "write object", writeErr)
			}
			sent += int64(n)
			t.emit(store.Progress{BytesSent: sent, BytesTotal: size})
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return services.Wrap(services.ErrTransfer, "blobfs", "transfer", "read content", readErr)
		}
	}

	if err := out.Sync(); err != nil {
		return services.Wrap(services.ErrTransfer, "blobfs", "transfer", "sync object", err)
	}
	if err := out.Close(); err != nil {
		return services.Wrap(services.ErrTransfer, "blobfs", "transfer", "close object", err)
	}
	if err := os.Rename(part, target); err != nil {
		return services.Wrap(services.ErrTransfer, "blobfs", "transfer", "finalize object", err)
	}
	// Final point so slow consumers still observe completion.
	t.emitBlocking(store.Progress{BytesSent: sent, BytesTotal: size})
	return nil
}

// emit coalesces: intermediate points may be dropped when the consumer lags,
// monotonicity is preserved because only newer points replace older ones.
func (t *transfer) emit(p store.Progress) {
	select {
	case t.progress <- p:
	default:
		select {
		case <-t.progress:
		default:
		}
		select {
		case t.progress <- p:
		default:
		}
	}
}

func (t *transfer) emitBlocking(p store.Progress) {
	select {
	case t.progress <- p:
	default:
		select {
		case <-t.progress:
		default:
		}
		t.progress <- p
	}
}

var _ store.ObjectStore = (*Store)(nil)
