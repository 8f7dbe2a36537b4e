package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"streamlet/internal/asset"
	"streamlet/internal/logging"
	"streamlet/internal/services"
	"streamlet/internal/store"
)

type state int

const (
	stateReserved state = iota
	stateTransferring
	stateTransferred
	stateCommitted
	stateFailed
)

type reservation struct {
	assetID    string
	ownerID    string
	objectPath string
	state      state
	committed  asset.MediaAsset
}

// Options configures a Coordinator.
type Options struct {
	// AcceptedTypes lists content-type prefixes allowed for transfer.
	AcceptedTypes []string
	// PlaceholderPosterURL is attached at commit when no real poster is ready.
	PlaceholderPosterURL string
	Logger               *slog.Logger
}

// Coordinator drives the two-phase publish protocol: reserve an identity,
// transfer bytes, and only then commit metadata. A reservation is never
// discoverable by any query until commit.
type Coordinator struct {
	objects     store.ObjectStore
	documents   store.DocumentStore
	accepted    []string
	placeholder string
	logger      *slog.Logger
	now         func() time.Time

	mu           sync.Mutex
	reservations map[string]*reservation
}

// NewCoordinator constructs a Coordinator over the two store contracts.
func NewCoordinator(objects store.ObjectStore, documents store.DocumentStore, opts Options) *Coordinator {
	accepted := opts.AcceptedTypes
	if len(accepted) == 0 {
		accepted = []string{"video/"}
	}
	placeholder := opts.PlaceholderPosterURL
	if placeholder == "" {
		placeholder = "/streamlet.png"
	}
	return &Coordinator{
		objects:      objects,
		documents:    documents,
		accepted:     accepted,
		placeholder:  placeholder,
		logger:       logging.NewComponentLogger(opts.Logger, "upload"),
		now:          time.Now,
		reservations: make(map[string]*reservation),
	}
}

// PlaceholderPosterURL returns the shared fallback poster reference.
func (c *Coordinator) PlaceholderPosterURL() string { return c.placeholder }

// Reserve allocates a globally unique asset identity for ownerID. The id is
// not discoverable until a commit succeeds.
func (c *Coordinator) Reserve(ownerID string) (string, error) {
	if strings.TrimSpace(ownerID) == "" {
		return "", services.Wrap(services.ErrValidation, "upload", "reserve", "owner id required", nil)
	}
	id := uuid.NewString()

	c.mu.Lock()
	c.reservations[id] = &reservation{assetID: id, ownerID: ownerID, state: stateReserved}
	c.mu.Unlock()

	c.logger.Debug("reservation issued", logging.String("asset", id), logging.String("owner", ownerID))
	return id, nil
}

// BeginTransfer starts the byte transfer for a reservation. Empty content
// and unrecognized content types are rejected before any I/O. The returned
// handle streams monotonic progress and can be canceled; cancellation leaves
// the reservation uncommitted and guarantees no later commit.
func (c *Coordinator) BeginTransfer(ctx context.Context, assetID string, content io.Reader, size int64, contentType, filename string) (*Transfer, error) {
	c.mu.Lock()
	res, ok := c.reservations[assetID]
	if !ok {
		c.mu.Unlock()
		return nil, services.Wrap(services.ErrNotFound, "upload", "begin_transfer", fmt.Sprintf("unknown reservation %s", assetID), nil)
	}
	if res.state != stateReserved {
		c.mu.Unlock()
		return nil, services.Wrap(services.ErrValidation, "upload", "begin_transfer", "reservation is not awaiting transfer", nil)
	}

	if content == nil || size <= 0 {
		c.mu.Unlock()
		return nil, services.Wrap(services.ErrValidation, "upload", "begin_transfer", "empty file", nil)
	}
	if !c.contentTypeAccepted(contentType) {
		c.mu.Unlock()
		return nil, services.Wrap(services.ErrValidation, "upload", "begin_transfer", fmt.Sprintf("unsupported content type %q", contentType), nil)
	}

	res.objectPath = asset.MediaObjectPath(res.ownerID, res.assetID, asset.ExtFromName(filename))
	res.state = stateTransferring
	c.mu.Unlock()

	inner, err := c.objects.Put(ctx, res.objectPath, content, size, contentType)
	if err != nil {
		c.fail(assetID)
		return nil, err
	}

	logging.WithContextAttrs(ctx, c.logger).Info("transfer started",
		logging.String("asset", assetID),
		logging.String("path", res.objectPath),
		logging.Int64("bytes_total", size))
	return &Transfer{coordinator: c, assetID: assetID, inner: inner}, nil
}

// CommitMetadata is the caller-supplied portion of an asset record.
type CommitMetadata struct {
	Title      string
	Visibility asset.Visibility
	// PosterURL is the derived poster reference, empty when derivation did
	// not finish in time. The shared placeholder is substituted.
	PosterURL string
}

// Commit writes the MediaAsset record for a completed transfer. It is
// idempotent: retrying with the same reservation and object reference
// returns the stored asset without creating a duplicate. A failed commit
// leaves the reservation retryable without re-running the transfer.
func (c *Coordinator) Commit(ctx context.Context, assetID string, meta CommitMetadata) (asset.MediaAsset, error) {
	c.mu.Lock()
	res, ok := c.reservations[assetID]
	if !ok {
		c.mu.Unlock()
		return asset.MediaAsset{}, services.Wrap(services.ErrNotFound, "upload", "commit", fmt.Sprintf("unknown reservation %s", assetID), nil)
	}
	if res.state == stateCommitted {
		committed := res.committed
		c.mu.Unlock()
		return committed, nil
	}
	if res.state != stateTransferred {
		c.mu.Unlock()
		return asset.MediaAsset{}, services.Wrap(services.ErrValidation, "upload", "commit", "transfer has not completed", nil)
	}
	ownerID := res.ownerID
	objectPath := res.objectPath
	c.mu.Unlock()

	title := strings.TrimSpace(meta.Title)
	if title == "" {
		return asset.MediaAsset{}, services.Wrap(services.ErrValidation, "upload", "commit", "title required", nil)
	}
	visibility := meta.Visibility
	if visibility == "" {
		visibility = asset.VisibilityPublic
	}
	posterURL := meta.PosterURL
	if posterURL == "" {
		posterURL = c.placeholder
	}

	playableURL, err := c.objects.DownloadReference(ctx, objectPath)
	if err != nil {
		return asset.MediaAsset{}, services.Wrap(services.ErrCommit, "upload", "commit", "resolve download reference", err)
	}

	now := c.now().UTC()
	record := asset.MediaAsset{
		ID:          assetID,
		OwnerID:     ownerID,
		Title:       title,
		Visibility:  visibility,
		ObjectPath:  objectPath,
		PlayableURL: playableURL,
		PosterURL:   posterURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := c.documents.Set(ctx, asset.Collection, assetID, record.Fields()); err != nil {
		// Object bytes persist; the caller retries commit with the same ids.
		return asset.MediaAsset{}, services.Wrap(services.ErrCommit, "upload", "commit", "write asset record", err)
	}

	c.mu.Lock()
	res.state = stateCommitted
	res.committed = record
	c.mu.Unlock()

	logging.WithContextAttrs(ctx, c.logger).Info("asset committed",
		logging.String("asset", assetID),
		logging.String("owner", ownerID),
		logging.String("title", title),
		logging.String("visibility", string(visibility)))
	return record, nil
}

// PublishPoster uploads a derived poster for a reservation and returns its
// reference. Failures classify as thumbnail errors so callers degrade to the
// placeholder instead of failing the publish.
func (c *Coordinator) PublishPoster(ctx context.Context, assetID string, data []byte) (string, error) {
	c.mu.Lock()
	res, ok := c.reservations[assetID]
	if !ok || res.state == stateFailed {
		c.mu.Unlock()
		return "", services.Wrap(services.ErrThumbnail, "upload", "publish_poster", "no active reservation", nil)
	}
	ownerID := res.ownerID
	c.mu.Unlock()

	if len(data) == 0 {
		return "", services.Wrap(services.ErrThumbnail, "upload", "publish_poster", "empty poster", nil)
	}

	posterPath := asset.PosterObjectPath(ownerID, assetID)
	transfer, err := c.objects.Put(ctx, posterPath, bytes.NewReader(data), int64(len(data)), "image/jpeg")
	if err != nil {
		return "", services.Wrap(services.ErrThumbnail, "upload", "publish_poster", "store poster", err)
	}
	if err := transfer.Wait(ctx); err != nil {
		return "", services.Wrap(services.ErrThumbnail, "upload", "publish_poster", "store poster", err)
	}
	ref, err := c.objects.DownloadReference(ctx, posterPath)
	if err != nil {
		return "", services.Wrap(services.ErrThumbnail, "upload", "publish_poster", "resolve poster reference", err)
	}
	return ref, nil
}

func (c *Coordinator) contentTypeAccepted(contentType string) bool {
	normalized := strings.ToLower(strings.TrimSpace(contentType))
	if normalized == "" {
		return false
	}
	for _, prefix := range c.accepted {
		if prefix != "" && strings.HasPrefix(normalized, prefix) {
			return true
		}
	}
	return false
}

func (c *Coordinator) fail(assetID string) {
	c.mu.Lock()
	if res, ok := c.reservations[assetID]; ok && res.state != stateCommitted {
		res.state = stateFailed
	}
	c.mu.Unlock()
}

func (c *Coordinator) markTransferred(assetID string) {
	c.mu.Lock()
	if res, ok := c.reservations[assetID]; ok && res.state == stateTransferring {
		res.state = stateTransferred
	}
	c.mu.Unlock()
}

// Transfer is the caller's handle on an in-flight upload.
type Transfer struct {
	coordinator *Coordinator
	assetID     string
	inner       store.Transfer

	once sync.Once
	err  error
}

// Progress yields monotonic (bytesSent, bytesTotal) points; the channel
// closes when the transfer settles.
func (t *Transfer) Progress() <-chan store.Progress { return t.inner.Progress() }

// Cancel aborts the transfer. The reservation stays uncommitted; any
// partially present object is store-side garbage, and no commit can follow.
func (t *Transfer) Cancel() {
	t.coordinator.fail(t.assetID)
	t.inner.Cancel()
}

// Wait blocks until the transfer settles and records the outcome on the
// reservation. Success unlocks Commit; failure abandons the reservation.
func (t *Transfer) Wait(ctx context.Context) error {
	t.once.Do(func() {
		err := t.inner.Wait(ctx)
		if err != nil {
			t.coordinator.fail(t.assetID)
			t.err = err
			return
		}
		t.coordinator.markTransferred(t.assetID)
	})
	return t.err
}
