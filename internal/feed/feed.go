package feed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"streamlet/internal/asset"
	"streamlet/internal/logging"
	"streamlet/internal/progress"
	"streamlet/internal/services"
	"streamlet/internal/store"
)

// Mode selects how the discovery rail is ranked.
type Mode string

const (
	RankRecency Mode = "recency"
	RankShuffle Mode = "shuffle"
)

// ParseMode normalizes a ranking mode, defaulting to recency.
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "recency":
		return RankRecency, nil
	case "shuffle":
		return RankShuffle, nil
	default:
		return "", services.Wrap(services.ErrValidation, "feed", "parse_mode", fmt.Sprintf("unknown ranking mode %q", value), nil)
	}
}

// Options configures a Curator.
type Options struct {
	// PlaceholderPosterURL identifies assets whose poster derivation never
	// finished; discovery hides them.
	PlaceholderPosterURL string
	// PageSize caps every rail.
	PageSize int
	// ContinueFetchLimit over-fetches progress records so deduplication still
	// fills a page.
	ContinueFetchLimit int
	// BrowseFetchLimit over-fetches discovery candidates for the same reason.
	BrowseFetchLimit int
	// DiscoverTimeout bounds the discovery query regardless of store
	// behavior.
	DiscoverTimeout time.Duration
	Logger          *slog.Logger
}

// ResumeEntry is one continue-watching rail item.
type ResumeEntry struct {
	AssetID          string
	Title            string
	PositionSeconds  float64
	FractionComplete float64
	UpdatedAt        time.Time
}

// Curator assembles the three home rails: continue watching, discovery, and
// the viewer's own uploads. All rails are deduplicated and capped, asset
// rails hide placeholder posters, and discovery additionally prefers other
// people's uploads.
type Curator struct {
	documents       store.DocumentStore
	placeholder     string
	pageSize        int
	continueLimit   int
	browseLimit     int
	discoverTimeout time.Duration
	logger          *slog.Logger

	// shuffle is swapped in tests for a deterministic permutation.
	shuffle func(n int, swap func(i, j int))
}

// NewCurator constructs a Curator, filling unset options with defaults.
func NewCurator(documents store.DocumentStore, opts Options) *Curator {
	c := &Curator{
		documents:       documents,
		placeholder:     opts.PlaceholderPosterURL,
		pageSize:        opts.PageSize,
		continueLimit:   opts.ContinueFetchLimit,
		browseLimit:     opts.BrowseFetchLimit,
		discoverTimeout: opts.DiscoverTimeout,
		logger:          logging.NewComponentLogger(opts.Logger, "feed"),
		shuffle:         rand.Shuffle,
	}
	if c.placeholder == "" {
		c.placeholder = "/streamlet.png"
	}
	if c.pageSize <= 0 {
		c.pageSize = 12
	}
	if c.continueLimit <= 0 {
		c.continueLimit = 25
	}
	if c.browseLimit <= 0 {
		c.browseLimit = 50
	}
	if c.discoverTimeout <= 0 {
		c.discoverTimeout = 8 * time.Second
	}
	return c
}

// ContinueWatching lists the viewer's most recently watched assets, one
// entry per title, most recent first.
func (c *Curator) ContinueWatching(ctx context.Context, viewerID string) ([]ResumeEntry, error) {
	docs, err := c.documents.Query(ctx, progress.Collection,
		[]store.Filter{{Field: "ownerId", Value: viewerID}},
		store.Order{Field: "updatedAt", Desc: true}, c.continueLimit)
	if err != nil {
		return nil, services.Wrap(services.ErrQuery, "feed", "continue_watching", "query progress", err)
	}

	entries := make([]ResumeEntry, 0, c.pageSize)
	seen := make(map[string]struct{})
	for _, doc := range docs {
		record, err := progress.FromDocument(doc)
		if err != nil {
			c.logger.Warn("skipping malformed progress record",
				logging.String("id", doc.ID), logging.Error(err))
			continue
		}
		key := titleKey(record.TitleSnapshot)
		if key == "" {
			key = record.AssetID
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		entries = append(entries, ResumeEntry{
			AssetID:          record.AssetID,
			Title:            record.TitleSnapshot,
			PositionSeconds:  record.PositionSeconds,
			FractionComplete: record.FractionComplete,
			UpdatedAt:        record.UpdatedAt,
		})
		if len(entries) == c.pageSize {
			break
		}
	}
	return entries, nil
}

// Discover lists public assets for the browse rail. Assets still carrying
// the placeholder poster are hidden, other viewers' uploads are preferred
// with the viewer's own as fallback, and duplicates collapse to the
// first-seen asset. The query is bounded; exceeding the bound reports a
// timeout distinct from ordinary query failures.
func (c *Curator) Discover(ctx context.Context, viewerID string, mode Mode) ([]asset.MediaAsset, error) {
	docs, err := c.queryDiscover(ctx)
	if err != nil {
		return nil, err
	}

	all := make([]asset.MediaAsset, 0, len(docs))
	others := make([]asset.MediaAsset, 0, len(docs))
	for _, doc := range docs {
		a, err := asset.FromDocument(doc)
		if err != nil {
			c.logger.Warn("skipping malformed asset record",
				logging.String("id", doc.ID), logging.Error(err))
			continue
		}
		if a.PosterURL == "" || a.PosterURL == c.placeholder {
			continue
		}
		all = append(all, a)
		if a.OwnerID != viewerID {
			others = append(others, a)
		}
	}

	candidates := others
	if len(candidates) == 0 {
		// A viewer alone on the instance still gets a populated rail.
		candidates = all
	}
	candidates = dedupe(candidates)

	if mode == RankShuffle {
		c.shuffle(len(candidates), func(i, j int) {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		})
	}
	if len(candidates) > c.pageSize {
		candidates = candidates[:c.pageSize]
	}
	return candidates, nil
}

// OwnUploads lists the viewer's committed assets, newest first. Like the
// browse rail it hides assets whose poster is still the placeholder and
// collapses duplicates.
func (c *Curator) OwnUploads(ctx context.Context, ownerID string) ([]asset.MediaAsset, error) {
	docs, err := c.documents.Query(ctx, asset.Collection,
		[]store.Filter{{Field: "ownerId", Value: ownerID}},
		store.Order{Field: "createdAt", Desc: true}, c.browseLimit)
	if err != nil {
		return nil, services.Wrap(services.ErrQuery, "feed", "own_uploads", "query assets", err)
	}

	uploads := make([]asset.MediaAsset, 0, len(docs))
	for _, doc := range docs {
		a, err := asset.FromDocument(doc)
		if err != nil {
			c.logger.Warn("skipping malformed asset record",
				logging.String("id", doc.ID), logging.Error(err))
			continue
		}
		if a.PosterURL == "" || a.PosterURL == c.placeholder {
			continue
		}
		uploads = append(uploads, a)
	}
	uploads = dedupe(uploads)
	if len(uploads) > c.pageSize {
		uploads = uploads[:c.pageSize]
	}
	return uploads, nil
}

// queryDiscover runs the browse query under the configured bound. The bound
// holds even when the store ignores context cancellation, so the query runs
// in its own goroutine and the result is abandoned on timeout.
func (c *Curator) queryDiscover(ctx context.Context) ([]store.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, c.discoverTimeout)
	defer cancel()

	type result struct {
		docs []store.Document
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		docs, err := c.documents.Query(ctx, asset.Collection,
			[]store.Filter{{Field: "visibility", Value: string(asset.VisibilityPublic)}},
			store.Order{Field: "createdAt", Desc: true}, c.browseLimit)
		ch <- result{docs: docs, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, services.Wrap(services.ErrTimeout, "feed", "discover", "query exceeded deadline", ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return nil, services.Wrap(services.ErrQuery, "feed", "discover", "query assets", r.err)
		}
		return r.docs, nil
	}
}

// dedupe collapses assets sharing a normalized title or an object path to
// the first-seen entry, preserving input order.
func dedupe(assets []asset.MediaAsset) []asset.MediaAsset {
	kept := make([]asset.MediaAsset, 0, len(assets))
	seenTitle := make(map[string]struct{})
	seenPath := make(map[string]struct{})
	for _, a := range assets {
		key := titleKey(a.Title)
		if key != "" {
			if _, dup := seenTitle[key]; dup {
				continue
			}
		}
		if a.ObjectPath != "" {
			if _, dup := seenPath[a.ObjectPath]; dup {
				continue
			}
		}
		if key != "" {
			seenTitle[key] = struct{}{}
		}
		if a.ObjectPath != "" {
			seenPath[a.ObjectPath] = struct{}{}
		}
		kept = append(kept, a)
	}
	return kept
}

// titleKey normalizes a title for duplicate detection: case-folded with
// whitespace trimmed and collapsed. Casers carry transform state, so a
// fresh one is built per call.
func titleKey(title string) string {
	return strings.Join(strings.Fields(cases.Fold().String(title)), " ")
}
