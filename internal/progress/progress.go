package progress

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"streamlet/internal/logging"
	"streamlet/internal/services"
	"streamlet/internal/store"
)

// Collection holds one document per viewer/asset pair.
const Collection = "watch_progress"

// DefaultThrottle spaces out steady playback writes.
const DefaultThrottle = 2 * time.Second

// Key is the document id for a viewer's progress on an asset.
func Key(ownerID, assetID string) string {
	return ownerID + "/" + assetID
}

// Record is one persisted playback observation.
type Record struct {
	OwnerID          string
	AssetID          string
	TitleSnapshot    string
	PositionSeconds  float64
	DurationSeconds  float64
	FractionComplete float64
	UpdatedAt        time.Time
}

// Fields encodes the record as document fields.
func (r Record) Fields() map[string]any {
	return map[string]any{
		"ownerId":          r.OwnerID,
		"assetId":          r.AssetID,
		"titleSnapshot":    r.TitleSnapshot,
		"positionSeconds":  r.PositionSeconds,
		"durationSeconds":  r.DurationSeconds,
		"fractionComplete": r.FractionComplete,
		"updatedAt":        store.FormatTime(r.UpdatedAt),
	}
}

// FromDocument validates and decodes a stored progress document.
func FromDocument(doc store.Document) (Record, error) {
	var r Record
	var ok bool
	if r.OwnerID, ok = store.StringField(doc.Fields, "ownerId"); !ok || r.OwnerID == "" {
		return Record{}, invalid("missing ownerId")
	}
	if r.AssetID, ok = store.StringField(doc.Fields, "assetId"); !ok || r.AssetID == "" {
		return Record{}, invalid("missing assetId")
	}
	r.TitleSnapshot, _ = store.StringField(doc.Fields, "titleSnapshot")
	if r.PositionSeconds, ok = store.FloatField(doc.Fields, "positionSeconds"); !ok {
		return Record{}, invalid("missing positionSeconds")
	}
	if r.DurationSeconds, ok = store.FloatField(doc.Fields, "durationSeconds"); !ok {
		return Record{}, invalid("missing durationSeconds")
	}
	if r.FractionComplete, ok = store.FloatField(doc.Fields, "fractionComplete"); !ok {
		return Record{}, invalid("missing fractionComplete")
	}
	if r.UpdatedAt, ok = store.TimeField(doc.Fields, "updatedAt"); !ok {
		return Record{}, invalid("missing updatedAt")
	}
	return r, nil
}

func invalid(message string) error {
	return services.Wrap(services.ErrValidation, "progress", "decode", message, nil)
}

// Options configures a Synchronizer.
type Options struct {
	// Throttle is the minimum spacing between steady playback writes.
	Throttle time.Duration
	Logger   *slog.Logger
}

// Synchronizer persists playback positions so a viewer can resume where they
// left off. Observations without a usable duration are dropped rather than
// stored as garbage.
type Synchronizer struct {
	documents store.DocumentStore
	throttle  time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewSynchronizer constructs a Synchronizer over the document store.
func NewSynchronizer(documents store.DocumentStore, opts Options) *Synchronizer {
	throttle := opts.Throttle
	if throttle <= 0 {
		throttle = DefaultThrottle
	}
	return &Synchronizer{
		documents: documents,
		throttle:  throttle,
		logger:    logging.NewComponentLogger(opts.Logger, "progress"),
		now:       time.Now,
	}
}

// Record persists a single observation, merging over any prior one for the
// same viewer/asset pair. Observations with a non-positive or non-finite
// duration are a silent no-op; it reports whether a write happened.
func (s *Synchronizer) Record(ctx context.Context, ownerID, assetID, title string, positionSeconds, durationSeconds float64) (bool, error) {
	if strings.TrimSpace(ownerID) == "" || strings.TrimSpace(assetID) == "" {
		return false, services.Wrap(services.ErrValidation, "progress", "record", "owner and asset ids required", nil)
	}
	if durationSeconds <= 0 || math.IsNaN(durationSeconds) || math.IsInf(durationSeconds, 0) {
		return false, nil
	}
	if math.IsNaN(positionSeconds) || math.IsInf(positionSeconds, 0) {
		return false, nil
	}

	record := Record{
		OwnerID:          ownerID,
		AssetID:          assetID,
		TitleSnapshot:    title,
		PositionSeconds:  math.Max(math.Floor(positionSeconds), 0),
		DurationSeconds:  durationSeconds,
		FractionComplete: clampFraction(positionSeconds / durationSeconds),
		UpdatedAt:        s.now().UTC(),
	}
	if err := s.documents.Merge(ctx, Collection, Key(ownerID, assetID), record.Fields()); err != nil {
		return false, services.Wrap(services.ErrQuery, "progress", "record", "write progress", err)
	}
	return true, nil
}

// Resume returns the viewer's saved position for an asset. Absence is not an
// error; it reports (0, false, nil).
func (s *Synchronizer) Resume(ctx context.Context, ownerID, assetID string) (float64, bool, error) {
	doc, ok, err := s.documents.Get(ctx, Collection, Key(ownerID, assetID))
	if err != nil {
		return 0, false, services.Wrap(services.ErrQuery, "progress", "resume", "read progress", err)
	}
	if !ok {
		return 0, false, nil
	}
	record, err := FromDocument(doc)
	if err != nil {
		return 0, false, err
	}
	return record.PositionSeconds, true, nil
}

// ForOwner lists a viewer's progress records, most recent first.
func (s *Synchronizer) ForOwner(ctx context.Context, ownerID string, limit int) ([]Record, error) {
	docs, err := s.documents.Query(ctx, Collection,
		[]store.Filter{{Field: "ownerId", Value: ownerID}},
		store.Order{Field: "updatedAt", Desc: true}, limit)
	if err != nil {
		return nil, services.Wrap(services.ErrQuery, "progress", "for_owner", "query progress", err)
	}
	records := make([]Record, 0, len(docs))
	for _, doc := range docs {
		record, err := FromDocument(doc)
		if err != nil {
			s.logger.Warn("skipping malformed progress record",
				logging.String("id", doc.ID), logging.Error(err))
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// Session throttles steady playback updates for one viewer/asset pair.
// Update writes at most once per throttle interval; Flush writes immediately
// and is meant for pause, stop, and end-of-media events.
type Session struct {
	sync    *Synchronizer
	ownerID string
	assetID string
	title   string

	mu        sync.Mutex
	lastWrite time.Time
}

// Session opens a throttled recording session.
func (s *Synchronizer) Session(ownerID, assetID, title string) *Session {
	return &Session{sync: s, ownerID: ownerID, assetID: assetID, title: title}
}

// Update records a steady playback tick, subject to throttling. It reports
// whether the observation was persisted.
func (sess *Session) Update(ctx context.Context, positionSeconds, durationSeconds float64) (bool, error) {
	sess.mu.Lock()
	now := sess.sync.now()
	if !sess.lastWrite.IsZero() && now.Sub(sess.lastWrite) < sess.sync.throttle {
		sess.mu.Unlock()
		return false, nil
	}
	sess.mu.Unlock()
	return sess.flush(ctx, positionSeconds, durationSeconds)
}

// Flush records the observation immediately, bypassing the throttle, and
// resets the throttle clock.
func (sess *Session) Flush(ctx context.Context, positionSeconds, durationSeconds float64) (bool, error) {
	return sess.flush(ctx, positionSeconds, durationSeconds)
}

func (sess *Session) flush(ctx context.Context, positionSeconds, durationSeconds float64) (bool, error) {
	persisted, err := sess.sync.Record(ctx, sess.ownerID, sess.assetID, sess.title, positionSeconds, durationSeconds)
	if err != nil || !persisted {
		return persisted, err
	}
	sess.mu.Lock()
	sess.lastWrite = sess.sync.now()
	sess.mu.Unlock()
	return true, nil
}

func clampFraction(fraction float64) float64 {
	if math.IsNaN(fraction) {
		return 0
	}
	return math.Min(math.Max(fraction, 0), 1)
}
