package store

import (
	"context"
	"io"
	"time"
)

// Progress is one point of a transfer's progress stream. Streams are
// monotonically non-decreasing in BytesSent.
type Progress struct {
	BytesSent  int64
	BytesTotal int64
}

// Percent returns the completed share in [0,100], or 0 when the total is unknown.
func (p Progress) Percent() float64 {
	if p.BytesTotal <= 0 {
		return 0
	}
	pct := float64(p.BytesSent) / float64(p.BytesTotal) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// Transfer is a resumable byte transfer handle returned by ObjectStore.Put.
type Transfer interface {
	// Progress yields monotonic progress points. The channel closes when the
	// transfer finishes, fails, or is canceled.
	Progress() <-chan Progress
	// Cancel aborts the transfer. Any partially written object is left
	// behind as store-side garbage.
	Cancel()
	// Wait blocks until the transfer completes and returns its outcome.
	Wait(ctx context.Context) error
}

// ObjectStore is the blob side of the persistence contract: payload bytes
// addressed by caller-chosen paths.
type ObjectStore interface {
	Put(ctx context.Context, path string, content io.Reader, size int64, contentType string) (Transfer, error)
	// DownloadReference resolves a stored path to the URL players consume.
	DownloadReference(ctx context.Context, path string) (string, error)
}

// Filter restricts a query to documents whose field equals Value.
type Filter struct {
	Field string
	Value any
}

// Order names the field a query sorts on.
type Order struct {
	Field string
	Desc  bool
}

// Document is a stored record: an identifier plus loosely-typed fields.
// Consumers validate fields at this boundary through their schema decoders
// and never trust the raw map downstream.
type Document struct {
	ID     string
	Fields map[string]any
}

// DocumentStore is the metadata side of the persistence contract.
type DocumentStore interface {
	// Get returns the document and whether it exists.
	Get(ctx context.Context, collection, id string) (Document, bool, error)
	// Set writes the full field set, replacing any existing document.
	Set(ctx context.Context, collection, id string, fields map[string]any) error
	// Merge overlays fields onto the existing document, creating it if absent.
	Merge(ctx context.Context, collection, id string, fields map[string]any) error
	// Query returns documents matching every filter, sorted and capped.
	Query(ctx context.Context, collection string, filters []Filter, order Order, limit int) ([]Document, error)
}

// timeLayout is fixed-width so encoded timestamps sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTime encodes a timestamp for document fields.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// ParseTime decodes a document timestamp.
func ParseTime(value string) (time.Time, error) {
	return time.Parse(timeLayout, value)
}

// StringField extracts a string field, reporting whether it was present and
// correctly typed.
func StringField(fields map[string]any, key string) (string, bool) {
	v, ok := fields[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// FloatField extracts a numeric field. JSON round-trips deliver numbers as
// float64; native ints are accepted too.
func FloatField(fields map[string]any, key string) (float64, bool) {
	switch v := fields[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// TimeField extracts and parses a timestamp field.
func TimeField(fields map[string]any, key string) (time.Time, bool) {
	raw, ok := StringField(fields, key)
	if !ok {
		return time.Time{}, false
	}
	t, err := ParseTime(raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
