package progress

import (
	"context"
	"math"
	"testing"
	"time"

	"streamlet/internal/store/docdb"
)

func newSynchronizer(t *testing.T) (*Synchronizer, *docdb.Store) {
	t.Helper()
	documents, err := docdb.Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("docdb.Open: %v", err)
	}
	t.Cleanup(func() { documents.Close() })
	return NewSynchronizer(documents, Options{}), documents
}

func TestRecordNoOpWithoutUsableDuration(t *testing.T) {
	s, documents := newSynchronizer(t)
	ctx := context.Background()

	for _, duration := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		persisted, err := s.Record(ctx, "u1", "a1", "Clip", 10, duration)
		if err != nil {
			t.Fatalf("duration %v: %v", duration, err)
		}
		if persisted {
			t.Fatalf("duration %v: observation should be dropped", duration)
		}
	}

	_, ok, err := documents.Get(ctx, Collection, Key("u1", "a1"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("dropped observations still wrote a document")
	}
}

func TestRecordFloorsPositionAndClampsFraction(t *testing.T) {
	s, documents := newSynchronizer(t)
	ctx := context.Background()

	if _, err := s.Record(ctx, "u1", "a1", "Clip", 12.9, 100); err != nil {
		t.Fatalf("Record: %v", err)
	}
	doc, _, err := documents.Get(ctx, Collection, Key("u1", "a1"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	record, err := FromDocument(doc)
	if err != nil {
		t.Fatalf("FromDocument: %v", err)
	}
	if record.PositionSeconds != 12 {
		t.Fatalf("position = %v, want floor 12", record.PositionSeconds)
	}
	if math.Abs(record.FractionComplete-0.129) > 1e-9 {
		t.Fatalf("fraction = %v", record.FractionComplete)
	}
	if record.TitleSnapshot != "Clip" {
		t.Fatalf("title snapshot = %q", record.TitleSnapshot)
	}

	// Past the end and before the start clamp into [0, 1].
	if _, err := s.Record(ctx, "u1", "a1", "Clip", 250, 100); err != nil {
		t.Fatalf("Record past end: %v", err)
	}
	doc, _, _ = documents.Get(ctx, Collection, Key("u1", "a1"))
	if record, _ = FromDocument(doc); record.FractionComplete != 1 {
		t.Fatalf("fraction past end = %v", record.FractionComplete)
	}

	if _, err := s.Record(ctx, "u1", "a1", "Clip", -3, 100); err != nil {
		t.Fatalf("Record before start: %v", err)
	}
	doc, _, _ = documents.Get(ctx, Collection, Key("u1", "a1"))
	if record, _ = FromDocument(doc); record.FractionComplete != 0 || record.PositionSeconds != 0 {
		t.Fatalf("negative position record = %+v", record)
	}
}

func TestResume(t *testing.T) {
	s, _ := newSynchronizer(t)
	ctx := context.Background()

	position, ok, err := s.Resume(ctx, "u1", "a1")
	if err != nil {
		t.Fatalf("Resume absent: %v", err)
	}
	if ok || position != 0 {
		t.Fatalf("absent record: position=%v ok=%v", position, ok)
	}

	if _, err := s.Record(ctx, "u1", "a1", "Clip", 42.7, 120); err != nil {
		t.Fatalf("Record: %v", err)
	}
	position, ok, err = s.Resume(ctx, "u1", "a1")
	if err != nil || !ok {
		t.Fatalf("Resume: ok=%v err=%v", ok, err)
	}
	if position != 42 {
		t.Fatalf("position = %v", position)
	}
}

func TestSessionThrottlesSteadyUpdates(t *testing.T) {
	s, _ := newSynchronizer(t)
	ctx := context.Background()

	clock := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	sess := s.Session("u1", "a1", "Clip")

	persisted, err := sess.Update(ctx, 1, 100)
	if err != nil || !persisted {
		t.Fatalf("first update: persisted=%v err=%v", persisted, err)
	}

	clock = clock.Add(time.Second)
	if persisted, err = sess.Update(ctx, 2, 100); err != nil || persisted {
		t.Fatalf("throttled update: persisted=%v err=%v", persisted, err)
	}

	// Pause flushes regardless of the throttle window.
	if persisted, err = sess.Flush(ctx, 3, 100); err != nil || !persisted {
		t.Fatalf("flush: persisted=%v err=%v", persisted, err)
	}

	// Flush resets the clock, so the next tick is throttled again.
	clock = clock.Add(time.Second)
	if persisted, err = sess.Update(ctx, 4, 100); err != nil || persisted {
		t.Fatalf("update after flush: persisted=%v err=%v", persisted, err)
	}

	clock = clock.Add(DefaultThrottle)
	if persisted, err = sess.Update(ctx, 5, 100); err != nil || !persisted {
		t.Fatalf("update past throttle: persisted=%v err=%v", persisted, err)
	}

	position, ok, err := s.Resume(ctx, "u1", "a1")
	if err != nil || !ok || position != 5 {
		t.Fatalf("final position: %v ok=%v err=%v", position, ok, err)
	}
}

func TestSessionDroppedObservationKeepsThrottleClock(t *testing.T) {
	s, _ := newSynchronizer(t)
	ctx := context.Background()

	clock := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	sess := s.Session("u1", "a1", "Clip")

	// Metadata not loaded yet: no duration, nothing persists, and the next
	// usable observation is not throttled away.
	if persisted, err := sess.Update(ctx, 0, 0); err != nil || persisted {
		t.Fatalf("no-duration update: persisted=%v err=%v", persisted, err)
	}
	if persisted, err := sess.Update(ctx, 1, 100); err != nil || !persisted {
		t.Fatalf("first usable update: persisted=%v err=%v", persisted, err)
	}
}

func TestForOwnerOrdersByRecency(t *testing.T) {
	s, _ := newSynchronizer(t)
	ctx := context.Background()

	clock := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	for i, assetID := range []string{"a1", "a2", "a3"} {
		clock = clock.Add(time.Duration(i+1) * time.Minute)
		if _, err := s.Record(ctx, "u1", assetID, "Clip "+assetID, 10, 100); err != nil {
			t.Fatalf("Record %s: %v", assetID, err)
		}
	}
	if _, err := s.Record(ctx, "u2", "a9", "Other Viewer", 5, 100); err != nil {
		t.Fatalf("Record other viewer: %v", err)
	}

	records, err := s.ForOwner(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("ForOwner: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].AssetID != "a3" || records[1].AssetID != "a2" {
		t.Fatalf("unexpected order: %s, %s", records[0].AssetID, records[1].AssetID)
	}
}
