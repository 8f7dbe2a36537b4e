package docdb_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"streamlet/internal/services"
	"streamlet/internal/store"
	"streamlet/internal/store/docdb"
)

func openStore(t *testing.T) *docdb.Store {
	t.Helper()
	s, err := docdb.Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("docdb.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSetGetRoundTrip(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	fields := map[string]any{
		"ownerId":   "u1",
		"title":     "First Upload",
		"createdAt": store.FormatTime(time.Now()),
	}
	if err := s.Set(ctx, "assets", "a1", fields); err != nil {
		t.Fatalf("Set: %v", err)
	}

	doc, ok, err := s.Get(ctx, "assets", "a1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected document to exist")
	}
	if doc.Fields["title"] != "First Upload" {
		t.Fatalf("unexpected fields: %#v", doc.Fields)
	}

	_, ok, err = s.Get(ctx, "assets", "absent")
	if err != nil {
		t.Fatalf("Get absent: %v", err)
	}
	if ok {
		t.Fatal("absent document reported as existing")
	}
}

func TestSetReplacesMergeOverlays(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "assets", "a1", map[string]any{"title": "Old", "visibility": "public"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Merge(ctx, "assets", "a1", map[string]any{"title": "New"}); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	doc, _, err := s.Get(ctx, "assets", "a1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if doc.Fields["title"] != "New" || doc.Fields["visibility"] != "public" {
		t.Fatalf("merge lost fields: %#v", doc.Fields)
	}

	if err := s.Set(ctx, "assets", "a1", map[string]any{"title": "Replaced"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	doc, _, _ = s.Get(ctx, "assets", "a1")
	if _, ok := doc.Fields["visibility"]; ok {
		t.Fatalf("set should replace the whole field set: %#v", doc.Fields)
	}
}

func TestMergeCreatesWhenAbsent(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if err := s.Merge(ctx, "watch_progress", "u1/a1", map[string]any{"positionSeconds": 12.0}); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	doc, ok, err := s.Get(ctx, "watch_progress", "u1/a1")
	if err != nil || !ok {
		t.Fatalf("Get after merge: ok=%v err=%v", ok, err)
	}
	if doc.Fields["positionSeconds"] != 12.0 {
		t.Fatalf("unexpected fields: %#v", doc.Fields)
	}
}

func TestQueryFiltersOrderAndLimit(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, owner := range []string{"u1", "u2", "u1", "u1"} {
		fields := map[string]any{
			"ownerId":    owner,
			"visibility": "public",
			"createdAt":  store.FormatTime(base.Add(time.Duration(i) * time.Minute)),
		}
		if err := s.Set(ctx, "assets", string(rune('a'+i)), fields); err != nil {
			t.Fatalf("Set %d: %v", i, err)
		}
	}

	docs, err := s.Query(ctx, "assets",
		[]store.Filter{{Field: "ownerId", Value: "u1"}},
		store.Order{Field: "createdAt", Desc: true}, 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
	if docs[0].ID != "d" || docs[1].ID != "c" {
		t.Fatalf("unexpected order: %s, %s", docs[0].ID, docs[1].ID)
	}
}

func TestQueryEmptyCollection(t *testing.T) {
	s := openStore(t)
	docs, err := s.Query(context.Background(), "assets", nil, store.Order{Field: "createdAt", Desc: true}, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected no docs, got %d", len(docs))
	}
}

func TestQueryRejectsBadFieldNames(t *testing.T) {
	s := openStore(t)
	_, err := s.Query(context.Background(), "assets",
		[]store.Filter{{Field: "title') OR 1=1 --", Value: "x"}}, store.Order{}, 1)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestOpenRefusesSecondProcessLock(t *testing.T) {
	dir := t.TempDir()
	first, err := docdb.Open(dir, nil)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	defer first.Close()

	if _, err := docdb.Open(dir, nil); err == nil {
		t.Fatal("expected second Open on the same directory to fail")
	}
}
