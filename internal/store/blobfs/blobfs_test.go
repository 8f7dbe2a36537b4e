package blobfs_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"streamlet/internal/services"
	"streamlet/internal/store"
	"streamlet/internal/store/blobfs"
)

func TestPutWritesObjectAndReportsProgress(t *testing.T) {
	root := t.TempDir()
	s, err := blobfs.New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	payload := bytes.Repeat([]byte("streamlet"), 100_000)
	ctx := context.Background()
	transfer, err := s.Put(ctx, "media/u1/a1.mp4", bytes.NewReader(payload), int64(len(payload)), "video/mp4")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	var last store.Progress
	for p := range transfer.Progress() {
		if p.BytesSent < last.BytesSent {
			t.Fatalf("progress regressed: %d -> %d", last.BytesSent, p.BytesSent)
		}
		if p.BytesTotal != int64(len(payload)) {
			t.Fatalf("unexpected total %d", p.BytesTotal)
		}
		last = p
	}
	if err := transfer.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if last.BytesSent != int64(len(payload)) {
		t.Fatalf("final progress %d, want %d", last.BytesSent, len(payload))
	}

	data, err := os.ReadFile(filepath.Join(root, "media", "u1", "a1.mp4"))
	if err != nil {
		t.Fatalf("read object: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatal("object bytes differ from payload")
	}
}

func TestCancelLeavesNoFinalObject(t *testing.T) {
	root := t.TempDir()
	s, err := blobfs.New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// A reader that never finishes so cancellation wins the race.
	transfer, err := s.Put(context.Background(), "media/u1/a2.mp4", endlessReader{}, 1<<20, "video/mp4")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	transfer.Cancel()

	err = transfer.Wait(context.Background())
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if !errors.Is(err, services.ErrTransfer) {
		t.Fatalf("expected ErrTransfer classification, got %v", err)
	}

	if _, statErr := os.Stat(filepath.Join(root, "media", "u1", "a2.mp4")); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("final object must not exist after cancel: %v", statErr)
	}
}

func TestPutRejectsBadPaths(t *testing.T) {
	s, err := blobfs.New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, path := range []string{"", "../escape.mp4", "/abs.mp4"} {
		_, err := s.Put(context.Background(), path, strings.NewReader("x"), 1, "video/mp4")
		if !errors.Is(err, services.ErrValidation) {
			t.Fatalf("path %q: expected ErrValidation, got %v", path, err)
		}
	}
}

func TestDownloadReference(t *testing.T) {
	root := t.TempDir()
	s, err := blobfs.New(root, blobfs.WithBaseURL("https://cdn.example/v1/"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	if _, err := s.DownloadReference(ctx, "media/u1/missing.mp4"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for absent object, got %v", err)
	}

	payload := []byte("bytes")
	transfer, err := s.Put(ctx, "media/u1/a3.mp4", bytes.NewReader(payload), int64(len(payload)), "video/mp4")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := transfer.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	ref, err := s.DownloadReference(ctx, "media/u1/a3.mp4")
	if err != nil {
		t.Fatalf("DownloadReference: %v", err)
	}
	if ref != "https://cdn.example/v1/media/u1/a3.mp4" {
		t.Fatalf("unexpected reference %q", ref)
	}
}

func TestDownloadReferenceFileURLWithoutBase(t *testing.T) {
	root := t.TempDir()
	s, err := blobfs.New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	payload := []byte("bytes")
	transfer, err := s.Put(ctx, "posters/u1/a3.jpg", bytes.NewReader(payload), int64(len(payload)), "image/jpeg")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := transfer.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	ref, err := s.DownloadReference(ctx, "posters/u1/a3.jpg")
	if err != nil {
		t.Fatalf("DownloadReference: %v", err)
	}
	if !strings.HasPrefix(ref, "file://") || !strings.HasSuffix(ref, "/posters/u1/a3.jpg") {
		t.Fatalf("unexpected reference %q", ref)
	}
}

// endlessReader yields bytes forever; only cancellation stops the copy loop.
type endlessReader struct{}

func (endlessReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 'x'
	}
	return len(p), nil
}
