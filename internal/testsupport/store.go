package testsupport

import (
	"testing"

	"streamlet/internal/config"
	"streamlet/internal/store/blobfs"
	"streamlet/internal/store/docdb"
)

// MustOpenDocumentStore opens a docdb.Store for tests and registers cleanup.
func MustOpenDocumentStore(t testing.TB, cfg *config.Config) *docdb.Store {
	t.Helper()

	documents, err := docdb.Open(cfg.Paths.DataDir, nil)
	if err != nil {
		t.Fatalf("docdb.Open: %v", err)
	}
	t.Cleanup(func() {
		documents.Close()
	})
	return documents
}

// MustOpenObjectStore opens a blobfs.Store rooted at the test library dir.
func MustOpenObjectStore(t testing.TB, cfg *config.Config) *blobfs.Store {
	t.Helper()

	opts := []blobfs.Option{}
	if cfg.Store.PublicBaseURL != "" {
		opts = append(opts, blobfs.WithBaseURL(cfg.Store.PublicBaseURL))
	}
	objects, err := blobfs.New(cfg.Paths.LibraryDir, opts...)
	if err != nil {
		t.Fatalf("blobfs.New: %v", err)
	}
	return objects
}
