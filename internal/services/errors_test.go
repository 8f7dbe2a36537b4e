package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"streamlet/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("disk full")
	err := services.Wrap(services.ErrTransfer, "upload", "put", "object write failed", base)

	if !errors.Is(err, services.ErrTransfer) {
		t.Fatalf("expected ErrTransfer classification, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped cause to survive, got %v", err)
	}
	if !strings.Contains(err.Error(), "upload: put: object write failed") {
		t.Fatalf("unexpected detail: %v", err)
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := services.Wrap(services.ErrValidation, "upload", "begin", "empty content", nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestWrapNilMarkerDefaultsToQuery(t *testing.T) {
	err := services.Wrap(nil, "feed", "discover", "", errors.New("boom"))
	if !errors.Is(err, services.ErrQuery) {
		t.Fatalf("expected ErrQuery fallback, got %v", err)
	}
}

func TestTimeoutDistinctFromQuery(t *testing.T) {
	err := services.Wrap(services.ErrTimeout, "feed", "discover", "deadline exceeded", nil)
	if errors.Is(err, services.ErrQuery) {
		t.Fatalf("timeout must not classify as query error: %v", err)
	}
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		marker error
		want   bool
	}{
		{services.ErrTransfer, true},
		{services.ErrCommit, true},
		{services.ErrTimeout, true},
		{services.ErrValidation, false},
		{services.ErrQuery, false},
		{services.ErrNotFound, false},
	}
	for _, tc := range cases {
		err := fmt.Errorf("%w: context", tc.marker)
		if got := services.Retryable(err); got != tc.want {
			t.Fatalf("Retryable(%v) = %v, want %v", tc.marker, got, tc.want)
		}
	}
}
