package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks bad input rejected before any I/O.
	ErrValidation = errors.New("validation error")
	// ErrTransfer marks an object-store I/O failure during upload. Retryable
	// by restarting from a fresh reservation.
	ErrTransfer = errors.New("transfer error")
	// ErrCommit marks a document-store write failure after a successful
	// transfer. Retryable with the identical reservation and object reference.
	ErrCommit = errors.New("commit error")
	// ErrThumbnail marks poster derivation failures. Always recovered locally
	// and never surfaced past the extractor.
	ErrThumbnail = errors.New("thumbnail error")
	// ErrQuery marks a store-reported query failure.
	ErrQuery = errors.New("query error")
	// ErrTimeout marks a query that exceeded its client-side bound. Kept
	// distinct from ErrQuery so callers can offer differentiated retry
	// messaging.
	ErrTimeout = errors.New("timeout")
	// ErrNotFound marks an absent asset or record where absence is an error.
	ErrNotFound = errors.New("not found")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrQuery
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether the caller can retry the failed operation.
// Transfer failures retry from a fresh reservation; commit failures retry
// with the same reservation and object reference; timeouts retry as-is.
func Retryable(err error) bool {
	switch {
	case errors.Is(err, ErrTransfer), errors.Is(err, ErrCommit), errors.Is(err, ErrTimeout):
		return true
	default:
		return false
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
