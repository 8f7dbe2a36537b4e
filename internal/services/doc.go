// Package services defines shared utilities consumed by the media core
// components and the store adapters.
//
// Key responsibilities:
//   - Context helpers that stamp owner, asset, and correlation identifiers
//     for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the retry semantics each caller needs (restart the upload, retry
//     the commit, surface a distinct timeout).
//
// Use these helpers when wiring new component logic so operational behaviour
// (error handling, observability, retries) stays uniform across the core.
package services
