// Package asset defines the MediaAsset record, its object-store path
// conventions, and the schema validation applied when documents cross the
// store boundary.
package asset
