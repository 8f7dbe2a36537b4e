// Package docdb implements the DocumentStore contract on SQLite. Documents
// are JSON field sets keyed by (collection, id); equality filters and
// ordering go through json_extract so query shapes stay close to the
// document model rather than the storage engine.
package docdb
