// Package store defines the two persistence contracts the media core is
// written against: an ObjectStore for payload bytes (resumable, cancelable
// puts with progress) and a DocumentStore for metadata records (get, set,
// merge, filtered queries).
//
// Concrete adapters live in the blobfs and docdb subpackages. Components
// receive the contracts by injection; nothing in the core reaches a global
// store handle.
package store
