// Package upload implements the two-phase publish protocol. A caller
// reserves an asset identity, streams the payload into the object store, and
// commits metadata only once the bytes are durable. Reservations are held in
// memory; anything not committed is invisible to every query path.
package upload
