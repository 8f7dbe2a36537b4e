// Package blobfs implements the ObjectStore contract on the local
// filesystem. Objects land under a library root via a temp-file write and
// rename, so a path only ever resolves to fully transferred bytes.
package blobfs
