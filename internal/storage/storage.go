// Package storage abstracts where uploaded documents live. The worker only
// needs three operations: put a file somewhere, make a handle usable as a
// local path (downloading when the backend is remote), and render an external
// URL for consumers.
package storage

import "context"

// Storage is the blob facade the pipeline consumes. A handle is an opaque
// backend-specific reference (a filesystem path, an object key, ...).
type Storage interface {
	// Upload stores the file and returns its handle.
	Upload(ctx context.Context, localPath string) (handle string, err error)
	// ResolveLocalPath returns an absolute local path for the handle,
	// downloading to a temporary file when the backend is remote. Callers
	// that receive a path different from the handle own its cleanup.
	ResolveLocalPath(ctx context.Context, handle string) (string, error)
	// ExternalURL renders a URL under which the blob is reachable from
	// outside, or "" when the backend has none.
	ExternalURL(handle string) string
}
