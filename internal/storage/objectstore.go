package storage

import "context"

// ObjectStore is the blob capability the pipeline depends on. Implementations
// return a stable location URL for each stored object.
type ObjectStore interface {
	// Upload stores raw document bytes under a fresh key.
	Upload(ctx context.Context, data []byte, contentType string) (string, error)

	// UploadJSON stores a JSON-serializable value, keyed by correlationID.
	UploadJSON(ctx context.Context, value any, correlationID string) (string, error)

	// Delete removes a previously stored object by its location URL or key.
	Delete(ctx context.Context, location string) error
}
