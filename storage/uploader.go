package storage

import (
	"context"
	"io"
)

// UploadResult describes a stored object: the bucket key it was written
// under, its public location, and the ETag the bucket reported.
type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader stores user-submitted images — avatars and game cover art —
// in an object bucket. Keys are caller-chosen (e.g. avatars/{userID}/{uuid})
// so replacing an image never collides with the previous one.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	// Delete removes a stale object, typically the previous avatar after a
	// replacement upload succeeds.
	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}
