package storage

import (
	"context"
	"errors"
	"time"
)

// Presigned part-upload URLs are valid for one hour; download URLs default to
// a shorter window.
const (
	PartURLExpiry            = 1 * time.Hour
	DefaultDownloadURLExpiry = 15 * time.Minute
)

// Error constants for the storage layer. Implementations map backend-specific
// failures onto these so callers can branch without importing SDK types.
var (
	ErrObjectNotFound   = errors.New("object not found in storage")
	ErrStoreUnavailable = errors.New("object store unavailable")
)

// CompletedPart identifies one uploaded part of a multipart upload. The caller
// must submit parts sorted ascending by PartNumber; the backing store rejects
// out-of-order lists.
type CompletedPart struct {
	ETag       string
	PartNumber int32
}

// ObjectInfo is the metadata subset exposed by HeadObject.
type ObjectInfo struct {
	Size         int64
	LastModified time.Time
	ETag         string
}

// ObjectStore defines the interface for object storage operations: the
// multipart upload lifecycle plus single-object access. No operation retries
// internally; retry policy belongs to the caller.
type ObjectStore interface {
	// CreateMultipartUpload starts a multipart upload and returns its upload id.
	CreateMultipartUpload(ctx context.Context, key, contentType string) (string, error)

	// PresignUploadPart returns a time-bounded URL for uploading one part
	// directly to the store. PartNumber range validation is the caller's
	// responsibility.
	PresignUploadPart(ctx context.Context, key, uploadID string, partNumber int32) (string, error)

	// CompleteMultipartUpload finalizes the upload. Parts must already be
	// sorted ascending by part number.
	CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []CompletedPart) (string, error)

	// AbortMultipartUpload is best-effort and safe to call on an already
	// completed or aborted id; underlying errors are swallowed and logged.
	AbortMultipartUpload(ctx context.Context, key, uploadID string) error

	GetObject(ctx context.Context, key string) ([]byte, error)
	PutObject(ctx context.Context, key string, data []byte, contentType string) (string, error)
	DeleteObject(ctx context.Context, key string) error
	HeadObject(ctx context.Context, key string) (*ObjectInfo, error)

	// PresignDownload returns a time-bounded GET URL for an object.
	PresignDownload(ctx context.Context, key string, expires time.Duration) (string, error)

	// Bucket returns the backing bucket name, echoed to upload clients.
	Bucket() string
}
