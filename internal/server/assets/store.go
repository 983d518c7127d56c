package assets

import (
	"context"
	"time"
)

// ObjectStore is the object-storage surface the lifecycle manager needs.
// Copy from a missing source returns an error matching
// common.ErrObjectNotFound. Delete of a missing key may either succeed or
// return that error.
type ObjectStore interface {
	// PresignPut mints a URL allowing one PUT of key with the content type.
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	// PresignGet mints a time-limited read URL. It does not check existence.
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	Copy(ctx context.Context, srcKey, dstKey string) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
