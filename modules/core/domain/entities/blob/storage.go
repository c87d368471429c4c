package blob

import "context"

// Storage is the key-addressed blob store the cascade sweeps file
// references from. Delete is idempotent: removing a key that no longer
// exists is not an error, so retried cascades stay safe.
type Storage interface {
	Delete(ctx context.Context, key string) error
}
