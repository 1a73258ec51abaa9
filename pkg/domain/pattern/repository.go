package pattern

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	ListActive(ctx context.Context) ([]Entry, error)
	ListVersions(ctx context.Context, key string) ([]Entry, error)
	Get(ctx context.Context, id uuid.UUID) (*Entry, error)
	// AddVersion deactivates the active version of entry.Key and inserts
	// entry as its successor in a single transaction. When no version
	// exists yet, entry becomes version 1.
	AddVersion(ctx context.Context, entry Entry) (*Entry, error)
}
