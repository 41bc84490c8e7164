package domain

import "context"

// BlobStore holds raw PDF content keyed by book id.
// It knows nothing about book metadata.
type BlobStore interface {
	Put(ctx context.Context, id string, data []byte) error
	// Get returns found=false with a nil error for a missing id
	Get(ctx context.Context, id string) (data []byte, found bool, err error)
	// Delete of a missing id is not an error
	Delete(ctx context.Context, id string) error
}

// StateStore persists the books and settings subset of State.
type StateStore interface {
	// LoadState returns ok=false when nothing has been saved yet
	LoadState() (PersistedState, bool, error)
	SaveState(PersistedState) error
}
