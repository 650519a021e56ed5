package session

import "context"

// Store persists session state.
//
// Save is a compare-and-swap: it succeeds only when the stored version equals
// expectedVersion (0 meaning "not stored yet") and returns ErrVersionConflict
// otherwise.
type Store interface {
	Get(ctx context.Context, userID string) (*State, error)
	Save(ctx context.Context, st *State, expectedVersion int64) error
	ListUserIDs(ctx context.Context) ([]string, error)
}
