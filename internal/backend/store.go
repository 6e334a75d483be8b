package backend

import (
	"context"
	"errors"

	"github.com/five82/reformer/internal/remote"
)

// ErrNotFound is returned by RecordStore.Get for a user with no record.
var ErrNotFound = errors.New("record not found")

// RecordStore persists one SyncRecord per user and an append-only log of
// replayed mutations.
type RecordStore interface {
	Get(ctx context.Context, userID string) (*remote.SyncRecord, error)
	// Upsert replaces the user's record wholesale.
	Upsert(ctx context.Context, record remote.SyncRecord) error
	// AppendMutation records m for userID. Appending an id twice is a no-op.
	AppendMutation(ctx context.Context, userID string, m remote.Mutation) error
	Close(ctx context.Context) error
}

func rawOrNil(s string) []byte {
	if s == "" || s == "null" {
		return nil
	}
	return []byte(s)
}

func rawString(b []byte) string {
	if len(b) == 0 || string(b) == "null" {
		return ""
	}
	return string(b)
}
