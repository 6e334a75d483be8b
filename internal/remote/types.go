package remote

import (
	"encoding/json"
	"time"
)

// SyncRecord is the backend's copy of one user's documents. The backend
// keeps exactly one per user and replaces it wholesale on every push.
type SyncRecord struct {
	UserID      string          `json:"user_id"`
	ClassPlan   json.RawMessage `json:"class_plan"`
	Preferences json.RawMessage `json:"preferences"`
	SyncedAt    time.Time       `json:"synced_at"`
}

// HasClassPlan reports whether the record carries a class plan document.
func (r SyncRecord) HasClassPlan() bool {
	return hasDocument(r.ClassPlan)
}

// HasPreferences reports whether the record carries a preference document.
func (r SyncRecord) HasPreferences() bool {
	return hasDocument(r.Preferences)
}

func hasDocument(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

// Mutation is a single queued change replayed against the backend.
type Mutation struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Action    string          `json:"action"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}
