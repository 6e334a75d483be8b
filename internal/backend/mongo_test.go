package backend

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/five82/reformer/internal/remote"
)

func TestRecordDocument_KeepsDocumentsVerbatim(t *testing.T) {
	at := time.Date(2026, 5, 1, 8, 30, 0, 0, time.FixedZone("CET", 3600))
	in := remote.SyncRecord{
		UserID:      "alice",
		ClassPlan:   json.RawMessage(`{"name":"Monday Class","exercises":[]}`),
		Preferences: json.RawMessage(`null`),
		SyncedAt:    at,
	}
	doc := toRecordDocument(in, at)
	if doc.UserID != "alice" || doc.Preferences != "" || doc.SyncedAt.Location() != time.UTC {
		t.Fatalf("document = %#v", doc)
	}
	out := doc.record()
	if string(out.ClassPlan) != string(in.ClassPlan) || out.HasPreferences() || !out.SyncedAt.Equal(at) {
		t.Fatalf("record = %#v", out)
	}
}
