// Package backend is the reference sync server. It keeps exactly one
// SyncRecord per user, replaced wholesale on every PUT, and an append-only
// log of mutations replayed from clients' offline queues.
//
// Routes:
//
//	GET  /healthz
//	GET  /api/sync/{userID}            404 when the user has no record
//	PUT  /api/sync/{userID}            upsert; synced_at is required
//	POST /api/sync/{userID}/mutations  append; a repeated id is accepted once
//
// Two RecordStore implementations exist: SQLiteStore (GORM, one file) and
// MongoStore (one document per user keyed by user id).
package backend
