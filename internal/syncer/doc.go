// Package syncer reconciles the on-device class plan and preferences with
// the backend's per-user record.
//
// Policy is last-writer-wins at document granularity. SyncFromCloud compares
// the remote record's synced_at with the locally stored last_sync_time
// marker: a strictly newer remote copy replaces both local documents
// wholesale, anything else pushes the local copy. There is no field-level
// merge, so edits made on two devices between syncs lose the older side.
// That trade-off is accepted for a single-user tool.
//
// Sync triggers:
//
//   - SignIn and Run's first pass pull (SyncFromCloud, silent).
//   - An offline to online transition pulls, then replays the offline queue.
//   - Run's ticker pulls until one pull has succeeded for the current user,
//     then pushes while online with pending changes.
//   - SyncNow pulls or pushes on the same rule and reports the outcome as a
//     notification.
//
// Nothing is pushed for a user before their remote record has been read,
// so a device that edited offline never clobbers a newer remote copy.
// Switching users drops the last-sync marker and OnUserChanged points the
// plan store at the new user's document. Applying a remote record writes
// both documents and the marker or, on failure, restores all three.
//
// Background failures are logged only. Every network call is bounded by the
// request timeout. Only one sync runs at a time; an overlapping request
// returns ErrSyncInProgress.
//
// Monitor probes the backend's health endpoint and feeds transitions to
// Engine.SetOnline.
package syncer
