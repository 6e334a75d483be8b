// Package queue is the offline queue: a durable record of changes made while
// the backend was unreachable, replayed once it is back.
//
// Items live in a SQLite table (sync_queue) opened through GORM with WAL
// journaling and a single connection. An autoincrement sequence column gives
// strict insertion order; timestamp and type are indexed for ordering and
// filtering.
//
// Replay rules:
//
//   - Items are replayed oldest first.
//   - An item is deleted only after the backend accepted it.
//   - A failure is recorded on the item (attempt count, last error, next
//     attempt time) and processing moves on to the next item.
//   - The delay before the next attempt doubles with every failure, capped
//     at MaxBackoff.
//   - After MaxAttempts failures the item is marked dead and is no longer
//     replayed. DeadLetters lists those items for inspection.
//
// Only one Process pass runs at a time; a concurrent call returns an empty
// Result immediately.
package queue
