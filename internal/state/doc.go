// Package state owns the instructor's current class plan.
//
// # Overview
//
// Store is the single source of truth for the plan being edited. Every
// mutation is applied to a copy of the present document, the derived totals
// are recomputed, the result is recorded in the undo history and the whole
// document is written to on-device storage before the call returns.
//
//	UI action ──→ Store.AddExercise ──→ copy present ──→ Recompute()
//	                                         │
//	                                         ├──→ history.Set(next)
//	                                         ├──→ storage.Set(classPlan_<user>, json)
//	                                         └──→ OnChange()  (sync engine marks pending)
//
// # Storage keys
//
// The document key is scoped by user: classPlan_<userID>, or
// classPlan_anonymous when nobody is signed in. SwitchUser reloads from the
// new key so one user's plan never shows up for another.
//
// # Failure semantics
//
// Storage errors are logged through slog and swallowed. A failed write
// leaves the edit in memory for the rest of the session; editing is never
// blocked by storage or sync health.
//
// ClearClassPlan removes the stored document instead of overwriting it with
// an empty plan, so a later load cannot resurrect the cleared plan.
//
// # Undo and redo
//
// All edits go through the history, including callout inserts and field
// setters. LoadClassPlan, ClearClassPlan, SwitchUser and Reload start a new
// history so unrelated documents never share undo steps. Undo and Redo
// persist the restored plan and fire OnChange like any other edit.
//
// # Concurrency Model
//
// A sync.RWMutex guards the document. Snapshot takes the read lock and
// returns a deep copy. OnChange runs after the lock is released so it may
// call back into the sync engine without deadlocking.
package state
