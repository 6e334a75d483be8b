// Package plan defines the class plan document and the pure helpers that
// operate on it.
//
// A ClassPlan is an ordered list of entries. Most entries are exercises; an
// entry whose Category is CategoryCallout is a section marker ("Warm-up",
// "Footwork") that carries no duration and is skipped by every aggregate.
//
// TotalDuration is derived. Callers never set it by hand; they call
// Recompute after changing Exercises so the total cannot drift.
//
// Values in this package are plain structs, but slices inside an Exercise
// would alias if copied with assignment. Clone, CloneExercises and
// CopyExercise produce copies that share no backing arrays.
package plan
