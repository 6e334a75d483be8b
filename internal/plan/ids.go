package plan

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewCalloutID mints a section-marker id. The random suffix keeps two
// callouts added in the same millisecond apart.
func NewCalloutID(now time.Time) string {
	return mintID("callout", now)
}

// NewExerciseID mints an id for a copied or user-authored exercise.
func NewExerciseID(now time.Time) string {
	return mintID("exercise", now)
}

func mintID(prefix string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%s-%d-%s", prefix, now.UnixMilli(), suffix)
}

// NewCallout builds a zero-duration section marker named name.
func NewCallout(name string, now time.Time) Exercise {
	return Exercise{
		ID:           NewCalloutID(now),
		Name:         name,
		Category:     CategoryCallout,
		Duration:     0,
		Springs:      SpringsNone,
		MuscleGroups: []string{},
		Equipment:    []string{},
		Cues:         []string{},
		CreatedAt:    now,
	}
}

// CopyExercise deep-copies ex under a fresh id. Use it before adding the
// same library exercise to a plan twice.
func CopyExercise(ex Exercise, now time.Time) Exercise {
	dup := ex.Clone()
	if dup.IsCallout() {
		dup.ID = NewCalloutID(now)
	} else {
		dup.ID = NewExerciseID(now)
	}
	return dup
}

// Duplicate copies p into a new, unsaved plan. Every entry gets a new id so
// the copy never shares ids with its source.
func Duplicate(p ClassPlan, now time.Time) ClassPlan {
	dup := p.Clone()
	dup.ID = ""
	dup.Name = strings.TrimSpace(p.Name + " (Copy)")
	dup.CreatedAt = now
	for i := range dup.Exercises {
		dup.Exercises[i] = CopyExercise(dup.Exercises[i], now)
	}
	dup.Recompute()
	return dup
}
