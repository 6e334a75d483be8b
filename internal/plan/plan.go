package plan

import (
	"slices"
	"time"
)

const (
	// CategoryCallout marks a section divider. Callouts are never timed and
	// never counted.
	CategoryCallout = "callout"

	// SpringsNone is the spring setting used by callouts.
	SpringsNone = "none"

	// DefaultName is the name given to a fresh plan.
	DefaultName = "New Class Plan"

	// DefaultClassDuration is the planned class length in minutes.
	DefaultClassDuration = 45
)

// Exercise is a single entry in a class plan. Entries with Category
// CategoryCallout are section markers rather than exercises.
type Exercise struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Category          string    `json:"category"`
	Duration          int       `json:"duration"`
	Springs           string    `json:"springs"`
	Difficulty        string    `json:"difficulty,omitempty"`
	MuscleGroups      []string  `json:"muscleGroups"`
	Equipment         []string  `json:"equipment"`
	Description       string    `json:"description,omitempty"`
	Setup             string    `json:"setup,omitempty"`
	Cues              []string  `json:"cues"`
	Progressions      []string  `json:"progressions,omitempty"`
	Regressions       []string  `json:"regressions,omitempty"`
	Contraindications []string  `json:"contraindications,omitempty"`
	TeachingFocus     []string  `json:"teachingFocus,omitempty"`
	IsPregnancySafe   bool      `json:"isPregnancySafe"`
	IsCustom          bool      `json:"isCustom,omitempty"`
	IsSystemExercise  bool      `json:"isSystemExercise,omitempty"`
	IsModified        bool      `json:"isModified,omitempty"`
	CalloutColor      string    `json:"calloutColor,omitempty"`
	CalloutStyle      string    `json:"calloutStyle,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt,omitzero"`
}

// IsCallout reports whether the entry is a section marker.
func (e Exercise) IsCallout() bool {
	return e.Category == CategoryCallout
}

// Clone returns a copy of e that shares no slices with it.
func (e Exercise) Clone() Exercise {
	dup := e
	dup.MuscleGroups = slices.Clone(e.MuscleGroups)
	dup.Equipment = slices.Clone(e.Equipment)
	dup.Cues = slices.Clone(e.Cues)
	dup.Progressions = slices.Clone(e.Progressions)
	dup.Regressions = slices.Clone(e.Regressions)
	dup.Contraindications = slices.Clone(e.Contraindications)
	dup.TeachingFocus = slices.Clone(e.TeachingFocus)
	return dup
}

// ClassPlan is the document an instructor edits and teaches from.
type ClassPlan struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Exercises     []Exercise `json:"exercises"`
	TotalDuration int        `json:"totalDuration"`
	ClassDuration int        `json:"classDuration"`
	Notes         string     `json:"notes,omitempty"`
	Image         string     `json:"image,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// New returns an empty plan created at now.
func New(now time.Time) ClassPlan {
	return ClassPlan{
		Name:          DefaultName,
		Exercises:     []Exercise{},
		ClassDuration: DefaultClassDuration,
		CreatedAt:     now,
	}
}

// Clone deep-copies the plan, including every exercise.
func (p ClassPlan) Clone() ClassPlan {
	dup := p
	dup.Exercises = CloneExercises(p.Exercises)
	return dup
}

// CloneExercises deep-copies a list of entries. A nil list stays nil.
func CloneExercises(list []Exercise) []Exercise {
	if list == nil {
		return nil
	}
	out := make([]Exercise, len(list))
	for i, ex := range list {
		out[i] = ex.Clone()
	}
	return out
}

// Recompute refreshes derived fields. It must run after every change to
// Exercises.
func (p *ClassPlan) Recompute() {
	p.TotalDuration = TotalDuration(p.Exercises)
}

// TotalDuration sums the duration of every non-callout entry.
func TotalDuration(list []Exercise) int {
	total := 0
	for _, ex := range list {
		if ex.IsCallout() {
			continue
		}
		total += ex.Duration
	}
	return total
}

// ExerciseCount counts the entries that are real exercises.
func ExerciseCount(list []Exercise) int {
	n := 0
	for _, ex := range list {
		if !ex.IsCallout() {
			n++
		}
	}
	return n
}

// IndexOf returns the position of the entry with id, or -1.
func IndexOf(list []Exercise, id string) int {
	return slices.IndexFunc(list, func(ex Exercise) bool { return ex.ID == id })
}
