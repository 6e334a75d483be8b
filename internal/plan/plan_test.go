package plan

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestTotalDuration_SkipsCallouts(t *testing.T) {
	list := []Exercise{
		{ID: "a", Category: "supine", Duration: 5},
		{ID: "c", Category: CategoryCallout, Duration: 7},
		{ID: "b", Category: "kneeling", Duration: 3},
	}
	if got := TotalDuration(list); got != 8 {
		t.Fatalf("TotalDuration = %d, want 8", got)
	}
	if got := ExerciseCount(list); got != 2 {
		t.Fatalf("ExerciseCount = %d, want 2", got)
	}
}

func TestExerciseClone_DoesNotAlias(t *testing.T) {
	src := Exercise{
		ID:           "e1",
		MuscleGroups: []string{"core"},
		Cues:         []string{"breathe"},
		Equipment:    []string{"box"},
	}
	dup := src.Clone()
	dup.MuscleGroups[0] = "glutes"
	dup.Cues[0] = "reach"
	dup.Equipment[0] = "strap"

	if src.MuscleGroups[0] != "core" || src.Cues[0] != "breathe" || src.Equipment[0] != "box" {
		t.Fatalf("Clone aliased source slices: %#v", src)
	}
}

func TestNewCalloutID_Unique(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		id := NewCalloutID(now)
		if seen[id] {
			t.Fatalf("duplicate id %q after %d mints", id, i)
		}
		seen[id] = true
		if !strings.HasPrefix(id, "callout-1700000000000-") {
			t.Fatalf("id = %q, want callout-<millis>-<suffix>", id)
		}
	}
}

func TestNewCallout_Shape(t *testing.T) {
	c := NewCallout("Warm-up", time.Now())
	if !c.IsCallout() || c.Duration != 0 || c.Springs != SpringsNone || c.Name != "Warm-up" {
		t.Fatalf("NewCallout = %#v", c)
	}
}

func TestDuplicate_MintsNewIDs(t *testing.T) {
	src := New(time.Unix(100, 0))
	src.ID = "plan-1"
	src.Name = "Monday"
	src.Exercises = []Exercise{
		{ID: "e1", Category: "supine", Duration: 5, Cues: []string{"x"}},
		NewCallout("Arms", time.Unix(100, 0)),
	}
	src.Recompute()

	dup := Duplicate(src, time.Unix(200, 0))
	if dup.ID != "" {
		t.Fatalf("duplicate ID = %q, want empty until saved", dup.ID)
	}
	if dup.Name != "Monday (Copy)" {
		t.Fatalf("duplicate Name = %q", dup.Name)
	}
	for i := range dup.Exercises {
		if dup.Exercises[i].ID == src.Exercises[i].ID {
			t.Fatalf("entry %d kept source id %q", i, src.Exercises[i].ID)
		}
	}
	if !dup.Exercises[1].IsCallout() || !strings.HasPrefix(dup.Exercises[1].ID, "callout-") {
		t.Fatalf("callout copy = %#v", dup.Exercises[1])
	}
	dup.Exercises[0].Cues[0] = "changed"
	if src.Exercises[0].Cues[0] != "x" {
		t.Fatalf("Duplicate aliased cues")
	}
	if dup.TotalDuration != 5 {
		t.Fatalf("TotalDuration = %d, want 5", dup.TotalDuration)
	}
}

func TestClassPlan_JSONRoundTripRestoresTimes(t *testing.T) {
	created := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	p := New(created)
	p.Exercises = append(p.Exercises, Exercise{
		ID: "e1", Name: "Footwork", Category: "supine", Duration: 5,
		Springs: "3 red", MuscleGroups: []string{"legs"}, Equipment: []string{},
		Cues: []string{"heels"}, CreatedAt: created,
	})
	p.Recompute()

	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back ClassPlan
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !back.CreatedAt.Equal(created) || !back.Exercises[0].CreatedAt.Equal(created) {
		t.Fatalf("times not restored: %v / %v", back.CreatedAt, back.Exercises[0].CreatedAt)
	}
	back.CreatedAt = p.CreatedAt
	back.Exercises[0].CreatedAt = p.Exercises[0].CreatedAt
	if !reflect.DeepEqual(back, p) {
		t.Fatalf("round trip mismatch:\n got %#v\nwant %#v", back, p)
	}
}

func TestIndexOf(t *testing.T) {
	list := []Exercise{{ID: "a"}, {ID: "b"}}
	if IndexOf(list, "b") != 1 || IndexOf(list, "zz") != -1 {
		t.Fatalf("IndexOf mismatch")
	}
}
