package teaching

import (
	"time"

	"github.com/five82/reformer/internal/plan"
)

// Status is the timer's run state.
type Status int

const (
	Idle Status = iota
	Running
	Paused
	Finished
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Finished:
		return "finished"
	default:
		return "idle"
	}
}

// Step is one timed exercise. Section is the name of the closest callout
// before it, if any.
type Step struct {
	Exercise plan.Exercise
	Section  string
	Duration time.Duration
}

// Timer counts down through a class plan's exercises. It is driven by Tick
// from a single goroutine.
type Timer struct {
	steps       []Step
	index       int
	remaining   time.Duration
	elapsed     time.Duration
	status      Status
	autoAdvance bool
}

// New builds an idle timer positioned on the plan's first exercise.
func New(p plan.ClassPlan, autoAdvance bool) *Timer {
	t := &Timer{steps: buildSteps(p), autoAdvance: autoAdvance}
	t.Reset()
	return t
}

func buildSteps(p plan.ClassPlan) []Step {
	steps := make([]Step, 0, len(p.Exercises))
	section := ""
	for _, ex := range p.Exercises {
		if ex.IsCallout() {
			section = ex.Name
			continue
		}
		steps = append(steps, Step{
			Exercise: ex.Clone(),
			Section:  section,
			Duration: time.Duration(ex.Duration) * time.Minute,
		})
	}
	return steps
}

// Load swaps in an edited plan. The timer stays on the same exercise when it
// still exists; otherwise the position is clamped. An idle timer picks up
// the current exercise's new duration.
func (t *Timer) Load(p plan.ClassPlan) {
	var currentID string
	if cur, ok := t.Current(); ok {
		currentID = cur.Exercise.ID
	}
	t.steps = buildSteps(p)
	if len(t.steps) == 0 {
		t.index = 0
		t.remaining = 0
		if t.status != Idle {
			t.status = Finished
		}
		return
	}
	for i, s := range t.steps {
		if s.Exercise.ID == currentID {
			t.index = i
			// Before the class starts the countdown follows the planned
			// duration; once started it only shrinks.
			if t.status == Idle || t.remaining > s.Duration {
				t.remaining = s.Duration
			}
			return
		}
	}
	if t.index >= len(t.steps) {
		t.index = len(t.steps) - 1
	}
	t.remaining = t.steps[t.index].Duration
}

// SetAutoAdvance toggles moving on when a step reaches zero.
func (t *Timer) SetAutoAdvance(on bool) { t.autoAdvance = on }

func (t *Timer) Status() Status { return t.status }
func (t *Timer) Index() int     { return t.index }
func (t *Timer) Len() int       { return len(t.steps) }

// Start begins the class from idle. A plan without exercises finishes
// immediately.
func (t *Timer) Start() {
	if t.status != Idle {
		return
	}
	if len(t.steps) == 0 {
		t.status = Finished
		return
	}
	t.status = Running
}

func (t *Timer) Pause() {
	if t.status == Running {
		t.status = Paused
	}
}

func (t *Timer) Resume() {
	if t.status == Paused {
		t.status = Running
	}
}

// Toggle starts, pauses or resumes depending on the current state.
func (t *Timer) Toggle() {
	switch t.status {
	case Idle:
		t.Start()
	case Running:
		t.Pause()
	case Paused:
		t.Resume()
	}
}

// Tick advances the clock by d while running and reports whether the
// current step changed.
func (t *Timer) Tick(d time.Duration) bool {
	if t.status != Running || d <= 0 {
		return false
	}
	t.elapsed += d
	t.remaining -= d
	if t.remaining > 0 {
		return false
	}
	t.remaining = 0
	if !t.autoAdvance {
		return false
	}
	return t.advance()
}

// Next moves to the following exercise. Past the last one the class is
// finished.
func (t *Timer) Next() bool {
	if t.status == Finished {
		return false
	}
	return t.advance()
}

func (t *Timer) advance() bool {
	if t.index+1 >= len(t.steps) {
		t.status = Finished
		t.remaining = 0
		return true
	}
	t.index++
	t.remaining = t.steps[t.index].Duration
	return true
}

// Previous moves back one exercise. From finished it returns to the last
// exercise, paused.
func (t *Timer) Previous() bool {
	if len(t.steps) == 0 {
		return false
	}
	if t.status == Finished {
		t.status = Paused
		t.index = len(t.steps) - 1
		t.remaining = t.steps[t.index].Duration
		return true
	}
	if t.index == 0 {
		t.remaining = t.steps[0].Duration
		return false
	}
	t.index--
	t.remaining = t.steps[t.index].Duration
	return true
}

// Reset returns to the first exercise, idle, with nothing elapsed.
func (t *Timer) Reset() {
	t.index = 0
	t.elapsed = 0
	t.status = Idle
	t.remaining = 0
	if len(t.steps) > 0 {
		t.remaining = t.steps[0].Duration
	}
}

// Current returns the step being taught.
func (t *Timer) Current() (Step, bool) {
	if t.index < 0 || t.index >= len(t.steps) {
		return Step{}, false
	}
	return t.steps[t.index], true
}

// Upcoming returns the step after the current one.
func (t *Timer) Upcoming() (Step, bool) {
	if t.status == Finished || t.index+1 >= len(t.steps) {
		return Step{}, false
	}
	return t.steps[t.index+1], true
}

// Remaining is the time left on the current step.
func (t *Timer) Remaining() time.Duration { return t.remaining }

// Elapsed is the total running time since Start, pauses excluded.
func (t *Timer) Elapsed() time.Duration { return t.elapsed }

// Progress is the completed fraction of the current step, 0 to 1.
func (t *Timer) Progress() float64 {
	if t.status == Finished {
		return 1
	}
	cur, ok := t.Current()
	if !ok || cur.Duration <= 0 {
		return 0
	}
	return 1 - float64(t.remaining)/float64(cur.Duration)
}

// InWarning reports whether a running step is within threshold of ending.
func (t *Timer) InWarning(threshold time.Duration) bool {
	return t.status == Running && threshold > 0 && t.remaining <= threshold
}
