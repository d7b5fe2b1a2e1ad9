package pipeline

import "time"

// Transition is what a status change derives: extra fields and the audit line.
type Transition struct {
	Patch       Patch
	Description string
}

// Transit computes the derived fields for moving r to next at now.
// ok is false when the status does not change; position-only moves
// never produce a transition.
//
// Entering applied stamps ApplicationDate once. Any stage other than
// to_apply counts as contact and stamps LastContactDate.
func Transit(r Record, next Status, now time.Time) (t Transition, ok bool) {
	if r.Status == next {
		return Transition{}, false
	}

	t.Patch = Patch{ID: r.ID}
	if next == StatusApplied && r.ApplicationDate == nil {
		t.Patch.ApplicationDate = ptr(now)
	}
	if next != StatusToApply {
		t.Patch.LastContactDate = ptr(now)
	}
	t.Description = Describe(next)
	return t, true
}

// Describe is the audit description for entering status s.
func Describe(s Status) string {
	return "Status changed to: " + s.Label()
}
