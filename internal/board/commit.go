package board

import "github.com/justsurfingit/pipeline-board/internal/pipeline"

// Outcome classifies what a drop did.
type Outcome int

const (
	OutcomeNoop Outcome = iota
	OutcomeCancelled
	OutcomeRejected
	OutcomeReordered
	OutcomeMoved
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoop:
		return "noop"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeRejected:
		return "rejected"
	case OutcomeReordered:
		return "reordered"
	case OutcomeMoved:
		return "moved"
	}
	return "unknown"
}

// Commit is the handle of one drop. The optimistic patches are already in
// the store when it is returned; Wait blocks until persistence settles.
type Commit struct {
	Outcome     Outcome
	Drop        Drop
	Patches     []pipeline.Patch
	Description string

	done chan struct{}
	err  error
}

// Wait returns the persistence error, if any. A failed commit has already
// been reconciled by the time Wait returns.
func (c *Commit) Wait() error {
	if c.done == nil {
		return nil
	}
	<-c.done
	return c.err
}

// Pending reports whether the commit issued a persistence call.
func (c *Commit) Pending() bool {
	return c.done != nil
}

func settled(o Outcome, d Drop, patches []pipeline.Patch) *Commit {
	return &Commit{Outcome: o, Drop: d, Patches: patches}
}
