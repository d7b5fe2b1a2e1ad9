package board

import (
	"errors"
	"math"
	"sync"

	"github.com/justsurfingit/pipeline-board/internal/pipeline"
)

// DefaultActivationDistance is how far, in pixels, the pointer must travel
// after press before a drag starts. Shorter gestures are clicks.
const DefaultActivationDistance = 8.0

// DragState is the controller's position in its state machine.
type DragState int

const (
	DragIdle DragState = iota
	DragPressed
	DragDragging
	DragCommitting
)

func (s DragState) String() string {
	switch s {
	case DragIdle:
		return "idle"
	case DragPressed:
		return "pressed"
	case DragDragging:
		return "dragging"
	case DragCommitting:
		return "committing"
	}
	return "unknown"
}

var (
	ErrSessionActive = errors.New("drag session already active")
	ErrNoSession     = errors.New("no drag session")
)

// Point is a pointer coordinate in pixels.
type Point struct {
	X, Y float64
}

// TargetKind says what the pointer was released over.
type TargetKind string

const (
	TargetNone   TargetKind = ""
	TargetColumn TargetKind = "column"
	TargetCard   TargetKind = "card"
)

// Target is a drop target. For TargetColumn the ID is a status.
type Target struct {
	Kind TargetKind
	ID   string
}

func (t Target) Valid() bool {
	return (t.Kind == TargetColumn || t.Kind == TargetCard) && t.ID != ""
}

// Drop is what the controller reports when a drag commits.
type Drop struct {
	ActiveID string
	Over     Target
}

// DragSession is the ephemeral state of one gesture. It is never persisted.
type DragSession struct {
	ActiveID string
	Origin   pipeline.Status
	Start    Point
	Delta    Point
}

// DragController tracks a single pointer: press, activation, release.
// It owns at most one DragSession.
type DragController struct {
	mu        sync.Mutex
	threshold float64
	state     DragState
	session   *DragSession
}

func NewDragController(threshold float64) *DragController {
	if threshold <= 0 {
		threshold = DefaultActivationDistance
	}
	return &DragController{threshold: threshold}
}

// PointerDown presses on a card. The drag is not active until the pointer
// moves past the activation distance.
func (c *DragController) PointerDown(recordID string, origin pipeline.Status, at Point) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != DragIdle {
		return ErrSessionActive
	}
	c.state = DragPressed
	c.session = &DragSession{ActiveID: recordID, Origin: origin, Start: at}
	return nil
}

// PointerMove updates the delta. It reports true on the move that
// activates the drag.
func (c *DragController) PointerMove(at Point) (started bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return false, ErrNoSession
	}
	c.session.Delta = Point{X: at.X - c.session.Start.X, Y: at.Y - c.session.Start.Y}
	if c.state == DragPressed && math.Hypot(c.session.Delta.X, c.session.Delta.Y) >= c.threshold {
		c.state = DragDragging
		return true, nil
	}
	return false, nil
}

// PointerUp releases the pointer. ok is true only when a started drag is
// released over a valid target. The controller is idle afterwards in
// every case.
func (c *DragController) PointerUp(over Target) (d Drop, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == DragDragging && over.Valid() {
		c.state = DragCommitting
		d = Drop{ActiveID: c.session.ActiveID, Over: over}
		ok = true
	}
	c.reset()
	return d, ok
}

// Cancel aborts the gesture, e.g. on focus loss.
func (c *DragController) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

func (c *DragController) State() DragState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Active is the lifted record for overlay rendering, empty unless dragging.
func (c *DragController) Active() (DragSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != DragDragging || c.session == nil {
		return DragSession{}, false
	}
	return *c.session, true
}

func (c *DragController) reset() {
	c.state = DragIdle
	c.session = nil
}
