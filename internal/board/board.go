// Package board holds the pipeline board engine: the record store, the
// drag gesture state machine and the orchestrator that applies drops
// optimistically and reconciles with the remote store on failure.
package board

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/justsurfingit/pipeline-board/internal/pipeline"
)

// Gateway persists board changes. LoadAll is the authoritative read.
type Gateway interface {
	UpdateRecord(ctx context.Context, id string, patch pipeline.Patch) error
	BatchUpdatePositions(ctx context.Context, updates []pipeline.PositionUpdate) error
	LoadAll(ctx context.Context) ([]pipeline.Record, error)
}

// AuditSink appends human readable transition entries.
type AuditSink interface {
	Record(ctx context.Context, recordID, description string) error
}

var (
	ErrSyncFailed    = errors.New("sync failed")
	ErrUnknownRecord = errors.New("unknown record")
)

// Session is the per-user context the board runs in.
type Session struct {
	UserID   uint
	SortMode pipeline.SortMode
}

// Deps are the collaborators of a Board. Only Gateway is required.
type Deps struct {
	Gateway            Gateway
	Audit              AuditSink
	Notifier           Notifier
	Logger             *log.Logger
	Now                func() time.Time
	ActivationDistance float64
	SyncTimeout        time.Duration
}

// Board is the orchestrator. Drops are applied to the store synchronously;
// persistence runs in the background and a failure reloads the store from
// the gateway.
type Board struct {
	// mu serializes store mutations issued by the board.
	mu sync.Mutex

	userID  uint
	sessMu  sync.RWMutex
	session Session

	store    *Store
	drag     *DragController
	gateway  Gateway
	audit    AuditSink
	notifier Notifier
	logger   *log.Logger
	now      func() time.Time
	timeout  time.Duration

	inflight sync.WaitGroup
}

func New(session Session, deps Deps) *Board {
	if !session.SortMode.Valid() {
		session.SortMode = pipeline.SortManual
	}
	b := &Board{
		userID:   session.UserID,
		session:  session,
		store:    NewStore(),
		drag:     NewDragController(deps.ActivationDistance),
		gateway:  deps.Gateway,
		audit:    deps.Audit,
		notifier: deps.Notifier,
		logger:   deps.Logger,
		now:      deps.Now,
		timeout:  deps.SyncTimeout,
	}
	if b.notifier == nil {
		b.notifier = discardNotifier{}
	}
	if b.logger == nil {
		b.logger = log.Default()
	}
	if b.now == nil {
		b.now = time.Now
	}
	if b.timeout <= 0 {
		b.timeout = 10 * time.Second
	}
	return b
}

func (b *Board) Store() *Store { return b.store }

func (b *Board) Drag() *DragController { return b.drag }

func (b *Board) Session() Session {
	b.sessMu.RLock()
	defer b.sessMu.RUnlock()
	return b.session
}

func (b *Board) SortMode() pipeline.SortMode {
	return b.Session().SortMode
}

func (b *Board) SetSortMode(mode pipeline.SortMode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", pipeline.ErrUnknownSortMode, mode)
	}
	b.sessMu.Lock()
	b.session.SortMode = mode
	b.sessMu.Unlock()
	return nil
}

// Mount performs the initial load.
func (b *Board) Mount(ctx context.Context) error {
	if err := b.Reload(ctx); err != nil {
		return fmt.Errorf("mount board for user %d: %w", b.userID, err)
	}
	b.logger.Printf("[Board] user=%d mounted with %d applications", b.userID, b.store.Len())
	return nil
}

// Reload replaces the store with the gateway's authoritative read.
func (b *Board) Reload(ctx context.Context) error {
	records, err := b.gateway.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load all: %w", err)
	}
	b.mu.Lock()
	b.store.Load(records)
	b.mu.Unlock()
	return nil
}

// Remove drops a record deleted elsewhere and closes the gap it leaves in
// its column. Nothing is persisted.
func (b *Board) Remove(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.store.Get(id)
	if !ok {
		return false
	}
	b.store.Remove(id)

	col := b.store.Column(rec.Status, pipeline.SortManual)
	var patches []pipeline.Patch
	for i, r := range col {
		if r.Position != i {
			pos := i
			patches = append(patches, pipeline.Patch{ID: r.ID, Position: &pos})
		}
	}
	if len(patches) > 0 {
		b.store.ApplyAll(patches)
	}
	return true
}

// ColumnView is one rendered column.
type ColumnView struct {
	Status  pipeline.Status   `json:"status"`
	Label   string            `json:"label"`
	Records []pipeline.Record `json:"records"`
}

// Columns renders every stage in board order under the active sort mode.
func (b *Board) Columns() []ColumnView {
	mode := b.SortMode()
	snap := b.store.Snapshot()
	out := make([]ColumnView, 0, len(pipeline.Statuses))
	for _, s := range pipeline.Statuses {
		out = append(out, ColumnView{Status: s, Label: s.Label(), Records: snap.Column(s, mode)})
	}
	return out
}

// PointerDown starts a press on a record of the board.
func (b *Board) PointerDown(recordID string, at Point) error {
	rec, ok := b.store.Get(recordID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRecord, recordID)
	}
	return b.drag.PointerDown(recordID, rec.Status, at)
}

// Release ends the gesture over a target and commits the drop when the
// controller reports one.
func (b *Board) Release(ctx context.Context, over Target) *Commit {
	d, ok := b.drag.PointerUp(over)
	if !ok {
		return settled(OutcomeCancelled, Drop{Over: over}, nil)
	}
	return b.Commit(ctx, d)
}

// Wait blocks until every in-flight persistence call has settled.
func (b *Board) Wait() {
	b.inflight.Wait()
}

// Commit resolves a drop into a reorder or a status move, applies it to the
// store and starts persistence. Rejections and no-ops return a settled
// Commit without touching the store.
func (b *Board) Commit(ctx context.Context, d Drop) *Commit {
	b.mu.Lock()
	c, job := b.plan(d)
	b.mu.Unlock()

	if job == nil {
		return c
	}

	c.done = make(chan struct{})
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.timeout)
	b.inflight.Add(1)
	go func() {
		defer b.inflight.Done()
		defer cancel()
		c.err = job(pctx)
		close(c.done)
	}()
	return c
}

// plan runs under b.mu. It mutates the store and returns the persistence
// job, or a nil job when there is nothing to persist.
func (b *Board) plan(d Drop) (*Commit, func(context.Context) error) {
	active, ok := b.store.Get(d.ActiveID)
	if !ok || !d.Over.Valid() {
		return settled(OutcomeNoop, d, nil), nil
	}
	if d.Over.Kind == TargetCard && d.Over.ID == d.ActiveID {
		return settled(OutcomeNoop, d, nil), nil
	}

	var dest pipeline.Status
	switch d.Over.Kind {
	case TargetCard:
		over, ok := b.store.Get(d.Over.ID)
		if !ok {
			return settled(OutcomeNoop, d, nil), nil
		}
		dest = over.Status
	case TargetColumn:
		s, err := pipeline.ParseStatus(d.Over.ID)
		if err != nil {
			return settled(OutcomeNoop, d, nil), nil
		}
		dest = s
	}

	if dest == active.Status {
		return b.planReorder(active, d)
	}
	return b.planMove(active, dest, d)
}

func (b *Board) planReorder(active pipeline.Record, d Drop) (*Commit, func(context.Context) error) {
	// Dropping on the own column body is not a position.
	if d.Over.Kind == TargetColumn {
		return settled(OutcomeNoop, d, nil), nil
	}
	if b.SortMode() != pipeline.SortManual {
		b.notify(NoticeInfo, msgManualOnly)
		return settled(OutcomeRejected, d, nil), nil
	}

	col := b.store.Column(active.Status, pipeline.SortManual)
	_, patches, ok := pipeline.Reorder(col, indexOf(col, active.ID), indexOf(col, d.Over.ID), b.now())
	if !ok {
		return settled(OutcomeNoop, d, nil), nil
	}

	b.store.ApplyAll(patches)
	updates := pipeline.PositionUpdates(patches)

	job := func(ctx context.Context) error {
		if err := b.gateway.BatchUpdatePositions(ctx, updates); err != nil {
			return b.reconcile(ctx, msgSyncFailed, fmt.Errorf("batch update %s positions: %w", active.Status, err))
		}
		return nil
	}
	return &Commit{Outcome: OutcomeReordered, Drop: d, Patches: patches}, job
}

func (b *Board) planMove(active pipeline.Record, dest pipeline.Status, d Drop) (*Commit, func(context.Context) error) {
	now := b.now()
	origin := b.store.Column(active.Status, pipeline.SortManual)
	target := b.store.Column(dest, pipeline.SortManual)

	to := 0
	if d.Over.Kind == TargetCard {
		to = indexOf(target, d.Over.ID)
	}

	res, ok := pipeline.Move(origin, indexOf(origin, active.ID), target, to, dest, now)
	if !ok {
		return settled(OutcomeNoop, d, nil), nil
	}
	tr, _ := pipeline.Transit(active, dest, now)
	moved := res.Moved.Merge(tr.Patch)

	patches := append([]pipeline.Patch{moved}, res.Shifted...)
	b.store.ApplyAll(patches)

	originShifted, destShifted := splitShifted(res)

	job := func(ctx context.Context) error {
		if err := b.gateway.UpdateRecord(ctx, active.ID, moved); err != nil {
			return b.reconcile(ctx, msgSyncFailed, fmt.Errorf("update %s: %w", active.ID, err))
		}

		if b.audit != nil {
			if err := b.audit.Record(ctx, active.ID, tr.Description); err != nil {
				b.logger.Printf("[Audit] ⚠️ entry for %s lost (%q): %v", active.ID, tr.Description, err)
			}
		}

		for _, group := range [][]pipeline.Patch{originShifted, destShifted} {
			if len(group) == 0 {
				continue
			}
			if err := b.gateway.BatchUpdatePositions(ctx, pipeline.PositionUpdates(group)); err != nil {
				return b.reconcile(ctx, msgOrderNotSaved, fmt.Errorf("batch update neighbours of %s: %w", active.ID, err))
			}
		}
		return nil
	}
	return &Commit{Outcome: OutcomeMoved, Drop: d, Patches: patches, Description: tr.Description}, job
}

// reconcile discards optimistic state by reloading from the gateway. The
// reload gets its own deadline: ctx has usually expired when the failed
// call timed out.
func (b *Board) reconcile(ctx context.Context, msg string, cause error) error {
	b.logger.Printf("[Sync] ❌ user=%d %v, reloading board", b.userID, cause)
	b.notify(NoticeError, msg)

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.timeout)
	defer cancel()
	if err := b.Reload(rctx); err != nil {
		b.logger.Printf("[Sync] ❌ user=%d reconciliation failed: %v", b.userID, err)
		return fmt.Errorf("%w: %w (reload: %w)", ErrSyncFailed, cause, err)
	}
	return fmt.Errorf("%w: %w", ErrSyncFailed, cause)
}

func (b *Board) notify(level NoticeLevel, msg string) {
	b.notifier.Notify(Notice{Level: level, Message: msg, At: b.now()})
}

func splitShifted(res pipeline.MoveResult) (origin, dest []pipeline.Patch) {
	inOrigin := make(map[string]bool, len(res.Origin))
	for _, r := range res.Origin {
		inOrigin[r.ID] = true
	}
	for _, p := range res.Shifted {
		if inOrigin[p.ID] {
			origin = append(origin, p)
		} else {
			dest = append(dest, p)
		}
	}
	return origin, dest
}

func indexOf(col []pipeline.Record, id string) int {
	for i, r := range col {
		if r.ID == id {
			return i
		}
	}
	return -1
}
