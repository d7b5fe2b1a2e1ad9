package board_test

import (
	"context"
	"errors"
	"io"
	"log"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/justsurfingit/pipeline-board/internal/board"
	"github.com/justsurfingit/pipeline-board/internal/pipeline"
)

var (
	t0      = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	fixedAt = time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC)
	errDown = errors.New("remote unavailable")
)

type updateCall struct {
	ID    string
	Patch pipeline.Patch
}

type auditCall struct {
	ID          string
	Description string
}

// fakeGateway is the remote store. Successful writes change what LoadAll returns.
type fakeGateway struct {
	mu       sync.Mutex
	remote   map[string]pipeline.Record
	updates  []updateCall
	batches  [][]pipeline.PositionUpdate
	loads    int
	failUpd  error
	failBat  error
	failLoad error
	gate     chan struct{}
}

func newFakeGateway(records ...pipeline.Record) *fakeGateway {
	g := &fakeGateway{remote: map[string]pipeline.Record{}}
	for _, r := range records {
		g.remote[r.ID] = r
	}
	return g
}

func (g *fakeGateway) wait(ctx context.Context) error {
	if g.gate == nil {
		return nil
	}
	select {
	case <-g.gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *fakeGateway) UpdateRecord(ctx context.Context, id string, p pipeline.Patch) error {
	if err := g.wait(ctx); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	g.updates = append(g.updates, updateCall{ID: id, Patch: p})
	if g.failUpd != nil {
		return g.failUpd
	}
	g.remote[id] = p.ApplyTo(g.remote[id])
	return nil
}

func (g *fakeGateway) BatchUpdatePositions(ctx context.Context, updates []pipeline.PositionUpdate) error {
	if err := g.wait(ctx); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	g.batches = append(g.batches, updates)
	if g.failBat != nil {
		return g.failBat
	}
	for _, u := range updates {
		r := g.remote[u.ID]
		r.Position = u.Position
		r.UpdatedAt = u.UpdatedAt
		g.remote[u.ID] = r
	}
	return nil
}

func (g *fakeGateway) LoadAll(ctx context.Context) ([]pipeline.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	g.loads++
	if g.failLoad != nil {
		return nil, g.failLoad
	}
	out := make([]pipeline.Record, 0, len(g.remote))
	for _, r := range g.remote {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (g *fakeGateway) calls() (int, int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.updates), len(g.batches)
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []auditCall
	fail    error
}

func (a *fakeAudit) Record(_ context.Context, id, desc string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, auditCall{ID: id, Description: desc})
	return a.fail
}

type harness struct {
	board   *board.Board
	gw      *fakeGateway
	audit   *fakeAudit
	notices *board.NoticeBuffer
}

func newHarness(t *testing.T, mode pipeline.SortMode, records ...pipeline.Record) *harness {
	t.Helper()
	return newHarnessWithTimeout(t, 0, mode, records...)
}

func newHarnessWithTimeout(t *testing.T, timeout time.Duration, mode pipeline.SortMode, records ...pipeline.Record) *harness {
	t.Helper()

	h := &harness{
		gw:      newFakeGateway(records...),
		audit:   &fakeAudit{},
		notices: board.NewNoticeBuffer(10),
	}
	h.board = board.New(board.Session{UserID: 7, SortMode: mode}, board.Deps{
		Gateway:     h.gw,
		Audit:       h.audit,
		Notifier:    h.notices,
		Logger:      log.New(io.Discard, "", 0),
		Now:         func() time.Time { return fixedAt },
		SyncTimeout: timeout,
	})

	if err := h.board.Mount(t.Context()); err != nil {
		t.Fatalf("mount: %v", err)
	}
	return h
}

func rec(id string, status pipeline.Status, pos int) pipeline.Record {
	return pipeline.Record{ID: id, Status: status, Position: pos, CreatedAt: t0, UpdatedAt: t0}
}

func card(id string) board.Target { return board.Target{Kind: board.TargetCard, ID: id} }

func column(s pipeline.Status) board.Target {
	return board.Target{Kind: board.TargetColumn, ID: string(s)}
}

func columnIDs(b *board.Board, s pipeline.Status) []string {
	var out []string
	for _, r := range b.Store().Column(s, pipeline.SortManual) {
		out = append(out, r.ID)
	}
	return out
}

func Test_Commit_Reorders_Column_And_Batches_Positions(t *testing.T) {
	t.Parallel()

	h := newHarness(t, pipeline.SortManual,
		rec("A", pipeline.StatusToApply, 0),
		rec("B", pipeline.StatusToApply, 1),
		rec("C", pipeline.StatusToApply, 2),
	)

	c := h.board.Commit(t.Context(), board.Drop{ActiveID: "C", Over: card("A")})
	if c.Outcome != board.OutcomeReordered {
		t.Fatalf("outcome=%s, want reordered", c.Outcome)
	}

	if diff := cmp.Diff([]string{"C", "A", "B"}, columnIDs(h.board, pipeline.StatusToApply)); diff != "" {
		t.Errorf("optimistic order (-want +got):\n%s", diff)
	}

	if err := c.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}

	upd, bat := h.gw.calls()
	if upd != 0 || bat != 1 {
		t.Fatalf("calls update=%d batch=%d, want 0/1", upd, bat)
	}

	want := []pipeline.PositionUpdate{
		{ID: "C", Position: 0, UpdatedAt: fixedAt},
		{ID: "A", Position: 1, UpdatedAt: fixedAt},
		{ID: "B", Position: 2, UpdatedAt: fixedAt},
	}
	if diff := cmp.Diff(want, h.gw.batches[0]); diff != "" {
		t.Errorf("batch (-want +got):\n%s", diff)
	}

	if len(h.audit.entries) != 0 {
		t.Errorf("reorder must not audit, got %+v", h.audit.entries)
	}
}

func Test_Commit_Moves_Across_Columns_With_Transition_And_Audit(t *testing.T) {
	t.Parallel()

	h := newHarness(t, pipeline.SortManual,
		rec("D", pipeline.StatusWaiting, 0),
		rec("W", pipeline.StatusWaiting, 1),
		rec("I", pipeline.StatusInterview, 0),
	)

	c := h.board.Commit(t.Context(), board.Drop{ActiveID: "D", Over: column(pipeline.StatusInterview)})
	if c.Outcome != board.OutcomeMoved {
		t.Fatalf("outcome=%s, want moved", c.Outcome)
	}

	if err := c.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}

	d, _ := h.board.Store().Get("D")
	if d.Status != pipeline.StatusInterview || d.Position != 0 {
		t.Errorf("D = %s/%d, want interview/0", d.Status, d.Position)
	}

	if d.LastContactDate == nil || !d.LastContactDate.Equal(fixedAt) {
		t.Errorf("D.LastContactDate=%v", d.LastContactDate)
	}

	if len(h.gw.updates) != 1 || h.gw.updates[0].ID != "D" {
		t.Fatalf("updates=%+v, want one for D", h.gw.updates)
	}

	if diff := cmp.Diff([]auditCall{{ID: "D", Description: "Status changed to: Entretien"}}, h.audit.entries); diff != "" {
		t.Errorf("audit (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"W"}, columnIDs(h.board, pipeline.StatusWaiting)); diff != "" {
		t.Errorf("waiting column (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"D", "I"}, columnIDs(h.board, pipeline.StatusInterview)); diff != "" {
		t.Errorf("interview column (-want +got):\n%s", diff)
	}

	// Remote neighbours were renumbered too, so a reload keeps the order.
	if err := h.board.Reload(t.Context()); err != nil {
		t.Fatalf("reload: %v", err)
	}

	for _, s := range []pipeline.Status{pipeline.StatusWaiting, pipeline.StatusInterview} {
		if !pipeline.Contiguous(h.board.Store().Column(s, pipeline.SortManual)) {
			t.Errorf("%s not contiguous after reload", s)
		}
	}
}

func Test_Commit_Stamps_Application_Date_When_Entering_Applied(t *testing.T) {
	t.Parallel()

	h := newHarness(t, pipeline.SortManual, rec("E", pipeline.StatusToApply, 0))

	c := h.board.Commit(t.Context(), board.Drop{ActiveID: "E", Over: column(pipeline.StatusApplied)})
	if err := c.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}

	e, _ := h.board.Store().Get("E")
	if e.ApplicationDate == nil || !e.ApplicationDate.Equal(fixedAt) {
		t.Errorf("ApplicationDate=%v, want %v", e.ApplicationDate, fixedAt)
	}

	if e.LastContactDate == nil || !e.LastContactDate.Equal(fixedAt) {
		t.Errorf("LastContactDate=%v, want %v", e.LastContactDate, fixedAt)
	}

	p := h.gw.updates[0].Patch
	if p.ApplicationDate == nil || p.Status == nil || *p.Status != pipeline.StatusApplied {
		t.Errorf("persisted patch missing fields: %+v", p)
	}
}

func Test_Commit_Rejects_Reorder_When_Sort_Mode_Not_Manual(t *testing.T) {
	t.Parallel()

	h := newHarness(t, pipeline.SortDateDesc,
		rec("F", pipeline.StatusApplied, 0),
		rec("G", pipeline.StatusApplied, 1),
	)
	before := h.board.Store().Snapshot()

	c := h.board.Commit(t.Context(), board.Drop{ActiveID: "F", Over: card("G")})
	if c.Outcome != board.OutcomeRejected {
		t.Fatalf("outcome=%s, want rejected", c.Outcome)
	}

	if c.Pending() {
		t.Fatal("rejected commit must not persist")
	}

	if diff := cmp.Diff(before, h.board.Store().Snapshot()); diff != "" {
		t.Errorf("store changed (-before +after):\n%s", diff)
	}

	if upd, bat := h.gw.calls(); upd+bat != 0 {
		t.Errorf("network calls update=%d batch=%d", upd, bat)
	}

	notices := h.notices.Drain()
	if len(notices) != 1 || notices[0].Level != board.NoticeInfo {
		t.Errorf("notices=%+v, want one info", notices)
	}
}

func Test_Commit_Allows_Status_Move_When_Sort_Mode_Not_Manual(t *testing.T) {
	t.Parallel()

	h := newHarness(t, pipeline.SortNameAsc,
		rec("F", pipeline.StatusApplied, 0),
		rec("G", pipeline.StatusOffer, 0),
	)

	c := h.board.Commit(t.Context(), board.Drop{ActiveID: "F", Over: card("G")})
	if c.Outcome != board.OutcomeMoved {
		t.Fatalf("outcome=%s, want moved", c.Outcome)
	}

	if err := c.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}

	if diff := cmp.Diff([]string{"F", "G"}, columnIDs(h.board, pipeline.StatusOffer)); diff != "" {
		t.Errorf("offer column (-want +got):\n%s", diff)
	}
}

func Test_Commit_Is_Noop_For_Self_And_Unknown_Targets(t *testing.T) {
	t.Parallel()

	h := newHarness(t, pipeline.SortManual,
		rec("A", pipeline.StatusToApply, 0),
		rec("B", pipeline.StatusToApply, 1),
	)
	before := h.board.Store().Snapshot()

	drops := []board.Drop{
		{ActiveID: "A", Over: card("A")},
		{ActiveID: "A", Over: column(pipeline.StatusToApply)},
		{ActiveID: "A", Over: card("missing")},
		{ActiveID: "A", Over: board.Target{Kind: board.TargetColumn, ID: "archived"}},
		{ActiveID: "A", Over: board.Target{}},
		{ActiveID: "missing", Over: card("B")},
	}

	for _, d := range drops {
		c := h.board.Commit(t.Context(), d)
		if c.Outcome != board.OutcomeNoop || c.Pending() {
			t.Errorf("drop %+v: outcome=%s pending=%v, want settled noop", d, c.Outcome, c.Pending())
		}
	}

	if diff := cmp.Diff(before, h.board.Store().Snapshot()); diff != "" {
		t.Errorf("store changed (-before +after):\n%s", diff)
	}

	if upd, bat := h.gw.calls(); upd+bat != 0 {
		t.Errorf("network calls update=%d batch=%d", upd, bat)
	}
}

func Test_Commit_Reconciles_When_Update_Fails(t *testing.T) {
	t.Parallel()

	h := newHarness(t, pipeline.SortManual,
		rec("D", pipeline.StatusWaiting, 0),
		rec("I", pipeline.StatusInterview, 0),
	)
	h.gw.failUpd = errDown
	authoritative, _ := h.gw.LoadAll(t.Context())

	c := h.board.Commit(t.Context(), board.Drop{ActiveID: "D", Over: card("I")})

	d, _ := h.board.Store().Get("D")
	if d.Status != pipeline.StatusInterview {
		t.Fatalf("optimistic status=%s, want interview", d.Status)
	}

	err := c.Wait()
	if !errors.Is(err, board.ErrSyncFailed) || !errors.Is(err, errDown) {
		t.Fatalf("err=%v, want ErrSyncFailed wrapping errDown", err)
	}

	if diff := cmp.Diff(authoritative, h.board.Store().Snapshot().Records); diff != "" {
		t.Errorf("board differs from loadAll (-want +got):\n%s", diff)
	}

	if len(h.audit.entries) != 0 {
		t.Errorf("failed move must not audit: %+v", h.audit.entries)
	}

	notices := h.notices.Drain()
	if len(notices) != 1 || notices[0].Level != board.NoticeError {
		t.Errorf("notices=%+v, want one error", notices)
	}
}

func Test_Commit_Reconciles_When_Batch_Fails(t *testing.T) {
	t.Parallel()

	h := newHarness(t, pipeline.SortManual,
		rec("A", pipeline.StatusToApply, 0),
		rec("B", pipeline.StatusToApply, 1),
	)
	h.gw.failBat = errDown

	c := h.board.Commit(t.Context(), board.Drop{ActiveID: "B", Over: card("A")})
	if err := c.Wait(); !errors.Is(err, board.ErrSyncFailed) {
		t.Fatalf("err=%v, want ErrSyncFailed", err)
	}

	if diff := cmp.Diff([]string{"A", "B"}, columnIDs(h.board, pipeline.StatusToApply)); diff != "" {
		t.Errorf("order after reconcile (-want +got):\n%s", diff)
	}
}

func Test_Commit_Reconciles_When_Update_Times_Out(t *testing.T) {
	t.Parallel()

	h := newHarnessWithTimeout(t, 50*time.Millisecond, pipeline.SortManual,
		rec("D", pipeline.StatusWaiting, 0),
		rec("I", pipeline.StatusInterview, 0),
	)
	h.gw.gate = make(chan struct{})

	c := h.board.Commit(t.Context(), board.Drop{ActiveID: "D", Over: column(pipeline.StatusInterview)})

	err := c.Wait()
	if !errors.Is(err, board.ErrSyncFailed) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err=%v, want ErrSyncFailed wrapping DeadlineExceeded", err)
	}

	if strings.Contains(err.Error(), "reload") {
		t.Errorf("reload failed after timeout: %v", err)
	}

	d, _ := h.board.Store().Get("D")
	if d.Status != pipeline.StatusWaiting || d.LastContactDate != nil {
		t.Errorf("D=%+v, optimistic move survived the failed sync", d)
	}

	if h.gw.loads != 2 {
		t.Errorf("loads=%d, want mount + reconcile", h.gw.loads)
	}
}

func Test_Commit_Reports_Partial_Save_When_Neighbour_Batch_Fails(t *testing.T) {
	t.Parallel()

	h := newHarness(t, pipeline.SortManual,
		rec("D", pipeline.StatusWaiting, 0),
		rec("E", pipeline.StatusWaiting, 1),
	)
	h.gw.failBat = errDown

	c := h.board.Commit(t.Context(), board.Drop{ActiveID: "D", Over: column(pipeline.StatusInterview)})
	if err := c.Wait(); !errors.Is(err, board.ErrSyncFailed) {
		t.Fatalf("err=%v, want ErrSyncFailed", err)
	}

	d, _ := h.board.Store().Get("D")
	if d.Status != pipeline.StatusInterview {
		t.Errorf("status=%s, the saved status change must survive the reload", d.Status)
	}

	notices := h.notices.Drain()
	if len(notices) != 1 || notices[0].Level != board.NoticeError {
		t.Fatalf("notices=%+v, want one error", notices)
	}

	if !strings.Contains(notices[0].Message, "status change was saved") {
		t.Errorf("message=%q, want a partial-save notice", notices[0].Message)
	}
}

func Test_Commit_Keeps_Status_When_Audit_Fails(t *testing.T) {
	t.Parallel()

	h := newHarness(t, pipeline.SortManual, rec("D", pipeline.StatusWaiting, 0))
	h.audit.fail = errDown

	c := h.board.Commit(t.Context(), board.Drop{ActiveID: "D", Over: column(pipeline.StatusOffer)})
	if err := c.Wait(); err != nil {
		t.Fatalf("audit failure surfaced: %v", err)
	}

	d, _ := h.board.Store().Get("D")
	if d.Status != pipeline.StatusOffer {
		t.Errorf("status=%s, want offer", d.Status)
	}

	if h.gw.loads != 1 {
		t.Errorf("loads=%d, audit failure must not reconcile", h.gw.loads)
	}

	if n := h.notices.Drain(); len(n) != 0 {
		t.Errorf("audit failure must not notify: %+v", n)
	}
}

func Test_Commit_Applies_Optimistically_Before_Persistence(t *testing.T) {
	t.Parallel()

	h := newHarness(t, pipeline.SortManual,
		rec("A", pipeline.StatusToApply, 0),
		rec("B", pipeline.StatusToApply, 1),
	)
	h.gw.gate = make(chan struct{})

	var seen []string
	var mu sync.Mutex
	unsubscribe := h.board.Store().Subscribe(func(s board.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		seen = nil
		for _, r := range s.Column(pipeline.StatusToApply, pipeline.SortManual) {
			seen = append(seen, r.ID)
		}
	})
	defer unsubscribe()

	c := h.board.Commit(t.Context(), board.Drop{ActiveID: "B", Over: card("A")})

	mu.Lock()
	got := append([]string(nil), seen...)
	mu.Unlock()

	if diff := cmp.Diff([]string{"B", "A"}, got); diff != "" {
		t.Errorf("subscriber before persistence (-want +got):\n%s", diff)
	}

	if _, bat := h.gw.calls(); bat != 0 {
		t.Errorf("batch recorded before gate opened")
	}

	close(h.gw.gate)
	if err := c.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}
	h.board.Wait()
}

func Test_Commit_Later_Drop_Wins_Locally(t *testing.T) {
	t.Parallel()

	h := newHarness(t, pipeline.SortManual, rec("D", pipeline.StatusWaiting, 0))
	h.gw.gate = make(chan struct{})

	first := h.board.Commit(t.Context(), board.Drop{ActiveID: "D", Over: column(pipeline.StatusInterview)})
	second := h.board.Commit(t.Context(), board.Drop{ActiveID: "D", Over: column(pipeline.StatusOffer)})

	d, _ := h.board.Store().Get("D")
	if d.Status != pipeline.StatusOffer {
		t.Errorf("local status=%s, want offer", d.Status)
	}

	close(h.gw.gate)
	if err := first.Wait(); err != nil {
		t.Fatalf("first: %v", err)
	}
	if err := second.Wait(); err != nil {
		t.Fatalf("second: %v", err)
	}
}

func Test_Mount_Fails_When_LoadAll_Fails(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	gw.failLoad = errDown
	b := board.New(board.Session{UserID: 1}, board.Deps{Gateway: gw, Logger: log.New(io.Discard, "", 0)})

	if err := b.Mount(t.Context()); !errors.Is(err, errDown) {
		t.Fatalf("err=%v, want errDown", err)
	}

	if b.SortMode() != pipeline.SortManual {
		t.Errorf("default sort mode=%s", b.SortMode())
	}
}

func Test_Remove_Closes_Gap_In_Column(t *testing.T) {
	t.Parallel()

	h := newHarness(t, pipeline.SortManual,
		rec("A", pipeline.StatusApplied, 0),
		rec("B", pipeline.StatusApplied, 1),
		rec("C", pipeline.StatusApplied, 2),
	)

	if !h.board.Remove("B") {
		t.Fatal("Remove(B)=false")
	}

	col := h.board.Store().Column(pipeline.StatusApplied, pipeline.SortManual)
	if len(col) != 2 || !pipeline.Contiguous(col) {
		t.Errorf("column after remove = %+v", col)
	}

	if h.board.Remove("B") {
		t.Error("second Remove(B)=true")
	}
}

func Test_Columns_Lists_Every_Stage_In_Order(t *testing.T) {
	t.Parallel()

	h := newHarness(t, pipeline.SortManual, rec("A", pipeline.StatusOffer, 0))

	cols := h.board.Columns()
	if len(cols) != len(pipeline.Statuses) {
		t.Fatalf("len=%d", len(cols))
	}

	for i, c := range cols {
		if c.Status != pipeline.Statuses[i] {
			t.Errorf("column %d = %s", i, c.Status)
		}
	}

	if cols[4].Label != "Offre" || len(cols[4].Records) != 1 {
		t.Errorf("offer column = %+v", cols[4])
	}

	if err := h.board.SetSortMode("bogus"); !errors.Is(err, pipeline.ErrUnknownSortMode) {
		t.Errorf("SetSortMode(bogus) err=%v", err)
	}
}
