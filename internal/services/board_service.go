package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/justsurfingit/pipeline-board/internal/board"
	"github.com/justsurfingit/pipeline-board/internal/events"
	"github.com/justsurfingit/pipeline-board/internal/models"
	"github.com/justsurfingit/pipeline-board/internal/pipeline"
)

// Publisher sends change events to every instance hosting boards.
type Publisher interface {
	Publish(ctx context.Context, ev events.Event) error
}

type BoardOptions struct {
	ActivationDistance float64
	SyncTimeout        time.Duration
	Logger             *log.Logger
}

// BoardService keeps one live board per user.
type BoardService struct {
	Applications *ApplicationService
	Events       *EventService
	Users        *UserService
	Publisher    Publisher

	opts   BoardOptions
	mu     sync.Mutex
	boards map[uint]*LiveBoard
}

// LiveBoard is a mounted board and the notices it has raised.
type LiveBoard struct {
	*board.Board
	Notices *board.NoticeBuffer
}

func NewBoardService(apps *ApplicationService, evts *EventService, users *UserService, pub Publisher, opts BoardOptions) *BoardService {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &BoardService{
		Applications: apps,
		Events:       evts,
		Users:        users,
		Publisher:    pub,
		opts:         opts,
		boards:       make(map[uint]*LiveBoard),
	}
}

// Open returns the user's board, mounting it on first use. The mount runs
// outside s.mu; when two callers race, the first board stored wins.
func (s *BoardService) Open(ctx context.Context, user *models.User) (*LiveBoard, error) {
	if lb, ok := s.lookup(user.ID); ok {
		return lb, nil
	}

	mode, err := pipeline.ParseSortMode(user.BoardSortMode)
	if err != nil {
		s.opts.Logger.Printf("[Board] ⚠️ user=%d has invalid sort mode %q, using manual", user.ID, user.BoardSortMode)
		mode = pipeline.SortManual
	}

	notices := board.NewNoticeBuffer(20)
	b := board.New(board.Session{UserID: user.ID, SortMode: mode}, board.Deps{
		Gateway:            s.Applications.Gateway(user.ID),
		Audit:              s.Events,
		Notifier:           notices,
		Logger:             s.opts.Logger,
		ActivationDistance: s.opts.ActivationDistance,
		SyncTimeout:        s.opts.SyncTimeout,
	})
	if err := b.Mount(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if lb, ok := s.boards[user.ID]; ok {
		return lb, nil
	}
	lb := &LiveBoard{Board: b, Notices: notices}
	s.boards[user.ID] = lb
	return lb, nil
}

func (s *BoardService) lookup(userID uint) (*LiveBoard, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lb, ok := s.boards[userID]
	return lb, ok
}

// SetSortMode persists the preference and applies it to the live board.
func (s *BoardService) SetSortMode(ctx context.Context, user *models.User, mode pipeline.SortMode) (*LiveBoard, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %q", pipeline.ErrUnknownSortMode, mode)
	}
	if err := s.Users.SetSortMode(ctx, user.ID, mode); err != nil {
		return nil, err
	}
	user.BoardSortMode = string(mode)

	lb, err := s.Open(ctx, user)
	if err != nil {
		return nil, err
	}
	if err := lb.SetSortMode(mode); err != nil {
		return nil, err
	}
	return lb, nil
}

// Announce publishes ev, or dispatches it in-process without a publisher.
func (s *BoardService) Announce(ctx context.Context, ev events.Event) {
	if s.Publisher != nil {
		err := s.Publisher.Publish(ctx, ev)
		if err == nil {
			return
		}
		s.opts.Logger.Printf("[Events] ⚠️ publish failed, dispatching locally: %v", err)
	}
	s.Dispatch(ctx, ev)
}

// Dispatch applies an event to the user's board if it is mounted here.
func (s *BoardService) Dispatch(ctx context.Context, ev events.Event) {
	lb, ok := s.lookup(ev.UserID)
	if !ok {
		return
	}

	switch ev.Kind {
	case events.KindRemoved:
		if !lb.Remove(ev.ApplicationID) {
			return
		}
		s.opts.Logger.Printf("[Events] user=%d removed %s from board", ev.UserID, ev.ApplicationID)
	case events.KindChanged:
		if err := lb.Reload(ctx); err != nil {
			s.opts.Logger.Printf("[Events] ❌ user=%d reload after change failed: %v", ev.UserID, err)
		}
	}
}

// Serve feeds subscription events into Dispatch until ctx is done.
func (s *BoardService) Serve(ctx context.Context, sub *events.Subscription) error {
	return sub.Serve(ctx, s.Dispatch, func(err error) {
		s.opts.Logger.Printf("[Events] ⚠️ %v", err)
	})
}

// Wait blocks until every board's in-flight persistence has settled.
func (s *BoardService) Wait() {
	s.mu.Lock()
	boards := make([]*LiveBoard, 0, len(s.boards))
	for _, lb := range s.boards {
		boards = append(boards, lb)
	}
	s.mu.Unlock()

	for _, lb := range boards {
		lb.Wait()
	}
}
