package board

import (
	"sync"
	"time"
)

type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeError NoticeLevel = "error"
)

// Notice is a user-visible message raised by the board.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
	At      time.Time   `json:"at"`
}

// Notifier delivers notices to whatever displays them.
type Notifier interface {
	Notify(Notice)
}

const (
	msgManualOnly    = "Reordering is only available in manual sort mode."
	msgSyncFailed    = "Your change could not be saved. The board was reloaded."
	msgOrderNotSaved = "The status change was saved, but the new card order could not be. The board was reloaded."
)

// NoticeBuffer keeps the latest notices until they are drained.
type NoticeBuffer struct {
	mu    sync.Mutex
	items []Notice
	max   int
}

func NewNoticeBuffer(max int) *NoticeBuffer {
	if max <= 0 {
		max = 20
	}
	return &NoticeBuffer{max: max}
}

func (b *NoticeBuffer) Notify(n Notice) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items = append(b.items, n)
	if over := len(b.items) - b.max; over > 0 {
		b.items = append([]Notice(nil), b.items[over:]...)
	}
}

// Drain returns and clears the buffered notices.
func (b *NoticeBuffer) Drain() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.items
	b.items = nil
	if out == nil {
		out = []Notice{}
	}
	return out
}

type discardNotifier struct{}

func (discardNotifier) Notify(Notice) {}
