package optimistic

import (
	"context"
	"sync"
	"time"

	"github.com/kickback/api/internal/pkg/log"
)

// ToastLevel is the severity shown to the user
type ToastLevel string

const (
	ToastSuccess ToastLevel = "success"
	ToastError   ToastLevel = "error"
	ToastInfo    ToastLevel = "info"
)

// Toast is one piece of user-visible feedback
type Toast struct {
	Level     ToastLevel `json:"level"`
	Message   string     `json:"message"`
	CommentID string     `json:"commentId,omitempty"`
	// Undoable is set on delete toasts while the deletion can still be cancelled
	Undoable bool      `json:"undoable,omitempty"`
	At       time.Time `json:"at"`
}

// Notifier receives mutation feedback
type Notifier interface {
	Notify(ctx context.Context, toast Toast)
}

// Feed buffers toasts until the page drains them. The oldest are dropped past max.
type Feed struct {
	mu    sync.Mutex
	items []Toast
	max   int
}

func NewFeed(max int) *Feed {
	if max <= 0 {
		max = 50
	}
	return &Feed{max: max}
}

func (f *Feed) Notify(ctx context.Context, toast Toast) {
	if toast.At.IsZero() {
		toast.At = time.Now()
	}
	if toast.Level == ToastError {
		log.WarnWithContext(ctx, "[Threads] %s (comment %s)", toast.Message, toast.CommentID)
	} else {
		log.InfoWithContext(ctx, "[Threads] %s", toast.Message)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, toast)
	if over := len(f.items) - f.max; over > 0 {
		f.items = append([]Toast(nil), f.items[over:]...)
	}
}

// Drain returns and clears the buffered toasts
func (f *Feed) Drain() []Toast {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.items
	f.items = nil
	if out == nil {
		out = []Toast{}
	}
	return out
}

// Len returns the number of buffered toasts
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}
