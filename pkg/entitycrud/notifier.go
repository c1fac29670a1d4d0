package entitycrud

import (
	"context"
	"sync"

	"github.com/peluware/freddy/pkg/observability/logger"
)

// Level is the severity of a toast.
type Level string

// Toast levels
const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

// Toast is a short notification.
type Toast struct {
	Level       Level
	Title       string
	Description string
}

// Notifier shows toasts.
type Notifier interface {
	Notify(ctx context.Context, toast Toast)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, toast Toast)

// Notify calls fn.
func (fn NotifierFunc) Notify(ctx context.Context, toast Toast) {
	fn(ctx, toast)
}

// LogNotifier writes toasts to a logger.
type LogNotifier struct {
	log logger.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(log logger.Logger) *LogNotifier {
	return &LogNotifier{log: logger.OrNop(log)}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(ctx context.Context, toast Toast) {
	log := n.log.WithContext(ctx)
	args := []any{"level", string(toast.Level), "description", toast.Description}
	if toast.Level == LevelError {
		log.Warn(toast.Title, args...)
		return
	}
	log.Info(toast.Title, args...)
}

// RecordingNotifier keeps every toast in memory.
type RecordingNotifier struct {
	mu     sync.Mutex
	toasts []Toast
}

// Notify implements Notifier.
func (n *RecordingNotifier) Notify(_ context.Context, toast Toast) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.toasts = append(n.toasts, toast)
}

// Toasts returns a copy of the recorded toasts.
func (n *RecordingNotifier) Toasts() []Toast {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Toast(nil), n.toasts...)
}
