package store

import (
	"sync"

	"github.com/rs/zerolog"
)

// Toaster shows short user-facing messages.
type Toaster interface {
	Success(msg string)
	Error(msg string)
}

// LogToaster writes toasts to a zerolog logger. It is the default for
// headless callers such as the CLI.
type LogToaster struct {
	logger zerolog.Logger
}

func NewLogToaster(logger zerolog.Logger) *LogToaster {
	return &LogToaster{logger: logger}
}

func (t *LogToaster) Success(msg string) {
	t.logger.Info().Str("toast", "success").Msg(msg)
}

func (t *LogToaster) Error(msg string) {
	t.logger.Error().Str("toast", "error").Msg(msg)
}

// Toast is one recorded message.
type Toast struct {
	Kind    string
	Message string
}

// RecordingToaster keeps every toast in memory.
type RecordingToaster struct {
	lock   sync.Mutex
	toasts []Toast
}

func (t *RecordingToaster) Success(msg string) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.toasts = append(t.toasts, Toast{Kind: "success", Message: msg})
}

func (t *RecordingToaster) Error(msg string) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.toasts = append(t.toasts, Toast{Kind: "error", Message: msg})
}

func (t *RecordingToaster) Toasts() []Toast {
	t.lock.Lock()
	defer t.lock.Unlock()
	return append([]Toast(nil), t.toasts...)
}

// Errors returns the error toasts only.
func (t *RecordingToaster) Errors() []string {
	var out []string
	for _, toast := range t.Toasts() {
		if toast.Kind == "error" {
			out = append(out, toast.Message)
		}
	}
	return out
}
