package calendar

import (
	"errors"
	"sync"

	appLog "schoolcal/internal/log"
)

// Variant is the tone of a notice.
type Variant string

const (
	VariantSuccess Variant = "success"
	VariantError   Variant = "error"
	VariantInfo    Variant = "info"
)

// Notice is a short user-facing message about the outcome of an operation.
type Notice struct {
	Message string  `json:"message"`
	Variant Variant `json:"variant"`
}

// Notifier receives a notice for every user-facing operation.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// LogNotifier writes notices to the application log.
type LogNotifier struct{}

func (LogNotifier) Notify(n Notice) {
	if n.Variant == VariantError {
		appLog.Error("notice", errors.New(n.Message))
		return
	}
	appLog.Info("notice", "message", n.Message, "variant", string(n.Variant))
}

// Recorder keeps every notice; handy for tests and request-scoped capture.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

// Last returns the most recent notice, or a zero Notice.
func (r *Recorder) Last() Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}
	}
	return r.notices[len(r.notices)-1]
}

// All copies the recorded notices.
func (r *Recorder) All() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}
