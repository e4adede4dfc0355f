// Package hook holds what the platform hook backends share.
package hook

import (
	"errors"
	"sync"

	"inputcap/internal/capture"
	"inputcap/internal/input"
)

var (
	// ErrUnsupported is returned by a backend built for the wrong platform
	ErrUnsupported = errors.New("hook backend not supported on this platform")

	// ErrInUse is returned when a process-wide hook is already subscribed
	ErrInUse = errors.New("hook already subscribed in this process")
)

// ReadyOnFirstEvent wraps h so that the first delivered notification also
// reports the subscription as ready. Backends whose OS API gives no
// explicit confirmation use it.
func ReadyOnFirstEvent(h capture.Handler) capture.Handler {
	return &readyOnFirst{Handler: h}
}

type readyOnFirst struct {
	capture.Handler
	once sync.Once
}

func (r *readyOnFirst) Ready() {
	r.once.Do(r.Handler.Ready)
}

func (r *readyOnFirst) Handle(n input.NativeEvent) {
	r.once.Do(r.Handler.Ready)
	r.Handler.Handle(n)
}
