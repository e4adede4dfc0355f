// Package capture owns the global input listener: the listening flag, the
// start/stop façade and the loop that forwards normalized events to a sink.
package capture

import (
	"context"

	"inputcap/internal/input"
)

// EventName is the name under which forwarded events are emitted
const EventName = "input-event"

// Handler receives notifications from a Hook. Calls arrive serially on the
// hook's own thread.
type Handler interface {
	// Ready is called once the OS-level subscription is installed
	Ready()
	// Handle is called for every native notification
	Handle(input.NativeEvent)
}

// Hook is a blocking OS-level global input subscription. Listen returns
// only when the subscription fails, ends, or ctx is done.
type Hook interface {
	Listen(ctx context.Context, h Handler) error
}

// HookFunc adapts a function to the Hook interface
type HookFunc func(ctx context.Context, h Handler) error

// Listen calls f
func (f HookFunc) Listen(ctx context.Context, h Handler) error {
	return f(ctx, h)
}

// Sink receives forwarded events. Emit must not retain ev's pointers
// beyond the call unless it copies them.
type Sink interface {
	Emit(name string, ev input.InputEvent) error
}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(name string, ev input.InputEvent) error

// Emit calls f
func (f SinkFunc) Emit(name string, ev input.InputEvent) error {
	return f(name, ev)
}
