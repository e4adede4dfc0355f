// Package command exposes the capture service as named commands that the
// HTTP API, websocket clients, tray and hotkey can invoke.
package command

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"inputcap/internal/capture"
)

const (
	StartInputListener  = "start_input_listener"
	StopInputListener   = "stop_input_listener"
	ToggleInputListener = "toggle_input_listener"
	InputListenerStatus = "input_listener_status"
)

var ErrUnknownCommand = errors.New("unknown command")

// Func is a command implementation. The returned value is sent back to
// the caller as JSON and may be nil.
type Func func(ctx context.Context) (any, error)

// Dispatcher is a registry of named commands
type Dispatcher struct {
	mu       sync.RWMutex
	commands map[string]Func
}

// NewDispatcher creates an empty dispatcher
func NewDispatcher() *Dispatcher {
	return &Dispatcher{commands: make(map[string]Func)}
}

// Register adds or replaces a command
func (d *Dispatcher) Register(name string, fn Func) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commands[name] = fn
}

// Invoke runs the named command
func (d *Dispatcher) Invoke(ctx context.Context, name string) (any, error) {
	d.mu.RLock()
	fn, ok := d.commands[name]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	return fn(ctx)
}

// Names returns the registered command names in sorted order
func (d *Dispatcher) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.commands))
	for name := range d.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Controller is the part of *capture.Service the commands drive
type Controller interface {
	Start()
	Stop()
	Toggle() capture.State
	Status() capture.Status
}

// ForService builds a dispatcher wired to svc. Start and stop return
// nothing, matching their fire-and-forget contract.
func ForService(svc Controller) *Dispatcher {
	d := NewDispatcher()
	d.Register(StartInputListener, func(ctx context.Context) (any, error) {
		svc.Start()
		return nil, nil
	})
	d.Register(StopInputListener, func(ctx context.Context) (any, error) {
		svc.Stop()
		return nil, nil
	})
	d.Register(ToggleInputListener, func(ctx context.Context) (any, error) {
		return map[string]string{"state": svc.Toggle().String()}, nil
	})
	d.Register(InputListenerStatus, func(ctx context.Context) (any, error) {
		return svc.Status(), nil
	})
	return d
}
