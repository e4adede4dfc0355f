//go:build !linux

package evdev

import (
	"context"

	"inputcap/internal/capture"
	"inputcap/internal/hook"
	"inputcap/internal/logging"
)

// ErrNoDevices is returned when no readable keyboard or mouse was found
var ErrNoDevices = hook.ErrUnsupported

type DeviceInfo struct {
	Path      string
	Name      string
	IsVirtual bool
	IsPointer bool
}

type Hook struct{}

func New(devicePath string, logger logging.Logger) *Hook { return &Hook{} }

func Available() bool { return false }

func (h *Hook) Listen(ctx context.Context, handler capture.Handler) error {
	return hook.ErrUnsupported
}

func ListDevices() ([]DeviceInfo, error) { return nil, hook.ErrUnsupported }
