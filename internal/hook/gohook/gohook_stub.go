//go:build !cgo

package gohook

import (
	"context"

	"inputcap/internal/capture"
	"inputcap/internal/hook"
	"inputcap/internal/logging"
)

// Hook reports ErrUnsupported; libuiohook needs cgo
type Hook struct{}

func New(logging.Logger) *Hook { return &Hook{} }

func (h *Hook) Listen(context.Context, capture.Handler) error {
	return hook.ErrUnsupported
}
