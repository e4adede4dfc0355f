//go:build !windows

package winhook

import (
	"context"

	"inputcap/internal/capture"
	"inputcap/internal/hook"
	"inputcap/internal/logging"
)

type Hook struct{}

func New(logger logging.Logger) *Hook { return &Hook{} }

func (h *Hook) Listen(ctx context.Context, handler capture.Handler) error {
	return hook.ErrUnsupported
}
