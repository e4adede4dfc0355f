package sink

import (
	"errors"
	"fmt"

	"inputcap/internal/capture"
	"inputcap/internal/input"
)

// Multi fans each event out to every sink. A failing sink does not stop
// delivery to the others.
type Multi []capture.Sink

func (m Multi) Emit(name string, ev input.InputEvent) error {
	var errs []error
	for i, s := range m {
		if err := s.Emit(name, ev); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
