package capture

import (
	"fmt"
	"time"
)

// State is the forwarding state of the service
type State int

const (
	Stopped State = iota
	Listening
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Listening:
		return "listening"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "stopped":
		*s = Stopped
	case "listening":
		*s = Listening
	default:
		return fmt.Errorf("unknown state %q", b)
	}
	return nil
}

// SubscriptionState tracks the OS hook registration
type SubscriptionState string

const (
	// SubscriptionNone means Start has never been called
	SubscriptionNone SubscriptionState = "none"
	// SubscriptionPending means the loop is running but the hook has not reported ready
	SubscriptionPending SubscriptionState = "pending"
	// SubscriptionActive means the hook is installed and delivering events
	SubscriptionActive SubscriptionState = "active"
	// SubscriptionFailed means the hook returned an error; capture is unavailable until restart
	SubscriptionFailed SubscriptionState = "failed"
	// SubscriptionEnded means the hook returned without error
	SubscriptionEnded SubscriptionState = "ended"
)

// Status is a point-in-time snapshot of the service
type Status struct {
	State           State             `json:"state"`
	Listening       bool              `json:"listening"`
	Subscription    SubscriptionState `json:"subscription"`
	Error           string            `json:"error,omitempty"`
	SubscribedAt    time.Time         `json:"subscribed_at,omitzero"`
	Forwarded       uint64            `json:"forwarded"`
	Discarded       uint64            `json:"discarded"`
	ForwardFailures uint64            `json:"forward_failures"`
}
