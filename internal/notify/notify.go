// Package notify shows desktop notifications.
package notify

import (
	"github.com/gen2brain/beeep"

	"inputcap/internal/logging"
)

// Notifier shows a short message to the user
type Notifier interface {
	Notify(title, message string) error
}

// Desktop sends notifications through the OS notification center
type Desktop struct {
	AppName string
}

func (d Desktop) Notify(title, message string) error {
	if d.AppName != "" {
		beeep.AppName = d.AppName
	}
	return beeep.Notify(title, message, "")
}

// Nop drops every notification
type Nop struct{}

func (Nop) Notify(string, string) error { return nil }

// Logged wraps a Notifier and logs delivery failures instead of returning them
type Logged struct {
	Notifier Notifier
	Logger   logging.Logger
}

func (l Logged) Notify(title, message string) error {
	if err := l.Notifier.Notify(title, message); err != nil && l.Logger != nil {
		l.Logger.Warn("Desktop notification failed", "title", title, "err", err)
	}
	return nil
}
