// Package tray provides system tray functionality using getlantern/systray.
package tray

import (
	"time"

	"github.com/getlantern/systray"

	"inputcap/internal/capture"
	"inputcap/internal/logging"
)

// Controller is the part of the capture service the tray drives
type Controller interface {
	Start()
	Stop()
	Status() capture.Status
}

// Tray manages the system tray icon and menu
type Tray struct {
	ctrl   Controller
	logger logging.Logger
	onQuit func()
	onOpen func()

	status *systray.MenuItem
	panel  *systray.MenuItem
	start  *systray.MenuItem
	stop   *systray.MenuItem
	quit   *systray.MenuItem

	last   capture.Status
	quitCh chan struct{}
}

// New creates a new system tray. onQuit runs when the user picks Quit.
func New(ctrl Controller, logger logging.Logger, onQuit func()) *Tray {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Tray{
		ctrl:   ctrl,
		logger: logger,
		onQuit: onQuit,
		quitCh: make(chan struct{}),
	}
}

// SetPanel adds an "Open control panel" entry that calls fn. Call before Run.
func (t *Tray) SetPanel(fn func()) {
	t.onOpen = fn
}

// Run starts the tray event loop. It blocks and must be called from the
// main goroutine on macOS.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() { close(t.quitCh) })
}

// Stop removes the tray icon and makes Run return
func (t *Tray) Stop() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("inputcap")
	systray.SetTooltip("Global input capture")
	systray.SetIcon(icon(false))

	t.status = systray.AddMenuItem("", "")
	t.status.Disable()
	systray.AddSeparator()
	t.start = systray.AddMenuItem("Start listening", "Forward input events")
	t.stop = systray.AddMenuItem("Stop listening", "Suspend forwarding")
	systray.AddSeparator()
	if t.onOpen != nil {
		t.panel = systray.AddMenuItem("Open control panel", "Show listener status in the browser")
	}
	t.quit = systray.AddMenuItem("Quit", "Exit inputcap")

	t.refresh(true)
	go t.loop()
}

func (t *Tray) loop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	// nil channel blocks forever when there is no panel entry
	var openCh chan struct{}
	if t.panel != nil {
		openCh = t.panel.ClickedCh
	}

	for {
		select {
		case <-openCh:
			t.onOpen()
		case <-t.start.ClickedCh:
			t.logger.Info("Tray: start listening")
			t.ctrl.Start()
			t.refresh(false)
		case <-t.stop.ClickedCh:
			t.logger.Info("Tray: stop listening")
			t.ctrl.Stop()
			t.refresh(false)
		case <-t.quit.ClickedCh:
			if t.onQuit != nil {
				t.onQuit()
			}
			return
		case <-ticker.C:
			// Picks up changes made through the API or hotkey
			t.refresh(false)
		case <-t.quitCh:
			return
		}
	}
}

func (t *Tray) refresh(force bool) {
	st := t.ctrl.Status()
	if !force && st.Listening == t.last.Listening && st.Subscription == t.last.Subscription {
		return
	}
	t.last = st

	t.status.SetTitle(StatusLine(st))
	systray.SetIcon(icon(st.Listening && st.Subscription != capture.SubscriptionFailed))
	if st.Listening {
		t.start.Check()
		t.start.Disable()
		t.stop.Enable()
	} else {
		t.start.Uncheck()
		t.start.Enable()
		t.stop.Disable()
	}
}

// StatusLine renders the menu status entry
func StatusLine(st capture.Status) string {
	switch st.Subscription {
	case capture.SubscriptionFailed:
		return "Hook failed: " + st.Error
	case capture.SubscriptionEnded:
		return "Hook ended"
	case capture.SubscriptionPending:
		if st.Listening {
			return "Listening (waiting for hook)"
		}
	}
	if st.Listening {
		return "Listening"
	}
	return "Stopped"
}

// icon returns a 16x16 ICO with a filled dot, green while capturing
func icon(active bool) []byte {
	const size = 16
	const pixelBytes = size * size * 4
	const maskBytes = size * 4 // 1bpp rows padded to 32 bits
	const dibSize = 40
	imageSize := dibSize + pixelBytes + maskBytes

	buf := make([]byte, 6+16+imageSize)
	// ICO header and one directory entry
	copy(buf[0:6], []byte{0, 0, 1, 0, 1, 0})
	copy(buf[6:22], []byte{
		size, size, 0, 0, 1, 0, 32, 0,
		byte(imageSize), byte(imageSize>>8), 0, 0,
		22, 0, 0, 0,
	})

	// BITMAPINFOHEADER; height is doubled to include the AND mask
	dib := buf[22:]
	copy(dib, []byte{dibSize, 0, 0, 0, size, 0, 0, 0, size * 2, 0, 0, 0, 1, 0, 32, 0})
	dib[20], dib[21] = byte(pixelBytes&0xFF), byte(pixelBytes>>8)

	var b, g, r byte = 0x80, 0x80, 0x80
	if active {
		b, g, r = 0x40, 0xC0, 0x30
	}

	pixels := dib[dibSize : dibSize+pixelBytes]
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := 2*x-size+1, 2*y-size+1
			if dx*dx+dy*dy > (size-2)*(size-2) {
				continue
			}
			i := (y*size + x) * 4
			pixels[i], pixels[i+1], pixels[i+2], pixels[i+3] = b, g, r, 0xFF
		}
	}
	return buf
}
