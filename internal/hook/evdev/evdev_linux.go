//go:build linux

// Package evdev captures keyboard and mouse input by reading /dev/input
// event devices directly. It works under Wayland and on the console, but
// the user needs read access to the devices (usually the input group).
package evdev

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	evdev "github.com/holoplot/go-evdev"
	"golang.org/x/sys/unix"

	"inputcap/internal/capture"
	"inputcap/internal/logging"
)

// ErrNoDevices is returned when no readable keyboard or mouse was found
var ErrNoDevices = errors.New("no readable input devices in /dev/input (is the user in the input group?)")

// DeviceInfo describes one event device
type DeviceInfo struct {
	Path      string
	Name      string
	IsVirtual bool
	IsPointer bool
}

// Hook implements capture.Hook over evdev
type Hook struct {
	devicePath string
	logger     logging.Logger
}

// New creates an evdev hook. An empty devicePath reads every physical
// device that reports key or button events.
func New(devicePath string, logger logging.Logger) *Hook {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Hook{devicePath: devicePath, logger: logger}
}

// Available reports whether at least one device can be opened
func Available() bool {
	devices, err := openDevices("")
	if err != nil {
		return false
	}
	closeAll(devices)
	return true
}

// Listen reads all devices until ctx ends. Records from every device are
// funnelled to the calling goroutine, so handler sees one ordered stream.
func (h *Hook) Listen(ctx context.Context, handler capture.Handler) error {
	devices, err := openDevices(h.devicePath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	records := make(chan deviceRecord, 256)
	var wg sync.WaitGroup
	for i, dev := range devices {
		h.logger.Info("Reading input device", "path", dev.Path(), "name", deviceName(dev, ""))
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.readLoop(ctx, i, dev, records)
		}()
	}
	go func() {
		wg.Wait()
		close(records)
	}()
	defer closeAll(devices)

	handler.Ready()

	cursor := NewCursor(0, 0, 0, 0)
	translators := make([]*Translator, len(devices))
	for i := range translators {
		translators[i] = NewTranslator(cursor)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case rec, ok := <-records:
			if !ok {
				return errors.New("evdev: all input devices closed")
			}
			if n, ok := translators[rec.device].Translate(rec.Record); ok {
				handler.Handle(n)
			}
		}
	}
}

type deviceRecord struct {
	Record
	device int
}

func (h *Hook) readLoop(ctx context.Context, idx int, dev *evdev.InputDevice, out chan<- deviceRecord) {
	path := dev.Path()
	for {
		events, err := dev.ReadSlice(64)
		if err != nil {
			if ctx.Err() != nil || isDeviceClosedError(err) {
				h.logger.Debug("Input device closed", "path", path)
				return
			}
			if isWouldBlockError(err) {
				if !sleepCtx(ctx, 10*time.Millisecond) {
					return
				}
				continue
			}
			h.logger.Warn("Read failed", "path", path, "err", err)
			if !sleepCtx(ctx, 100*time.Millisecond) {
				return
			}
			continue
		}

		for _, ev := range events {
			rec := deviceRecord{
				Record: Record{Type: uint16(ev.Type), Code: uint16(ev.Code), Value: ev.Value},
				device: idx,
			}
			select {
			case out <- rec:
			case <-ctx.Done():
				return
			}
		}
	}
}

// ListDevices returns every event device that exposes key or button
// events, sorted by path
func ListDevices() ([]DeviceInfo, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, err
	}

	infos := make([]DeviceInfo, 0, len(paths))
	for _, p := range paths {
		dev, err := evdev.OpenWithFlags(p.Path, os.O_RDONLY)
		if err != nil {
			continue
		}
		if len(dev.CapableEvents(evdev.EV_KEY)) > 0 {
			name := deviceName(dev, p.Name)
			infos = append(infos, DeviceInfo{
				Path:      p.Path,
				Name:      name,
				IsVirtual: deviceIsVirtual(dev, name),
				IsPointer: deviceIsPointer(dev),
			})
		}
		_ = dev.Close()
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Path < infos[j].Path
	})
	return infos, nil
}

func openDevices(devicePath string) ([]*evdev.InputDevice, error) {
	if devicePath != "" {
		dev, err := evdev.OpenWithFlags(devicePath, os.O_RDONLY)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", devicePath, err)
		}
		if len(dev.CapableEvents(evdev.EV_KEY)) == 0 {
			_ = dev.Close()
			return nil, fmt.Errorf("%s does not expose key/button events", devicePath)
		}
		if err := dev.NonBlock(); err != nil {
			_ = dev.Close()
			return nil, fmt.Errorf("failed to set nonblocking mode for %s: %w", devicePath, err)
		}
		return []*evdev.InputDevice{dev}, nil
	}

	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, err
	}
	sort.Slice(paths, func(i, j int) bool {
		return paths[i].Path < paths[j].Path
	})

	devices := make([]*evdev.InputDevice, 0, len(paths))
	for _, p := range paths {
		dev, err := evdev.OpenWithFlags(p.Path, os.O_RDONLY)
		if err != nil {
			continue
		}
		if deviceIsVirtual(dev, deviceName(dev, p.Name)) || len(dev.CapableEvents(evdev.EV_KEY)) == 0 {
			_ = dev.Close()
			continue
		}
		if err := dev.NonBlock(); err != nil {
			_ = dev.Close()
			continue
		}
		devices = append(devices, dev)
	}
	if len(devices) == 0 {
		return nil, ErrNoDevices
	}
	return devices, nil
}

func closeAll(devices []*evdev.InputDevice) {
	for _, dev := range devices {
		_ = dev.Close()
	}
}

func deviceName(dev *evdev.InputDevice, fallback string) string {
	if name, err := dev.Name(); err == nil && name != "" {
		return name
	}
	return fallback
}

func deviceIsVirtual(dev *evdev.InputDevice, name string) bool {
	id, err := dev.InputID()
	if err == nil && id.BusType == uint16(evdev.BUS_VIRTUAL) {
		return true
	}
	lower := strings.ToLower(name)
	for _, token := range []string{"virtual", "uinput", "ydotool"} {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

func deviceIsPointer(dev *evdev.InputDevice) bool {
	var hasX, hasY bool
	for _, code := range dev.CapableEvents(evdev.EV_REL) {
		switch code {
		case evdev.REL_X:
			hasX = true
		case evdev.REL_Y:
			hasY = true
		}
	}
	return hasX && hasY
}

func isDeviceClosedError(err error) bool {
	return errors.Is(err, unix.EBADF) || errors.Is(err, unix.ENODEV) || errors.Is(err, os.ErrClosed)
}

func isWouldBlockError(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
