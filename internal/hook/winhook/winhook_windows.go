//go:build windows

// Package winhook captures global input on Windows with low-level
// keyboard and mouse hooks (WH_KEYBOARD_LL, WH_MOUSE_LL).
package winhook

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/windows"

	"inputcap/internal/capture"
	"inputcap/internal/hook"
	"inputcap/internal/logging"
)

const (
	whKeyboardLL = 13
	whMouseLL    = 14
	wmQuit       = 0x0012
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procSetWindowsHookExW   = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procGetMessageW         = user32.NewProc("GetMessageW")
	procTranslateMessage    = user32.NewProc("TranslateMessage")
	procDispatchMessageW    = user32.NewProc("DispatchMessageW")
	procPostThreadMessageW  = user32.NewProc("PostThreadMessageW")
)

type point struct {
	X, Y int32
}

type msg struct {
	Hwnd    windows.Handle
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      point
}

type kbdllHookStruct struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type msllHookStruct struct {
	Pt          point
	MouseData   uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

// Hook procedures are process-global, so is the handler they feed
var (
	active    atomic.Bool
	current   atomic.Pointer[capture.Handler]
	initOnce  sync.Once
	keyProc   uintptr
	mouseProc uintptr

	// Only touched from the hook thread
	mouse Translator
)

// Hook implements capture.Hook with SetWindowsHookEx
type Hook struct {
	logger logging.Logger
}

func New(logger logging.Logger) *Hook {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Hook{logger: logger}
}

// Listen installs both hooks and pumps messages on the calling OS thread
// until ctx ends.
func (h *Hook) Listen(ctx context.Context, handler capture.Handler) error {
	if !active.CompareAndSwap(false, true) {
		return hook.ErrInUse
	}
	defer active.Store(false)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	initOnce.Do(func() {
		keyProc = windows.NewCallback(keyboardHookProc)
		mouseProc = windows.NewCallback(mouseHookProc)
	})

	mouse = Translator{}
	current.Store(&handler)
	defer current.Store(nil)

	keyHook, _, err := procSetWindowsHookExW.Call(whKeyboardLL, keyProc, 0, 0)
	if keyHook == 0 {
		return fmt.Errorf("failed to set keyboard hook: %w", err)
	}
	defer procUnhookWindowsHookEx.Call(keyHook)

	mouseHook, _, err := procSetWindowsHookExW.Call(whMouseLL, mouseProc, 0, 0)
	if mouseHook == 0 {
		return fmt.Errorf("failed to set mouse hook: %w", err)
	}
	defer procUnhookWindowsHookEx.Call(mouseHook)

	h.logger.Debug("Low-level hooks installed")
	handler.Ready()

	tid := windows.GetCurrentThreadId()
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			procPostThreadMessageW.Call(uintptr(tid), wmQuit, 0, 0)
		case <-done:
		}
	}()

	var m msg
	for {
		ret, _, err := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		switch int32(ret) {
		case 0:
			return nil
		case -1:
			return fmt.Errorf("GetMessage failed: %w", err)
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&m)))
	}
}

func keyboardHookProc(nCode int32, wParam, lParam uintptr) uintptr {
	if nCode >= 0 {
		if h := current.Load(); h != nil {
			ks := (*kbdllHookStruct)(unsafe.Pointer(lParam))
			if n, ok := TranslateKey(uint32(wParam), ks.VkCode, ks.Flags); ok {
				(*h).Handle(n)
			}
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return ret
}

func mouseHookProc(nCode int32, wParam, lParam uintptr) uintptr {
	if nCode >= 0 {
		if h := current.Load(); h != nil {
			ms := (*msllHookStruct)(unsafe.Pointer(lParam))
			if n, ok := mouse.TranslateMouse(uint32(wParam), ms.Pt.X, ms.Pt.Y, ms.MouseData); ok {
				(*h).Handle(n)
			}
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return ret
}
