package network

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"inputcap/internal/api"
	"inputcap/internal/capture"
	"inputcap/internal/command"
	"inputcap/internal/input"
)

func startService(t *testing.T) (*api.Hub, *command.Dispatcher, string) {
	t.Helper()

	commands := command.NewDispatcher()
	commands.Register(command.InputListenerStatus, func(ctx context.Context) (any, error) {
		return map[string]bool{"listening": false}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	hub := api.NewHub(commands, nil)
	go hub.Run(ctx)

	srv := httptest.NewServer(api.NewServer(commands, nil, hub, nil).Handler())
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return hub, commands, strings.TrimPrefix(srv.URL, "http://")
}

func TestClientInvokeAndEvents(t *testing.T) {
	hub, commands, addr := startService(t)

	started := make(chan struct{}, 1)
	commands.Register(command.StartInputListener, func(ctx context.Context) (any, error) {
		started <- struct{}{}
		return nil, nil
	})

	client := NewWSClient(addr, "", nil)

	statusCh := make(chan json.RawMessage, 1)
	client.OnStatus = func(raw json.RawMessage) { statusCh <- raw }

	var mu sync.Mutex
	var events []input.InputEvent
	gotEvent := make(chan struct{}, 1)
	client.OnEvent = func(name string, ev input.InputEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
		gotEvent <- struct{}{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	select {
	case raw := <-statusCh:
		if !strings.Contains(string(raw), "listening") {
			t.Errorf("Unexpected status payload: %s", raw)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Timed out waiting for status")
	}

	invokeCtx, invokeCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer invokeCancel()
	res, err := client.Invoke(invokeCtx, command.StartInputListener)
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if !res.OK || res.Command != command.StartInputListener {
		t.Errorf("Unexpected result: %+v", res)
	}
	select {
	case <-started:
	default:
		t.Error("Expected start command to run on the service")
	}

	if _, err := client.Invoke(invokeCtx, "missing"); err == nil {
		t.Error("Expected error for unknown command")
	}

	hub.Emit(capture.EventName, input.Normalize(input.KeyPressed{Key: "KeyQ"}))
	select {
	case <-gotEvent:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for event")
	}
	mu.Lock()
	if len(events) != 1 || *events[0].Key != "KeyQ" {
		t.Errorf("Unexpected events: %+v", events)
	}
	mu.Unlock()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Timed out waiting for client shutdown")
	}
}

func TestInvokeWhileDisconnected(t *testing.T) {
	client := NewWSClient("127.0.0.1:1", "", nil)
	if _, err := client.Invoke(context.Background(), command.StopInputListener); err != ErrNotConnected {
		t.Errorf("Expected ErrNotConnected, got %v", err)
	}
}
