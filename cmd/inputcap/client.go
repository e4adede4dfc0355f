package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"inputcap/internal/input"
	"inputcap/internal/network"
	"inputcap/internal/sink"
)

// attach prints events broadcast by a running service until ctx ends
func attach(ctx context.Context, addr, token string, logger *slog.Logger) error {
	console := sink.NewConsole(os.Stdout)

	client := network.NewWSClient(addr, token, logger)
	client.OnEvent = func(name string, ev input.InputEvent) {
		if err := console.Emit(name, ev); err != nil {
			logger.Warn("Write failed", "err", err)
		}
	}
	client.OnStatus = func(status json.RawMessage) {
		logger.Info("Service status", "status", string(status))
	}
	return client.Run(ctx)
}

// invokeRemote runs one command on a running service and prints the result
func invokeRemote(ctx context.Context, addr, token, name string, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client := network.NewWSClient(addr, token, logger)
	go client.Run(ctx)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for !client.IsConnected() {
		select {
		case <-ctx.Done():
			return fmt.Errorf("connect to %s: %w", addr, network.ErrNotConnected)
		case <-ticker.C:
		}
	}

	res, err := client.Invoke(ctx, name)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%s: no reply from %s", name, addr)
		}
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
