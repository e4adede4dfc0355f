package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"inputcap/internal/api"
	"inputcap/internal/backend"
	"inputcap/internal/capture"
	"inputcap/internal/command"
	"inputcap/internal/config"
	"inputcap/internal/hotkey"
	"inputcap/internal/logging"
	"inputcap/internal/notify"
	"inputcap/internal/osutils"
	"inputcap/internal/sink"
	"inputcap/internal/tray"
	"inputcap/internal/ui"
)

func runService(ctx context.Context, cancel context.CancelFunc, cfgMgr *config.Manager, cfg config.Config, level *slog.LevelVar, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger.Info("inputcap starting", "version", version, "config", cfgMgr.Path())

	hook, backendUsed, err := backend.Open(backend.Options{
		Name:       cfg.Capture.Backend,
		DevicePath: cfg.Capture.DevicePath,
		ScriptFile: *scriptPath,
		Logger:     logger.With("component", "hook"),
	})
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}
	logger.Info("Capture backend selected", "backend", backendUsed)
	for _, hint := range osutils.Hints(runtime.GOOS, backendUsed, osutils.Current()) {
		logger.Warn(hint)
	}

	// Sinks: websocket clients, optionally stdout, behind a bounded queue
	hub := api.NewHub(nil, logger.With("component", "hub"))
	sinks := sink.Multi{hub}
	if *printEvents {
		sinks = append(sinks, sink.NewConsole(os.Stdout))
	}
	var out capture.Sink = sinks
	var queue *sink.Queue
	if cfg.Capture.QueueSize > 0 {
		policy, _ := sink.ParseDropPolicy(cfg.Capture.DropPolicy)
		queue = sink.NewQueue(sinks, cfg.Capture.QueueSize, policy, logger.With("component", "queue"))
		out = queue
	}

	var notifier notify.Notifier = notify.Nop{}
	if cfg.General.ShowNotifications {
		notifier = notify.Logged{Notifier: notify.Desktop{AppName: "inputcap"}, Logger: logger}
	}

	hotkeys := hotkey.NewManager(logger.With("component", "hotkey"))

	svc, err := capture.New(hook, out,
		capture.WithContext(ctx),
		capture.WithLogger(logger.With("component", "capture")),
		capture.WithTap(hotkeys.Observe),
		capture.WithReadyTimeout(cfg.Capture.ReadyTimeout.Std()),
		capture.WithOnHookFailure(func(err error) {
			notifier.Notify("inputcap", "Input capture failed: "+err.Error())
		}),
	)
	if err != nil {
		return err
	}

	dispatcher := command.ForService(svc)
	hub.SetCommands(dispatcher)

	registerHotkey(hotkeys, cfg.General.ToggleHotkey, dispatcher, logger)
	cfgMgr.RegisterChangeCallback(func(newCfg config.Config) {
		logger.Info("Config reloaded")
		if *logLevel == "" {
			if l, err := logging.ParseLevel(newCfg.General.LogLevel); err == nil {
				level.Set(l)
			}
		}
		hotkeys.Clear()
		registerHotkey(hotkeys, newCfg.General.ToggleHotkey, dispatcher, logger)
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	if cfg.API.Enabled {
		server := api.NewServer(dispatcher, cfgMgr, hub, logger.With("component", "api"))
		g.Go(func() error {
			return server.ListenAndServe(gctx, cfg.API.Addr)
		})
	}

	g.Go(func() error {
		if err := cfgMgr.Watch(gctx); err != nil {
			logger.Warn("Config watcher stopped", "err", err)
		}
		return nil
	})

	if *openUI && cfg.API.Enabled {
		openPanel(cfg, logger)
	}

	if cfg.Capture.AutoStart {
		if _, err := dispatcher.Invoke(ctx, command.StartInputListener); err != nil {
			logger.Warn("Auto start failed", "err", err)
		}
	}

	if cfg.General.Tray {
		t := tray.New(svc, logger.With("component", "tray"), cancel)
		if cfg.API.Enabled {
			t.SetPanel(func() { openPanel(cfg, logger) })
		}
		g.Go(func() error {
			<-gctx.Done()
			t.Stop()
			return nil
		})
		// systray needs the main goroutine
		t.Run()
		cancel()
	}

	err = g.Wait()
	if queue != nil {
		queue.Close()
		st := queue.Stats()
		logger.Debug("Queue drained", "delivered", st.Delivered, "dropped", st.Dropped, "failed", st.Failed)
	}
	logger.Info("inputcap stopped", "status", svc.Status().Subscription)
	return err
}

func openPanel(cfg config.Config, logger logging.Logger) {
	url := ui.URL(cfg.API.Addr, cfg.API.Token)
	if err := ui.OpenBrowser(url); err != nil {
		logger.Warn("Failed to open browser", "err", err)
	}
}

func registerHotkey(m *hotkey.Manager, combo string, d *command.Dispatcher, logger logging.Logger) {
	if combo == "" {
		return
	}
	_, err := m.Register(combo, func() {
		res, err := d.Invoke(context.Background(), command.ToggleInputListener)
		if err != nil {
			logger.Warn("Toggle hotkey failed", "err", err)
			return
		}
		logger.Info("Toggle hotkey", "result", res)
	})
	if err != nil {
		logger.Warn("Invalid toggle hotkey", "hotkey", combo, "err", err)
		return
	}
	logger.Info("Toggle hotkey registered", "hotkey", combo)
}
