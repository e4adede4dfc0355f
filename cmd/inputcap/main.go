// inputcap - global keyboard and mouse capture service
// Forwards normalized input events to local UI clients over websocket.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"inputcap/internal/autostart"
	"inputcap/internal/backend"
	"inputcap/internal/config"
	"inputcap/internal/hook/evdev"
	"inputcap/internal/logging"
)

var (
	version = "0.1.0"

	configPath  = flag.String("config", "", "Config file (.json, .yaml or .toml)")
	backendName = flag.String("backend", "", "Capture backend: auto|gohook|evdev|winhook|synthetic")
	devicePath  = flag.String("device", "", "Read a single evdev device (e.g. /dev/input/event3)")
	logLevel    = flag.String("log-level", "", "Log level: debug|info|warn|error")
	noTray      = flag.Bool("no-tray", false, "Run without the system tray icon")
	scriptPath  = flag.String("script", "", "Replay events from a file (implies -backend synthetic)")
	printEvents = flag.Bool("print", false, "Also write captured events to stdout")
	openUI      = flag.Bool("open", false, "Open the control panel in the browser")
	listDevs    = flag.Bool("list-devices", false, "List evdev input devices and exit")
	attachAddr  = flag.String("attach", "", "Print events from a running service at host:port")
	invokeName  = flag.String("invoke", "", "Invoke a command on the service given by -attach and exit")
	token       = flag.String("token", "", "API token for -attach and -invoke")
	autostartOp = flag.String("autostart", "", "Launch at login: on|off|status")
	showVer     = flag.Bool("version", false, "Show version")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("inputcap version %s\n", version)
		return
	}

	if *autostartOp != "" {
		if err := handleAutostart(*autostartOp); err != nil {
			fmt.Fprintf(os.Stderr, "Autostart failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *listDevs {
		if err := listDevices(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to list devices: %v\n", err)
			os.Exit(1)
		}
		return
	}

	var level slog.LevelVar
	if *logLevel != "" {
		l, err := logging.ParseLevel(*logLevel)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		level.Set(l)
	}
	logger := logging.New(os.Stderr, &level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *attachAddr != "" {
		tok := *token
		if tok == "" {
			tok = localToken(logger)
		}
		var err error
		if *invokeName != "" {
			err = invokeRemote(ctx, *attachAddr, tok, *invokeName, logger)
		} else {
			err = attach(ctx, *attachAddr, tok, logger)
		}
		if err != nil {
			logger.Error("Client failed", "err", err)
			os.Exit(1)
		}
		return
	}
	if *invokeName != "" {
		fmt.Fprintln(os.Stderr, "-invoke requires -attach host:port")
		os.Exit(2)
	}

	cfgMgr, err := config.NewManager(*configPath, logger)
	if err != nil {
		logger.Error("Failed to initialize config", "err", err)
		os.Exit(1)
	}
	if err := cfgMgr.Load(); err != nil {
		logger.Warn("Failed to load config, using defaults", "path", cfgMgr.Path(), "err", err)
	}
	if created, err := cfgMgr.EnsureToken(); err != nil {
		logger.Warn("Failed to persist API token", "err", err)
	} else if created {
		logger.Info("Generated API token", "path", cfgMgr.Path())
	}

	cfg := applyFlags(cfgMgr.Get())
	if *logLevel == "" {
		if l, err := logging.ParseLevel(cfg.General.LogLevel); err == nil {
			level.Set(l)
		}
	}

	if err := runService(ctx, stop, cfgMgr, cfg, &level, logger); err != nil {
		logger.Error("Service failed", "err", err)
		os.Exit(1)
	}
}

// localToken reads the API token of the service sharing this config file
func localToken(logger *slog.Logger) string {
	m, err := config.NewManager(*configPath, logger)
	if err != nil {
		return ""
	}
	if err := m.Load(); err != nil {
		return ""
	}
	return m.Get().API.Token
}

// applyFlags overlays command line overrides onto the loaded config
func applyFlags(cfg config.Config) config.Config {
	if *backendName != "" {
		cfg.Capture.Backend = *backendName
	}
	if *devicePath != "" {
		cfg.Capture.DevicePath = *devicePath
	}
	if *scriptPath != "" && *backendName == "" {
		cfg.Capture.Backend = backend.Synthetic
	}
	if *noTray {
		cfg.General.Tray = false
	}
	return cfg
}

func listDevices() error {
	devices, err := evdev.ListDevices()
	if err != nil {
		return err
	}

	fmt.Println("Input Devices:")
	fmt.Println("--------------")
	for _, d := range devices {
		fmt.Printf("%s\n", d.Path)
		fmt.Printf("  Name: %s\n", d.Name)
		if d.IsPointer {
			fmt.Printf("  Pointer: yes\n")
		}
		if d.IsVirtual {
			fmt.Printf("  Virtual: yes (skipped by auto discovery)\n")
		}
	}
	if len(devices) == 0 {
		fmt.Println(evdev.ErrNoDevices)
	}
	return nil
}

// handleAutostart installs the running binary, with the current -config,
// as a login item
func handleAutostart(op string) error {
	switch op {
	case "on":
		var args []string
		if *configPath != "" {
			args = append(args, "-config", *configPath)
		}
		e, err := autostart.ForExecutable("inputcap", args...)
		if err != nil {
			return err
		}
		if err := autostart.Enable(e); err != nil {
			return err
		}
		fmt.Println("Autostart enabled:", autostart.CommandLine(e))
	case "off":
		if err := autostart.Disable("inputcap"); err != nil {
			return err
		}
		fmt.Println("Autostart disabled")
	case "status":
		fmt.Println("Autostart enabled:", autostart.IsEnabled("inputcap"))
	default:
		return fmt.Errorf("unknown -autostart value %q (expected on|off|status)", op)
	}
	return nil
}
