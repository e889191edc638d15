package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/BurntSushi/xgb/xproto"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/1broseidon/framed/internal/config"
	"github.com/1broseidon/framed/internal/daemon"
	"github.com/1broseidon/framed/internal/ipc"
	"github.com/1broseidon/framed/internal/watcher"
	"github.com/1broseidon/framed/internal/wm"
	"github.com/1broseidon/framed/internal/x11"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "run":
		os.Exit(runRun(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "clients":
		os.Exit(runClients(os.Args[2:]))
	case "reload":
		os.Exit(runReload(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: framed <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  run                 Run the window manager (foreground)")
	fmt.Fprintln(w, "  status              Show window manager status")
	fmt.Fprintln(w, "  clients             List managed windows")
	fmt.Fprintln(w, "  reload              Reload configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'framed <command> --help' for command-specific options.")
}

func runRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: framed run [--display DISPLAY] [--config PATH]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Run the window manager in the foreground.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	display := fs.String("display", "", "X display to manage (default: config display, then $DISPLAY)")
	configPath := fs.String("config", "", "Config file path (default: ~/.config/framed/config.yaml)")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "run takes no arguments")
		fs.Usage()
		return 2
	}

	runDaemon(*display, *configPath)
	return 0
}

func loadConfig(path string) (*config.LoadResult, error) {
	if path == "" {
		return config.LoadWithSources()
	}
	return config.LoadFromPath(path)
}

func frameStyle(cfg *config.Config) wm.Style {
	return wm.Style{
		BorderWidth:     uint16(cfg.Frame.BorderWidth),
		BorderColor:     uint32(cfg.Frame.BorderColor),
		BackgroundColor: uint32(cfg.Frame.BackgroundColor),
	}
}

// configWatchPath picks the path the hot-reload watcher follows: the file
// the config was loaded from, or where it would be created.
func configWatchPath(result *config.LoadResult, flagPath string) string {
	if result.Path != "" {
		return result.Path
	}
	if flagPath != "" {
		return flagPath
	}
	path, err := config.DefaultConfigPath()
	if err != nil {
		return ""
	}
	return path
}

func runDaemon(displayFlag, configPath string) {
	// Load configuration
	result, err := loadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg := result.Config

	// Log level lives in a LevelVar so reloads can change it live.
	level := new(slog.LevelVar)
	level.Set(cfg.SlogLevel())
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	display := displayFlag
	if display == "" {
		display = cfg.Display
	}

	// Connect to the X server
	backend, err := x11.Connect(display)
	if err != nil {
		log.Fatalf("Failed to connect to display: %v", err)
	}

	mgr, err := wm.New(wm.Config{
		Backend: backend,
		Logger:  logger,
		Style:   frameStyle(cfg),
	})
	if err != nil {
		log.Fatalf("Failed to create window manager: %v", err)
	}

	// Reload channel shared by SIGHUP, the file watcher, and IPC RELOAD
	reloadChan := make(chan struct{}, 1)

	// Start IPC server
	ipcServer, err := ipc.NewServer(ipc.ServerConfig{
		State:      mgr,
		Display:    backend.Display(),
		ConfigPath: configPath,
		Reload:     reloadChan,
	})
	if err != nil {
		log.Fatalf("Failed to create IPC server: %v", err)
	}
	if err := ipcServer.Start(); err != nil {
		log.Fatalf("Failed to start IPC server: %v", err)
	}
	defer ipcServer.Stop()

	// Watch the config file. Reload stays available over SIGHUP and IPC
	// when watching is not possible.
	if watchPath := configWatchPath(result, configPath); watchPath != "" {
		w, err := watcher.New(watchPath, 0, func() {
			select {
			case reloadChan <- struct{}{}:
			default:
			}
		}, logger)
		if err != nil {
			logger.Warn("config watching disabled", "error", err)
		} else if err := w.Start(); err != nil {
			logger.Warn("config watching disabled", "error", err)
		} else {
			defer w.Stop()
		}
	}

	// Registry auditor; audit.interval_seconds 0 disables it
	if interval := cfg.AuditInterval(); interval > 0 {
		auditor := daemon.NewAuditor(daemon.AuditorConfig{
			Interval: interval,
			Logger:   logger,
		}, mgr.ManagedWindows, func(win xproto.Window) error {
			_, err := backend.Attributes(win)
			return err
		})
		auditorCtx, auditorCancel := context.WithCancel(context.Background())
		defer auditorCancel()
		go auditor.Run(auditorCtx)
	}

	reload := func() {
		res, err := loadConfig(configPath)
		if err != nil {
			logger.Warn("config reload failed, keeping previous config", "error", err)
			return
		}
		newCfg := res.Config
		if newCfg.Display != cfg.Display {
			logger.Warn("display changed in config, restart required to take effect",
				"old", cfg.Display, "new", newCfg.Display)
		}
		level.Set(newCfg.SlogLevel())
		mgr.ApplyStyle(frameStyle(newCfg))
		cfg = newCfg
		logger.Info("configuration reloaded")
	}

	// Handle signals and config reloads
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		for {
			select {
			case sig := <-sigCh:
				switch sig {
				case syscall.SIGHUP:
					logger.Info("received SIGHUP, reloading config")
					reload()
				case os.Interrupt, syscall.SIGTERM:
					logger.Info("shutting down", "signal", sig.String())
					mgr.Close()
					return
				}
			case <-reloadChan:
				reload()
			}
		}
	}()

	if err := mgr.Run(); err != nil {
		if errors.Is(err, wm.ErrManagerRunning) {
			log.Fatalf("Another window manager is already running on %s", backend.Display())
		}
		log.Fatalf("Window manager terminated: %v", err)
	}
}

func printJSON(v interface{}) int {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: framed status [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show window manager status via IPC.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	jsonOut := fs.Bool("json", false, "Output JSON")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	status, err := client.GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if *jsonOut || !term.IsTerminal(int(os.Stdout.Fd())) {
		return printJSON(status)
	}

	fmt.Printf("running:        %v\n", status.Running)
	fmt.Printf("display:        %s\n", status.Display)
	fmt.Printf("managed_count:  %d\n", status.ManagedCount)
	fmt.Printf("uptime_seconds: %d\n", status.UptimeSeconds)
	fmt.Printf("border_width:   %d\n", status.BorderWidth)
	return 0
}

func runClients(args []string) int {
	fs := flag.NewFlagSet("clients", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: framed clients [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "List managed windows via IPC.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	jsonOut := fs.Bool("json", false, "Output JSON")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "clients takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	clients, err := client.ListClients()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if *jsonOut || !term.IsTerminal(int(os.Stdout.Fd())) {
		return printJSON(clients)
	}

	if len(clients) == 0 {
		fmt.Println("no managed windows")
		return 0
	}
	fmt.Printf("%-12s %-12s %-6s %-6s %-6s %-6s %s\n", "WINDOW", "FRAME", "X", "Y", "WIDTH", "HEIGHT", "TITLE")
	for _, c := range clients {
		fmt.Printf("%-12s %-12s %-6d %-6d %-6d %-6d %s\n",
			fmt.Sprintf("0x%x", c.Window), fmt.Sprintf("0x%x", c.Frame),
			c.X, c.Y, c.Width, c.Height, c.Title)
	}
	return 0
}

func runReload(args []string) int {
	fs := flag.NewFlagSet("reload", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: framed reload")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Ask the running window manager to reload its configuration.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "reload takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	if err := client.Reload(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runConfig(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  framed config validate [--path PATH]")
		fmt.Fprintln(os.Stderr, "  framed config print [--path PATH] [--defaults]")
		return 2
	}

	switch args[0] {
	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/framed/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		var err error
		if *path == "" {
			_, err = config.LoadWithSources()
		} else {
			_, err = config.LoadFromPath(*path)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println("config: ok")
		return 0

	case "print":
		fs := flag.NewFlagSet("print", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/framed/config.yaml)")
		printDefaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		var cfg *config.Config
		if *printDefaults {
			cfg = config.DefaultConfig()
		} else {
			var res *config.LoadResult
			var err error
			if *path == "" {
				res, err = config.LoadWithSources()
			} else {
				res, err = config.LoadFromPath(*path)
			}
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
			cfg = res.Config
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Print(string(data))
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args[0])
		return 2
	}
}
