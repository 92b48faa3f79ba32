package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/1broseidon/gridswitch/internal/catalog"
	"github.com/1broseidon/gridswitch/internal/config"
	"github.com/1broseidon/gridswitch/internal/grid"
	"github.com/1broseidon/gridswitch/internal/ipc"
	"github.com/1broseidon/gridswitch/internal/keyboard"
	"github.com/1broseidon/gridswitch/internal/switcher"
	"github.com/1broseidon/gridswitch/internal/x11"
	"gopkg.in/yaml.v3"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		os.Exit(runDaemon(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "grid":
		os.Exit(runGrid(os.Args[2:]))
	case "refresh":
		os.Exit(runRefresh(os.Args[2:]))
	case "reload":
		os.Exit(runReload(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
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
	fmt.Fprintln(w, "Usage: gridswitch <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the gridswitch daemon (foreground)")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "  grid                Show the current switcher grid")
	fmt.Fprintln(w, "  refresh             Rebuild the window snapshot now")
	fmt.Fprintln(w, "  reload              Reload daemon configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'gridswitch <command> --help' for command-specific options.")
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: gridswitch status")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show daemon status via IPC.")
	}
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
	fmt.Printf("daemon_running: %v\n", status.DaemonRunning)
	fmt.Printf("visible:        %v\n", status.Visible)
	fmt.Printf("window_count:   %d\n", status.WindowCount)
	fmt.Printf("uptime_seconds: %d\n", status.UptimeSeconds)
	return 0
}

func runGrid(args []string) int {
	fs := flag.NewFlagSet("grid", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: gridswitch grid [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show the switcher grid the daemon currently holds.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	jsonOut := fs.Bool("json", false, "Output the grid as JSON")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "grid takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	data, err := client.GetGrid()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if *jsonOut {
		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println(string(out))
		return 0
	}

	if !data.Visible {
		fmt.Println("switcher hidden")
		return 0
	}
	if data.Search != "" {
		fmt.Printf("search: %q\n", data.Search)
	}
	for i, col := range data.Columns {
		label := ""
		if i == data.MruColumn {
			label = " (mru)"
		}
		fmt.Printf("column %d%s:\n", i, label)
		for _, cell := range col.Cells {
			if cell == nil {
				fmt.Println("  -")
				continue
			}
			marker := " "
			if cell.Selected {
				marker = "*"
			}
			fmt.Printf(" %s %s [%s]\n", marker, cell.Name, cell.Kind)
		}
	}
	return 0
}

func runRefresh(args []string) int {
	fs := flag.NewFlagSet("refresh", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: gridswitch refresh [--full]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Ask the daemon to rebuild its window snapshot.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	full := fs.Bool("full", false, "Discard process caches before rebuilding")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "refresh takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	if err := client.Refresh(*full); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runReload(args []string) int {
	fs := flag.NewFlagSet("reload", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: gridswitch reload")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Reload the daemon configuration.")
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
		fmt.Fprintln(os.Stderr, "  gridswitch config validate [--path PATH]")
		fmt.Fprintln(os.Stderr, "  gridswitch config print [--path PATH] [--defaults]")
		return 2
	}

	switch args[0] {
	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/gridswitch/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		var err error
		if *path == "" {
			_, err = config.Load()
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
		path := fs.String("path", "", "Config file path (default: ~/.config/gridswitch/config.yaml)")
		printDefaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		var cfg *config.Config
		var err error
		switch {
		case *printDefaults:
			cfg = config.DefaultConfig()
		case *path == "":
			cfg, err = config.Load()
		default:
			cfg, err = config.LoadFromPath(*path)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Print(string(data))
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown config command: %s\n", args[0])
		return 2
	}
}

func runDaemon(args []string) int {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: gridswitch daemon [--key KEY] [--ui-test]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Start the switcher daemon in the foreground.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	keyOverride := fs.String("key", "", "Override the configured trigger key (e.g. Tab)")
	uiTest := fs.Bool("ui-test", false, "Run without installing the keyboard hook (drive via IPC)")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "daemon takes no arguments")
		fs.Usage()
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *keyOverride != "" {
		cfg.TriggerKey = *keyOverride
	}
	log.Printf("Configuration loaded (trigger: %s, search: %s)", cfg.TriggerKey, cfg.SearchKey)

	logger := newLogger(cfg.LogLevel)

	conn, err := x11.NewConnection()
	if err != nil {
		log.Fatalf("Failed to connect to display: %v", err)
	}
	defer conn.Close()

	log.Println("gridswitch daemon started successfully")

	cat := catalog.New(conn, catalog.Options{
		NormalizeExempt:    cfg.NormalizeExempt,
		RequireWindowMatch: cfg.RequireWindowMatch,
	})
	state := catalog.NewStateCache(cat,
		time.Duration(cfg.RefreshIntervalMs)*time.Millisecond,
		cfg.FullRefreshEvery, logger)
	state.Start()
	defer state.Stop()

	builder := grid.NewBuilder(conn, cfg.MruWindowCount, columnDefs(cfg), layoutFrom(cfg))
	ctrl := switcher.New(state, builder, conn, logger)

	engine := keyboard.NewEngine(keyboardConfig(cfg))

	ctrlStop := make(chan struct{})
	defer close(ctrlStop)
	go ctrl.Run(engine.Messages(), ctrlStop)

	hook := keyboard.NewHook(conn.XUtil, engine)
	if *uiTest {
		log.Println("UI test mode: keyboard hook not installed")
	} else {
		if err := hook.Install(); err != nil {
			log.Fatalf("Failed to install keyboard hook: %v", err)
		}
		defer hook.Detach()
	}

	err = conn.WatchRoot(x11.NotifyHandlers{
		Activated:       state.NotifyNewForeground,
		TopologyChanged: state.Invalidate,
	})
	if err != nil {
		log.Printf("Warning: foreground tracking unavailable: %v", err)
	}

	// Create config reload channel
	reloadChan := make(chan struct{}, 1)

	ipcServer, err := ipc.NewServer(cfg, ctrl, state, reloadChan)
	if err != nil {
		log.Fatalf("Failed to create IPC server: %v", err)
	}
	if err := ipcServer.Start(); err != nil {
		log.Fatalf("Failed to start IPC server: %v", err)
	}
	defer ipcServer.Stop()

	applyConfig := func(newCfg *config.Config) {
		ctrl.SetBuilder(grid.NewBuilder(conn, newCfg.MruWindowCount, columnDefs(newCfg), layoutFrom(newCfg)))
		state.Invalidate()
		if newCfg.TriggerKey != cfg.TriggerKey || newCfg.SearchKey != cfg.SearchKey {
			log.Println("Key binding changes take effect after a daemon restart")
		}
		if newCfg.RefreshIntervalMs != cfg.RefreshIntervalMs || newCfg.FullRefreshEvery != cfg.FullRefreshEvery {
			log.Println("Refresh interval changes take effect after a daemon restart")
		}
	}

	// Setup signal handlers
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		for {
			select {
			case sig := <-sigCh:
				switch sig {
				case syscall.SIGHUP:
					log.Println("Received SIGHUP, reloading config...")
					newCfg, err := config.Load()
					if err != nil {
						log.Printf("Config reload failed: %v", err)
						continue
					}
					applyConfig(newCfg)
					log.Println("Config reloaded successfully")

				case os.Interrupt, syscall.SIGTERM:
					log.Println("Shutting down gridswitch daemon...")
					// Ends the event loop; runDaemon unwinds through its
					// defers from there.
					conn.Quit()
					return
				}

			case <-reloadChan:
				// Config was reloaded via IPC, update components
				applyConfig(ipcServer.GetConfig())
			}
		}
	}()

	// Start event loop (blocking)
	log.Println("Entering event loop...")
	conn.EventLoop()
	return 0
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

func keyboardConfig(cfg *config.Config) keyboard.Config {
	kc := keyboard.DefaultConfig()
	if sym, ok := keyboard.KeysymFromName(cfg.TriggerKey); ok {
		kc.TriggerKeysym = sym
	} else {
		log.Printf("Warning: unknown trigger key %q, using Tab", cfg.TriggerKey)
	}
	if sym, ok := keyboard.KeysymFromName(cfg.SearchKey); ok {
		kc.SearchKeysym = sym
	} else {
		log.Printf("Warning: unknown search key %q, using grave", cfg.SearchKey)
	}
	return kc
}

func columnDefs(cfg *config.Config) []grid.ColumnDef {
	defs := make([]grid.ColumnDef, len(cfg.Columns))
	for i, col := range cfg.Columns {
		groups := make([]grid.GroupDef, len(col.Groups))
		for j := range col.Groups {
			g := &col.Groups[j]
			groups[j] = grid.GroupDef{
				Name:  g.Name,
				Title: g.Title(),
				Class: g.Class(),
			}
		}
		defs[i] = grid.ColumnDef{Name: col.Name, Groups: groups}
	}
	return defs
}

func layoutFrom(cfg *config.Config) grid.Layout {
	return grid.Layout{
		TileWidth:        cfg.Tile.Width,
		TileHeight:       cfg.Tile.Height,
		Gutter:           cfg.Tile.Gutter,
		MajorGutter:      cfg.Tile.MajorGutter,
		GroupSpacing:     cfg.Tile.GroupSpacing,
		MaxRows:          cfg.MaxRowsPerColumn,
		PlaceholderWidth: cfg.Tile.PlaceholderWidth,
	}
}
