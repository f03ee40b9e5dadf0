// desync-repro reproduces a collaborative-editing desync between two clients
// of a shared document.
//
// Interactive mode (default) joins the room "my-room" as "you" next to an
// in-process peer, shows both documents side by side and offers a
// "Toggle Simulate Typing" button that types "a" every 50ms. Making the peer
// delete text while typing is on shows the two documents drifting apart;
// ctrl+r re-syncs from the provider's copy.
//
// Headless mode (--headless) runs the same steps without a terminal and
// prints a report.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/iw2rmb/desync"
	"github.com/iw2rmb/desync/internal/config"
	"github.com/iw2rmb/desync/internal/repro"
	"github.com/iw2rmb/desync/room"
)

func main() {
	if err := run(os.Args[1:], os.Getenv, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	headless   bool
	duration   time.Duration
	eraseEvery time.Duration
	interval   time.Duration
	text       string
	latency    time.Duration
	logFile    string
	logLevel   string
	version    bool
}

func run(args []string, getenv func(string) string, stdout, stderr io.Writer) error {
	var opts options
	flagSet := pflag.NewFlagSet("desync-repro", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&opts.configPath, "config", "", "path to YAML config (default: "+config.DefaultFile+" if present)")
	flagSet.BoolVar(&opts.headless, "headless", false, "run the two-client scenario without a terminal and print a report")
	flagSet.DurationVar(&opts.duration, "duration", 3*time.Second, "how long to type in headless mode")
	flagSet.DurationVar(&opts.eraseEvery, "erase-every", 400*time.Millisecond, "peer select-and-delete period in headless mode (0 disables)")
	flagSet.DurationVar(&opts.interval, "interval", 0, "typing period (overrides config)")
	flagSet.StringVar(&opts.text, "text", "", "text inserted on every tick (overrides config)")
	flagSet.DurationVar(&opts.latency, "latency", -1, "loopback delivery delay (overrides config)")
	flagSet.StringVar(&opts.logFile, "log-file", "", "write JSON log records to this file")
	flagSet.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	flagSet.BoolVar(&opts.version, "version", false, "print version and exit")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(stderr, flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(stderr, flagSet)
		return nil
	}
	if opts.version {
		fmt.Fprintf(stdout, "desync-repro %s\n", desync.VersionTag())
		return nil
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	cfg, err := config.Load(opts.configPath, getenv)
	if err != nil {
		return err
	}
	applyOverrides(&cfg, opts)
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, _ := config.ParseLevel(cfg.LogLevel)

	var fileHandler slog.Handler
	if cfg.LogFile != "" {
		handler, closeFile, err := openFileLogHandler(cfg.LogFile, level)
		if err != nil {
			return fmt.Errorf("open log file %s: %w", cfg.LogFile, err)
		}
		defer closeFile()
		fileHandler = handler
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if opts.headless {
		handlers := fanoutHandler{slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})}
		if fileHandler != nil {
			handlers = append(handlers, fileHandler)
		}
		return runHeadless(ctx, slog.New(handlers), cfg, opts, stdout)
	}
	return runInteractive(ctx, cfg, level, fileHandler)
}

func applyOverrides(cfg *config.Config, opts options) {
	if opts.interval > 0 {
		cfg.Interval = opts.interval
	}
	if opts.text != "" {
		cfg.Text = opts.text
	}
	if opts.latency >= 0 {
		cfg.Latency = opts.latency
	}
	if opts.logFile != "" {
		cfg.LogFile = opts.logFile
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
}

func newHub(cfg config.Config, logger *slog.Logger) *room.Hub {
	return room.NewHub(room.WithLatency(cfg.Latency), room.WithLogger(logger.With("component", "loopback")))
}

func runHeadless(ctx context.Context, logger *slog.Logger, cfg config.Config, opts options, stdout io.Writer) error {
	rcfg := repro.DefaultConfig()
	rcfg.Key = cfg.PublicKey
	rcfg.Interval = cfg.Interval
	rcfg.Text = cfg.Text
	rcfg.Duration = opts.duration
	rcfg.EraseEvery = opts.eraseEvery
	rcfg.Logger = logger

	rep, err := repro.Run(ctx, newHub(cfg, logger), rcfg)
	if err != nil {
		return err
	}
	printReport(stdout, rep)
	return nil
}

func printReport(w io.Writer, rep repro.Report) {
	fmt.Fprintf(w, "ticks: %d  erases: %d  server seq: %d  server length: %d\n",
		rep.Ticks, rep.Erases, rep.Server.Seq, len([]rune(rep.Server.Text)))
	for _, c := range rep.Clients {
		state := "in sync"
		if c.Diverged {
			state = "DIVERGED"
		}
		fmt.Fprintf(w, "client %s: length %d, content errors %d, %s\n", c.Name, c.Length, c.ContentErrors, state)
	}
	if rep.Diverged() {
		fmt.Fprintln(w, "result: desync reproduced")
	} else {
		fmt.Fprintln(w, "result: clients converged")
	}
}

func runInteractive(ctx context.Context, cfg config.Config, level slog.Level, fileHandler slog.Handler) error {
	// The alt screen owns the terminal, so records go to the status bar and
	// optionally to the log file, never to stderr.
	tuiHandler := newTUILogHandler(level)
	defer tuiHandler.Close()
	var logger *slog.Logger
	if fileHandler != nil {
		logger = slog.New(fanoutHandler{tuiHandler, fileHandler})
	} else {
		logger = slog.New(tuiHandler)
	}

	app, err := newApp(ctx, newHub(cfg, logger), cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	program := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	tuiHandler.SetProgram(program)
	app.SetProgram(program)

	_, err = program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `desync-repro: reproduce a desync between two collaborative editor clients.

Requires %s (or public_key in %s). The loopback provider accepts
keys starting with "pk_".

Usage:
  desync-repro [flags]

Keys (interactive mode):
  ctrl+t / click the button   toggle simulated typing
  ctrl+x                      peer selects the last characters and deletes them
  ctrl+r                      re-sync your document from the provider
  ctrl+c / esc                quit

Flags:
`, config.PublicKeyEnv, config.DefaultFile)
	flagSet.SetOutput(w)
	flagSet.PrintDefaults()
}
