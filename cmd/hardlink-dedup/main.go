package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bamsammich/hardlink-dedup/internal/config"
	"github.com/bamsammich/hardlink-dedup/internal/engine"
	"github.com/bamsammich/hardlink-dedup/internal/event"
	"github.com/bamsammich/hardlink-dedup/internal/filter"
	"github.com/bamsammich/hardlink-dedup/internal/ui"
)

var version = "dev"

func main() {
	os.Exit(run())
}

// filterFlag is a custom pflag.Value that preserves CLI ordering of
// --exclude and --include rules by appending to a shared filter.Set.
type filterFlag struct {
	set     *filter.Set
	include bool
}

func (*filterFlag) String() string { return "" }
func (*filterFlag) Type() string   { return "string" }

func (f *filterFlag) Set(val string) error {
	if f.include {
		return f.set.Include(val)
	}
	return f.set.Exclude(val)
}

// options holds the parsed command line.
type options struct {
	dryRun      bool
	paranoid    bool
	verbose     bool
	quiet       bool
	showVersion bool
	hash        string
	filterFile  string
	minSize     string
	maxSize     string
	bwLimit     string
	logFile     string
	configFile  string
}

//nolint:gocyclo,revive // cyclomatic,cognitive-complexity: CLI entry point wires every flag
func run() int {
	var opts options
	rules := filter.New()

	rootCmd := &cobra.Command{
		Use:   "hardlink-dedup [flags] [path...]",
		Short: "Replace duplicate files with hardlinks",
		Long: `Scan the given paths for regular files with identical contents and replace
duplicates with hardlinks to a single copy. Files are only linked when their
size, owner, group and permissions also match.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.showVersion {
				fmt.Fprintf(os.Stdout, "hardlink-dedup %s\n", version)
				return nil
			}

			cfg, err := loadConfig(opts.configFile)
			if err != nil {
				return err
			}
			applyConfigDefaults(cmd, cfg.Defaults, &opts)

			logger, closeLog, err := setupLogging(opts)
			if err != nil {
				return err
			}
			defer closeLog()
			slog.SetDefault(logger)

			engineCfg, err := buildEngineConfig(opts, rules, cfg.Defaults, args)
			if err != nil {
				return err
			}
			engineCfg.Logger = logger

			if opts.dryRun {
				slog.Debug("dry run mode")
			}
			ui.ApplyTheme(cfg.Theme)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			events := make(chan event.Event, 256)
			engineCfg.Events = events

			// When --log is set, tee events through a logging goroutine
			// that writes structured records before forwarding to the presenter.
			presenterEvents := (<-chan event.Event)(events)
			if opts.logFile != "" {
				presenterEvents = teeEvents(events)
			}

			presenter := ui.NewPresenter(ui.Config{
				Writer: os.Stdout,
				IsTTY:  ui.IsTTY(os.Stdout.Fd()),
				Quiet:  opts.quiet,
			})

			var presenterErr error
			var presenterWg sync.WaitGroup
			presenterWg.Add(1)
			go func() {
				defer presenterWg.Done()
				presenterErr = presenter.Run(presenterEvents)
			}()

			slog.Debug("starting dedup",
				"paths", engineCfg.Paths,
				"dry_run", engineCfg.DryRun,
				"paranoid", engineCfg.Paranoid,
				"hash", engineCfg.Hash,
			)

			result := engine.Run(ctx, engineCfg)
			stop()
			close(events)
			presenterWg.Wait()
			if presenterErr != nil {
				fmt.Fprintf(os.Stderr, "presenter: %v\n", presenterErr)
			}

			if !opts.quiet {
				if summary := presenter.Summary(); summary != "" {
					fmt.Fprintln(os.Stderr, summary)
				}
			}

			if result.Err != nil {
				if errors.Is(result.Err, context.Canceled) {
					slog.Warn("interrupted")
					return &exitError{code: 130}
				}
				slog.Error("dedup failed", "error", result.Err)
				return &exitError{code: 1}
			}
			return nil
		},
	}

	f := rootCmd.Flags()
	f.BoolVar(&opts.showVersion, "version", false, "print version and exit")
	f.BoolVarP(&opts.dryRun, "dry-run", "n", false, "don't actually hardlink any files")
	f.BoolVarP(&opts.paranoid, "paranoid", "p", false, "always verify byte-for-byte after hashing")
	f.StringVar(&opts.hash, "hash", string(engine.SHA256), "digest for the hash stage (sha256 or blake3)")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "suppress all output except warnings")

	// Filter flags use a custom pflag.Value to preserve CLI ordering.
	f.Var(&filterFlag{set: rules}, "exclude", "exclude files matching PATTERN (repeatable)")
	f.Var(&filterFlag{set: rules, include: true}, "include", "include files matching PATTERN (repeatable)")
	f.StringVar(&opts.filterFile, "filter", "", "read filter rules from FILE")
	f.StringVar(&opts.minSize, "min-size", "", "skip files smaller than SIZE (e.g. 4KiB, 1M)")
	f.StringVar(&opts.maxSize, "max-size", "", "skip files larger than SIZE (e.g. 10GiB)")
	f.StringVar(&opts.bwLimit, "bwlimit", "", "limit content reads to SIZE per second (e.g. 100MiB)")
	f.StringVar(&opts.logFile, "log", "", "write structured JSON log to FILE")
	f.StringVar(&opts.configFile, "config", "", "config file (default: $XDG_CONFIG_HOME/hardlink-dedup/config.toml)")

	f.VisitAll(func(fl *pflag.Flag) {
		if fl.Name == "exclude" || fl.Name == "include" {
			fl.NoOptDefVal = ""
		}
	})

	rootCmd.AddCommand(docsCmd)

	if err := rootCmd.Execute(); err != nil {
		if exitErr, ok := err.(*exitError); ok {
			return exitErr.code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	return 0
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return config.Config{}, fmt.Errorf("load config: %w", err)
		}
		return cfg, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// applyConfigDefaults applies config file defaults for flags not explicitly set on the CLI.
func applyConfigDefaults(cmd *cobra.Command, defaults config.DefaultsConfig, opts *options) {
	changed := cmd.Flags().Changed
	if !changed("paranoid") && defaults.Paranoid != nil {
		opts.paranoid = *defaults.Paranoid
	}
	if !changed("hash") && defaults.Hash != nil {
		opts.hash = *defaults.Hash
	}
	if !changed("bwlimit") && defaults.BWLimit != nil {
		opts.bwLimit = *defaults.BWLimit
	}
	if !changed("min-size") && defaults.MinSize != nil {
		opts.minSize = *defaults.MinSize
	}
	if !changed("max-size") && defaults.MaxSize != nil {
		opts.maxSize = *defaults.MaxSize
	}
}

// buildEngineConfig validates options and paths. Config file rules are
// appended after CLI rules, includes first, so the command line wins.
func buildEngineConfig(
	opts options,
	rules *filter.Set,
	defaults config.DefaultsConfig,
	paths []string,
) (engine.Config, error) {
	algo, err := engine.ParseHashAlgorithm(opts.hash)
	if err != nil {
		return engine.Config{}, fmt.Errorf("invalid --hash: %w", err)
	}

	if opts.filterFile != "" {
		if err := rules.LoadFile(opts.filterFile); err != nil {
			return engine.Config{}, fmt.Errorf("load filter file: %w", err)
		}
	}
	for _, p := range defaults.Include {
		if err := rules.Include(p); err != nil {
			return engine.Config{}, fmt.Errorf("config include: %w", err)
		}
	}
	for _, p := range defaults.Exclude {
		if err := rules.Exclude(p); err != nil {
			return engine.Config{}, fmt.Errorf("config exclude: %w", err)
		}
	}

	var minSize, maxSize int64
	if opts.minSize != "" {
		if minSize, err = filter.ParseSize(opts.minSize); err != nil {
			return engine.Config{}, fmt.Errorf("invalid --min-size: %w", err)
		}
	}
	if opts.maxSize != "" {
		if maxSize, err = filter.ParseSize(opts.maxSize); err != nil {
			return engine.Config{}, fmt.Errorf("invalid --max-size: %w", err)
		}
	}
	rules.SetBounds(minSize, maxSize)

	var bwLimit int64
	if opts.bwLimit != "" {
		if bwLimit, err = filter.ParseSize(opts.bwLimit); err != nil {
			return engine.Config{}, fmt.Errorf("invalid --bwlimit: %w", err)
		}
	}

	// A root that cannot be stat'ed means the run cannot start.
	for _, p := range paths {
		if _, err := os.Lstat(p); err != nil {
			return engine.Config{}, fmt.Errorf("path: %w", err)
		}
	}

	cfg := engine.Config{
		Paths:    paths,
		DryRun:   opts.dryRun,
		Paranoid: opts.paranoid,
		Hash:     algo,
		BWLimit:  bwLimit,
	}
	// Only set filter if it has rules/size constraints.
	if !rules.IsZero() {
		cfg.Filter = rules
	}
	return cfg, nil
}

// setupLogging builds the stderr text logger, fanned out to a JSON file when
// --log is set. The returned func closes the file.
func setupLogging(opts options) (*slog.Logger, func(), error) {
	logLevel := slog.LevelInfo
	if opts.verbose {
		logLevel = slog.LevelDebug
	} else if opts.quiet {
		logLevel = slog.LevelWarn
	}
	textHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	if opts.logFile == "" {
		return slog.New(textHandler), func() {}, nil
	}

	lf, err := os.Create(opts.logFile)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	jsonHandler := slog.NewJSONHandler(lf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(ui.NewMultiHandler(textHandler, jsonHandler)), func() { lf.Close() }, nil
}

// teeEvents logs each event as a structured record and forwards it.
func teeEvents(events <-chan event.Event) <-chan event.Event {
	teed := make(chan event.Event, 256)
	go func() {
		for ev := range events {
			attrs := []slog.Attr{
				slog.String("type", ev.Type.String()),
				slog.String("progress", ev.Progress.String()),
			}
			if ev.Path != "" {
				attrs = append(attrs, slog.String("path", ev.Path))
			}
			if ev.Original != "" {
				attrs = append(attrs, slog.String("original", ev.Original))
			}
			if ev.Reason != "" {
				attrs = append(attrs, slog.String("reason", ev.Reason))
			}
			if ev.Error != nil {
				attrs = append(attrs, slog.String("error", ev.Error.Error()))
			}
			slog.LogAttrs(context.Background(), slog.LevelDebug, "dedup.event", attrs...)
			teed <- ev
		}
		close(teed)
	}()
	return teed
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
