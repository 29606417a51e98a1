package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/diffscope/internal/analyzers"
	"github.com/standardbeagle/diffscope/internal/config"
	derrors "github.com/standardbeagle/diffscope/internal/errors"
	"github.com/standardbeagle/diffscope/internal/gitcollect"
	"github.com/standardbeagle/diffscope/internal/report"
	"github.com/standardbeagle/diffscope/internal/runner"
	"github.com/standardbeagle/diffscope/internal/types"
	"github.com/standardbeagle/diffscope/internal/version"
	"github.com/standardbeagle/diffscope/internal/watch"
)

func main() {
	app := &cli.App{
		Name:                   "diffscope",
		Usage:                  "Inspect a git changeset and score its risk",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Repository root",
				Value:   ".",
			},
			&cli.StringFlag{
				Name:    "base",
				Aliases: []string{"b"},
				Usage:   "Base ref for branch mode",
			},
			&cli.StringFlag{
				Name:  "head",
				Usage: "Head ref for branch mode",
				Value: "HEAD",
			},
			&cli.BoolFlag{
				Name:  "staged",
				Usage: "Analyze staged changes",
			},
			&cli.BoolFlag{
				Name:  "unstaged",
				Usage: "Analyze unstaged changes",
			},
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Analyze all uncommitted changes",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Disable the analyzer result cache",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: terminal or json",
			},
			&cli.StringFlag{
				Name:  "profile",
				Usage: "Analysis profile tag",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Verbose diagnostics on stderr",
			},
		},
		Action: analyzeAction,
		Commands: []*cli.Command{
			{
				Name:      "zoom",
				Usage:     "Show one finding or flag by its stable ID",
				ArgsUsage: "<finding-or-flag-id>",
				Action:    zoomAction,
			},
			{
				Name:  "cache",
				Usage: "Cache maintenance",
				Subcommands: []*cli.Command{
					{
						Name:   "stats",
						Usage:  "Show cache entry count and size",
						Action: cacheStatsAction,
					},
					{
						Name:   "clear",
						Usage:  "Drop all cached analyzer results",
						Action: cacheClearAction,
					},
				},
			},
			{
				Name:   "watch",
				Usage:  "Re-analyze on working tree changes",
				Action: watchAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfigWithOverrides loads .diffscope.kdl and applies CLI flag
// overrides on top.
func loadConfigWithOverrides(c *cli.Context) (*config.Config, string, error) {
	root, err := filepath.Abs(c.String("root"))
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, "", err
	}

	if base := c.String("base"); base != "" {
		cfg.Analysis.Base = base
	}
	switch {
	case c.Bool("staged"):
		cfg.Analysis.Mode = types.ModeStaged
	case c.Bool("unstaged"):
		cfg.Analysis.Mode = types.ModeUnstaged
	case c.Bool("all"):
		cfg.Analysis.Mode = types.ModeAll
	}
	if c.Bool("no-cache") {
		cfg.Cache.Enabled = false
	}
	if format := c.String("format"); format != "" {
		cfg.Output.Format = format
		if err := cfg.Validate(); err != nil {
			return nil, "", err
		}
	}
	if profile := c.String("profile"); profile != "" {
		cfg.Analysis.Profile = profile
	}
	if !cfg.Output.Color {
		color.NoColor = true
	}

	return cfg, root, nil
}

func analyzerSet(cfg *config.Config) []analyzers.Analyzer {
	disabled := make(map[string]struct{}, len(cfg.Analysis.DisabledAnalyzers))
	for _, name := range cfg.Analysis.DisabledAnalyzers {
		disabled[name] = struct{}{}
	}
	var set []analyzers.Analyzer
	for _, a := range analyzers.DefaultSet() {
		if _, off := disabled[a.Name()]; !off {
			set = append(set, a)
		}
	}
	return set
}

// openStore returns the configured cache store; callers must Close it.
func openStore(cfg *config.Config, root string) (runner.Store, error) {
	if !cfg.Cache.Enabled {
		return runner.NopStore{}, nil
	}
	dir := cfg.Cache.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	store, err := runner.OpenDiskStore(dir)
	if err != nil {
		// A broken cache never blocks analysis.
		fmt.Fprintf(os.Stderr, "warning: cache unavailable: %v\n", err)
		return runner.NopStore{}, nil
	}
	return store, nil
}

func runAnalysis(ctx context.Context, c *cli.Context, cfg *config.Config, root string) (*report.Report, error) {
	store, err := openStore(cfg, root)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	collector := gitcollect.New(root)
	cs, err := collector.Collect(ctx, cfg.Analysis.Base, c.String("head"), cfg.Analysis.Mode)
	if err != nil {
		return nil, err
	}

	opts := runner.Options{
		Profile: cfg.Analysis.Profile,
		Store:   store,
	}
	if c.Bool("verbose") {
		opts.Logf = func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}
	}

	findings, err := runner.RunIncremental(ctx, analyzerSet(cfg), cs, opts)
	if err != nil {
		return nil, err
	}
	return report.Build(cs, findings), nil
}

func render(cfg *config.Config, r *report.Report) error {
	if cfg.Output.Format == "json" {
		return report.WriteJSON(os.Stdout, r)
	}
	return report.WriteTerminal(os.Stdout, r)
}

func analyzeAction(c *cli.Context) error {
	cfg, root, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	r, err := runAnalysis(c.Context, c, cfg, root)
	if err != nil {
		return err
	}
	return render(cfg, r)
}

func zoomAction(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("usage: diffscope zoom <finding-or-flag-id>")
	}
	cfg, root, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	r, err := runAnalysis(c.Context, c, cfg, root)
	if err != nil {
		return err
	}
	return report.WriteZoom(os.Stdout, r, id)
}

func withDiskStore(c *cli.Context, fn func(*runner.DiskStore) error) error {
	cfg, root, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	dir := cfg.Cache.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	store, err := runner.OpenDiskStore(dir)
	if err != nil {
		return derrors.NewCacheError("open", err)
	}
	defer store.Close()
	return fn(store)
}

func cacheStatsAction(c *cli.Context) error {
	return withDiskStore(c, func(store *runner.DiskStore) error {
		entries, size := store.Stats()
		fmt.Printf("entries: %d\nsize: %d bytes\n", entries, size)
		return nil
	})
}

func cacheClearAction(c *cli.Context) error {
	return withDiskStore(c, func(store *runner.DiskStore) error {
		if err := store.Clear(); err != nil {
			return derrors.NewCacheError("clear", err)
		}
		fmt.Println("cache cleared")
		return nil
	})
}

func watchAction(c *cli.Context) error {
	cfg, root, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rerun := func() {
		r, err := runAnalysis(ctx, c, cfg, root)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return
		}
		if err := render(cfg, r); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}

	w, err := watch.New(root, time.Duration(cfg.Watch.DebounceMs)*time.Millisecond, func(paths []string) {
		fmt.Fprintf(os.Stderr, "%d file(s) changed, re-analyzing\n", len(paths))
		rerun()
	})
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Close()

	rerun()
	<-ctx.Done()
	return nil
}
