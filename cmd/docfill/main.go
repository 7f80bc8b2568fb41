package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dgallion1/docfill/internal/config"
	"github.com/dgallion1/docfill/internal/convert"
	"github.com/dgallion1/docfill/internal/fill"
	"github.com/dgallion1/docfill/internal/history"
	"github.com/dgallion1/docfill/internal/parser"
	"github.com/dgallion1/docfill/internal/pipeline"
	"github.com/spf13/cobra"
)

// app carries process-wide state shared by the subcommands.
type app struct {
	cfg       config.Config
	log       *slog.Logger
	verbose   bool
	logFormat string
	logOut    io.Writer

	profilePath string
	prefix      string
	workers     int
}

func main() {
	a := &app{cfg: config.Load(), logOut: os.Stderr}
	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "docfill",
		Short: "Fill personal information into the blank cells of Word form tables",
		Long: `docfill reads "key: value" pairs from an info source and writes each value
into the empty cell to the right of the matching label in .docx/.doc tables.
Filled copies are saved next to the originals as filled_<name>.docx.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			format := a.logFormat
			if format == "" {
				format = "text"
				if cmd.Name() == "serve" {
					format = "json"
				}
			}
			log, err := newLogger(a.logOut, format, a.verbose)
			if err != nil {
				return err
			}
			a.log = log

			a.cfg.ProfilePath = a.profilePath
			a.cfg.OutputPrefix = a.prefix
			a.cfg.FillWorkers = a.workers
			return a.cfg.Validate()
		},
	}

	pf := root.PersistentFlags()
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	pf.StringVar(&a.logFormat, "log-format", "", "log format: text or json (default text, json for serve)")
	pf.StringVar(&a.profilePath, "profile", a.cfg.ProfilePath, "YAML profile with aliases and labels")
	pf.StringVar(&a.prefix, "prefix", a.cfg.OutputPrefix, "output file name prefix")
	pf.IntVar(&a.workers, "workers", a.cfg.FillWorkers, "documents filled concurrently")

	root.AddCommand(
		newFillCmd(a),
		newWatchCmd(a),
		newServeCmd(a),
		newHistoryCmd(a),
	)
	return root
}

func newLogger(w io.Writer, format string, verbose bool) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	switch format {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want text or json)", format)
	}
}

// runtime is the wiring every fill surface shares.
type runtime struct {
	profile    config.Profile
	filler     *pipeline.Filler
	stats      *pipeline.FillStats
	history    *history.Store
	parserOpts parser.Options
}

func (r *runtime) Close() error {
	if r.history != nil {
		return r.history.Close()
	}
	return nil
}

func (a *app) setup() (*runtime, error) {
	profile, err := config.LoadProfile(a.profilePath)
	if err != nil {
		return nil, err
	}
	detector, err := profile.Detector()
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		profile:    profile,
		stats:      pipeline.NewFillStats(a.cfg.JobTTL),
		parserOpts: parser.Options{PDFFallbackPdftotext: a.cfg.PDFFallbackPdftotext},
	}
	opts := pipeline.Options{
		Prefix:    a.prefix,
		Workers:   a.workers,
		Converter: &convert.Soffice{Bin: a.cfg.ConverterBin},
		Stats:     rt.stats,
	}
	if a.cfg.HistoryDB != "" {
		rt.history, err = history.Open(a.cfg.HistoryDB)
		if err != nil {
			return nil, err
		}
		opts.History = rt.history
	}

	rt.filler = pipeline.NewFiller(fill.NewEngine(detector, a.log), a.log, opts)
	a.log.Debug("runtime ready",
		"aliases", len(profile.Aliases), "labels", len(profile.Labels),
		"workers", a.workers, "history", a.cfg.HistoryDB != "")
	return rt, nil
}
