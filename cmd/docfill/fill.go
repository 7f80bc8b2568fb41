package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docfill/internal/alias"
	"github.com/dgallion1/docfill/internal/info"
	"github.com/dgallion1/docfill/internal/pipeline"
	"github.com/spf13/cobra"
)

func newFillCmd(a *app) *cobra.Command {
	var infoPath, dir string

	cmd := &cobra.Command{
		Use:   "fill [targets...]",
		Short: "Fill the given documents, or every document in --dir",
		Long: `Loads the info source, prints what was read, then fills each target.
Without explicit targets every .doc/.docx in --dir is processed, except the
info source, lock files and files that already carry the output prefix.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("info") {
				infoPath = filepath.Join(dir, a.cfg.InfoFile)
			}
			return a.runFill(cmd, infoPath, dir, args)
		},
	}
	cmd.Flags().StringVar(&infoPath, "info", a.cfg.InfoFile, "info source (.docx, .txt, .md, .html, .csv, .pdf)")
	cmd.Flags().StringVar(&dir, "dir", a.cfg.Dir, "directory to scan when no targets are given")
	return cmd
}

func (a *app) runFill(cmd *cobra.Command, infoPath, dir string, args []string) error {
	out := cmd.OutOrStdout()

	rt, err := a.setup()
	if err != nil {
		return err
	}
	defer rt.Close()

	record, err := info.Load(infoPath, rt.parserOpts)
	if err != nil {
		return err
	}
	printRecord(out, record, rt.profile.Aliases)

	var targets []string
	if len(args) > 0 {
		targets, err = pipeline.CollectTargets(args, a.cfg.MaxTargets)
	} else {
		targets, err = pipeline.Discover(dir, infoPath, a.prefix)
	}
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		fmt.Fprintln(out, "\nNo documents to fill.")
		return nil
	}

	index := alias.Build(record, rt.profile.Aliases)
	fmt.Fprintf(out, "\nFilling %d document(s)...\n", len(targets))
	rep := rt.filler.FillBatch(cmd.Context(), targets, index, func(_ int, r pipeline.Result) {
		printResult(out, r)
	})

	fmt.Fprintf(out, "\nDone: %d filled, %d without fields, %d failed.\n", rep.Filled, rep.NoFields, rep.Failed)
	return nil
}

func printRecord(w io.Writer, record info.Record, aliases alias.Table) {
	fmt.Fprintf(w, "Read %d field(s):\n", record.Len())
	for _, e := range record.Entries() {
		if keys := aliases.CanonicalKeys(e.Key); len(keys) > 0 && (len(keys) > 1 || keys[0] != e.Key) {
			fmt.Fprintf(w, "  %s (%s): %s\n", e.Key, strings.Join(keys, "/"), e.Value)
			continue
		}
		fmt.Fprintf(w, "  %s: %s\n", e.Key, e.Value)
	}
}

func printResult(w io.Writer, r pipeline.Result) {
	name := filepath.Base(r.File)
	switch r.Status {
	case pipeline.StatusFilled:
		fmt.Fprintf(w, "\n[filled] %s -> %s\n", name, filepath.Base(r.Output))
		for _, wr := range r.Report.Writes {
			fmt.Fprintf(w, "  %s = %s\n", wr.Label, wr.Value)
		}
	case pipeline.StatusNoFields:
		fmt.Fprintf(w, "\n[no fields] %s: nothing was filled. Check that the table uses one of these labels:\n", name)
		fmt.Fprintf(w, "  %s\n", strings.Join(r.Report.Expected, ", "))
	case pipeline.StatusFailed:
		fmt.Fprintf(w, "\n[failed] %s: %s\n", name, r.Error)
	}
}
