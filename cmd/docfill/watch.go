package main

import (
	"context"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dgallion1/docfill/internal/alias"
	"github.com/dgallion1/docfill/internal/info"
	"github.com/dgallion1/docfill/internal/pipeline"
	"github.com/dgallion1/docfill/internal/watch"
	"github.com/spf13/cobra"
)

func newWatchCmd(a *app) *cobra.Command {
	var infoPath, dir string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Fill documents as they are added to or changed in --dir",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("info") {
				infoPath = filepath.Join(dir, a.cfg.InfoFile)
			}

			rt, err := a.setup()
			if err != nil {
				return err
			}
			defer rt.Close()

			// Fail fast on an unusable info source; it is reloaded per event.
			if _, err := info.Load(infoPath, rt.parserOpts); err != nil {
				return err
			}

			handle := func(ctx context.Context, path string) {
				if sibling, ok := pipeline.DocxSibling(path); ok {
					a.log.Info("skipping legacy document, a .docx with the same name is filled instead",
						"file", filepath.Base(path), "docx", filepath.Base(sibling))
					return
				}
				record, err := info.Load(infoPath, rt.parserOpts)
				if err != nil {
					a.log.Error("info source unusable", "error", err)
					return
				}
				r := rt.filler.FillFile(ctx, path, alias.Build(record, rt.profile.Aliases))
				printResult(cmd.OutOrStdout(), r)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return watch.New(dir, infoPath, a.prefix, a.cfg.WatchDebounce, handle, a.log).Run(ctx)
		},
	}
	cmd.Flags().StringVar(&infoPath, "info", a.cfg.InfoFile, "info source")
	cmd.Flags().StringVar(&dir, "dir", a.cfg.Dir, "directory to watch")
	return cmd
}
