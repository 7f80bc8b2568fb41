package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/docfill/internal/alias"
	"github.com/dgallion1/docfill/internal/info"
	"github.com/dgallion1/docfill/internal/parser"
)

// Worker processes a single fill job.
type Worker struct {
	filler     *Filler
	aliases    alias.Table
	parserOpts parser.Options
	log        *slog.Logger
}

func NewWorker(filler *Filler, aliases alias.Table, parserOpts parser.Options, log *slog.Logger) *Worker {
	return &Worker{
		filler:     filler,
		aliases:    aliases,
		parserOpts: parserOpts,
		log:        log,
	}
}

// Process loads the job's info source, fills every staged document into
// the job's output directory and sets the final status.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID)

	// Phase 1: info source
	job.SetStatus(JobFilling, "loading info")
	record, err := info.Load(job.InfoPath(), w.parserOpts)
	if err != nil {
		log.Error("info source unusable", "error", err)
		job.AddError(fmt.Sprintf("info: %s", err))
		job.SetStatus(JobFailed, "loading info")
		return
	}
	index := alias.Build(record, w.aliases)
	log.Info("info loaded", "entries", record.Len(), "index_keys", index.Len())

	// Phase 2: fill
	job.SetStatus(JobFilling, "filling")
	filler := w.filler.WithJob(job.ID).WithOutputDir(job.OutputDir())
	rep := filler.FillBatch(ctx, job.InputPaths(), index, func(_ int, r Result) {
		job.AddResult(r)
	})
	log.Info("fill complete", "filled", rep.Filled, "no_fields", rep.NoFields, "failed", rep.Failed)

	switch {
	case len(rep.Results) > 0 && rep.Failed == len(rep.Results):
		job.SetStatus(JobFailed, "done")
	case rep.Failed > 0:
		job.SetStatus(JobPartial, "done")
	default:
		job.SetStatus(JobCompleted, "done")
	}
}
