package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dgallion1/docfill/internal/alias"
	"github.com/dgallion1/docfill/internal/convert"
	"github.com/dgallion1/docfill/internal/docx"
	"github.com/dgallion1/docfill/internal/fill"
	"github.com/dgallion1/docfill/internal/history"
	"golang.org/x/sync/errgroup"
)

// Status is the outcome of filling one document.
type Status string

const (
	StatusFilled   Status = "filled"
	StatusNoFields Status = "no_fields"
	StatusFailed   Status = "failed"
)

// Result is the outcome of one document.
type Result struct {
	File       string        `json:"file"`
	Output     string        `json:"output,omitempty"`
	Status     Status        `json:"status"`
	Report     fill.Report   `json:"report"`
	Err        error         `json:"-"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"-"`
	DurationMs int64         `json:"duration_ms"`
}

// BatchReport collects results in input order.
type BatchReport struct {
	Results  []Result `json:"results"`
	Filled   int      `json:"filled"`
	NoFields int      `json:"no_fields"`
	Failed   int      `json:"failed"`
}

func (b *BatchReport) add(r Result) {
	b.Results = append(b.Results, r)
	switch r.Status {
	case StatusFilled:
		b.Filled++
	case StatusNoFields:
		b.NoFields++
	case StatusFailed:
		b.Failed++
	}
}

// Recorder persists document outcomes.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
}

// Options configures a Filler. Zero values pick the defaults.
type Options struct {
	Prefix    string            // output name prefix, default "filled_"
	OutputDir string            // "" writes next to each input
	Workers   int               // documents filled concurrently, default 1
	Converter convert.Converter // nil disables .doc input
	Stats     *FillStats        // optional
	History   Recorder          // optional
}

// Filler drives the fill engine over documents on disk.
type Filler struct {
	engine *fill.Engine
	log    *slog.Logger
	opts   Options
	jobID  string
}

func NewFiller(engine *fill.Engine, log *slog.Logger, opts Options) *Filler {
	if engine == nil {
		engine = fill.NewEngine(nil, log)
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if opts.Prefix == "" {
		opts.Prefix = "filled_"
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Filler{engine: engine, log: log, opts: opts}
}

// WithJob returns a copy whose logs and history entries carry jobID.
func (f *Filler) WithJob(jobID string) *Filler {
	c := *f
	c.jobID = jobID
	c.log = f.log.With("job_id", jobID)
	return &c
}

// WithOutputDir returns a copy that writes filled documents into dir.
func (f *Filler) WithOutputDir(dir string) *Filler {
	c := *f
	c.opts.OutputDir = dir
	return &c
}

// Prefix returns the output name prefix.
func (f *Filler) Prefix() string { return f.opts.Prefix }

// OutputPath returns <dir of input>/<prefix><base without ext>.docx.
func OutputPath(input, prefix string) string {
	base := filepath.Base(input)
	name := prefix + strings.TrimSuffix(base, filepath.Ext(base)) + ".docx"
	return filepath.Join(filepath.Dir(input), name)
}

func (f *Filler) outputPath(input string) string {
	out := OutputPath(input, f.opts.Prefix)
	if f.opts.OutputDir != "" {
		out = filepath.Join(f.opts.OutputDir, filepath.Base(out))
	}
	return out
}

// ErrOutputCollision is reported for a document whose output name is
// already claimed by another document of the same batch.
var ErrOutputCollision = errors.New("output name already used in this batch")

// FillFile fills one document and saves it under the output name when at
// least one cell was written. Failures are reported in the result.
func (f *Filler) FillFile(ctx context.Context, path string, index *alias.Index) Result {
	start := time.Now()
	log := f.log.With("file", filepath.Base(path))
	return f.finish(ctx, f.fillFile(ctx, path, index, log), start, log)
}

// finish logs res and feeds it to stats and history.
func (f *Filler) finish(ctx context.Context, res Result, start time.Time, log *slog.Logger) Result {
	res.Duration = time.Since(start)
	res.DurationMs = res.Duration.Milliseconds()
	if res.Err != nil {
		res.Error = res.Err.Error()
	}

	switch res.Status {
	case StatusFilled:
		log.Info("document filled", "output", res.Output, "keys", res.Report.Consumed, "duration_ms", res.DurationMs)
	case StatusNoFields:
		log.Warn("no fields filled", "expected", res.Report.Expected)
	case StatusFailed:
		log.Error("fill failed", "error", res.Err)
	}

	if f.opts.Stats != nil {
		f.opts.Stats.Observe(res)
	}
	if f.opts.History != nil {
		entry := history.Entry{
			JobID:      f.jobID,
			File:       res.File,
			Output:     res.Output,
			Status:     string(res.Status),
			Keys:       res.Report.Consumed,
			Error:      res.Error,
			DurationMs: res.DurationMs,
		}
		if err := f.opts.History.Record(context.WithoutCancel(ctx), entry); err != nil {
			log.Warn("history record failed", "error", err)
		}
	}
	return res
}

func (f *Filler) fillFile(ctx context.Context, path string, index *alias.Index, log *slog.Logger) Result {
	res := Result{File: path}
	fail := func(err error) Result {
		res.Status = StatusFailed
		res.Err = err
		return res
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	src := path
	if convert.NeedsConversion(path) {
		if f.opts.Converter == nil {
			return fail(fmt.Errorf("%w: no converter configured for %s", convert.ErrConversion, filepath.Base(path)))
		}
		converted, err := f.opts.Converter.Convert(ctx, path)
		if err != nil {
			return fail(err)
		}
		defer os.RemoveAll(filepath.Dir(converted))
		log.Debug("converted legacy document", "converted", converted)
		src = converted
	}

	doc, err := docx.Open(src)
	if err != nil {
		return fail(err)
	}

	res.Report = f.engine.Fill(doc.Document(), index)
	if !res.Report.Modified {
		res.Status = StatusNoFields
		return res
	}

	out := f.outputPath(path)
	if err := doc.Save(out); err != nil {
		return fail(fmt.Errorf("save %s: %w", filepath.Base(out), err))
	}
	res.Status = StatusFilled
	res.Output = out
	return res
}

// FillBatch fills paths with up to Options.Workers documents in flight. A
// failed document never stops the batch. onResult, if non-nil, is called
// once per document as it finishes, never concurrently.
func (f *Filler) FillBatch(ctx context.Context, paths []string, index *alias.Index, onResult func(i int, r Result)) BatchReport {
	results := make([]Result, len(paths))
	owners := f.outputOwners(paths)
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(f.opts.Workers)
	for i, p := range paths {
		g.Go(func() error {
			var r Result
			if owner := owners[f.outputPath(p)]; owner != i {
				start := time.Now()
				err := fmt.Errorf("%w: %s is written from %s", ErrOutputCollision,
					filepath.Base(f.outputPath(p)), filepath.Base(paths[owner]))
				r = f.finish(ctx, Result{File: p, Status: StatusFailed, Err: err}, start, f.log.With("file", filepath.Base(p)))
			} else {
				r = f.FillFile(ctx, p, index)
			}
			results[i] = r
			if onResult != nil {
				mu.Lock()
				onResult(i, r)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	var rep BatchReport
	for _, r := range results {
		rep.add(r)
	}
	return rep
}

// outputOwners maps each output path to the index of the one document
// allowed to write it. A .docx input wins over a legacy document with the
// same name; otherwise the first in input order wins.
func (f *Filler) outputOwners(paths []string) map[string]int {
	owners := make(map[string]int, len(paths))
	for i, p := range paths {
		out := f.outputPath(p)
		j, ok := owners[out]
		if !ok || (convert.NeedsConversion(paths[j]) && !convert.NeedsConversion(p)) {
			owners[out] = i
		}
	}
	return owners
}

// DocxSibling returns the .docx next to a legacy .doc path that shares its
// output name, if such a file exists.
func DocxSibling(path string) (string, bool) {
	if !convert.NeedsConversion(path) {
		return "", false
	}
	sibling := strings.TrimSuffix(path, filepath.Ext(path)) + ".docx"
	if st, err := os.Stat(sibling); err != nil || st.IsDir() {
		return "", false
	}
	return sibling, true
}

// IsConversionError reports whether r failed in legacy conversion.
func (r Result) IsConversionError() bool {
	return errors.Is(r.Err, convert.ErrConversion)
}
