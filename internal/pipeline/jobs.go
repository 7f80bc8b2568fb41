package pipeline

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the state of a fill job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobFilling   JobStatus = "filling"
	JobCompleted JobStatus = "completed"
	JobPartial   JobStatus = "partial"
	JobFailed    JobStatus = "failed"
)

// Job tracks one uploaded batch: an info source plus target documents,
// staged in a private directory.
type Job struct {
	mu sync.Mutex

	ID       string    `json:"job_id"`
	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	InfoFile string    `json:"info_file"`
	Files    []string  `json:"files"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	dir     string
	results []Result
	errors  []string
}

// Progress tracks processing progress.
type Progress struct {
	Total    int      `json:"total"`
	Done     int      `json:"done"`
	Filled   int      `json:"filled"`
	NoFields int      `json:"no_fields"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors"`
}

// NewJob creates a queued job with a fresh ID and a staging directory
// under parent.
func NewJob(parent, infoFile string, files []string) (*Job, error) {
	id := uuid.NewString()
	dir, err := os.MkdirTemp(parent, "docfill-job-"+id[:8]+"-*")
	if err != nil {
		return nil, err
	}
	for _, sub := range []string{"in", "out"} {
		if err := os.Mkdir(filepath.Join(dir, sub), 0o755); err != nil {
			os.RemoveAll(dir)
			return nil, err
		}
	}
	now := time.Now()
	return &Job{
		ID:        id,
		Status:    JobQueued,
		Phase:     "queued",
		InfoFile:  filepath.Base(infoFile),
		Files:     files,
		Progress:  Progress{Total: len(files)},
		CreatedAt: now,
		UpdatedAt: now,
		dir:       dir,
	}, nil
}

// Dir is the job's staging directory.
func (j *Job) Dir() string { return j.dir }

// InfoPath is where the uploaded info source is stored.
func (j *Job) InfoPath() string { return filepath.Join(j.dir, j.InfoFile) }

// InputDir holds the uploaded target documents.
func (j *Job) InputDir() string { return filepath.Join(j.dir, "in") }

// OutputDir receives filled documents.
func (j *Job) OutputDir() string { return filepath.Join(j.dir, "out") }

// InputPaths returns the staged target paths in upload order.
func (j *Job) InputPaths() []string {
	out := make([]string, len(j.Files))
	for i, f := range j.Files {
		out[i] = filepath.Join(j.InputDir(), f)
	}
	return out
}

// OutputFile returns the path of a filled document by name, if this job
// produced it.
func (j *Job) OutputFile(name string) (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, r := range j.results {
		if r.Output != "" && filepath.Base(r.Output) == name {
			return r.Output, true
		}
	}
	return "", false
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes expired jobs and their staging directories.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	var expired []*Job
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.updatedAt()) > s.ttl {
			delete(s.jobs, id)
			expired = append(expired, job)
		}
	}
	s.mu.Unlock()

	for _, job := range expired {
		if job.dir != "" {
			os.RemoveAll(job.dir)
		}
	}
}

func (j *Job) updatedAt() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.UpdatedAt
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// AddResult records a finished document.
func (j *Job) AddResult(r Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.results = append(j.results, r)
	j.Progress.Done++
	switch r.Status {
	case StatusFilled:
		j.Progress.Filled++
	case StatusNoFields:
		j.Progress.NoFields++
	case StatusFailed:
		j.Progress.Failed++
		j.errors = append(j.errors, filepath.Base(r.File)+": "+r.Error)
		j.Progress.Errors = j.errors
	}
	j.UpdatedAt = time.Now()
}

// FileResult is the API view of one document result.
type FileResult struct {
	File       string   `json:"file"`
	Output     string   `json:"output,omitempty"`
	Status     Status   `json:"status"`
	Keys       []string `json:"keys"`
	Expected   []string `json:"expected,omitempty"`
	Error      string   `json:"error,omitempty"`
	DurationMs int64    `json:"duration_ms"`
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string       `json:"job_id"`
	Status    JobStatus    `json:"status"`
	Phase     string       `json:"phase"`
	InfoFile  string       `json:"info_file"`
	Files     []string     `json:"files"`
	Progress  Progress     `json:"progress"`
	Results   []FileResult `json:"results"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state. Paths are reduced to
// base names so staging directories never leak.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	results := make([]FileResult, 0, len(j.results))
	for _, r := range j.results {
		fr := FileResult{
			File:       filepath.Base(r.File),
			Status:     r.Status,
			Keys:       append([]string{}, r.Report.Consumed...),
			Expected:   r.Report.Expected,
			Error:      r.Error,
			DurationMs: r.DurationMs,
		}
		if r.Output != "" {
			fr.Output = filepath.Base(r.Output)
		}
		results = append(results, fr)
	}
	return JobSnapshot{
		ID:       j.ID,
		Status:   j.Status,
		Phase:    j.Phase,
		InfoFile: j.InfoFile,
		Files:    append([]string{}, j.Files...),
		Progress: Progress{
			Total:    j.Progress.Total,
			Done:     j.Progress.Done,
			Filled:   j.Progress.Filled,
			NoFields: j.Progress.NoFields,
			Failed:   j.Progress.Failed,
			Errors:   errs,
		},
		Results:   results,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}
