package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgallion1/docfill/internal/alias"
	"github.com/dgallion1/docfill/internal/config"
	"github.com/dgallion1/docfill/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stageJob(t *testing.T, info string, forms map[string][][]string, order ...string) *Job {
	t.Helper()
	job, err := NewJob(t.TempDir(), "information.txt", order)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(job.InfoPath(), []byte(info), 0o644))
	for name, rows := range forms {
		writeForm(t, filepath.Join(job.InputDir(), name), rows...)
	}
	return job
}

func TestWorker_Process(t *testing.T) {
	job := stageJob(t, "姓名：张三\n性别：男\n",
		map[string][][]string{
			"a.docx": {{"姓名", ""}},
			"b.docx": {{"备注", ""}},
		}, "a.docx", "b.docx")

	rec := &memRecorder{}
	w := NewWorker(NewFiller(nil, nil, Options{History: rec}), alias.DefaultTable(), parser.Options{}, discardLogger())
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	assert.Equal(t, JobCompleted, snap.Status)
	assert.Equal(t, 2, snap.Progress.Done)
	assert.Equal(t, 1, snap.Progress.Filled)
	assert.Equal(t, 1, snap.Progress.NoFields)

	out, ok := job.OutputFile("filled_a.docx")
	require.True(t, ok)
	assert.Equal(t, job.OutputDir(), filepath.Dir(out))
	assert.Equal(t, "张三", cellText(t, out, 0, 1))

	require.Len(t, rec.entries, 2)
	assert.Equal(t, job.ID, rec.entries[0].JobID)
}

func TestWorker_MissingInfoFailsJob(t *testing.T) {
	job, err := NewJob(t.TempDir(), "information.txt", []string{"a.docx"})
	require.NoError(t, err)

	w := NewWorker(NewFiller(nil, nil, Options{}), alias.DefaultTable(), parser.Options{}, discardLogger())
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	assert.Equal(t, JobFailed, snap.Status)
	require.Len(t, snap.Progress.Errors, 1)
	assert.Contains(t, snap.Progress.Errors[0], "info source not found")
}

func TestWorker_PartialAndFailed(t *testing.T) {
	job := stageJob(t, "姓名: 张三",
		map[string][][]string{"a.docx": {{"姓名", ""}}}, "a.docx", "missing.docx")
	w := NewWorker(NewFiller(nil, nil, Options{}), alias.DefaultTable(), parser.Options{}, discardLogger())
	w.Process(context.Background(), job)
	assert.Equal(t, JobPartial, job.Snapshot().Status)

	job = stageJob(t, "姓名: 张三", nil, "missing.docx")
	w.Process(context.Background(), job)
	assert.Equal(t, JobFailed, job.Snapshot().Status)
}

func TestOrchestrator_SubmitRunsJob(t *testing.T) {
	cfg := config.Config{WorkerCount: 1, MaxQueueSize: 4, JobTTL: time.Hour}
	o := NewOrchestrator(cfg, NewFiller(nil, nil, Options{}), alias.DefaultTable(), discardLogger())
	o.Start(context.Background())
	defer o.Stop()

	job := stageJob(t, "性别：女", map[string][][]string{"a.docx": {{"性别", ""}}}, "a.docx")
	require.NoError(t, o.Submit(job))
	assert.Same(t, job, o.GetJob(job.ID))

	require.Eventually(t, func() bool {
		return o.GetJob(job.ID).Snapshot().Status == JobCompleted
	}, 5*time.Second, 10*time.Millisecond)
}

func TestOrchestrator_QueueFull(t *testing.T) {
	// No Start: nothing drains the queue.
	cfg := config.Config{WorkerCount: 1, MaxQueueSize: 1, JobTTL: time.Hour}
	o := NewOrchestrator(cfg, NewFiller(nil, nil, Options{}), alias.DefaultTable(), discardLogger())

	first := &Job{ID: "1", UpdatedAt: time.Now()}
	second := &Job{ID: "2", UpdatedAt: time.Now()}
	require.NoError(t, o.Submit(first))
	assert.Error(t, o.Submit(second))
	assert.Equal(t, JobFailed, second.Snapshot().Status)
	assert.Equal(t, 1, o.QueueDepth())
}
