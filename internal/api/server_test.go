package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/docfill/internal/alias"
	"github.com/dgallion1/docfill/internal/config"
	"github.com/dgallion1/docfill/internal/docx"
	"github.com/dgallion1/docfill/internal/history"
	"github.com/dgallion1/docfill/internal/pipeline"
	godocx "github.com/fumiama/go-docx"
)

const testKey = "test-key"

type fakeHistory struct {
	entries []history.Entry
	err     error
	limit   int
}

func (f *fakeHistory) Recent(_ context.Context, limit int) ([]history.Entry, error) {
	f.limit = limit
	return f.entries, f.err
}

func newTestServer(t *testing.T, hist HistoryReader) *Server {
	t.Helper()
	cfg := config.Config{
		APIKey:         testKey,
		MaxTargets:     3,
		WorkerCount:    1,
		MaxQueueSize:   4,
		MaxUploadBytes: 1 << 20,
		JobTTL:         time.Hour,
		JobDir:         t.TempDir(),
	}
	log := slog.New(slog.DiscardHandler)
	filler := pipeline.NewFiller(nil, log, pipeline.Options{Stats: pipeline.NewFillStats(time.Hour)})
	orch := pipeline.NewOrchestrator(cfg, filler, alias.DefaultTable(), log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)
	return NewServer(orch, hist, log, cfg)
}

func formBytes(t *testing.T, rows ...[]string) []byte {
	t.Helper()
	d := godocx.New().WithDefaultTheme()
	tbl := d.AddTable(len(rows), len(rows[0]), 0, nil)
	for ri, row := range rows {
		for ci, text := range row {
			tbl.TableRows[ri].TableCells[ci].AddParagraph().AddText(text)
		}
	}
	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type part struct {
	field, name string
	data        []byte
}

func multipartRequest(t *testing.T, parts ...part) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, p := range parts {
		fw, err := mw.CreateFormFile(p.field, p.name)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(p.data)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/fill", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+testKey)
	return req
}

func authGet(path string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+testKey)
	return req
}

func TestHealthIsPublic(t *testing.T) {
	s := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"wrong scheme", "Basic " + testKey},
		{"wrong key", "Bearer nope"},
		{"empty token", "Bearer "},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", tt.name, rec.Code)
		}
	}
}

func TestAuthSchemeCaseInsensitive(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("Authorization", "bearer "+testKey)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestFillJobLifecycle(t *testing.T) {
	s := newTestServer(t, nil)

	req := multipartRequest(t,
		part{"info", "information.txt", []byte("姓名：张三\n性别：男\n")},
		part{"files", "form.docx", formBytes(t, []string{"姓名", "", "性别", ""})},
		part{"files", "other.docx", formBytes(t, []string{"备注", ""})},
	)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var accepted struct {
		JobID   string `json:"job_id"`
		PollURL string `json:"poll_url"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &accepted); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if accepted.PollURL != "/api/jobs/"+accepted.JobID {
		t.Errorf("unexpected poll url %q", accepted.PollURL)
	}

	var snap pipeline.JobSnapshot
	deadline := time.Now().Add(5 * time.Second)
	for {
		rec = httptest.NewRecorder()
		s.ServeHTTP(rec, authGet(accepted.PollURL))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
			t.Fatalf("decode snapshot: %v", err)
		}
		if snap.Status != pipeline.JobQueued && snap.Status != pipeline.JobFilling {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job did not finish, last status %q", snap.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if snap.Status != pipeline.JobCompleted {
		t.Fatalf("expected completed, got %q (errors %v)", snap.Status, snap.Progress.Errors)
	}
	if snap.Progress.Filled != 1 || snap.Progress.NoFields != 1 {
		t.Errorf("unexpected progress %+v", snap.Progress)
	}
	if len(snap.Results) != 2 || snap.Results[0].Output != "filled_form.docx" {
		t.Fatalf("unexpected results %+v", snap.Results)
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, authGet(accepted.PollURL+"/files/filled_form.docx"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for download, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != docxContentType {
		t.Errorf("unexpected content type %q", ct)
	}
	f, err := docx.Parse(rec.Body.Bytes(), "filled_form.docx")
	if err != nil {
		t.Fatalf("downloaded file does not parse: %v", err)
	}
	if got := f.Document().Tables[0].Texts()[0]; got[1] != "张三" || got[3] != "男" {
		t.Errorf("unexpected filled row %q", got)
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, authGet(accepted.PollURL+"/files/other.docx"))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unfilled file, got %d", rec.Code)
	}
}

func TestFillValidation(t *testing.T) {
	s := newTestServer(t, nil)
	doc := formBytes(t, []string{"姓名", ""})
	info := part{"info", "information.txt", []byte("姓名：张三")}

	tests := []struct {
		name  string
		parts []part
		code  int
	}{
		{"no info", []part{{"files", "a.docx", doc}}, http.StatusBadRequest},
		{"bad info type", []part{{"info", "info.exe", []byte("x")}, {"files", "a.docx", doc}}, http.StatusBadRequest},
		{"no files", []part{info}, http.StatusBadRequest},
		{"bad target type", []part{info, {"files", "a.pdf", doc}}, http.StatusBadRequest},
		{"duplicate names", []part{info, {"files", "a.docx", doc}, {"files", "dir/a.docx", doc}}, http.StatusBadRequest},
		{"too many files", []part{info,
			{"files", "1.docx", doc}, {"files", "2.docx", doc}, {"files", "3.docx", doc}, {"files", "4.docx", doc},
		}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, multipartRequest(t, tt.parts...))
			if rec.Code != tt.code {
				t.Errorf("expected %d, got %d: %s", tt.code, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestJobNotFound(t *testing.T) {
	s := newTestServer(t, nil)
	for _, path := range []string{"/api/jobs/nope", "/api/jobs/nope/files/a.docx"} {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, authGet(path))
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, rec.Code)
		}
	}
}

func TestStats(t *testing.T) {
	s := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, authGet("/api/stats"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		QueueDepth int                    `json:"queue_depth"`
		Stats      pipeline.StatsSnapshot `json:"stats"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Stats.Documents != 0 {
		t.Errorf("expected no documents yet, got %d", body.Stats.Documents)
	}
}

func TestHistory(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(t, nil).ServeHTTP(rec, authGet("/api/history"))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 when history disabled, got %d", rec.Code)
	}

	hist := &fakeHistory{entries: []history.Entry{{ID: 1, File: "a.docx", Status: "filled"}}}
	s := newTestServer(t, hist)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, authGet("/api/history?limit=5"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if hist.limit != 5 {
		t.Errorf("expected limit 5, got %d", hist.limit)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `"file":"a.docx"`) {
		t.Errorf("unexpected body %s", body)
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, authGet("/api/history?limit=abc"))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", rec.Code)
	}

	hist.err = errors.New("db gone")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, authGet("/api/history"))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 on query error, got %d", rec.Code)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"form.docx":            "form.docx",
		"../../etc/passwd":     "passwd",
		`C:\Users\x\form.docx`: "form.docx",
		"a..b.docx":            "a_b.docx",
		"":                     "unnamed",
		"/":                    "unnamed",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q): expected %q, got %q", in, want, got)
		}
	}
}
