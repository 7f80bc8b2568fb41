package api

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docfill/internal/parser"
	"github.com/dgallion1/docfill/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

func (s *Server) handleFill(w http.ResponseWriter, r *http.Request) {
	// Limit total request size: info source plus every target, plus 1MB of form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*int64(s.cfg.MaxTargets+1)+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	infos := r.MultipartForm.File["info"]
	if len(infos) != 1 {
		jsonError(w, "exactly one info file is required", http.StatusBadRequest)
		return
	}
	infoName := sanitizeFilename(infos[0].Filename)
	if !parser.IsSupportedExtension(infoName) {
		jsonError(w, fmt.Sprintf("unsupported info file type: %s", filepath.Ext(infoName)), http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}
	if len(files) > s.cfg.MaxTargets {
		jsonError(w, fmt.Sprintf("too many files: %d (max %d)", len(files), s.cfg.MaxTargets), http.StatusBadRequest)
		return
	}

	names := make([]string, 0, len(files))
	seen := make(map[string]bool, len(files))
	for _, fh := range files {
		name := sanitizeFilename(fh.Filename)
		if !pipeline.IsTarget(name, "") {
			jsonError(w, fmt.Sprintf("unsupported document: %s (want .doc or .docx)", name), http.StatusBadRequest)
			return
		}
		if seen[name] || name == infoName {
			jsonError(w, fmt.Sprintf("duplicate file name: %s", name), http.StatusBadRequest)
			return
		}
		seen[name] = true
		names = append(names, name)
	}

	job, err := pipeline.NewJob(s.orchestrator.JobDir(), infoName, names)
	if err != nil {
		s.log.Error("create job dir failed", "error", err)
		jsonError(w, "failed to stage job", http.StatusInternalServerError)
		return
	}

	if err := s.stage(infos[0], job.InfoPath()); err != nil {
		os.RemoveAll(job.Dir())
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	for i, fh := range files {
		if err := s.stage(fh, filepath.Join(job.InputDir(), names[i])); err != nil {
			os.RemoveAll(job.Dir())
			jsonError(w, err.Error(), statusFor(err))
			return
		}
	}

	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":   job.ID,
		"status":   job.Status,
		"files":    job.Files,
		"poll_url": fmt.Sprintf("/api/jobs/%s", job.ID),
	})
}

type tooLargeError struct {
	name  string
	limit int64
}

func (e *tooLargeError) Error() string {
	return fmt.Sprintf("%s exceeds max size (%d bytes)", e.name, e.limit)
}

func statusFor(err error) int {
	if _, ok := err.(*tooLargeError); ok {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

// stage copies one uploaded part to dst, enforcing the per-file limit.
func (s *Server) stage(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s", fh.Filename)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to stage %s", filepath.Base(dst))
	}
	n, err := io.Copy(out, io.LimitReader(src, s.cfg.MaxUploadBytes+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to stage %s", filepath.Base(dst))
	}
	if n > s.cfg.MaxUploadBytes {
		return &tooLargeError{name: filepath.Base(dst), limit: s.cfg.MaxUploadBytes}
	}
	return nil
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

func (s *Server) handleJobFile(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	name := chi.URLParam(r, "name")
	path, ok := job.OutputFile(name)
	if !ok {
		jsonError(w, "file not found", http.StatusNotFound)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		jsonError(w, "file no longer available", http.StatusGone)
		return
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		jsonError(w, "file no longer available", http.StatusGone)
		return
	}

	w.Header().Set("Content-Type", docxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	http.ServeContent(w, r, name, st.ModTime(), f)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
