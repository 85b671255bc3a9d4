package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/qbank/internal/extract"
	"github.com/dgallion1/qbank/internal/parser"
	"github.com/dgallion1/qbank/internal/pipeline"
)

type extractRequest struct {
	Text    string `json:"text"`
	Subject string `json:"subject"`
}

// handleExtract runs the extractor synchronously over already-decoded text.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonErrorKind(w, "request body too large", string(parser.KindTooLarge), http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}

	res, questions, err := s.orchestrator.ExtractText(req.Text, req.Subject)
	if err != nil {
		if errors.Is(err, extract.ErrNoQuestionTable) {
			jsonErrorKind(w, err.Error(), pipeline.KindNoQuestionTable, http.StatusUnprocessableEntity)
			return
		}
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"questions":  questions,
		"count":      len(questions),
		"strategy":   res.Strategy,
		"candidates": res.Candidates,
		"dropped":    res.Dropped,
	})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	userID := r.FormValue("user_id")
	if userID == "" {
		jsonError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonErrorKind(w, fmt.Sprintf("unsupported file type: %q", filepath.Ext(filename)),
			string(parser.KindUnsupportedType), http.StatusBadRequest)
		return
	}

	// Read file data.
	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonErrorKind(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes),
			string(parser.KindTooLarge), http.StatusRequestEntityTooLarge)
		return
	}

	job := pipeline.NewJob(userID, filename, strings.TrimSpace(r.FormValue("subject")), data)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, jobAccepted(job))
}

func (s *Server) handleBatchIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	userID := r.FormValue("user_id")
	if userID == "" {
		jsonError(w, "user_id is required", http.StatusBadRequest)
		return
	}
	subject := strings.TrimSpace(r.FormValue("subject"))

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	results := make([]map[string]any, 0, len(files))
	for _, fh := range files {
		filename := sanitizeFilename(fh.Filename)
		if !parser.IsSupportedExtension(filename) {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    fmt.Sprintf("unsupported file type: %q", filepath.Ext(filename)),
				"kind":     parser.KindUnsupportedType,
			})
			continue
		}

		f, err := fh.Open()
		if err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    "failed to open file",
			})
			continue
		}

		data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
		f.Close()
		if err != nil || int64(len(data)) > s.cfg.MaxUploadBytes {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    "file too large or read error",
				"kind":     parser.KindTooLarge,
			})
			continue
		}

		job := pipeline.NewJob(userID, filename, subject, data)
		if err := s.orchestrator.Submit(job); err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    err.Error(),
			})
			continue
		}

		accepted := jobAccepted(job)
		accepted["filename"] = filename
		results = append(results, accepted)
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"jobs": results})
}

func (s *Server) handleIngestStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":        snap.ID,
		"status":        snap.Status,
		"phase":         snap.Phase,
		"extraction_id": snap.ExtractionID,
		"progress":      snap.Progress,
	})
}

// handleJobQuestions returns the questions of a finished job.
func (s *Server) handleJobQuestions(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	switch {
	case !snap.Done():
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":  "job has not finished",
			"status": snap.Status,
		})
		return
	case snap.Status == pipeline.StatusFailed:
		msg := "job failed"
		if n := len(snap.Progress.Errors); n > 0 {
			msg = snap.Progress.Errors[n-1]
		}
		jsonErrorKind(w, msg, snap.Progress.ErrorKind, http.StatusUnprocessableEntity)
		return
	}

	questions := job.Questions()
	if questions == nil {
		questions = []extract.Question{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":        snap.ID,
		"status":        snap.Status,
		"extraction_id": snap.ExtractionID,
		"strategy":      snap.Progress.Strategy,
		"count":         len(questions),
		"questions":     questions,
	})
}

func jobAccepted(job *pipeline.Job) map[string]any {
	snap := job.Snapshot()
	return map[string]any{
		"job_id":        snap.ID,
		"status":        snap.Status,
		"poll_url":      fmt.Sprintf("/api/ingest/%s/status", snap.ID),
		"questions_url": fmt.Sprintf("/api/ingest/%s/questions", snap.ID),
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// jsonErrorKind adds a machine-readable failure kind to the error body.
func jsonErrorKind(w http.ResponseWriter, msg, kind string, code int) {
	body := map[string]string{"error": msg}
	if kind != "" {
		body["kind"] = kind
	}
	writeJSON(w, code, body)
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
