package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dgallion1/reportsmith/internal/pipeline"
	"github.com/dgallion1/reportsmith/internal/profile"
	"github.com/go-chi/chi/v5"
)

type analyzeRequest struct {
	Text string `json:"text"`
}

type reportRequest struct {
	Text       string `json:"text"`
	ReportType string `json:"report_type"`
	Filename   string `json:"filename"`
	Title      string `json:"title"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !decodeJSON(w, r, s.cfg.MaxBodyBytes, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		jsonError(w, "text is required", http.StatusBadRequest)
		return
	}

	prof := profile.Detect(req.Text)
	analysis, err := s.orchestrator.Worker().Analyze(r.Context(), req.Text)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"analysis":           analysis,
		"profile":            prof.Type,
		"profile_confidence": prof.Confidence,
	})
}

// handleGenerateReport runs analysis and report generation inline.
func (s *Server) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if !decodeJSON(w, r, s.cfg.MaxBodyBytes, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		jsonError(w, "text is required", http.StatusBadRequest)
		return
	}

	worker := s.orchestrator.Worker()
	prof := profile.Detect(req.Text)
	analysis, err := worker.Analyze(r.Context(), req.Text)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	report, err := worker.Report(r.Context(), analysis, req.ReportType, prof)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"html":               report,
		"analysis":           analysis,
		"report_type":        req.ReportType,
		"profile":            prof.Type,
		"profile_confidence": prof.Confidence,
	})
}

func (s *Server) handleSubmitReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if !decodeJSON(w, r, s.cfg.MaxBodyBytes, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		jsonError(w, "text is required", http.StatusBadRequest)
		return
	}

	job := pipeline.NewJob(sanitizeFilename(req.Filename), req.Title, req.ReportType, req.Text)
	job, duplicate, err := s.orchestrator.Submit(job)
	if err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	code := http.StatusAccepted
	if duplicate {
		code = http.StatusOK
	}
	writeJSON(w, code, map[string]any{
		"job_id":    job.ID,
		"status":    job.Snapshot().Status,
		"duplicate": duplicate,
		"poll_url":  fmt.Sprintf("/api/reports/%s", job.ID),
	})
}

func (s *Server) handleReportStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}
