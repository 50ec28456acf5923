package api

import (
	"net/http"
	"strings"

	"github.com/dgallion1/reportsmith/internal/deck"
	"github.com/dgallion1/reportsmith/internal/genai"
	"github.com/dgallion1/reportsmith/internal/resolve"
)

type htmlRequest struct {
	HTML string `json:"html"`
}

type editRequest struct {
	HTML        string `json:"html"`
	Instruction string `json:"instruction"`
	Source      string `json:"source"`
}

type operationRequest struct {
	HTML     string         `json:"html"`
	Operator string         `json:"operator"`
	Args     map[string]any `json:"args"`
	Source   string         `json:"source"`
}

func (s *Server) handlePresentation(w http.ResponseWriter, r *http.Request) {
	var req htmlRequest
	if !decodeJSON(w, r, s.cfg.MaxBodyBytes, &req) {
		return
	}
	if strings.TrimSpace(req.HTML) == "" {
		jsonError(w, "html is required", http.StatusBadRequest)
		return
	}
	out, err := deck.Build(req.HTML)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	if r.URL.Query().Get("format") == "html" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(out))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"html": out})
}

// handleEdit classifies a free-text instruction and applies the result.
func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if !decodeJSON(w, r, s.cfg.MaxBodyBytes, &req) {
		return
	}
	resp, err := s.resolver.Handle(r.Context(), resolve.Request{
		Instruction: req.Instruction,
		HTML:        req.HTML,
		Source:      req.Source,
	})
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleOperation runs one named operator without classification.
func (s *Server) handleOperation(w http.ResponseWriter, r *http.Request) {
	var req operationRequest
	if !decodeJSON(w, r, s.cfg.MaxBodyBytes, &req) {
		return
	}
	if strings.TrimSpace(req.HTML) == "" {
		jsonError(w, "html is required", http.StatusBadRequest)
		return
	}
	cmd, err := resolve.Decode(genai.ToolCall{Name: req.Operator, Input: req.Args})
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	res, err := s.resolver.Execute(r.Context(), cmd, req.HTML, req.Source)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"operator": cmd.Operator(),
		"html":     res.HTML,
		"message":  res.Message,
		"instant":  res.Instant,
		"changes":  res.Changes,
		"changed":  res.Changes > 0,
	})
}

func (s *Server) handleEnhance(w http.ResponseWriter, r *http.Request) {
	var req htmlRequest
	if !decodeJSON(w, r, s.cfg.MaxBodyBytes, &req) {
		return
	}
	res, err := s.enhancer.Enhance(r.Context(), req.HTML)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"html":     res.HTML,
		"injected": res.Injected,
		"skipped":  res.Skipped,
		"dropped":  res.Dropped,
	})
}
