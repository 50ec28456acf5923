package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/dgallion1/reportsmith/internal/profile"
	"github.com/dgallion1/reportsmith/internal/source"
)

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !source.IsSupported(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	doc, err := source.Extract(r.Context(), filename, bytes.NewReader(data), source.Options{
		PdftotextFallback: s.cfg.PDFFallbackPdftotext,
	})
	if err != nil {
		writeError(w, s.log, err)
		return
	}

	text := doc.Text()
	prof := profile.Detect(text)
	s.log.Info("source extracted",
		"filename", filename,
		"format", doc.Format,
		"pages", doc.PageCount,
		"chars", len(text),
		"profile", prof.Type,
	)

	writeJSON(w, http.StatusOK, map[string]any{
		"filename":           doc.Filename,
		"title":              doc.Title,
		"format":             doc.Format,
		"page_count":         doc.PageCount,
		"text":               text,
		"estimated_tokens":   source.EstimateTokens(text),
		"profile":            prof.Type,
		"profile_confidence": prof.Confidence,
	})
}
