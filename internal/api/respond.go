package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/reportsmith/internal/edit"
	"github.com/dgallion1/reportsmith/internal/source"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeError maps err onto a status code by its taxonomy kind.
func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	kind := edit.KindOf(err)
	body := map[string]any{"error": err.Error(), "kind": kind}
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, source.ErrUnsupported):
		code = http.StatusBadRequest
		body["kind"] = edit.KindInvalidArgument
	case errors.Is(err, source.ErrEmpty):
		code = http.StatusUnprocessableEntity
		body["kind"] = edit.KindInvalidArgument
	case kind == edit.KindNotFound:
		code = http.StatusNotFound
	case kind == edit.KindInvalidArgument:
		code = http.StatusBadRequest
	case kind == edit.KindTransientUpstream:
		code = http.StatusServiceUnavailable
		body["retry"] = true
	case kind == edit.KindMalformedOutput:
		code = http.StatusBadGateway
	case kind == edit.KindCanceled:
		code = http.StatusGatewayTimeout
	}
	if code >= 500 {
		log.Error("request failed", "kind", body["kind"], "error", err)
	}
	writeJSON(w, code, body)
}

// decodeJSON reads a JSON body of at most limit bytes into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			jsonError(w, fmt.Sprintf("request body exceeds %d bytes", limit), http.StatusRequestEntityTooLarge)
		case errors.Is(err, io.EOF):
			jsonError(w, "request body is required", http.StatusBadRequest)
		default:
			jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		}
		return false
	}
	return true
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
