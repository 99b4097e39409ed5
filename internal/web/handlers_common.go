package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/records/internal/core"
)

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 1 << 20

// writeJSON encodes v as JSON with the given status.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

// decodeJSON reads a single JSON object from the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return core.Errorf(core.ErrValidation, "invalid request body: empty")
		}
		return core.Wrap(core.ErrValidation, err, "invalid request body")
	}
	if dec.More() {
		return core.Errorf(core.ErrValidation, "invalid request body: trailing data")
	}
	return nil
}

// readUpload extracts the multipart "file" field, bounded by maxSize.
func readUpload(w http.ResponseWriter, r *http.Request, maxSize int64) (core.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return core.Upload{}, core.Wrap(core.ErrDecode, err, "file too large")
		case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
			return core.Upload{}, core.Errorf(core.ErrDecode, "no file uploaded")
		default:
			return core.Upload{}, core.Wrap(core.ErrDecode, err, "invalid upload form")
		}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return core.Upload{}, core.Errorf(core.ErrDecode, "no file uploaded")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return core.Upload{}, core.Wrap(core.ErrDecode, err, "read upload")
	}

	return core.Upload{Filename: strings.TrimSpace(header.Filename), Data: data}, nil
}
