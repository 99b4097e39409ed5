package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/records/internal/core"
	"github.com/JonMunkholm/records/internal/logging"
	"github.com/JonMunkholm/records/internal/spreadsheet"
)

// BulkUploadResponse is returned by a successful bulk upload.
type BulkUploadResponse struct {
	Success     bool            `json:"success"`
	Message     string          `json:"message"`
	Count       int             `json:"count"`
	TotalRows   int             `json:"totalRows"`
	InsertedIDs []string        `json:"insertedIds"`
	Rejected    []core.RowError `json:"rejected"`
}

const templateFilename = "records-template.xlsx"

// handleBulkUpload stores every valid row of an uploaded spreadsheet.
func (s *Server) handleBulkUpload(w http.ResponseWriter, r *http.Request) {
	if err := s.limiter.Acquire(r.Context()); err != nil {
		respondError(w, r, err)
		return
	}
	defer s.limiter.Release()

	up, err := readUpload(w, r, s.cfg.Upload.MaxFileSize)
	if err != nil {
		respondError(w, r, err)
		return
	}

	result, err := s.service.Ingest(r.Context(), up)
	if err != nil {
		var body ErrorResponse
		if result != nil && errors.Is(err, core.ErrEmptyBatch) {
			body.Rejected = result.Rejected
		}
		respondErrorWith(w, r, err, body)
		return
	}

	writeJSON(w, http.StatusOK, BulkUploadResponse{
		Success:     true,
		Message:     fmt.Sprintf("Successfully inserted %d records", result.InsertedCount),
		Count:       result.InsertedCount,
		TotalRows:   result.TotalRows,
		InsertedIDs: result.InsertedIDs,
		Rejected:    result.Rejected,
	})

	logging.WithFields(r.Context(), "file", up.Filename).Debug("ingestion phase",
		"phase", core.PhaseResponded,
		"inserted", result.InsertedCount,
		"rejected", len(result.Rejected),
	)
}

// handlePreview reports what a bulk upload would store without storing it.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if err := s.limiter.Acquire(r.Context()); err != nil {
		respondError(w, r, err)
		return
	}
	defer s.limiter.Release()

	up, err := readUpload(w, r, s.cfg.Upload.MaxFileSize)
	if err != nil {
		respondError(w, r, err)
		return
	}

	result, err := s.service.Preview(r.Context(), up)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleTemplate serves an .xlsx with the expected header and one example row.
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	data, err := spreadsheet.Template()
	if err != nil {
		respondError(w, r, fmt.Errorf("build template: %w", err))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+templateFilename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logging.FromContext(r.Context()).Error("write template", "error", err)
	}
}
