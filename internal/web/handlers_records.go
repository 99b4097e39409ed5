package web

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/records/internal/core"
	"github.com/JonMunkholm/records/internal/domain"
	"github.com/JonMunkholm/records/internal/store"
)

// InsertOneResponse is returned by POST /record/.
type InsertOneResponse struct {
	Acknowledged bool   `json:"acknowledged"`
	InsertedID   string `json:"insertedId"`
}

// UpdateResponse is returned by PATCH /record/{id}.
type UpdateResponse struct {
	Acknowledged  bool  `json:"acknowledged"`
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
}

// DeleteResponse is returned by the delete endpoints.
type DeleteResponse struct {
	Acknowledged bool  `json:"acknowledged"`
	DeletedCount int64 `json:"deletedCount"`
}

// BulkDeleteRequest is the body of POST /record/bulk-delete.
type BulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

// handleListRecords returns all records, optionally filtered by ?level= and ?q=.
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	var filter store.Filter

	if raw := strings.TrimSpace(r.URL.Query().Get("level")); raw != "" {
		level, ok := domain.ParseLevel(raw)
		if !ok {
			respondError(w, r, core.Errorf(core.ErrValidation,
				"invalid level %q, must be one of Intern, Junior, Senior", raw))
			return
		}
		filter.Level = level
	}
	filter.Query = strings.TrimSpace(r.URL.Query().Get("q"))

	records, err := s.service.List(r.Context(), filter)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	var in core.RecordInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}

	id, err := s.service.Create(r.Context(), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, InsertOneResponse{Acknowledged: true, InsertedID: id})
}

// handleUpdateRecord replaces name, position and level of a record. A
// missing id answers 200 with zero counts.
func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	var in core.RecordInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}

	res, err := s.service.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UpdateResponse{
		Acknowledged:  true,
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
	})
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	res, err := s.service.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteResponse{Acknowledged: true, DeletedCount: res.DeletedCount})
}

// handleBulkDelete removes a selection of records in one call.
func (s *Server) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	var req BulkDeleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	res, err := s.service.DeleteMany(r.Context(), req.IDs)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteResponse{Acknowledged: true, DeletedCount: res.DeletedCount})
}
