package server

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request", zap.String("query", req.Query), zap.Int("limit", req.Limit))
	resp, err := s.engine.Search(r.Context(), req.Query, req.Limit)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handleRebuild kicks off a full rebuild in the background and returns 202.
// Only one rebuild runs at a time; a second request gets 409.
func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	select {
	case s.rebuildGuard <- struct{}{}:
	default:
		s.respondError(w, http.StatusConflict, "rebuild already in progress")
		return
	}
	go func() {
		defer func() { <-s.rebuildGuard }()
		n, err := s.engine.Rebuild(context.Background())
		if err != nil {
			s.logger.Error("rebuild failed", zap.Error(err))
			return
		}
		s.logger.Info("rebuild complete", zap.Int("documents", n))
	}()
	s.respondJSON(w, http.StatusAccepted, map[string]string{"status": "rebuild started"})
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Optimize(r.Context()); err != nil {
		s.logger.Error("optimize failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "optimized"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.engine.Status()
	if err != nil {
		s.logger.Error("status failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, st)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid document id")
		return
	}
	doc, err := s.engine.Document(r.Context(), uint32(id))
	if err != nil {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

// handleRawDocument serves the original corpus file for a document. Paths are
// confined to the corpus root so a crafted document row cannot read outside
// it.
func (s *Server) handleRawDocument(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid document id")
		return
	}
	doc, err := s.engine.Document(r.Context(), uint32(id))
	if err != nil {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	root := filepath.Clean(s.engine.CorpusRoot())
	path := filepath.Clean(doc.Path)
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		s.respondError(w, http.StatusForbidden, "document outside corpus root")
		return
	}
	http.ServeFile(w, r, path)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("response encoding failed", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
