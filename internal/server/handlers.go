package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hyperjump/nyaya/internal/config"
	"github.com/hyperjump/nyaya/internal/models"
	"github.com/hyperjump/nyaya/internal/store"
	"go.uber.org/zap"
)

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	res, err := s.asker.Ask(r.Context(), req.Query)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrEmptyQuery):
			s.respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, context.DeadlineExceeded):
			s.respondError(w, http.StatusGatewayTimeout, "request timed out")
		case errors.Is(err, context.Canceled):
			// client went away; nothing useful to write
		default:
			s.logger.Error("ask failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	w.Header().Set("X-Request-ID", res.RequestID)
	s.respondJSON(w, http.StatusOK, res.Response)
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "max":
		return fmt.Sprintf("%s exceeds %s characters", field, fe.Param())
	case "datetime":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD form", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := map[string]interface{}{}
	if reporter, ok := s.store.(store.StatsReporter); ok {
		stats, err := reporter.Stats(ctx)
		if err != nil {
			s.logger.Error("status: store stats failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, "internal error")
			return
		}
		resp["backend"] = stats.Backend
		resp["passages"] = stats.Passages
		resp["vector_index_size"] = stats.VectorSize
		resp["disk_usage_bytes"] = stats.DiskBytes
		resp["sources"] = stats.Sources
	} else {
		count, err := s.store.Count(ctx)
		if err != nil {
			s.logger.Error("status: count passages failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, "internal error")
			return
		}
		resp["passages"] = count
	}

	if s.fullConfig != nil {
		s.configMu.Lock()
		cfg := s.fullConfig
		resp["config"] = map[string]interface{}{
			"storage_backend":      cfg.Storage.Backend,
			"embedding_provider":   cfg.Embedding.Provider,
			"embedding_dimensions": cfg.Embedding.Dimensions,
			"generation_provider":  cfg.Generation.Provider,
			"generation_model":     cfg.Generation.Model,
			"candidates_k":         cfg.Retrieval.CandidatesK,
			"final_k":              cfg.Retrieval.FinalK,
			"similarity_threshold": cfg.Retrieval.SimilarityThresholdOrDefault(),
			"answer_threshold":     cfg.Confidence.AnswerThreshold,
			"corpus_directories":   append([]string(nil), cfg.Corpus.Directories...),
		}
		s.configMu.Unlock()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if source == "" {
		s.respondError(w, http.StatusBadRequest, "source is required")
		return
	}
	s.logger.Debug("delete source request", zap.String("source", source))
	var (
		n   int64
		err error
	)
	if s.sources != nil {
		n, err = s.sources.DeleteSource(r.Context(), source)
	} else {
		n, err = s.store.Delete(r.Context(), source)
	}
	if err != nil {
		s.logger.Error("delete source failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"source": source, "deleted": n})
}

func (s *Server) handleCorpusDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.watch.Directories()})
}

type corpusAddRequest struct {
	Path string `json:"path" validate:"required"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleCorpusDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req corpusAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.logger.Error("stat corpus directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	s.logger.Debug("add corpus directory request", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("add corpus directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.persistDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleCorpusDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.Path != "" {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	s.logger.Debug("remove corpus directory request", zap.String("path", abs))
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("remove corpus directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.persistDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

func (s *Server) persistDirectories() {
	if s.configPath == "" || s.fullConfig == nil {
		return
	}
	s.configMu.Lock()
	defer s.configMu.Unlock()
	s.fullConfig.Corpus.Directories = s.watch.Directories()
	if err := config.Save(s.configPath, s.fullConfig); err != nil {
		s.logger.Warn("failed to persist corpus directories", zap.Error(err))
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
