package server

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/tatianab/game-builder/internal/errs"
)

// Handler returns the HTTP routes for the service.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/start", s.handleStart)
	mux.HandleFunc("POST /api/message", s.handleMessage)
	mux.HandleFunc("POST /api/build", s.handleBuild)
	mux.HandleFunc("GET /api/preview/{session_id}/{filename}", s.handlePreview)
	mux.HandleFunc("GET /api/download/{session_id}", s.handleDownload)
	return s.logRequests(mux)
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Service) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("listening", zap.String("addr", addr))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type startRequest struct {
	GameIdea string `json:"game_idea"`
}

type messageRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type buildRequest struct {
	SessionID string `json:"session_id"`
}

func (s *Service) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !s.decode(w, r, &req) {
		return
	}
	reply, err := s.Start(r.Context(), req.GameIdea)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, reply)
}

func (s *Service) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !s.decode(w, r, &req) {
		return
	}
	reply, err := s.Continue(r.Context(), req.SessionID, req.Message)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, reply)
}

func (s *Service) handleBuild(w http.ResponseWriter, r *http.Request) {
	var req buildRequest
	if !s.decode(w, r, &req) {
		return
	}
	result, err := s.Build(r.Context(), req.SessionID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Service) handlePreview(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("filename")
	data, err := s.Artifact(r.PathValue("session_id"), name)
	if err != nil {
		s.writeFileError(w, err)
		return
	}
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

func (s *Service) handleDownload(w http.ResponseWriter, r *http.Request) {
	name, data, err := s.Archive(r.PathValue("session_id"))
	if err != nil {
		s.writeFileError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

func (s *Service) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return false
	}
	return true
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("failed to write response", zap.Error(err))
	}
}

// writeError reports a JSON API failure. Session-scoped errors are
// rejected requests; anything else is a server error.
func (s *Service) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errs.ErrEmptyInput),
		errors.Is(err, errs.ErrSessionNotFound),
		errors.Is(err, errs.ErrNotClarified):
		status = http.StatusBadRequest
	default:
		s.log.Error("request failed", zap.Error(err))
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Service) writeFileError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrSessionNotFound), errors.Is(err, errs.ErrEmptyInput):
		http.Error(w, "Session not found", http.StatusNotFound)
	case errors.Is(err, errs.ErrNotBuilt):
		http.Error(w, "Game not built yet", http.StatusNotFound)
	case errors.Is(err, os.ErrNotExist):
		http.Error(w, "File not found", http.StatusNotFound)
	default:
		s.log.Error("file request failed", zap.Error(err))
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Service) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}
