package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"hr-rag/internal/metrics"
	"hr-rag/internal/models"
	"hr-rag/internal/tools"
)

const (
	readTimeout     = 30 * time.Second
	writeTimeout    = 3 * time.Minute
	idleTimeout     = time.Minute
	shutdownTimeout = 10 * time.Second
)

// Service is what the HTTP routes expose
type Service interface {
	Chat(ctx context.Context, message, sessionID string, topK int) (models.Answer, error)
	Ingest(ctx context.Context, source string) (models.IngestStats, error)
	Reset(ctx context.Context) error
	Stats(ctx context.Context) (models.IndexStats, error)
}

type chatRequest struct {
	Message   string          `json:"message"`
	SessionID string          `json:"session_id"`
	TopK      json.RawMessage `json:"top_k"`
}

type ingestRequest struct {
	Source string `json:"source"`
}

type handler struct {
	svc Service
}

// NewRouter registers the routes behind the request metrics middleware.
func NewRouter(svc Service) http.Handler {
	h := &handler{svc: svc}

	r := chi.NewRouter()
	r.Use(metrics.Middleware)
	r.Get("/health", h.health)
	r.Get("/stats", h.stats)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/reset", h.reset)
	r.Post("/ingest", h.ingest)
	r.Post("/chat", h.chat)
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, addr string, svc Service) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      NewRouter(svc),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Server is listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Server is shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	srv.SetKeepAlivesEnabled(false)
	return srv.Shutdown(shutdownCtx)
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		if errors.Is(err, models.ErrIndexUnavailable) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		internalError(w, "/stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *handler) reset(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Reset(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Error resetting vector store")
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": err == nil})
}

func (h *handler) ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := decodeOptional(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	stats, err := h.svc.Ingest(r.Context(), req.Source)
	if err != nil {
		if errors.Is(err, models.ErrUnknownSource) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		internalError(w, "/ingest", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "stats": stats})
}

func (h *handler) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.svc.Chat(r.Context(), req.Message, req.SessionID, tools.CoerceTopK(req.TopK, 0))
	if err != nil {
		internalError(w, "/chat", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// decodeOptional accepts an empty body as the zero value
func decodeOptional(body io.Reader, v any) error {
	err := json.NewDecoder(body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func internalError(w http.ResponseWriter, route string, err error) {
	log.Error().Err(err).Str("route", route).Msg("request failed")
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		log.Error().Err(err).Msg("writing response")
	}
}
