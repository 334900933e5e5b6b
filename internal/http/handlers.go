package httpapi

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"shortlinks/internal/config"
	"shortlinks/internal/core"
	"shortlinks/internal/metrics"
	"shortlinks/internal/store"
)

type Router struct {
	cfg config.Config
	svc *core.Service
	db  *sql.DB
}

func NewRouter(cfg config.Config, svc *core.Service, db *sql.DB) http.Handler {
	r := chi.NewRouter()
	// Logging middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(hlog.RequestIDHandler("req_id", "Request-Id"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, dur time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", dur).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)

	api := &Router{cfg: cfg, svc: svc, db: db}

	r.MethodFunc(http.MethodGet, "/healthz", api.handleHealth)
	r.MethodFunc(http.MethodGet, "/readyz", api.handleReady)

	// Metrics
	r.MethodFunc(http.MethodGet, "/metrics", metrics.Handler)

	// Link management
	r.MethodFunc(http.MethodPost, "/links", api.handleCreate)
	r.MethodFunc(http.MethodGet, "/links", api.handleList)
	r.MethodFunc(http.MethodGet, "/links/{code}", api.handleGet)
	r.MethodFunc(http.MethodDelete, "/links/{code}", api.handleDelete)

	// Redirect path
	r.MethodFunc(http.MethodGet, "/{code}", api.handleRedirect)

	return r
}

type createReq struct {
	TargetURL string `json:"target_url"`
	Code      string `json:"code,omitempty"`
}

type linkResp struct {
	store.Link
	ShortURL string `json:"short_url,omitempty"`
}

func (rt *Router) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid json", http.StatusBadRequest)
		return
	}
	link, err := rt.svc.CreateLink(r.Context(), strings.TrimSpace(req.TargetURL), strings.TrimSpace(req.Code))
	if err != nil {
		rt.writeServiceError(w, err)
		return
	}
	metrics.Creates.Inc()

	resp := linkResp{Link: *link}
	if rt.cfg.BaseURL != "" {
		resp.ShortURL = strings.TrimRight(rt.cfg.BaseURL, "/") + "/" + link.Code
	}
	writeJSON(w, resp, http.StatusCreated)
}

func (rt *Router) handleRedirect(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	target, err := rt.svc.ResolveAndCount(r.Context(), code)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			metrics.RedirectMisses.Inc()
			http.NotFound(w, r)
			return
		}
		metrics.StoreErrors.Inc()
		hlog.FromRequest(r).Error().Err(err).Str("code", code).Msg("resolve")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	metrics.Redirects.Inc()
	// 302, not 301: a cached permanent redirect would bypass click counting.
	http.Redirect(w, r, target, http.StatusFound)
}

func (rt *Router) handleList(w http.ResponseWriter, r *http.Request) {
	links, err := rt.svc.ListLinks(r.Context())
	if err != nil {
		rt.writeServiceError(w, err)
		return
	}
	writeJSON(w, links, http.StatusOK)
}

func (rt *Router) handleGet(w http.ResponseWriter, r *http.Request) {
	link, err := rt.svc.GetLink(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		rt.writeServiceError(w, err)
		return
	}
	writeJSON(w, link, http.StatusOK)
}

func (rt *Router) handleDelete(w http.ResponseWriter, r *http.Request) {
	if _, err := rt.svc.DeleteLink(r.Context(), chi.URLParam(r, "code")); err != nil {
		rt.writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"success": true}, http.StatusOK)
}

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (rt *Router) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := rt.db.PingContext(r.Context()); err != nil {
		writeError(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
// Validation and conflict reasons go back verbatim so callers can correct
// input; store failures stay opaque.
func (rt *Router) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidURL), errors.Is(err, core.ErrInvalidCode):
		writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, core.ErrCodeExists):
		metrics.CreateConflicts.Inc()
		writeError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, core.ErrNotFound):
		writeError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, core.ErrCodeSpaceExhausted):
		metrics.StoreErrors.Inc()
		log.Error().Err(err).Msg("code space exhausted")
		writeError(w, "could not allocate a code", http.StatusServiceUnavailable)
	default:
		metrics.StoreErrors.Inc()
		log.Error().Err(err).Msg("store failure")
		writeError(w, "internal server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, map[string]string{"error": msg}, status)
}
