// Package httpserver exposes the snapshot stream, the manual trigger,
// and the browser-tap ingest mount.
package httpserver

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pareedo/pigeonwatch/errs"
	"github.com/pareedo/pigeonwatch/internal/bus/snapshotbus"
	"github.com/pareedo/pigeonwatch/internal/observability"
	"github.com/pareedo/pigeonwatch/internal/schema"
)

// defaultWaitTimeout bounds one SSE wait; on expiry a keep-alive
// comment goes out instead of an event.
const defaultWaitTimeout = 15 * time.Second

// TriggerFunc runs the scrape-enrich-publish chain once and returns the
// snapshot it published.
type TriggerFunc func(ctx context.Context) (*schema.Snapshot, error)

// Config wires the handler's collaborators.
type Config struct {
	Bus     *snapshotbus.Bus
	Ingest  http.Handler
	Trigger TriggerFunc

	// WaitTimeout overrides the SSE keep-alive interval; zero keeps
	// the default.
	WaitTimeout time.Duration
}

type server struct {
	bus         *snapshotbus.Bus
	trigger     TriggerFunc
	waitTimeout time.Duration
}

// NewHandler builds the full route tree.
func NewHandler(cfg Config) http.Handler {
	srv := new(server)
	srv.bus = cfg.Bus
	srv.trigger = cfg.Trigger
	srv.waitTimeout = cfg.WaitTimeout
	if srv.waitTimeout <= 0 {
		srv.waitTimeout = defaultWaitTimeout
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/healthz", srv.health)
	r.Get("/sse/pigeon", srv.streamBids)
	r.Post("/api/trigger", srv.runTrigger)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	if cfg.Ingest != nil {
		r.Handle("/ingest/ws", cfg.Ingest)
	}

	staticRoot, err := fs.Sub(staticFiles, "static")
	if err == nil {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticRoot))))
	}
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/static/", http.StatusFound)
	})
	return r
}

func (s *server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *server) runTrigger(w http.ResponseWriter, r *http.Request) {
	if s.trigger == nil {
		writeJSON(w, http.StatusServiceUnavailable,
			schema.NewErrorPayload("UNAVAILABLE", "trigger not wired"))
		return
	}
	snap, err := s.trigger(r.Context())
	if err != nil {
		observability.Log().Warn("manual trigger failed",
			observability.F("error", err.Error()))
		status, code := triggerFailure(err)
		writeJSON(w, status, schema.NewErrorPayload(code, err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// triggerFailure maps a structured pipeline error onto the wire status
// and payload code.
func triggerFailure(err error) (int, string) {
	var e *errs.E
	if errors.As(err, &e) {
		switch e.Code {
		case errs.CodeUpstream, errs.CodeNetwork:
			return http.StatusBadGateway, "UPSTREAM"
		case errs.CodeRateLimited:
			return http.StatusTooManyRequests, "RATE_LIMITED"
		case errs.CodeInvalid:
			return http.StatusBadRequest, "INVALID"
		case errs.CodeNotFound:
			return http.StatusNotFound, "NOT_FOUND"
		}
	}
	return http.StatusServiceUnavailable, "INTERNAL"
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
