package app

import (
	"net/http"
	"time"

	authapi "herald/cmd/internal/auth/api"
	"herald/cmd/internal/metrics"
	subapi "herald/cmd/internal/subscriptions/api"

	"github.com/jackc/pgx/v5/pgxpool"
)

type routes struct {
	log       Logger
	cfg       Config
	dbPool    *pgxpool.Pool
	dbEnabled bool
	metrics   *metrics.Metrics
	auth      *authapi.Handler
	subs      *subapi.Handler
}

func registerHTTP(mux *http.ServeMux, rt routes) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if rt.cfg.ReadinessRequireDB && !rt.dbEnabled {
			http.Error(w, "db not configured", http.StatusServiceUnavailable)
			return
		}

		if rt.dbEnabled && rt.dbPool != nil {
			if err := PingDB(r.Context(), rt.dbPool, 2*time.Second); err != nil {
				rt.log.Info("readyz.db.not_ready", "err", err)
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	})

	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	if rt.auth != nil {
		rt.auth.Register(mux)
	}

	// POST /subscriptions, POST /admin/newsletters
	if rt.subs != nil {
		rt.subs.Register(mux)
	}
}
