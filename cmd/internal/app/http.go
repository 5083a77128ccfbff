package app

import (
	"net/http"
	"time"

	authapi "muse/cmd/internal/auth/api"
	"muse/cmd/internal/catalog"
	"muse/cmd/internal/notify"

	"github.com/jackc/pgx/v5/pgxpool"
)

// gateExemptPrefixes lists paths the rate limiter passes through: auth
// endpoints carry their own abuse surface (and a locked-out user must still
// be able to log in), and the operational endpoints must stay reachable.
var gateExemptPrefixes = []string{
	"/api/v1/auth/",
	"/healthz",
	"/readyz",
	"/metrics",
	"/ws",
}

func registerHTTP(
	mux *http.ServeMux,
	log Logger,
	pool *pgxpool.Pool,
	metrics *Metrics,
	auth *authapi.Handler,
	api *catalog.API,
	ws *notify.Gateway,
) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := PingDB(r.Context(), pool, 2*time.Second); err != nil {
			log.Info("readyz.db.not_ready", "err", err)
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	})

	mux.Handle("GET /metrics", metrics.Handler())

	auth.Register(mux)

	// Catalog routes require a principal; ServeMux prefers the more specific
	// auth patterns above over this subtree.
	catalogMux := http.NewServeMux()
	api.Register(catalogMux)
	mux.Handle("/api/v1/", authapi.RequireAuth(catalogMux))

	mux.Handle("/ws", ws)
}
