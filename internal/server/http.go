package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

/* ------------------------------- HTTP ------------------------------- */

// Routes mounts the websocket endpoint and the read-only snapshot surface
// consumed by the dashboard layer, plus /metrics.
func (a *App) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", a.serveWS)
	mux.HandleFunc("/api/machines", func(w http.ResponseWriter, r *http.Request) {
		a.writeJSON(w, map[string]any{"machines": a.dispatcher.MachineViews()})
	})
	mux.HandleFunc("/api/uninitiated", func(w http.ResponseWriter, r *http.Request) {
		a.writeJSON(w, map[string]any{"machines": a.registry.UninitiatedSnapshot()})
	})
	mux.HandleFunc("/api/worlds", func(w http.ResponseWriter, r *http.Request) {
		a.writeJSON(w, map[string]any{"worlds": a.worlds.GetAll()})
	})
	mux.HandleFunc("/api/clients", func(w http.ResponseWriter, r *http.Request) {
		a.writeJSON(w, map[string]any{"clients": a.registry.ClientsSnapshot()})
	})
	mux.Handle("/metrics", a.metrics.Handler())
	return mux
}

func (a *App) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Info("snapshot write failed", zap.Error(err))
	}
}

func (a *App) startServer() error {
	a.log.Info("listening", zap.String("addr", a.cfg.Addr))
	return http.ListenAndServe(a.cfg.Addr, a.Routes())
}
