package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
	"riddle-hunt-service/internal/app"
	"riddle-hunt-service/internal/domain"
)

// AdminPasswordHeader carries the shared admin password.
const AdminPasswordHeader = "X-Admin-Password"

// API serves the winners list and the admin endpoints.
type API struct {
	contest *app.Contest
	admin   *app.Admin
	log     *zap.Logger
}

func NewAPI(contest *app.Contest, admin *app.Admin, log *zap.Logger) *API {
	if log == nil {
		log = zap.NewNop()
	}
	return &API{contest: contest, admin: admin, log: log.Named("api")}
}

// Register mounts every route, the socket included, on mux.
func (a *API) Register(mux *http.ServeMux, ws *WSHandler) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /winners", a.listWinners)
	mux.HandleFunc("GET /admin/keys", a.keyStats)
	mux.HandleFunc("DELETE /admin/winners/{id}", a.deleteWinner)
	mux.HandleFunc("POST /admin/purge", a.purge)
	if ws != nil {
		mux.HandleFunc("/ws", ws.ServeWS)
	}
}

func (a *API) listWinners(w http.ResponseWriter, r *http.Request) {
	winners, err := a.contest.Winners(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, winnersPayload{Entries: winners})
}

type keyStatsPayload struct {
	Total  int `json:"total"`
	Unused int `json:"unused"`
}

func (a *API) keyStats(w http.ResponseWriter, r *http.Request) {
	if err := a.admin.Authorize(r.Header.Get(AdminPasswordHeader)); err != nil {
		a.writeError(w, err)
		return
	}
	unused, err := a.contest.UnusedKeys(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, keyStatsPayload{Total: a.contest.Catalog().Len(), Unused: unused})
}

func (a *API) deleteWinner(w http.ResponseWriter, r *http.Request) {
	report, err := a.admin.DeleteWinner(r.Context(), r.Header.Get(AdminPasswordHeader), r.PathValue("id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) purge(w http.ResponseWriter, r *http.Request) {
	report, err := a.admin.PurgeAll(r.Context(), r.Header.Get(AdminPasswordHeader))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrWinnerNotFound):
		status = http.StatusNotFound
	default:
		a.log.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, errorPayload{Code: domain.ErrorCode(err), Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
