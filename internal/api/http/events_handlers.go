package http

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// GET /events?after=N&limit=M — tail the grade audit log.
func EventsHandler(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if env.Events == nil {
			http.Error(w, "event log disabled", http.StatusNotFound)
			return
		}
		after, _ := strconv.ParseInt(r.URL.Query().Get("after"), 10, 64)
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		events, err := env.Events.ListSince(r.Context(), after, limit)
		if err != nil {
			http.Error(w, "list events: "+err.Error(), http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(events)
	}
}
