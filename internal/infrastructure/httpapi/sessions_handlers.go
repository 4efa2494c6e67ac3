package httpapi

import (
	"encoding/json"
	"net/http"

	"videobridge/internal/domain"
)

// handleListSessions serves GET /api/sessions: active sessions with their
// pending fetch-request counts.
func (d *Deps) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "use GET")
		return
	}
	sessions := d.Mux.Sessions(r.Context())
	if sessions == nil {
		sessions = []domain.Session{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"items": sessions,
		"total": len(sessions),
	})
}
