package audit

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	coreaudit "github.com/kilianp07/chargeguard/core/audit"
)

// NewLogHandler returns an HTTP handler exposing the audit trail via
// GET /api/audit. Requests must include an Authorization header with
// "Bearer <token>" when token is non-empty. Supported filters: start, end
// (RFC3339), kind, user_id, station_id and reason.
func NewLogHandler(store coreaudit.Store, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if token != "" && !authorized(r, token) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		v := r.URL.Query()
		q := coreaudit.Query{
			Kind:      coreaudit.Kind(v.Get("kind")),
			UserID:    v.Get("user_id"),
			StationID: v.Get("station_id"),
			Reason:    v.Get("reason"),
		}
		if s := v.Get("start"); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				http.Error(w, "invalid start", http.StatusBadRequest)
				return
			}
			q.Start = t
		}
		if s := v.Get("end"); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				http.Error(w, "invalid end", http.StatusBadRequest)
				return
			}
			q.End = t
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []coreaudit.Record{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(records); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}

func authorized(r *http.Request, token string) bool {
	got := []byte(r.Header.Get("Authorization"))
	return subtle.ConstantTimeCompare(got, []byte("Bearer "+token)) == 1
}
