package handlers

import "net/http"

// Health responds 200 OK once the router is mounted; it does not probe
// the database, matching the teacher's liveness-only health endpoint.
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
