// Package handlers holds the HTTP handlers for each CRUD resource plus
// the Playout build/events surface, grounded on the teacher's
// media.go handler shape: decode params, call a service, map its
// sentinel errors to status codes.
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"
)

func parseID(idStr string) (int64, error) {
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0, errors.New("invalid ID format")
	}
	return id, nil
}

func parseTimeQuery(r *http.Request, key string, fallback time.Time) time.Time {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return fallback
	}
	return t
}
