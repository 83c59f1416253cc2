package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/boardlink/internal/device"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
	maxDeviceNameLen    = 256
)

// handleGetDeviceHistory returns state history entries for a device.
//
// Query parameters:
//   - limit: maximum entries to return (default 50, max 200)
//   - since: RFC3339 timestamp; only entries after it are returned
func (s *Server) handleGetDeviceHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")
	if name == "" || len(name) > maxDeviceNameLen {
		writeBadRequest(w, "invalid device name")
		return
	}

	limit, err := parseHistoryLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	since, err := parseSinceParam(r.URL.Query().Get("since"))
	if err != nil {
		writeBadRequest(w, "invalid since timestamp")
		return
	}

	if _, ok := s.lookupDevice(name); !ok {
		writeNotFound(w, "device not found")
		return
	}

	if s.history == nil {
		writeUnavailable(w, "state history unavailable")
		return
	}

	entries, err := s.history.GetHistory(ctx, name, limit)
	if err != nil {
		writeInternalError(w, "failed to load device history")
		return
	}

	entries = filterSince(entries, since)

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": name,
		"history":   entries,
		"count":     len(entries),
	})
}

// handleGetTemperatureHistory returns the board-scoped temperature stream.
// Readings are recorded under a shared stream identifier because sensors
// have no name of their own.
func (s *Server) handleGetTemperatureHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, err := parseHistoryLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	since, err := parseSinceParam(r.URL.Query().Get("since"))
	if err != nil {
		writeBadRequest(w, "invalid since timestamp")
		return
	}

	if s.history == nil {
		writeUnavailable(w, "state history unavailable")
		return
	}

	entries, err := s.history.GetHistory(ctx, device.TemperatureHistoryID, limit)
	if err != nil {
		writeInternalError(w, "failed to load temperature history")
		return
	}

	entries = filterSince(entries, since)

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": device.TemperatureHistoryID,
		"history":   entries,
		"count":     len(entries),
	})
}

// parseHistoryLimit parses the limit query parameter with bounds enforcement.
func parseHistoryLimit(raw string) (int, error) {
	if raw == "" {
		return defaultHistoryLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid limit")
	}
	if limit > maxHistoryLimit {
		return 0, fmt.Errorf("limit exceeds maximum")
	}

	return limit, nil
}

// parseSinceParam parses the since parameter as RFC3339/RFC3339Nano.
func parseSinceParam(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err == nil {
		return parsed.UTC(), nil
	}

	parsed, err = time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, err
	}

	return parsed.UTC(), nil
}

// filterSince drops entries at or before the cutoff. A zero cutoff keeps
// everything.
func filterSince(entries []device.StateHistoryEntry, since time.Time) []device.StateHistoryEntry {
	if since.IsZero() {
		return entries
	}

	filtered := entries[:0]
	for _, entry := range entries {
		if entry.CreatedAt.After(since) {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}
