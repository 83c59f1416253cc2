package api

import (
	"net/http"
)

// handleGetTemperature returns the latest reading from each registered sensor.
func (s *Server) handleGetTemperature(w http.ResponseWriter, _ *http.Request) {
	sensors := s.registry.Sensors()

	readings := make([]map[string]any, 0, len(sensors))
	for _, sensor := range sensors {
		readings = append(readings, map[string]any{
			"name":        sensor.Name(),
			"temperature": sensor.Temperature(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"sensors": readings, "count": len(readings)})
}

// handleMonitorTemperature asks every registered sensor to request a fresh
// reading from its board. Readings arrive asynchronously on the event stream.
func (s *Server) handleMonitorTemperature(w http.ResponseWriter, _ *http.Request) {
	sensors := s.registry.Sensors()
	if len(sensors) == 0 {
		writeNotFound(w, "no temperature sensors registered")
		return
	}

	requested := 0
	for _, sensor := range sensors {
		if err := sensor.Monitor(); err != nil {
			s.logger.Warn("temperature monitor request failed", "error", err)
			continue
		}
		requested++
	}
	if requested == 0 {
		writeUnavailable(w, "failed to queue monitor requests")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":    "accepted",
		"requested": requested,
		"message":   "readings will follow via the event stream",
	})
}
