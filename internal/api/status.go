package api

import (
	"net/http"
)

// handleStatus returns a snapshot of the board, relay connection, and
// device registry. Sections for components that are not wired are omitted.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"version": s.version,
		"devices": s.registry.GetStats(),
	}

	if s.relay != nil {
		resp["relay"] = map[string]any{
			"state":     s.relay.State().String(),
			"connected": s.relay.IsConnected(),
		}
	}

	if s.board != nil {
		resp["board"] = map[string]any{
			"identifier":  s.board.Identifier(),
			"platform":    s.board.Platform(),
			"broker_host": s.board.Host(),
			"broker_port": s.board.Port(),
			"shutdown":    s.board.HasShutdown(),
			"topics": map[string]string{
				"internal": s.board.InternalTopic(),
				"events":   s.board.EventsTopic(),
				"commands": s.board.CommandsTopic(),
			},
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
