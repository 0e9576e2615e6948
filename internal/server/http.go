package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/eljam3239/flutter-epson/internal/logging"
	"github.com/eljam3239/flutter-epson/internal/version"
)

// Health is the body served at /healthz.
type Health struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Connected   bool   `json:"connected"`
	Scanning    bool   `json:"scanning"`
	Connections int    `json:"connections"`
}

func (s *Server) health() Health {
	return Health{
		Status:      "ok",
		Version:     version.Full(),
		Connected:   s.dispatcher.State().IsConnected(),
		Scanning:    s.dispatcher.Scanning(),
		Connections: s.GetActiveConnections(),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.health()); err != nil {
		logging.Warn("Failed to write health response", zap.Error(err))
	}
}
