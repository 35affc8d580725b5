package httpserver

import (
	"net/http"

	"chatserver/internal/config"
	"chatserver/internal/presence"
)

type iceServer struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

// handleWebRTCConfig returns the ICE server list for peer connections. A TURN
// server is included only when credentials are configured.
func handleWebRTCConfig(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		servers := []iceServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
		}
		if cfg.TURNURL != "" {
			servers = append(servers, iceServer{
				URLs:       []string{cfg.TURNURL},
				Username:   cfg.TURNUser,
				Credential: cfg.TURNPass,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"iceServers": servers})
	}
}

// handleDebugOnline exposes the raw presence snapshot. Mounted only in debug
// mode.
func handleDebugOnline(registry *presence.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"users":       registry.Online(),
			"connections": registry.Snapshot(),
		})
	}
}
