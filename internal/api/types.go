package api

import (
	"encoding/json"
	"net/http"
)

// HealthzResponse is the GET /healthz body.
type HealthzResponse struct {
	Status            string `json:"status"`
	UptimeSeconds     int64  `json:"uptime_seconds"`
	QueueDepth        int    `json:"queue_depth"`
	ToggleInFlight    bool   `json:"toggle_in_flight"`
	ConfigFingerprint string `json:"config_fingerprint,omitempty"`
}

// SubmitResponse is the POST /command/{type} body. A dropped submission is
// intentional backpressure, not an error: Accepted is false and no ID is set.
type SubmitResponse struct {
	Accepted bool   `json:"accepted"`
	ID       string `json:"id,omitempty"`
	Type     string `json:"type"`
	Status   string `json:"status,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// HeadResponse is the GET /queue/head/{type} body.
type HeadResponse struct {
	Type  string `json:"type"`
	Match bool   `json:"match"`
}

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, ErrorResponse{Error: msg})
}
