package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mattjoyce/overviewd/internal/auth"
	"github.com/mattjoyce/overviewd/internal/command"
)

// handleHealthz handles GET /healthz (no auth).
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	snap := s.sched.Snapshot()

	s.writeJSON(w, http.StatusOK, HealthzResponse{
		Status:            "ok",
		UptimeSeconds:     int64(time.Since(s.startedAt).Seconds()),
		QueueDepth:        snap.Depth,
		ToggleInFlight:    snap.ToggleInFlight,
		ConfigFingerprint: s.config.ConfigFingerprint,
	})
}

// handleSubmit handles POST /command/{type}.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	t, err := command.ParseType(chi.URLParam(r, "type"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cmd := s.sched.Submit(t)
	if cmd == nil {
		// Queue at bound. Backpressure, not an error.
		s.writeJSON(w, http.StatusAccepted, SubmitResponse{
			Accepted: false,
			Type:     string(t),
			Reason:   "queue_full",
		})
		return
	}

	s.writeJSON(w, http.StatusAccepted, SubmitResponse{
		Accepted: true,
		ID:       cmd.ID,
		Type:     string(t),
		Status:   string(cmd.Status()),
	})
}

// handleQueue handles GET /queue, the diagnostic dump.
func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.sched.Snapshot())
}

// handleHead handles GET /queue/head/{type}.
func (s *Server) handleHead(w http.ResponseWriter, r *http.Request) {
	t, err := command.ParseType(chi.URLParam(r, "type"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, HeadResponse{
		Type:  string(t),
		Match: s.sched.HeadIs(t),
	})
}

// handleCancelAll handles DELETE /queue.
func (s *Server) handleCancelAll(w http.ResponseWriter, r *http.Request) {
	s.sched.CancelAll()
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// authMiddleware enforces the configured bearer token. No configured key
// means auth is disabled.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.APIKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		token, err := auth.ExtractBearerToken(r)
		if err != nil {
			s.writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		if !auth.Authenticate(token, s.config.APIKey) {
			s.writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}
