package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/skyroof/safetymonitor/internal/safety"
)

// DecisionResponse is the body of GET .../decision.
type DecisionResponse struct {
	IsSafe        bool      `json:"isSafe"`
	Reason        string    `json:"reason"`
	Description   string    `json:"description"`
	SolarAltitude *float64  `json:"solarAltitude"`
	RoofName      string    `json:"roofName,omitempty"`
	EvaluatedAt   time.Time `json:"evaluatedAt"`
}

// overrideRequest uses pointers so a missing "enabled" can be rejected
// rather than read as false.
type overrideRequest struct {
	Enabled *bool `json:"enabled"`
	Value   *bool `json:"value"`
}

func (s *Server) handleSolarStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.SolarStatus(r.Context()))
}

func (s *Server) handleLockoutPeriod(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.LockoutPeriod(r.Context()))
}

func (s *Server) handleRoofStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.RoofStatus(r.Context()))
}

func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	d := s.service.Evaluate(r.Context())
	writeJSON(w, http.StatusOK, DecisionResponse{
		IsSafe:        d.IsSafe,
		Reason:        string(d.Reason),
		Description:   d.Reason.Description(),
		SolarAltitude: d.SolarAltitude,
		RoofName:      d.RoofName,
		EvaluatedAt:   d.EvaluatedAt,
	})
}

func (s *Server) handleGetOverride(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Override(r.Context()))
}

func (s *Server) handleSetOverride(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Enabled == nil {
		writeBadRequest(w, "enabled is required")
		return
	}

	o := safety.Override{Enabled: *req.Enabled}
	if req.Value != nil {
		o.Value = *req.Value
	}

	if err := s.service.SetOverride(r.Context(), o); err != nil {
		writeMutationError(w, err)
		return
	}
	s.auditMutation(r, "override updated", "enabled", o.Enabled, "value", o.Value)
	writeJSON(w, http.StatusOK, s.service.Override(r.Context()))
}

// auditMutation logs who changed operator state, when a token was presented.
func (s *Server) auditMutation(r *http.Request, msg string, args ...any) {
	if claims, ok := claimsFromContext(r.Context()); ok {
		args = append(args, "subject", claims.Subject)
	}
	args = append(args, "request_id", r.Context().Value(ctxKeyRequestID))
	s.logger.Info(msg, args...)
}
