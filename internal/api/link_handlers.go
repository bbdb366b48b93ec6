package api

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fluxdna/timegate/internal/api/presenter"
	"github.com/fluxdna/timegate/internal/core"
	"github.com/fluxdna/timegate/internal/gate"
)

// IssuePayload is the body of POST /v1/links.
type IssuePayload struct {
	// UserID and SessionID bind the link to its subject. Opaque to the
	// gate; the issuing collaborator resolves them.
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`

	// LinkKind tags the link's purpose (e.g. "results", "document").
	LinkKind string `json:"link_kind"`

	// MaxClicks and TTLHours override the configured defaults when > 0.
	MaxClicks int     `json:"max_clicks"`
	TTLHours  float64 `json:"ttl_hours"`
}

// AccessResponse is the success body of GET /v1/access/{token}.
type AccessResponse struct {
	UserID            string    `json:"user_id"`
	SessionID         string    `json:"session_id"`
	LinkKind          string    `json:"link_kind"`
	ClicksRemaining   int       `json:"clicks_remaining"`
	TTLRemainingHours float64   `json:"ttl_remaining_hours"`
	ExpiresAt         time.Time `json:"expires_at"`
	Warning           bool      `json:"warning"`
}

// StatusResponse is the body of GET /v1/links/{token}/status. Always 200;
// Valid=false covers absent, expired, exhausted and revoked alike.
type StatusResponse struct {
	Valid             bool       `json:"valid"`
	State             core.State `json:"state,omitempty"`
	Reason            string     `json:"reason,omitempty"`
	ClicksRemaining   int        `json:"clicks_remaining"`
	TTLRemainingHours float64    `json:"ttl_remaining_hours"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
}

// RevokePayload is the body of POST /v1/links/{token}/revoke.
type RevokePayload struct {
	Reason string `json:"reason"`
}

type RevokeResponse struct {
	Revoked         bool       `json:"revoked"`
	State           core.State `json:"state"`
	Reason          string     `json:"reason"`
	AlreadyTerminal bool       `json:"already_terminal,omitempty"`
}

// handleIssue processes link issuance requests.
func (s *Server) handleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	var payload IssuePayload
	if err := DecodePayload(r, &payload, false); err != nil {
		logger.Warn().Err(err).Msg("failed to decode issue request payload")
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}
	if payload.UserID == "" || payload.SessionID == "" {
		presenter.Error(w, r, "user_id and session_id are required", http.StatusBadRequest)
		return
	}

	req := gate.IssueRequest{
		UserID:    payload.UserID,
		SessionID: payload.SessionID,
		LinkKind:  payload.LinkKind,
		MaxClicks: payload.MaxClicks,
		TTL:       time.Duration(payload.TTLHours * float64(time.Hour)),
		Actor:     core.ActorOwner,
	}
	if req.LinkKind == "" {
		req.LinkKind = "results"
	}
	if payload.MaxClicks == 0 {
		req.MaxClicks = s.defaults.MaxClicks
	}
	if payload.TTLHours == 0 {
		req.TTL = s.defaults.TTL
	}

	result, err := s.gate.Issue(ctx, req)
	if err != nil {
		logger.Warn().Err(err).Msg("link issuance failed")
		presenter.Err(w, r, err, "link issuance failed")
		return
	}

	presenter.JSON(w, r, result, http.StatusCreated)
}

// handleAccess is the consume path: the only mutating, concurrency-
// sensitive operation. Every hit spends a click or gets a 410.
func (s *Server) handleAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	tokenID := r.PathValue("token")

	result, err := s.gate.Consume(ctx, tokenID)
	if err != nil {
		presenter.Err(w, r, err, "access denied")
		return
	}

	logger.Debug().Int("clicks_remaining", result.ClicksRemaining).Msg("access granted")
	presenter.JSON(w, r, AccessResponse{
		UserID:            result.Subject.UserID,
		SessionID:         result.Subject.SessionID,
		LinkKind:          result.LinkKind,
		ClicksRemaining:   result.ClicksRemaining,
		TTLRemainingHours: ttlHours(result.TTLRemaining),
		ExpiresAt:         result.ExpiresAt,
		Warning:           result.Warning,
	}, http.StatusOK)
}

// handleStatus is the peek path: read-only, never burns a click, and never
// 4xxs for a dead link so status UIs can poll it freely.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tokenID := r.PathValue("token")

	st, err := s.gate.Peek(ctx, tokenID)
	if err != nil {
		presenter.Err(w, r, err, "status check failed")
		return
	}

	resp := StatusResponse{
		Valid:             st.Valid,
		State:             st.State,
		Reason:            st.Reason,
		ClicksRemaining:   st.ClicksRemaining,
		TTLRemainingHours: ttlHours(st.TTLRemaining),
	}
	if !st.ExpiresAt.IsZero() {
		resp.ExpiresAt = &st.ExpiresAt
	}
	presenter.JSON(w, r, resp, http.StatusOK)
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	tokenID := r.PathValue("token")

	var payload RevokePayload
	if err := DecodePayload(r, &payload, true /* allow empty */); err != nil {
		logger.Warn().Err(err).Msg("failed to decode revoke payload")
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}

	result, err := s.gate.Revoke(ctx, tokenID, payload.Reason, core.ActorOperator)
	if err != nil {
		logger.Warn().Err(err).Msg("revoking link failed")
		presenter.Err(w, r, err, "revoking link failed")
		return
	}

	presenter.JSON(w, r, RevokeResponse{
		Revoked:         true,
		State:           result.State,
		Reason:          result.Reason,
		AlreadyTerminal: result.AlreadyTerminal,
	}, http.StatusOK)
}

// handleTrail exposes the record's embedded audit trail for
// non-repudiation. Read-only, operator only.
func (s *Server) handleTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tokenID := r.PathValue("token")

	trail, err := s.gate.Trail(ctx, tokenID)
	if err != nil {
		presenter.Err(w, r, err, "retrieving audit trail failed")
		return
	}
	presenter.JSON(w, r, trail, http.StatusOK)
}
