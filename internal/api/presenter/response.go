package presenter

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/fluxdna/timegate/internal/core"
	"github.com/fluxdna/timegate/internal/policy"
)

type ErrorResponse struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlation_id"`
}

// DeniedResponse is the body of a 410 Gone: the link is terminally dead for
// the holder. Reason carries the operator taxonomy; the collaborator layer
// decides whether the holder gets more than Message.
type DeniedResponse struct {
	Reason        string `json:"reason"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

func JSON(w http.ResponseWriter, r *http.Request, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to write json response")
	}
}

func Error(w http.ResponseWriter, r *http.Request, msg string, status int) {
	correlationID, _ := r.Context().Value("correlation_id").(string)
	resp := ErrorResponse{
		Error:         msg,
		CorrelationID: correlationID,
	}
	JSON(w, r, resp, status)
}

func Denied(w http.ResponseWriter, r *http.Request, denied *core.DeniedError) {
	correlationID, _ := r.Context().Value("correlation_id").(string)
	JSON(w, r, DeniedResponse{
		Reason:        denied.Reason,
		Message:       denied.Message,
		CorrelationID: correlationID,
	}, http.StatusGone)
}

// Err maps a gate error onto the external taxonomy: denials become 410,
// bad issuance parameters 400, policy refusals 403, a dead store 503
// (retryable, unlike 410).
func Err(w http.ResponseWriter, r *http.Request, err error, short string) {
	var denied *core.DeniedError
	if errors.As(err, &denied) {
		Denied(w, r, denied)
		return
	}

	status := http.StatusBadRequest // generic default status
	switch {
	case errors.Is(err, core.ErrNotFoundOrExpired):
		Denied(w, r, core.DeniedExpired())
		return
	case errors.Is(err, core.ErrInvalidQuota):
		status = http.StatusBadRequest
	case errors.Is(err, policy.ErrDenied):
		status = http.StatusForbidden
	case errors.Is(err, core.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	}
	Error(w, r, short+": "+err.Error(), status)
}
