package api

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/fluxdna/timegate/internal/api/presenter"
	"github.com/fluxdna/timegate/internal/core"
)

// handleAdminAudits retrieves recent operator audit entries. Only auditors
// that keep entries in memory support inspection; the file auditor is
// append-only and read with external tooling.
func (s *Server) handleAdminAudits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	reader, ok := s.auditor.(core.AuditReader)
	if !ok {
		presenter.Error(w, r, "configured auditor does not support inspection", http.StatusNotImplemented)
		return
	}

	q := r.URL.Query()
	limitStr := q.Get("limit")

	filterCorrelationID := q.Get("correlation_id")
	filterFingerprint := q.Get("fingerprint")
	filterAction := q.Get("action")

	limit := 50
	if limitStr != "" {
		v, err := strconv.Atoi(limitStr)
		if err != nil || v < 0 {
			logger.Warn().Err(err).Str("limit", limitStr).Msg("invalid limit parameter")
			presenter.Error(w, r, "invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = v
	}

	var entries []core.AuditEntry
	var err error

	if filterCorrelationID != "" || filterFingerprint != "" || filterAction != "" {
		logger.Debug().Msg("applying audit log filters")
		entries, err = reader.Find(func(entry core.AuditEntry) bool {
			if filterCorrelationID != "" && entry.ID != filterCorrelationID {
				return false
			}
			if filterFingerprint != "" && entry.TokenFingerprint != filterFingerprint {
				return false
			}
			if filterAction != "" && entry.Action != filterAction {
				return false
			}
			return true
		}, limit)
	} else {
		logger.Debug().Msg("retrieving recent audit log entries")
		entries, err = reader.GetRecent(limit)
	}

	if err != nil {
		logger.Error().Err(err).Msg("failed to retrieve audit logs")
		presenter.Error(w, r, "failed to retrieve audit logs", http.StatusInternalServerError)
		return
	}

	presenter.JSON(w, r, entries, http.StatusOK)
}
