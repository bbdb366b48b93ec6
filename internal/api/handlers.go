package api

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fluxdna/timegate/internal/api/presenter"
	"github.com/fluxdna/timegate/internal/buildinfo"
)

// handleHealth pings the counter store; a gate that cannot reach its store
// cannot grant anything and should be taken out of rotation.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.gate.Ping(r.Context()); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("health check failed")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("store unreachable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleAbout responds with service information including version and commit hash.
func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	presenter.JSON(w, r, buildinfo.GetBuildInfo(), http.StatusOK)
}

func DecodePayload(r *http.Request, dest any, allowEmpty bool) error {
	switch r.Header.Get("Content-Type") {
	case "application/json", "":
		// strict encoding for JSON
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(dest); err != nil {
			if !errors.Is(err, io.EOF) || !allowEmpty {
				return err
			}
		}
		// ensure there's no extra data
		if dec.More() {
			return errors.New("extra data in request body")
		}
		return nil
	default:
		return errors.New("unsupported content type")
	}
}

// ttlHours renders a remaining lifetime the way holders see it: hours with
// one decimal, matching the issued "24 hours" framing.
func ttlHours(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return math.Round(d.Hours()*10) / 10
}
