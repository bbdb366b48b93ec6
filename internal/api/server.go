package api

import (
	"net/http"
	"time"

	"github.com/fluxdna/timegate/internal/api/middleware"
	"github.com/fluxdna/timegate/internal/core"
	"github.com/fluxdna/timegate/internal/gate"
)

// Defaults apply when an issue request omits quota or lifetime.
type Defaults struct {
	MaxClicks int
	TTL       time.Duration
}

type Server struct {
	gate     *gate.Service
	auditor  core.Auditor
	defaults Defaults
}

func NewServer(svc *gate.Service, auditor core.Auditor, defaults Defaults) *Server {
	if defaults.MaxClicks < 1 {
		defaults.MaxClicks = 3
	}
	if defaults.TTL <= 0 {
		defaults.TTL = 24 * time.Hour
	}
	return &Server{
		gate:     svc,
		auditor:  auditor,
		defaults: defaults,
	}
}

func (s *Server) Routes(signingKey []byte) http.Handler {
	mux := http.NewServeMux()

	// public routes
	mux.HandleFunc("GET "+HealthCheckRoute, s.handleHealth)
	mux.HandleFunc("GET "+AboutRoute, s.handleAbout)

	// holder-facing routes; possession of the token is the credential
	mux.HandleFunc("GET "+AccessRoute, s.handleAccess)
	mux.HandleFunc("GET "+StatusRoute, s.handleStatus)

	// operator routes
	operator := middleware.OperatorAuth(signingKey)
	mux.Handle("POST "+IssueLinkRoute, operator(http.HandlerFunc(s.handleIssue)))
	mux.Handle("POST "+RevokeRoute, operator(http.HandlerFunc(s.handleRevoke)))
	mux.Handle("GET "+TrailRoute, operator(http.HandlerFunc(s.handleTrail)))
	mux.Handle("GET "+ListAuditsRoute, operator(http.HandlerFunc(s.handleAdminAudits)))

	return middleware.RecoverMiddleware(
		middleware.CorrelationIDMiddleware(
			middleware.LoggingMiddleware(
				mux)))
}
