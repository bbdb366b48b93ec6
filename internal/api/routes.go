package api

const (
	HealthCheckRoute = "/healthz"
	AboutRoute       = "/icanhaztimegate"

	IssueLinkRoute = "/v1/links"
	AccessRoute    = "/v1/access/{token}"
	StatusRoute    = "/v1/links/{token}/status"
	RevokeRoute    = "/v1/links/{token}/revoke"
	TrailRoute     = "/v1/links/{token}/audit"

	AuditParent     = "/v1/admin/"
	ListAuditsRoute = AuditParent + "audits"
)
