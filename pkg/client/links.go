package client

import (
	"context"

	"github.com/fluxdna/timegate/internal/api"
	"github.com/fluxdna/timegate/internal/core"
	"github.com/fluxdna/timegate/internal/gate"
)

// IssueLink mints a new self-destructing link. Requires an operator token.
func (c *Client) IssueLink(ctx context.Context, payload api.IssuePayload) (*gate.IssueResponse, string, error) {
	var result gate.IssueResponse
	correlation, err := c.post(ctx, c.url().
		setPath(api.IssueLinkRoute).
		build(), payload, &result)
	if err != nil {
		return nil, correlation, err
	}
	return &result, correlation, nil
}

// Access consumes one click. A 410 surfaces as a GoneError with the denial
// reason; anything else means the click was not spent.
func (c *Client) Access(ctx context.Context, tokenID string) (*api.AccessResponse, string, error) {
	var result api.AccessResponse
	correlation, err := c.get(ctx, c.url().
		setPath(api.AccessRoute).
		setToken(tokenID).
		build(), &result)
	if err != nil {
		return nil, correlation, err
	}
	return &result, correlation, nil
}

// Status checks a link without spending quota. Always succeeds for a
// reachable server; inspect Valid/Reason on the result.
func (c *Client) Status(ctx context.Context, tokenID string) (*api.StatusResponse, string, error) {
	var result api.StatusResponse
	correlation, err := c.get(ctx, c.url().
		setPath(api.StatusRoute).
		setToken(tokenID).
		build(), &result)
	if err != nil {
		return nil, correlation, err
	}
	return &result, correlation, nil
}

// Revoke terminally deactivates a link. Requires an operator token.
// Idempotent: revoking an already-dead link reports its terminal state.
func (c *Client) Revoke(ctx context.Context, tokenID, reason string) (*api.RevokeResponse, string, error) {
	var result api.RevokeResponse
	correlation, err := c.post(ctx, c.url().
		setPath(api.RevokeRoute).
		setToken(tokenID).
		build(), api.RevokePayload{Reason: reason}, &result)
	if err != nil {
		return nil, correlation, err
	}
	return &result, correlation, nil
}

// AuditTrail fetches the link's embedded audit trail. Requires an operator
// token.
func (c *Client) AuditTrail(ctx context.Context, tokenID string) ([]core.AuditEvent, string, error) {
	var result []core.AuditEvent
	correlation, err := c.get(ctx, c.url().
		setPath(api.TrailRoute).
		setToken(tokenID).
		build(), &result)
	return result, correlation, err
}
