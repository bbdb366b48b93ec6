package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fluxdna/timegate/internal/audit"
	"github.com/fluxdna/timegate/internal/core"
	"github.com/fluxdna/timegate/internal/policy"
)

// KeyPrefix namespaces token records in the shared store.
const KeyPrefix = "access_token:"

// Config holds the service-level knobs.
type Config struct {
	// BaseURL prefixes the holder-facing link URL (e.g. "https://app.example.com").
	BaseURL string

	// AuditRetention caps how long a record survives in a terminal state
	// before the store evicts it. Terminal transitions shorten the record's
	// TTL to at most this window; they never extend it.
	AuditRetention time.Duration
}

// Service implements the access token lifecycle. All state lives in the
// shared store; the service itself holds nothing a concurrent instance
// could disagree about.
type Service struct {
	kv       core.KV
	auditor  core.Auditor
	policies *policy.Engine
	cfg      Config
	now      func() time.Time
}

func NewService(kv core.KV, auditor core.Auditor, policies *policy.Engine, cfg Config) *Service {
	if auditor == nil {
		auditor = noopAuditor{}
	}
	if cfg.AuditRetention <= 0 {
		cfg.AuditRetention = time.Hour
	}
	return &Service{
		kv:       kv,
		auditor:  auditor,
		policies: policies,
		cfg:      cfg,
		now:      time.Now,
	}
}

func storageKey(tokenID string) string {
	return KeyPrefix + tokenID
}

// Issue mints a new token bound to a subject and quota and writes it to the
// store with its full TTL.
func (s *Service) Issue(ctx context.Context, req IssueRequest) (*IssueResponse, error) {
	logger := log.Ctx(ctx)
	reqID, _ := ctx.Value("correlation_id").(string)

	entry := core.AuditEntry{
		ID:     reqID,
		Time:   s.now(),
		Action: "link.issue",
		Subject: &core.SubjectRef{
			UserID:    req.UserID,
			SessionID: req.SessionID,
		},
		LinkKind: req.LinkKind,
	}
	defer func() {
		if err := s.auditor.Log(entry); err != nil {
			logger.Error().Err(err).Msg("failed to write audit log entry for link issuance")
		}
	}()

	if req.MaxClicks < 1 {
		entry.Error = "invalid max_clicks"
		return nil, fmt.Errorf("%w: max_clicks must be >= 1, got %d", core.ErrInvalidQuota, req.MaxClicks)
	}
	if req.TTL <= 0 {
		entry.Error = "invalid ttl"
		return nil, fmt.Errorf("%w: ttl must be positive, got %s", core.ErrInvalidQuota, req.TTL)
	}

	if s.policies != nil {
		err := s.policies.Evaluate(policy.Request{
			UserID:    req.UserID,
			SessionID: req.SessionID,
			LinkKind:  req.LinkKind,
			MaxClicks: req.MaxClicks,
			TTLHours:  req.TTL.Hours(),
		})
		if err != nil {
			entry.Error = err.Error()
			return nil, err
		}
	}

	actor := req.Actor
	if actor == "" {
		actor = core.ActorOwner
	}

	tokenID := uuid.NewString()
	now := s.now()
	rec := &core.AccessToken{
		TokenID: tokenID,
		Subject: core.SubjectRef{
			UserID:    req.UserID,
			SessionID: req.SessionID,
		},
		LinkKind:      req.LinkKind,
		MaxClicks:     req.MaxClicks,
		CurrentClicks: 0,
		CreatedAt:     now,
		ExpiresAt:     now.Add(req.TTL),
		State:         core.StateActive,
	}
	rec.Append(core.AuditIssued, actor, now)

	value, err := core.EncodeToken(rec)
	if err != nil {
		entry.Error = err.Error()
		return nil, err
	}
	if err := s.kv.Put(ctx, storageKey(tokenID), value, req.TTL); err != nil {
		entry.Error = "store write failed"
		return nil, err
	}

	entry.TokenFingerprint = audit.Fingerprint(tokenID)
	entry.Granted = true

	logger.Info().
		Str("fingerprint", entry.TokenFingerprint).
		Str("link_kind", req.LinkKind).
		Int("max_clicks", req.MaxClicks).
		Time("expires_at", rec.ExpiresAt).
		Msg("link issued")

	return &IssueResponse{
		TokenID:   tokenID,
		URL:       fmt.Sprintf("%s/access/%s", s.cfg.BaseURL, tokenID),
		ExpiresAt: rec.ExpiresAt,
		MaxClicks: req.MaxClicks,
	}, nil
}

// Consume validates the token and spends one click in a single atomic
// transform over the stored record. Under K racing calls with M clicks
// left, exactly min(K, M) succeed; current_clicks never passes max_clicks,
// not even transiently, because no intermediate value is ever written.
//
// The record's stored TTL is preserved across a successful consume except
// on the exhausting click, which caps it at the audit-retention window.
func (s *Service) Consume(ctx context.Context, tokenID string) (*AccessResult, error) {
	logger := log.Ctx(ctx)
	reqID, _ := ctx.Value("correlation_id").(string)

	entry := core.AuditEntry{
		ID:               reqID,
		Time:             s.now(),
		Action:           "link.access",
		TokenFingerprint: audit.Fingerprint(tokenID),
	}
	defer func() {
		if err := s.auditor.Log(entry); err != nil {
			logger.Error().Err(err).Msg("failed to write audit log entry for link access")
		}
	}()

	var (
		result *AccessResult
		denied *core.DeniedError
	)
	now := s.now()

	_, err := s.kv.Update(ctx, storageKey(tokenID), func(old []byte) ([]byte, time.Duration, error) {
		// reset captured state, the CAS loop may run this more than once
		result, denied = nil, nil

		rec, err := core.DecodeToken(old)
		if err != nil {
			return nil, 0, err
		}

		// expiry wins over remaining quota, even if the store has not
		// physically evicted the record yet
		if rec.ExpiredAt(now) {
			return nil, 0, core.ErrNotFoundOrExpired
		}

		if rec.State != core.StateActive {
			denied = core.DeniedDeactivated(rec.DeactivationReason)
			return nil, 0, core.ErrUpdateAborted
		}

		// guard against a stale record that should have transitioned
		// already: deny, but persist the missing transition
		if rec.CurrentClicks >= rec.MaxClicks {
			rec.State = core.StateExhausted
			rec.DeactivationReason = core.ReasonMaxClicks
			denied = core.DeniedMaxClicks(rec.MaxClicks)
			next, encErr := core.EncodeToken(rec)
			if encErr != nil {
				return nil, 0, encErr
			}
			return next, s.cfg.AuditRetention, nil
		}

		rec.CurrentClicks++
		rec.LastAccessed = &now
		var capTTL time.Duration
		if rec.CurrentClicks == rec.MaxClicks {
			rec.State = core.StateExhausted
			rec.DeactivationReason = core.ReasonMaxClicks
			capTTL = s.cfg.AuditRetention
		}
		rec.Append(core.AuditConsumed, core.ActorHolder, now)

		remaining := rec.ClicksRemaining()
		result = &AccessResult{
			Subject:         rec.Subject,
			LinkKind:        rec.LinkKind,
			ClicksRemaining: remaining,
			TTLRemaining:    rec.ExpiresAt.Sub(now),
			ExpiresAt:       rec.ExpiresAt,
			Warning:         remaining <= 1,
		}
		entry.Subject = &rec.Subject
		entry.LinkKind = rec.LinkKind

		next, encErr := core.EncodeToken(rec)
		if encErr != nil {
			return nil, 0, encErr
		}
		return next, capTTL, nil
	})

	switch {
	case denied != nil:
		// covers both the aborted path (already terminal) and the stale
		// exhaustion transition, which does write
		entry.Reason = denied.Reason
		return nil, denied
	case err == nil:
		entry.Granted = true
		logger.Info().
			Str("fingerprint", entry.TokenFingerprint).
			Int("clicks_remaining", result.ClicksRemaining).
			Bool("warning", result.Warning).
			Msg("link access granted")
		return result, nil
	case errors.Is(err, core.ErrNotFoundOrExpired):
		entry.Reason = core.ReasonExpired
		return nil, core.DeniedExpired()
	case errors.Is(err, core.ErrCorruptRecord):
		// fail closed: a record we cannot read grants nothing
		logger.Error().Err(err).Str("fingerprint", entry.TokenFingerprint).Msg("corrupt token record")
		entry.Reason = core.ReasonExpired
		entry.Error = "corrupt record"
		return nil, core.DeniedExpired()
	default:
		entry.Error = err.Error()
		return nil, err
	}
}

// Peek reports the token's state without mutating anything. It may be
// called any number of times without spending quota; the result may be
// stale by the time it is used, which is fine because it grants nothing.
func (s *Service) Peek(ctx context.Context, tokenID string) (*Status, error) {
	logger := log.Ctx(ctx)
	now := s.now()

	value, err := s.kv.Get(ctx, storageKey(tokenID))
	switch {
	case errors.Is(err, core.ErrNotFoundOrExpired):
		return &Status{Valid: false, Reason: core.ReasonExpired}, nil
	case err != nil:
		return nil, err
	}

	rec, err := core.DecodeToken(value)
	if err != nil {
		logger.Error().Err(err).Str("fingerprint", audit.Fingerprint(tokenID)).Msg("corrupt token record")
		return &Status{Valid: false, Reason: core.ReasonExpired}, nil
	}

	st := &Status{
		State:           rec.State,
		ClicksRemaining: rec.ClicksRemaining(),
		TTLRemaining:    rec.ExpiresAt.Sub(now),
		ExpiresAt:       rec.ExpiresAt,
	}
	switch {
	case rec.ExpiredAt(now):
		st.Valid = false
		st.Reason = core.ReasonExpired
		st.TTLRemaining = 0
	case rec.State != core.StateActive:
		st.Valid = false
		st.Reason = rec.DeactivationReason
	default:
		st.Valid = true
	}
	return st, nil
}

// Trail returns the token's embedded audit trail, read-only. Exposed for
// non-repudiation; never used to reconstruct permission state.
func (s *Service) Trail(ctx context.Context, tokenID string) ([]core.AuditEvent, error) {
	value, err := s.kv.Get(ctx, storageKey(tokenID))
	if err != nil {
		return nil, err
	}
	rec, err := core.DecodeToken(value)
	if err != nil {
		return nil, err
	}
	return rec.AuditLog, nil
}

// Revoke transitions an active token to revoked. Idempotent on terminal
// records: revoking an exhausted or already-revoked token reports the
// existing terminal state instead of failing, since the desired end state
// (inaccessible) already holds. The residual TTL is shortened to the
// audit-retention window, keeping the record inspectable for a while.
func (s *Service) Revoke(ctx context.Context, tokenID, reason, actor string) (*RevokeResult, error) {
	logger := log.Ctx(ctx)
	reqID, _ := ctx.Value("correlation_id").(string)

	if reason == "" {
		reason = core.DefaultRevokeReason
	}
	if actor == "" {
		actor = core.ActorOperator
	}

	entry := core.AuditEntry{
		ID:               reqID,
		Time:             s.now(),
		Action:           "link.revoke",
		TokenFingerprint: audit.Fingerprint(tokenID),
		Reason:           reason,
	}
	defer func() {
		if err := s.auditor.Log(entry); err != nil {
			logger.Error().Err(err).Msg("failed to write audit log entry for link revocation")
		}
	}()

	var res *RevokeResult
	now := s.now()

	_, err := s.kv.Update(ctx, storageKey(tokenID), func(old []byte) ([]byte, time.Duration, error) {
		res = nil

		rec, err := core.DecodeToken(old)
		if err != nil {
			return nil, 0, err
		}
		if rec.ExpiredAt(now) {
			return nil, 0, core.ErrNotFoundOrExpired
		}
		if rec.State != core.StateActive {
			res = &RevokeResult{
				State:           rec.State,
				Reason:          rec.DeactivationReason,
				AlreadyTerminal: true,
			}
			return nil, 0, core.ErrUpdateAborted
		}

		rec.State = core.StateRevoked
		rec.DeactivationReason = reason
		rec.Append(core.AuditRevoked, actor, now)

		res = &RevokeResult{State: core.StateRevoked, Reason: reason}
		next, encErr := core.EncodeToken(rec)
		if encErr != nil {
			return nil, 0, encErr
		}
		return next, s.cfg.AuditRetention, nil
	})

	switch {
	case res != nil && res.AlreadyTerminal:
		entry.Granted = true
		return res, nil
	case err == nil:
		entry.Granted = true
		logger.Info().
			Str("fingerprint", entry.TokenFingerprint).
			Str("reason", reason).
			Msg("link revoked")
		return res, nil
	case errors.Is(err, core.ErrCorruptRecord):
		logger.Error().Err(err).Str("fingerprint", entry.TokenFingerprint).Msg("corrupt token record")
		entry.Error = "corrupt record"
		return nil, core.ErrNotFoundOrExpired
	default:
		entry.Error = err.Error()
		return nil, err
	}
}

// Ping reports whether the backing store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.kv.Ping(ctx)
}

type noopAuditor struct{}

func (noopAuditor) Log(core.AuditEntry) error { return nil }
func (noopAuditor) Close() error              { return nil }
