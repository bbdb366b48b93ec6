package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/fluxdna/timegate/internal/core"
)

// RESTConfig configures the stateless HTTP backend (an Upstash-style Redis
// REST gateway).
type RESTConfig struct {
	URL     string        `mapstructure:"url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

var _ core.KV = (*REST)(nil)

// REST is the durable counter store over stateless HTTP calls. Single-key
// commands map onto the gateway's path form (/get/<key>, /set/<key>); the
// compare-and-swap for Update is a single EVAL command posted to the root,
// since a stateless transport has no WATCH/MULTI to lean on.
//
// The observable semantics are identical to the Redis backend; picking one
// over the other is a deployment detail.
type REST struct {
	base   string
	token  string
	client *http.Client
}

func NewREST(cfg RESTConfig) (*REST, error) {
	if cfg.URL == "" || cfg.Token == "" {
		return nil, fmt.Errorf("rest store requires url and token")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	base := cfg.URL
	for len(base) > 0 && base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	return &REST{
		base:   base,
		token:  cfg.Token,
		client: &http.Client{Timeout: timeout},
	}, nil
}

// restReply is the gateway's uniform response envelope.
type restReply struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

func (s *REST) do(ctx context.Context, method, path string, body io.Reader) (*restReply, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.base+path, body)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", core.ErrStoreUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, unavailable(err)
	}
	defer func() { _ = resp.Body.Close() }()

	var reply restReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("%w: malformed gateway response: %v", core.ErrStoreUnavailable, err)
	}
	if reply.Error != "" {
		return nil, fmt.Errorf("%w: gateway error: %s", core.ErrStoreUnavailable, reply.Error)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: gateway status %d", core.ErrStoreUnavailable, resp.StatusCode)
	}
	return &reply, nil
}

// command posts a raw command array to the gateway root.
func (s *REST) command(ctx context.Context, args ...any) (*restReply, error) {
	payload, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding command: %v", core.ErrStoreUnavailable, err)
	}
	return s.do(ctx, http.MethodPost, "", bytes.NewReader(payload))
}

func (s *REST) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	path := "/set/" + url.PathEscape(key) + "?PX=" + strconv.FormatInt(ttl.Milliseconds(), 10)
	_, err := s.do(ctx, http.MethodPost, path, bytes.NewReader(value))
	return err
}

func (s *REST) Get(ctx context.Context, key string) ([]byte, error) {
	reply, err := s.do(ctx, http.MethodGet, "/get/"+url.PathEscape(key), nil)
	if err != nil {
		return nil, err
	}
	var val *string
	if err := json.Unmarshal(reply.Result, &val); err != nil {
		return nil, fmt.Errorf("%w: malformed get result: %v", core.ErrStoreUnavailable, err)
	}
	if val == nil {
		return nil, core.ErrNotFoundOrExpired
	}
	return []byte(*val), nil
}

func (s *REST) TTL(ctx context.Context, key string) (time.Duration, error) {
	reply, err := s.do(ctx, http.MethodGet, "/pttl/"+url.PathEscape(key), nil)
	if err != nil {
		return 0, err
	}
	var ms int64
	if err := json.Unmarshal(reply.Result, &ms); err != nil {
		return 0, fmt.Errorf("%w: malformed pttl result: %v", core.ErrStoreUnavailable, err)
	}
	switch {
	case ms == -2:
		return 0, core.ErrNotFoundOrExpired
	case ms < 0:
		return 0, nil
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func (s *REST) Delete(ctx context.Context, key string) error {
	_, err := s.do(ctx, http.MethodPost, "/del/"+url.PathEscape(key), nil)
	return err
}

func (s *REST) Update(ctx context.Context, key string, fn core.UpdateFunc) ([]byte, error) {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		old, err := s.Get(ctx, key)
		if err != nil {
			return nil, err
		}

		next, capTTL, err := fn(old)
		if err != nil {
			return nil, err
		}

		reply, err := s.command(ctx, "EVAL", casScript, "1", key,
			string(old), string(next), strconv.FormatInt(capTTL.Milliseconds(), 10))
		if err != nil {
			return nil, err
		}
		var res int
		if err := json.Unmarshal(reply.Result, &res); err != nil {
			return nil, fmt.Errorf("%w: malformed eval result: %v", core.ErrStoreUnavailable, err)
		}
		switch res {
		case casOK:
			return next, nil
		case casMissing:
			return nil, core.ErrNotFoundOrExpired
		case casConflict:
			continue
		}
	}
	return nil, fmt.Errorf("%w: update contention on %q not resolved after %d attempts",
		core.ErrStoreUnavailable, key, maxCASAttempts)
}

func (s *REST) Ping(ctx context.Context) error {
	_, err := s.do(ctx, http.MethodGet, "/ping", nil)
	return err
}

func (s *REST) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
