package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fluxdna/timegate/internal/core"
)

// RedisConfig configures the native-protocol backend. URL takes precedence
// (redis:// / rediss:// form); otherwise Addr + Password + DB are used.
type RedisConfig struct {
	URL      string `mapstructure:"url"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

var _ core.KV = (*Redis)(nil)

// Redis is the durable counter store over the persistent binary protocol.
// Update executes the read-transform-write as a server-side Lua script, so
// a single round of the loop is atomic on the server.
type Redis struct {
	rdb *redis.Client
	cas *redis.Script
}

func NewRedis(cfg RedisConfig) (*Redis, error) {
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
		if cfg.Password != "" {
			opts.Password = cfg.Password
		}
	} else {
		if cfg.Addr == "" {
			return nil, fmt.Errorf("redis store requires url or addr")
		}
		opts = &redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	return &Redis{
		rdb: redis.NewClient(opts),
		cas: redis.NewScript(casScript),
	}, nil
}

func (s *Redis) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ErrNotFoundOrExpired
		}
		return nil, unavailable(err)
	}
	return b, nil
}

func (s *Redis) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := s.rdb.PTTL(ctx, key).Result()
	if err != nil {
		return 0, unavailable(err)
	}
	// go-redis maps the integer replies -2 (missing) and -1 (no expiry)
	// through its millisecond precision.
	if d == -2*time.Millisecond {
		return 0, core.ErrNotFoundOrExpired
	}
	if d < 0 {
		return 0, nil
	}
	return d, nil
}

func (s *Redis) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Redis) Update(ctx context.Context, key string, fn core.UpdateFunc) ([]byte, error) {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		old, err := s.Get(ctx, key)
		if err != nil {
			return nil, err
		}

		next, capTTL, err := fn(old)
		if err != nil {
			return nil, err
		}

		res, err := s.cas.Run(ctx, s.rdb, []string{key}, old, next, capTTL.Milliseconds()).Int()
		if err != nil {
			return nil, unavailable(err)
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

func (s *Redis) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Redis) Close() error {
	return s.rdb.Close()
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
}
