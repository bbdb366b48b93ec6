package store

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/fluxdna/timegate/internal/core"
)

// Backend type names as used in config.
const (
	TypeRedis  = "redis"
	TypeREST   = "rest"
	TypeMemory = "memory"
)

// Build constructs the configured backend from its type name and the raw
// config map (the remaining inline YAML fields of the store section).
// Which backend runs behind the KV is an operational choice only; the gate
// behaves identically on all of them.
func Build(typ string, raw map[string]any) (core.KV, error) {
	decode := func(dest any) error {
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:     dest,
			DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
		})
		if err != nil {
			return err
		}
		return dec.Decode(raw)
	}

	switch typ {
	case TypeRedis:
		var cfg RedisConfig
		if err := decode(&cfg); err != nil {
			return nil, fmt.Errorf("decoding redis store config: %w", err)
		}
		return NewRedis(cfg)
	case TypeREST:
		var cfg RESTConfig
		if err := decode(&cfg); err != nil {
			return nil, fmt.Errorf("decoding rest store config: %w", err)
		}
		return NewREST(cfg)
	case TypeMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store type %q", typ)
	}
}
