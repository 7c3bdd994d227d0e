package cache

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/circobit/fyyur-event-management/pkg/fyyur/metrics"
)

// Load returns the cached value for key, or calls load and caches its result.
// Cache failures are logged and fall through to load.
func Load[T any](ctx context.Context, s Store, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	if _, ok := s.(Noop); ok || s == nil {
		return load()
	}

	var v T
	err := s.Get(ctx, key, &v)
	if err == nil {
		metrics.CacheLookup(key, true)
		return v, nil
	}
	if !errors.Is(err, ErrMiss) {
		log.Warn().Err(err).Str("key", key).Msg("Cache read failed")
	}
	metrics.CacheLookup(key, false)

	v, err = load()
	if err != nil {
		return v, err
	}
	if err := s.Set(ctx, key, v, ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
	return v, nil
}
