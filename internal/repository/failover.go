package repository

import (
	"context"
	"sync/atomic"
	"time"

	"roomcal/internal/domain"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverSnapshotCache reads and writes the primary cache until it fails,
// then serves from the fallback and retries the primary once a minute.
type FailoverSnapshotCache struct {
	primary   domain.SnapshotCache
	fallback  domain.SnapshotCache
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverSnapshotCache(primary, fallback domain.SnapshotCache, logger *zerolog.Logger) *FailoverSnapshotCache {
	return &FailoverSnapshotCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverSnapshotCache) markDown(err error) {
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("Primary snapshot cache failed, falling back to memory")
	}
	r.lastCheck.Store(time.Now().UnixNano())
}

// usePrimary reports whether the primary should be tried for this call.
func (r *FailoverSnapshotCache) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	return time.Since(time.Unix(0, r.lastCheck.Load())) > recoveryInterval
}

func (r *FailoverSnapshotCache) recovered() {
	if r.isDown.Swap(false) {
		r.logger.Info().Msg("Primary snapshot cache recovered")
	}
}

func (r *FailoverSnapshotCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if r.usePrimary() {
		val, ok, err := r.primary.Get(ctx, key)
		if err == nil {
			r.recovered()
			return val, ok, nil
		}
		r.markDown(err)
	}

	return r.fallback.Get(ctx, key)
}

func (r *FailoverSnapshotCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if r.usePrimary() {
		err := r.primary.Set(ctx, key, value, ttl)
		if err == nil {
			r.recovered()
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.Set(ctx, key, value, ttl)
}

func (r *FailoverSnapshotCache) Delete(ctx context.Context, key string) error {
	// Both sides may hold the key after a failover.
	_ = r.fallback.Delete(ctx, key)
	if r.usePrimary() {
		if err := r.primary.Delete(ctx, key); err != nil {
			r.markDown(err)
		}
	}
	return nil
}

// Ping reports the primary's health; the fallback is always reachable.
func (r *FailoverSnapshotCache) Ping(ctx context.Context) error {
	return r.primary.Ping(ctx)
}

// Degraded reports whether the fallback is currently serving.
func (r *FailoverSnapshotCache) Degraded() bool {
	return r.isDown.Load()
}
