package cache

import (
	"context"

	"go.uber.org/zap"
)

// Tiered consults Fast before Slow. Slow may be nil.
type Tiered struct {
	Fast ModuleCache
	Slow ModuleCache
}

var _ ModuleCache = (*Tiered)(nil)

// NewTiered creates a two-level cache.
func NewTiered(fast, slow ModuleCache) *Tiered {
	return &Tiered{Fast: fast, Slow: slow}
}

// Lookup implements ModuleCache. Slow-tier errors are logged and reported as
// a miss.
func (t *Tiered) Lookup(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := t.Fast.Lookup(ctx, key)
	if err != nil || ok || t.Slow == nil {
		return data, ok, err
	}

	data, ok, err = t.Slow.Lookup(ctx, key)
	if err != nil {
		Logger().Warn("persistent cache lookup failed", zap.String("key", key), zap.Error(err))
		return nil, false, nil
	}
	if !ok {
		return nil, false, nil
	}
	if err := t.Fast.Save(ctx, key, data); err != nil {
		Logger().Warn("cache fill failed", zap.String("key", key), zap.Error(err))
	}
	return data, true, nil
}

// Save implements ModuleCache. The entry is always stored in Fast; a Slow
// failure is logged and not returned.
func (t *Tiered) Save(ctx context.Context, key string, data []byte) error {
	if err := t.Fast.Save(ctx, key, data); err != nil {
		return err
	}
	if t.Slow == nil {
		return nil
	}
	if err := t.Slow.Save(ctx, key, data); err != nil {
		Logger().Warn("persistent cache save failed", zap.String("key", key), zap.Error(err))
	}
	return nil
}
