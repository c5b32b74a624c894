package cache

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	ttlcache "github.com/totalcareit/partner-metrics/pkg/cache"
)

// MemoryProvider keeps payloads in process for a single, provider-wide TTL.
type MemoryProvider struct {
	store *ttlcache.TTLCache[[]byte]
}

// NewMemoryProvider creates an in-process Provider. The ttl passed to Set is ignored in
// favour of the provider-wide ttl so every entry follows the same freshness rule.
func NewMemoryProvider(ttl time.Duration, clock clockwork.Clock) *MemoryProvider {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &MemoryProvider{store: ttlcache.NewTTLCache[[]byte](ttl, clock)}
}

// Get returns a copy of the stored payload or ErrCacheMiss.
func (p *MemoryProvider) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	value, ok := p.store.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	return append([]byte(nil), value...), nil
}

// Set stores a copy of value under key.
func (p *MemoryProvider) Set(ctx context.Context, key string, value []byte, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.store.Put(key, append([]byte(nil), value...))
	return nil
}

// Del removes key.
func (p *MemoryProvider) Del(_ context.Context, key string) error {
	p.store.Delete(key)
	return nil
}

// Clear drops every cached payload.
func (p *MemoryProvider) Clear(context.Context) error {
	p.store.Clear()
	return nil
}

// Close is a no-op for the in-process cache.
func (p *MemoryProvider) Close() error { return nil }
