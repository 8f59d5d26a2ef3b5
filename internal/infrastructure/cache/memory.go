package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// DefaultMemoryCapacity bounds the in-process cache when no capacity is given
const DefaultMemoryCapacity = 10_000

// Memory is an in-process cache used when Redis is disabled. Values are
// stored as JSON so callers see the same copy semantics as with Redis.
// Once full, the least recently used entry is evicted.
type Memory struct {
	items *ttlcache.Cache[string, []byte]
}

// NewMemory creates an in-process cache holding DefaultMemoryCapacity entries
func NewMemory() *Memory {
	return NewMemoryWithCapacity(DefaultMemoryCapacity)
}

// NewMemoryWithCapacity creates an in-process cache holding at most capacity
// entries and starts its expiry janitor. Call Close to stop it.
func NewMemoryWithCapacity(capacity uint64) *Memory {
	if capacity == 0 {
		capacity = DefaultMemoryCapacity
	}
	items := ttlcache.New[string, []byte](
		ttlcache.WithCapacity[string, []byte](capacity),
		ttlcache.WithDisableTouchOnHit[string, []byte](),
	)
	go items.Start()
	return &Memory{items: items}
}

// Close stops the expiry janitor
func (m *Memory) Close() {
	m.items.Stop()
}

// Len returns the number of entries, including expired ones not yet collected
func (m *Memory) Len() int {
	return m.items.Len()
}

func (m *Memory) GetJSON(ctx context.Context, key string, dest any) error {
	item := m.items.Get(key)
	if item == nil {
		return ErrMiss
	}
	return json.Unmarshal(item.Value(), dest)
}

// SetJSON stores value under key. A non-positive ttl never expires.
func (m *Memory) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	if ttl <= 0 {
		ttl = ttlcache.NoTTL
	}
	m.items.Set(key, data, ttl)
	return nil
}

func (m *Memory) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		m.items.Delete(k)
	}
	return nil
}
