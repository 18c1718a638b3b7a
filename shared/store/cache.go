package store

import (
	"context"
	"sync"

	"github.com/go-redis/redis/v8"
)

// Cache is the local tier of the store. It holds the last known JSON
// encoding of each record, keyed by collection and id.
type Cache interface {
	Put(ctx context.Context, collection, id string, payload []byte) error
	Remove(ctx context.Context, collection, id string) error
	Get(ctx context.Context, collection, id string) ([]byte, bool, error)
	All(ctx context.Context, collection string) ([][]byte, error)
	// Replace swaps the whole collection for a fresh snapshot.
	Replace(ctx context.Context, collection string, payloads map[string][]byte) error
}

// MemoryCache is a process-local Cache
type MemoryCache struct {
	mu          sync.RWMutex
	collections map[string]map[string][]byte
}

// NewMemoryCache returns an empty MemoryCache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{collections: make(map[string]map[string][]byte)}
}

func (m *MemoryCache) Put(_ context.Context, collection, id string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	records, ok := m.collections[collection]
	if !ok {
		records = make(map[string][]byte)
		m.collections[collection] = records
	}
	records[id] = append([]byte(nil), payload...)
	return nil
}

func (m *MemoryCache) Remove(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections[collection], id)
	return nil
}

func (m *MemoryCache) Get(_ context.Context, collection, id string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payload, ok := m.collections[collection][id]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), payload...), true, nil
}

func (m *MemoryCache) All(_ context.Context, collection string) ([][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([][]byte, 0, len(m.collections[collection]))
	for _, payload := range m.collections[collection] {
		out = append(out, append([]byte(nil), payload...))
	}
	return out, nil
}

func (m *MemoryCache) Replace(_ context.Context, collection string, payloads map[string][]byte) error {
	records := make(map[string][]byte, len(payloads))
	for id, payload := range payloads {
		records[id] = append([]byte(nil), payload...)
	}
	m.mu.Lock()
	m.collections[collection] = records
	m.mu.Unlock()
	return nil
}

// RedisCache keeps one Redis hash per collection, named <prefix>:<collection>.
type RedisCache struct {
	client redis.Cmdable
	prefix string
}

// NewRedisCache returns a Cache backed by client
func NewRedisCache(client redis.Cmdable, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

func (r *RedisCache) key(collection string) string {
	return r.prefix + ":" + collection
}

func (r *RedisCache) Put(ctx context.Context, collection, id string, payload []byte) error {
	return r.client.HSet(ctx, r.key(collection), id, payload).Err()
}

func (r *RedisCache) Remove(ctx context.Context, collection, id string) error {
	return r.client.HDel(ctx, r.key(collection), id).Err()
}

func (r *RedisCache) Get(ctx context.Context, collection, id string) ([]byte, bool, error) {
	payload, err := r.client.HGet(ctx, r.key(collection), id).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

func (r *RedisCache) All(ctx context.Context, collection string) ([][]byte, error) {
	records, err := r.client.HGetAll(ctx, r.key(collection)).Result()
	if err != nil {
		return nil, err
	}
	out := make([][]byte, 0, len(records))
	for _, payload := range records {
		out = append(out, []byte(payload))
	}
	return out, nil
}

func (r *RedisCache) Replace(ctx context.Context, collection string, payloads map[string][]byte) error {
	key := r.key(collection)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(payloads) == 0 {
			return nil
		}
		values := make(map[string]interface{}, len(payloads))
		for id, payload := range payloads {
			values[id] = payload
		}
		pipe.HSet(ctx, key, values)
		return nil
	})
	return err
}
