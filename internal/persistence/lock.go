package persistence

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock key only when it still holds our token.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0`

// Mutex is a single-flight lock for a job that must not interleave. It is
// two-layered: a process-local mutex serializes goroutines in this process,
// and redis SETNX with a TTL serializes across processes. Without a redis
// client only the local layer applies, which is sufficient for
// single-process deployments.
//
// The redis token lives behind the local layer: a goroutine can only touch
// it between a successful Acquire and the matching Release, so a holder
// whose TTL expired cannot present a token that a newer holder wrote.
type Mutex struct {
	client *redis.Client
	key    string
	ttl    time.Duration

	local sync.Mutex
	token string
}

// NewMutex creates a mutex for the given key.
func (r *Redis) NewMutex(key string, ttl time.Duration) *Mutex {
	if r == nil || r.Client == nil {
		return &Mutex{key: key, ttl: ttl}
	}
	return &Mutex{client: r.Client, key: key, ttl: ttl}
}

// Acquire attempts to take the lock. It returns false when another holder
// owns it, in this process or elsewhere.
func (m *Mutex) Acquire(ctx context.Context) (bool, error) {
	if !m.local.TryLock() {
		return false, nil
	}
	if m.client == nil {
		return true, nil
	}

	token := uuid.NewString()
	ok, err := m.client.SetNX(ctx, m.key, token, m.ttl).Result()
	if err != nil {
		m.local.Unlock()
		return false, err
	}
	if !ok {
		m.local.Unlock()
		return false, nil
	}
	m.token = token
	return true, nil
}

// Release frees the lock. It must only be called after a successful Acquire.
func (m *Mutex) Release(ctx context.Context) error {
	if m.client == nil {
		m.local.Unlock()
		return nil
	}

	token := m.token
	m.token = ""
	err := m.client.Eval(ctx, releaseScript, []string{m.key}, token).Err()
	m.local.Unlock()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}
