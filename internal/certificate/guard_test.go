package certificate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pot-code/course-certificate/internal/infrastructure/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memKV struct {
	mu   sync.Mutex
	data map[string]string
}

var _ driver.KeyValueDB = &memKV{}

func newMemKV() *memKV {
	return &memKV{data: map[string]string{}}
}

func (m *memKV) SetEX(ctx context.Context, key, value string, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memKV) SetNX(ctx context.Context, key, value string, expiration time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value
	return true, nil
}

func (m *memKV) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", driver.ErrKeyNotFound
	}
	return v, nil
}

func (m *memKV) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

func (m *memKV) Del(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memKV) DelIfValue(ctx context.Context, key, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; !ok || v != value {
		return false, nil
	}
	delete(m.data, key)
	return true, nil
}

// expire drops key as if its TTL ran out
func (m *memKV) expire(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
}

func (m *memKV) Ping(ctx context.Context) error {
	return nil
}

func TestKVIssueGuardExclusive(t *testing.T) {
	guard := NewKVIssueGuard(newMemKV(), time.Minute)
	ctx := context.Background()

	release, held, err := guard.Acquire(ctx, "acc-1")
	require.NoError(t, err)
	assert.True(t, held)

	_, held, err = guard.Acquire(ctx, "acc-1")
	require.NoError(t, err)
	assert.False(t, held)

	_, held, err = guard.Acquire(ctx, "acc-2")
	require.NoError(t, err)
	assert.True(t, held)

	release()
	_, held, err = guard.Acquire(ctx, "acc-1")
	require.NoError(t, err)
	assert.True(t, held)
}

func TestKVIssueGuardStaleReleaseKeepsNewHolder(t *testing.T) {
	kv := newMemKV()
	guard := NewKVIssueGuard(kv, time.Minute)
	ctx := context.Background()

	staleRelease, held, err := guard.Acquire(ctx, "acc-1")
	require.NoError(t, err)
	require.True(t, held)

	kv.expire(guardKeyPrefix + "acc-1")
	release, held, err := guard.Acquire(ctx, "acc-1")
	require.NoError(t, err)
	require.True(t, held)

	staleRelease()
	_, held, err = guard.Acquire(ctx, "acc-1")
	require.NoError(t, err)
	assert.False(t, held, "stale release removed the current holder's guard")

	release()
	_, held, err = guard.Acquire(ctx, "acc-1")
	require.NoError(t, err)
	assert.True(t, held)
}
