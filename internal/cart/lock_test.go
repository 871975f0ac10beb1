package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLockStore struct {
	mu     sync.Mutex
	values map[string]string
	setErr error
}

func newFakeLockStore() *fakeLockStore {
	return &fakeLockStore{values: map[string]string{}}
}

func (f *fakeLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return false, f.setErr
	}
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeLockStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeLockStore) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.values, k)
	}
	return nil
}

func (f *fakeLockStore) LockKey(sessionID string) string { return "sfc:lock:cart:" + sessionID }

func TestRedisSessionLockerBusyThenReleased(t *testing.T) {
	store := newFakeLockStore()
	locker, err := NewRedisSessionLocker(store, time.Second, 60*time.Millisecond)
	require.NoError(t, err)

	unlock, err := locker.Lock(context.Background(), "buyer-1")
	require.NoError(t, err)

	_, err = locker.Lock(context.Background(), "buyer-1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	unlock()
	unlock2, err := locker.Lock(context.Background(), "buyer-1")
	require.NoError(t, err)
	unlock2()
	assert.Empty(t, store.values)
}

func TestRedisSessionLockerKeepsForeignOwner(t *testing.T) {
	store := newFakeLockStore()
	locker, err := NewRedisSessionLocker(store, time.Second, time.Second)
	require.NoError(t, err)

	unlock, err := locker.Lock(context.Background(), "buyer-1")
	require.NoError(t, err)

	// lock expired and was taken by another replica
	store.values["sfc:lock:cart:buyer-1"] = "other-owner"
	unlock()
	assert.Equal(t, "other-owner", store.values["sfc:lock:cart:buyer-1"])
}

func TestRedisSessionLockerErrors(t *testing.T) {
	_, err := NewRedisSessionLocker(nil, 0, 0)
	require.Error(t, err)

	store := newFakeLockStore()
	store.setErr = errors.New("connection reset")
	locker, err := NewRedisSessionLocker(store, 0, 0)
	require.NoError(t, err)
	_, err = locker.Lock(context.Background(), "buyer-1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	store.setErr = nil
	store.values["sfc:lock:cart:buyer-1"] = "held"
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = locker.Lock(ctx, "buyer-1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalSessionLockerSerializes(t *testing.T) {
	locker := NewLocalSessionLocker()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), "buyer-1")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
	assert.Empty(t, locker.locks)
}

func TestLocalSessionLockerHonoursContext(t *testing.T) {
	locker := NewLocalSessionLocker()
	unlock, err := locker.Lock(context.Background(), "buyer-1")
	require.NoError(t, err)

	other, err := locker.Lock(context.Background(), "buyer-2")
	require.NoError(t, err)
	other()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "buyer-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock()
	assert.Empty(t, locker.locks)
}
