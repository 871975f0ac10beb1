package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
	"github.com/google/uuid"
)

const (
	defaultLockTTL   = 10 * time.Second
	defaultLockWait  = 3 * time.Second
	lockRetryBackoff = 25 * time.Millisecond
)

// SessionLocker serializes mutations of one cart session.
type SessionLocker interface {
	Lock(ctx context.Context, sessionID string) (unlock func(), err error)
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	LockKey(sessionID string) string
}

// RedisSessionLocker implements SessionLocker using Redis SETNX + TTL, so
// every API replica shares the same per-session lock.
type RedisSessionLocker struct {
	client lockStore
	ttl    time.Duration
	wait   time.Duration
}

// NewRedisSessionLocker constructs a Redis-backed session lock.
func NewRedisSessionLocker(client lockStore, ttl, wait time.Duration) (*RedisSessionLocker, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if wait <= 0 {
		wait = defaultLockWait
	}
	return &RedisSessionLocker{client: client, ttl: ttl, wait: wait}, nil
}

// Lock retries until the lock is owned or the wait budget is spent.
func (l *RedisSessionLocker) Lock(ctx context.Context, sessionID string) (func(), error) {
	key := l.client.LockKey(sessionID)
	owner := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, key, owner, l.ttl)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("setnx: %w", err), "acquire cart lock")
		}
		if ok {
			return func() { l.release(context.WithoutCancel(ctx), key, owner) }, nil
		}
		if time.Now().After(deadline) {
			return nil, errCartBusy(sessionID)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryBackoff):
		}
	}
}

// release frees the lock only if the owner value still matches.
func (l *RedisSessionLocker) release(ctx context.Context, key, owner string) {
	value, err := l.client.Get(ctx, key)
	if err != nil || value != owner {
		return
	}
	_ = l.client.Del(ctx, key)
}

// LocalSessionLocker serializes sessions within a single process.
type LocalSessionLocker struct {
	mu    sync.Mutex
	locks map[string]*sessionMutex
}

type sessionMutex struct {
	ch   chan struct{}
	refs int
}

// NewLocalSessionLocker returns an in-process lock.
func NewLocalSessionLocker() *LocalSessionLocker {
	return &LocalSessionLocker{locks: map[string]*sessionMutex{}}
}

func (l *LocalSessionLocker) Lock(ctx context.Context, sessionID string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[sessionID]
	if !ok {
		m = &sessionMutex{ch: make(chan struct{}, 1)}
		l.locks[sessionID] = m
	}
	m.refs++
	l.mu.Unlock()

	select {
	case m.ch <- struct{}{}:
	case <-ctx.Done():
		l.forget(sessionID, m)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-m.ch
			l.forget(sessionID, m)
		})
	}, nil
}

func (l *LocalSessionLocker) forget(sessionID string, m *sessionMutex) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m.refs--
	if m.refs == 0 {
		delete(l.locks, sessionID)
	}
}

func errCartBusy(sessionID string) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "cart is busy, try again").
		WithDetails(map[string]any{"session_id": sessionID})
}
