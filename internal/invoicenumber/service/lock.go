package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/edubill/internal/ratelimit"
)

// TenantLock serializes auto commits for stores that cannot increment atomically.
type TenantLock interface {
	Lock(ctx context.Context, orgID snowflake.ID) (unlock func(), err error)
}

type keyedMutex struct {
	mu    sync.Mutex
	locks map[snowflake.ID]*tenantMutex
}

type tenantMutex struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutex returns an in-process TenantLock. It only protects a single instance.
func NewKeyedMutex() TenantLock {
	return &keyedMutex{locks: make(map[snowflake.ID]*tenantMutex)}
}

func (k *keyedMutex) Lock(ctx context.Context, orgID snowflake.ID) (func(), error) {
	k.mu.Lock()
	m, ok := k.locks[orgID]
	if !ok {
		m = &tenantMutex{ch: make(chan struct{}, 1)}
		k.locks[orgID] = m
	}
	m.refs++
	k.mu.Unlock()

	select {
	case m.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(orgID, m)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-m.ch
			k.release(orgID, m)
		})
	}, nil
}

func (k *keyedMutex) release(orgID snowflake.ID, m *tenantMutex) {
	k.mu.Lock()
	m.refs--
	if m.refs == 0 {
		delete(k.locks, orgID)
	}
	k.mu.Unlock()
}

const keyNumberingLock = "invoice_numbers:lock:%s"

type redisTenantLock struct {
	locker *ratelimit.Locker
	ttl    time.Duration
	wait   time.Duration
}

// NewRedisTenantLock serializes auto commits across API instances through Redis SET NX.
func NewRedisTenantLock(locker *ratelimit.Locker, ttl, wait time.Duration) TenantLock {
	return &redisTenantLock{locker: locker, ttl: ttl, wait: wait}
}

func (r *redisTenantLock) Lock(ctx context.Context, orgID snowflake.ID) (func(), error) {
	key := fmt.Sprintf(keyNumberingLock, orgID.String())
	token, err := r.locker.Acquire(ctx, key, r.ttl, r.wait)
	if err != nil {
		return nil, err
	}
	return func() {
		// The caller's context may already be cancelled; release must still run.
		_ = r.locker.Release(context.Background(), key, token)
	}, nil
}
