package service

import (
	"context"
	"sync"
	"time"
)

// UserLocker 按司机串行化处罚升级等临界区
type UserLocker interface {
	// Lock 获取 userID 的锁，返回的 unlock 可重复调用
	Lock(ctx context.Context, userID string) (func(), error)
}

// DistributedLock 跨实例互斥锁，由 *redis.Client 实现
type DistributedLock interface {
	Lock(ctx context.Context, name string, ttl, wait time.Duration) (func(), error)
}

const (
	userLockTTL  = 30 * time.Second
	userLockWait = 10 * time.Second
)

type keyLock struct {
	ch   chan struct{}
	refs int
}

// keyedLocker 进程内按 key 的互斥锁；配置 Redis 时再叠加分布式锁
type keyedLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
	dist  DistributedLock
}

// NewUserLocker 创建按司机加锁器；dist 为 nil 时仅在进程内互斥
func NewUserLocker(dist DistributedLock) UserLocker {
	return &keyedLocker{locks: make(map[string]*keyLock), dist: dist}
}

func (l *keyedLocker) Lock(ctx context.Context, userID string) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[userID]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[userID] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(userID, kl)
		return nil, ctx.Err()
	}

	unlockDist := func() {}
	if l.dist != nil {
		unlock, err := l.dist.Lock(ctx, "sanction:"+userID, userLockTTL, userLockWait)
		if err != nil {
			<-kl.ch
			l.release(userID, kl)
			return nil, err
		}
		unlockDist = unlock
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			unlockDist()
			<-kl.ch
			l.release(userID, kl)
		})
	}, nil
}

func (l *keyedLocker) release(userID string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, userID)
	}
}
