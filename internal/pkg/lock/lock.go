// Package lock - блокировки, которые не дают одной фоновой задаче
// выполняться одновременно в нескольких экземплярах сервиса.
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const keyPrefix = "lock:"

// releaseScript удаляет ключ, только если им все еще владеет этот токен
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// Locker выдает именованные блокировки с TTL
type Locker interface {
	// TryLock пытается взять блокировку. ok=false - блокировку держит кто-то другой.
	TryLock(ctx context.Context, name string, ttl time.Duration) (release func(), ok bool, err error)
}

// Store - команды Redis, нужные для блокировки
type Store interface {
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error)
}

// RedisLocker реализует Locker через SET NX PX
type RedisLocker struct {
	store Store
}

// NewRedisLocker создает блокировку поверх Redis
func NewRedisLocker(store Store) *RedisLocker {
	return &RedisLocker{store: store}
}

// TryLock реализует Locker
func (l *RedisLocker) TryLock(ctx context.Context, name string, ttl time.Duration) (func(), bool, error) {
	key := keyPrefix + name
	token := uuid.NewString()

	ok, err := l.store.SetNX(ctx, key, token, ttl)
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// Отдельный контекст: ctx задачи к этому моменту может быть отменен
		releaseCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_, _ = l.store.Eval(releaseCtx, releaseScript, []string{key}, token)
	}

	return release, true, nil
}

// LocalLocker - блокировка в памяти процесса для запуска без Redis
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]time.Time
	now  func() time.Time
}

// NewLocalLocker создает блокировку в памяти
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{
		held: make(map[string]time.Time),
		now:  time.Now,
	}
}

// TryLock реализует Locker
func (l *LocalLocker) TryLock(_ context.Context, name string, ttl time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if until, ok := l.held[name]; ok && now.Before(until) {
		return nil, false, nil
	}

	until := now.Add(ttl)
	l.held[name] = until

	release := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.held[name] == until {
			delete(l.held, name)
		}
	}

	return release, true, nil
}
