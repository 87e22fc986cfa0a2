package runner

import (
	"context"
	"fmt"
	"sync"
	"time"
	"trade_guard/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// удаляем ключ, только если он всё ещё наш
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocks: лок на символ между репликами: SET NX PX с токеном.
// TTL страхует от упавшей реплики и должен быть больше худшего времени Execute.
type RedisLocks struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

func NewRedisLocks(client redis.UniversalClient, ttl time.Duration) *RedisLocks {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisLocks{client: client, ttl: ttl, prefix: "trade_guard:lock:"}
}

func (r *RedisLocks) TryLock(ctx context.Context, symbol string) (func(), bool, error) {
	key := r.prefix + symbol
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, r.client, []string{key}, token).Err(); err != nil {
				logger.Error("[LOCK] release %s: %v", key, err)
			}
		})
	}
	return release, true, nil
}

var _ SymbolLocker = (*RedisLocks)(nil)
