package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/pawsentry/pawsentry/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the lock only when the caller still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker serializes evaluation for a single pet across engine instances.
// The zero-infrastructure deployment uses the no-op variant; row locks on
// the firing record still keep reservations correct, the eval lock only
// avoids duplicate work.
type Locker interface {
	AcquireEvalLock(ctx context.Context, petID snowflake.ID) (release func(), acquired bool)
}

type noopLocker struct{}

func (noopLocker) AcquireEvalLock(context.Context, snowflake.ID) (func(), bool) {
	return func() {}, true
}

type redisLocker struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func NewLocker(cfg config.Config, log *zap.Logger) Locker {
	if !cfg.Lock.Enabled {
		return noopLocker{}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Lock.RedisAddr,
		Password: cfg.Lock.RedisPassword,
		DB:       cfg.Lock.RedisDB,
	})
	ttl := time.Duration(cfg.Lock.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &redisLocker{
		client: client,
		ttl:    ttl,
		log:    log.Named("ratelimit.locker"),
	}
}

func (l *redisLocker) AcquireEvalLock(ctx context.Context, petID snowflake.ID) (func(), bool) {
	key := fmt.Sprintf("alert:eval:%s", petID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		// Redis being down must not stop evaluation.
		l.log.Warn("eval lock unavailable, proceeding without it",
			zap.String("key", key),
			zap.Error(err),
		)
		return func() {}, true
	}
	if !ok {
		return func() {}, false
	}

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
			l.log.Warn("failed to release eval lock",
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}
	return release, true
}
