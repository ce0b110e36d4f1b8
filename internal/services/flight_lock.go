package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const withdrawalLockKey = "daily-flip:withdrawals:lock"

// FlightLock is a redis lease that keeps withdrawal batches single-flight
// across processor instances. The TTL is a backstop so a crashed holder
// cannot wedge the queue forever.
type FlightLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	token  string
}

func NewFlightLock(addr, password string, db int, ttl time.Duration) (*FlightLock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &FlightLock{
		client: client,
		key:    withdrawalLockKey,
		ttl:    ttl,
	}, nil
}

// releaseScript deletes the lease only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// TryAcquire takes the lease if it is free. A false return means another
// run is in flight somewhere.
func (l *FlightLock) TryAcquire(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if ok {
		l.token = token
	}
	return ok, nil
}

// Release gives the lease back. Errors are logged, not returned; the TTL
// reclaims the lease either way.
func (l *FlightLock) Release(ctx context.Context) {
	if l.token == "" {
		return
	}
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil && err != redis.Nil {
		log.Printf("[FlightLock] Warning: failed to release lock: %v", err)
	}
	l.token = ""
}
