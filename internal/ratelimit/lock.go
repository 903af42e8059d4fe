package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const keyCountLock = "metering:count:lock:%s:%s:%d"

// Compare-and-delete so an expired holder cannot drop a newer holder's lock.
const releaseLeaseScript = `
if redis.call("GET", KEYS[1]) ~= ARGV[1] then
  return 0
end
return redis.call("DEL", KEYS[1])
`

// CountLock serializes writers of one metering count (tenant, unit,
// timestamp) across service instances.
type CountLock struct {
	client  redis.UniversalClient
	release *redis.Script
	ttl     time.Duration
}

// Lease is a held count lock. The zero and nil leases release nothing.
type Lease struct {
	lock  *CountLock
	key   string
	token string
}

func NewCountLock(client redis.UniversalClient, ttl time.Duration) *CountLock {
	if client == nil || ttl <= 0 {
		return nil
	}
	return &CountLock{
		client:  client,
		release: redis.NewScript(releaseLeaseScript),
		ttl:     ttl,
	}
}

// Acquire reports false without error when another writer holds the count.
func (l *CountLock) Acquire(ctx context.Context, tenantID, unitName string, ts time.Time) (*Lease, bool, error) {
	if l == nil || l.client == nil {
		return nil, false, errors.New("count lock not configured")
	}
	tenantID = strings.TrimSpace(tenantID)
	unitName = strings.TrimSpace(unitName)
	if tenantID == "" || unitName == "" {
		return nil, false, errors.New("count lock needs tenant and unit")
	}

	lease := &Lease{
		lock:  l,
		key:   fmt.Sprintf(keyCountLock, tenantID, unitName, ts.Unix()),
		token: uuid.NewString(),
	}
	acquired, err := l.client.SetNX(ctx, lease.key, lease.token, l.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !acquired {
		return nil, false, nil
	}
	return lease, true, nil
}

func (le *Lease) Release(ctx context.Context) error {
	if le == nil || le.lock == nil || le.token == "" {
		return nil
	}
	return le.lock.release.Run(ctx, le.lock.client, []string{le.key}, le.token).Err()
}
