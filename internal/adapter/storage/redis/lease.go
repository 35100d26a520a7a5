package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// acquireScript sets the lease when free and extends it when the caller
// already holds it.
var acquireScript = goredis.NewScript(`
local current = redis.call("GET", KEYS[1])
if not current then
	redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
	return 1
end
if current == ARGV[1] then
	redis.call("PEXPIRE", KEYS[1], ARGV[2])
	return 1
end
return 0
`)

// releaseScript deletes the lease only while the caller still holds it.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SyncLease implements ports.SyncLease. Several wallet processes sharing one
// account store use it so an account is synced by one of them at a time.
type SyncLease struct {
	client goredis.UniversalClient
	prefix string
}

// NewSyncLease creates a Redis-backed sync lease.
func NewSyncLease(client goredis.UniversalClient) *SyncLease {
	return &SyncLease{
		client: client,
		prefix: "sync-lease:",
	}
}

// Acquire takes or extends the lease on accountID for owner. It returns false
// while another owner holds it.
func (l *SyncLease) Acquire(ctx context.Context, accountID, owner string, ttl time.Duration) (bool, error) {
	held, err := acquireScript.Run(ctx, l.client, []string{l.prefix + accountID}, owner, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("redis lease acquire: %w", err)
	}
	return held == 1, nil
}

// Release drops the lease if owner holds it.
func (l *SyncLease) Release(ctx context.Context, accountID, owner string) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.prefix + accountID}, owner).Err(); err != nil {
		return fmt.Errorf("redis lease release: %w", err)
	}
	return nil
}
