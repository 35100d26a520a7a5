package redis_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"ledger-wallet/internal/adapter/storage/redis"
	"ledger-wallet/internal/core/ports"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustPort(t *testing.T, mr *miniredis.Miniredis) int {
	t.Helper()
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	return port
}

func TestSyncLease(t *testing.T) {
	mr, client := newMiniClient(t)
	var lease ports.SyncLease = redis.NewSyncLease(client)
	ctx := context.Background()
	ttl := 30 * time.Second

	ok, err := lease.Acquire(ctx, "acc-1", "proc-a", ttl)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lease.Acquire(ctx, "acc-1", "proc-b", ttl)
	require.NoError(t, err)
	assert.False(t, ok, "held by another owner")

	ok, err = lease.Acquire(ctx, "acc-2", "proc-b", ttl)
	require.NoError(t, err)
	assert.True(t, ok, "leases are per account")

	mr.FastForward(20 * time.Second)
	ok, err = lease.Acquire(ctx, "acc-1", "proc-a", ttl)
	require.NoError(t, err)
	assert.True(t, ok, "owner extends its lease")
	assert.Equal(t, ttl, mr.TTL("sync-lease:acc-1"))

	require.NoError(t, lease.Release(ctx, "acc-1", "proc-b"))
	assert.True(t, mr.Exists("sync-lease:acc-1"), "non-owner release is ignored")

	require.NoError(t, lease.Release(ctx, "acc-1", "proc-a"))
	assert.False(t, mr.Exists("sync-lease:acc-1"))

	ok, err = lease.Acquire(ctx, "acc-1", "proc-b", ttl)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSyncLease_Expires(t *testing.T) {
	mr, client := newMiniClient(t)
	lease := redis.NewSyncLease(client)
	ctx := context.Background()

	ok, err := lease.Acquire(ctx, "acc-1", "crashed", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(time.Minute + time.Second)

	ok, err = lease.Acquire(ctx, "acc-1", "proc-b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSyncLease_Unavailable(t *testing.T) {
	mr, client := newMiniClient(t)
	lease := redis.NewSyncLease(client)
	mr.Close()

	_, err := lease.Acquire(context.Background(), "acc-1", "proc-a", time.Minute)
	assert.Error(t, err)
}
