package distlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestRedisLockSingleFlight(t *testing.T) {
	client := testRedis(t)
	ctx := context.Background()

	first := NewRedisLock(client, "campaign-send:c1", time.Minute)
	second := NewRedisLock(client, "campaign-send:c1", time.Minute)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	// A concurrent send of the same campaign loses the race.
	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// A different campaign is unaffected.
	other := NewRedisLock(client, "campaign-send:c2", time.Minute)
	ok, err = other.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, first.Release(ctx))
	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockReleaseRequiresOwnership(t *testing.T) {
	client := testRedis(t)
	ctx := context.Background()

	owner := NewRedisLock(client, "campaign-send:c1", time.Minute)
	intruder := NewRedisLock(client, "campaign-send:c1", time.Minute)

	ok, err := owner.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// Releasing a lock we don't own is a no-op.
	require.NoError(t, intruder.Release(ctx))
	ok, err = intruder.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "owner's lock should survive a foreign release")
}

func TestForSendFallsBackToNoop(t *testing.T) {
	lock := ForSend(nil, nil, "c1", time.Minute)
	ok, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, lock.Release(context.Background()))
}
