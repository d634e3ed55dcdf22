package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/warden-api/warden/internal/auth"
)

func TestThrottleWindowResets(t *testing.T) {
	ctx := context.Background()
	throttle, mr := newThrottle(t, 2)

	for i := 0; i < 2; i++ {
		ok, _, err := throttle.Allow(ctx, "alice")
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, retry, err := throttle.Allow(ctx, "alice")
	require.NoError(t, err)
	require.False(t, ok)
	require.Greater(t, retry, time.Duration(0))

	mr.FastForward(time.Minute + time.Second)
	ok, _, err = throttle.Allow(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestThrottleRearmsMissingExpiry(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	throttle := auth.NewLoginThrottle(client, 1, time.Minute)

	ok, _, err := throttle.Allow(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)

	// the counter survives without a TTL, as after a failed EXPIRE
	require.NoError(t, client.Persist(ctx, "warden:login:alice").Err())
	require.Equal(t, time.Duration(0), mr.TTL("warden:login:alice"))

	ok, retry, err := throttle.Allow(ctx, "alice")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, time.Minute, retry)
	require.Equal(t, time.Minute, mr.TTL("warden:login:alice"))

	mr.FastForward(time.Minute + time.Second)
	ok, _, err = throttle.Allow(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)
}
