package app

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	limiter "github.com/ulule/limiter/v3"
)

func TestNewLimiterStoreCountsRequests(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store, err := NewLimiterStore(client)
	require.NoError(t, err)

	lim := limiter.New(store, limiter.Rate{Period: time.Minute, Limit: 2})
	ctx := context.Background()

	first, err := lim.Get(ctx, "staff")
	require.NoError(t, err)
	require.False(t, first.Reached)

	_, err = lim.Get(ctx, "staff")
	require.NoError(t, err)

	third, err := lim.Get(ctx, "staff")
	require.NoError(t, err)
	require.True(t, third.Reached)
}
