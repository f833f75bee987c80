package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ahmedsarwar7575/naati-speaking-api/internal/dto"
)

func TestProgressCacheRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewProgressCache(client, time.Minute, zerolog.Nop())
	ctx := context.Background()

	_, ok := cache.Get(ctx, 42)
	require.False(t, ok)

	view := dto.SessionProgressResponse{
		Progress: dto.Progress{TotalSegments: 5, CompletedSegments: 2, PendingSegments: 3},
	}
	cache.Set(ctx, 42, view)

	cached, ok := cache.Get(ctx, 42)
	require.True(t, ok)
	require.Equal(t, view.Progress, cached.Progress)

	cache.Invalidate(ctx, 42)
	_, ok = cache.Get(ctx, 42)
	require.False(t, ok)
}

func TestProgressCacheExpires(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewProgressCache(client, time.Second, zerolog.Nop())
	ctx := context.Background()

	cache.Set(ctx, 7, dto.SessionProgressResponse{})
	mr.FastForward(2 * time.Second)

	_, ok := cache.Get(ctx, 7)
	require.False(t, ok)
}

func TestProgressCacheDisabledWithoutClient(t *testing.T) {
	cache := NewProgressCache(nil, time.Minute, zerolog.Nop())
	ctx := context.Background()

	cache.Set(ctx, 1, dto.SessionProgressResponse{})
	_, ok := cache.Get(ctx, 1)
	require.False(t, ok)
	cache.Invalidate(ctx, 1)
}
