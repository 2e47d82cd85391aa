package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrimarket/api/apperrors"
)

func newRedisStore(t *testing.T) (*RedisRecommendationStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisRecommendationStore(rdb, "test"), mr
}

func TestRedisRecommendationStore_AddIfAbsent(t *testing.T) {
	s, mr := newRedisStore(t)
	ctx := context.Background()

	_, err := s.GetRecommendations(ctx, "A")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, s.AddRecommendations(ctx, "A", []string{"B", "A", "C", "B"}))
	edge, err := s.GetRecommendations(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "A", edge.ProductID)
	assert.Equal(t, []string{"B", "C"}, edge.RecommendedProducts)
	assert.False(t, edge.UpdatedAt.IsZero())

	stamp := mr.HGet("test:{A}:meta", "updated_at")
	require.NoError(t, s.AddRecommendations(ctx, "A", []string{"C"}))
	assert.Equal(t, stamp, mr.HGet("test:{A}:meta", "updated_at"), "no-op upsert keeps updated_at")

	require.NoError(t, s.AddRecommendations(ctx, "A", []string{"D", "B"}))
	edge, err = s.GetRecommendations(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "D"}, edge.RecommendedProducts)
}

func TestRedisRecommendationStore_SelfOnlyIsNoop(t *testing.T) {
	s, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddRecommendations(ctx, "A", []string{"A", ""}))
	assert.False(t, mr.Exists("test:{A}:products"))
}

func TestRedisRecommendationStore_ConcurrentUpserts(t *testing.T) {
	s, _ := newRedisStore(t)
	ctx := context.Background()

	const writers = 32
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.AddRecommendations(ctx, "A", []string{fmt.Sprintf("X%02d", i), "shared"}))
		}(i)
	}
	wg.Wait()

	edge, err := s.GetRecommendations(ctx, "A")
	require.NoError(t, err)
	assert.Len(t, edge.RecommendedProducts, writers+1)
	assert.Contains(t, edge.RecommendedProducts, "shared")
}

func TestRedisRecommendationStore_ServerDown(t *testing.T) {
	s, mr := newRedisStore(t)
	mr.Close()

	err := s.AddRecommendations(context.Background(), "A", []string{"B"})
	assert.Error(t, err)

	_, err = s.GetRecommendations(context.Background(), "A")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)
}
