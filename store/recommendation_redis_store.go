package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"agrimarket/api/apperrors"
	"agrimarket/api/models"
)

// addRecommendationsScript appends members to a sorted set only if absent.
// Scores continue from the current cardinality so ZRANGE returns ids in
// insertion order. updated_at is touched only when something was added.
// Both keys share a hash tag so the script is cluster-safe.
var addRecommendationsScript = goredis.NewScript(`
local added = 0
local seq = redis.call('ZCARD', KEYS[1])
for i = 2, #ARGV do
	if redis.call('ZSCORE', KEYS[1], ARGV[i]) == false then
		seq = seq + 1
		redis.call('ZADD', KEYS[1], seq, ARGV[i])
		added = added + 1
	end
end
if added > 0 then
	redis.call('HSET', KEYS[2], 'updated_at', ARGV[1])
end
return added
`)

// RedisRecommendationStore keeps the co-occurrence graph in Redis. Every upsert
// runs as one Lua script, which Redis executes atomically.
type RedisRecommendationStore struct {
	rdb    *goredis.Client
	prefix string
}

func NewRedisRecommendationStore(rdb *goredis.Client, prefix string) *RedisRecommendationStore {
	if prefix == "" {
		prefix = "rec"
	}
	return &RedisRecommendationStore{rdb: rdb, prefix: prefix}
}

func (s *RedisRecommendationStore) keys(productID string) (members, meta string) {
	base := fmt.Sprintf("%s:{%s}", s.prefix, productID)
	return base + ":products", base + ":meta"
}

func (s *RedisRecommendationStore) AddRecommendations(ctx context.Context, productID string, recommended []string) error {
	ids := cleanRecommendations(productID, recommended)
	if productID == "" || len(ids) == 0 {
		return nil
	}

	membersKey, metaKey := s.keys(productID)
	args := make([]any, 0, len(ids)+1)
	args = append(args, time.Now().UTC().Format(time.RFC3339Nano))
	for _, id := range ids {
		args = append(args, id)
	}

	if err := addRecommendationsScript.Run(ctx, s.rdb, []string{membersKey, metaKey}, args...).Err(); err != nil {
		return fmt.Errorf("failed to upsert recommendations for %q: %w", productID, err)
	}
	return nil
}

func (s *RedisRecommendationStore) GetRecommendations(ctx context.Context, productID string) (*models.RecommendationEdge, error) {
	membersKey, metaKey := s.keys(productID)

	var (
		members *goredis.StringSliceCmd
		updated *goredis.StringCmd
	)
	_, err := s.rdb.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		members = pipe.ZRange(ctx, membersKey, 0, -1)
		updated = pipe.HGet(ctx, metaKey, "updated_at")
		return nil
	})
	if err != nil && !errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("failed to get recommendations: %w", err)
	}

	ids, err := members.Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get recommendations: %w", err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("recommendations for %q: %w", productID, apperrors.ErrNotFound)
	}

	edge := &models.RecommendationEdge{ProductID: productID, RecommendedProducts: ids}
	if raw, err := updated.Result(); err == nil {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			edge.UpdatedAt = ts
		}
	}
	return edge, nil
}
