package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/arklim/authgate/internal/core/domain"
	"github.com/arklim/authgate/internal/core/port"
)

// SlidingWindowConfig defines configuration for the sliding window limiter.
type SlidingWindowConfig struct {
	KeyPrefix string
	Window    time.Duration
}

// RateLimitRepository persists request timestamps in Redis sorted sets.
// Scores are unix microseconds so they stay exact in a float64.
type RateLimitRepository struct {
	client *redis.Client
	cfg    SlidingWindowConfig
}

// NewRateLimitRepository constructs a repository using the provided Redis client and config.
func NewRateLimitRepository(client *redis.Client, cfg SlidingWindowConfig) *RateLimitRepository {
	return &RateLimitRepository{client: client, cfg: cfg}
}

// Window returns the configured window length.
func (r *RateLimitRepository) Window() time.Duration {
	return r.cfg.Window
}

// RecordAndCheck prunes expired entries, records the request and reads back the
// window in a single MULTI/EXEC so concurrent callers observe consistent counts.
func (r *RateLimitRepository) RecordAndCheck(ctx context.Context, identifier string, at time.Time) (domain.RateWindow, error) {
	if r.cfg.Window <= 0 {
		return domain.RateWindow{}, errors.New("window must be positive")
	}

	key := r.key(identifier)
	now := at.UnixMicro()
	threshold := strconv.FormatInt(at.Add(-r.cfg.Window).UnixMicro(), 10)
	member := redis.Z{
		Score:  float64(now),
		Member: strconv.FormatInt(now, 10) + ":" + uuid.NewString(),
	}

	var (
		card   *redis.IntCmd
		oldest *redis.ZSliceCmd
	)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "-inf", threshold)
		pipe.ZAdd(ctx, key, member)
		card = pipe.ZCard(ctx, key)
		oldest = pipe.ZRangeWithScores(ctx, key, 0, 0)
		pipe.Expire(ctx, key, r.cfg.Window)
		return nil
	})
	if err != nil {
		return domain.RateWindow{}, storeError("record rate window", err)
	}

	window := domain.RateWindow{Count: int(card.Val()), Oldest: at}
	if entries := oldest.Val(); len(entries) > 0 {
		window.Oldest = time.UnixMicro(int64(entries[0].Score))
	}
	return window, nil
}

func (r *RateLimitRepository) key(identifier string) string {
	if r.cfg.KeyPrefix == "" {
		return identifier
	}
	return fmt.Sprintf("%s:%s", r.cfg.KeyPrefix, identifier)
}

var _ port.RateLimitStore = (*RateLimitRepository)(nil)
