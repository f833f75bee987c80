package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ahmedsarwar7575/naati-speaking-api/internal/dto"
)

// ProgressCache keeps the progress view of a session in Redis for its TTL.
// Submissions and final compute invalidate the entry. A nil client disables
// caching and every lookup misses.
type ProgressCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewProgressCache constructs a progress cache; client may be nil.
func NewProgressCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *ProgressCache {
	return &ProgressCache{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "progress_cache").Logger(),
	}
}

func progressCacheKey(sessionID uint) string {
	return fmt.Sprintf("mocktest:progress:%d", sessionID)
}

// Get returns the cached progress view and whether it was present.
func (c *ProgressCache) Get(ctx context.Context, sessionID uint) (dto.SessionProgressResponse, bool) {
	if c == nil || c.client == nil || c.ttl <= 0 {
		return dto.SessionProgressResponse{}, false
	}

	payload, err := c.client.Get(ctx, progressCacheKey(sessionID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn().Err(err).Uint("session_id", sessionID).Msg("progress cache read failed")
		}
		return dto.SessionProgressResponse{}, false
	}

	var response dto.SessionProgressResponse
	if err := json.Unmarshal(payload, &response); err != nil {
		c.logger.Warn().Err(err).Uint("session_id", sessionID).Msg("progress cache decode failed")
		return dto.SessionProgressResponse{}, false
	}

	return response, true
}

// Set stores the progress view for the configured TTL.
func (c *ProgressCache) Set(ctx context.Context, sessionID uint, response dto.SessionProgressResponse) {
	if c == nil || c.client == nil || c.ttl <= 0 {
		return
	}

	payload, err := json.Marshal(response)
	if err != nil {
		c.logger.Warn().Err(err).Uint("session_id", sessionID).Msg("progress cache encode failed")
		return
	}

	if err := c.client.Set(ctx, progressCacheKey(sessionID), payload, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Uint("session_id", sessionID).Msg("progress cache write failed")
	}
}

// Invalidate drops the cached progress view after a state change.
func (c *ProgressCache) Invalidate(ctx context.Context, sessionID uint) {
	if c == nil || c.client == nil {
		return
	}

	if err := c.client.Del(ctx, progressCacheKey(sessionID)).Err(); err != nil {
		c.logger.Warn().Err(err).Uint("session_id", sessionID).Msg("progress cache invalidation failed")
	}
}
