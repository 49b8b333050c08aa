package repository

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"coursegen-backend/internal/models"
)

// RedisTranscriptCache holds fetched transcripts for a short TTL so repeated
// generations against the same video skip the caption download. Misses and
// redis errors both read as cache miss.
type RedisTranscriptCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisTranscriptCache(client *redis.Client, ttl time.Duration) *RedisTranscriptCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RedisTranscriptCache{client: client, ttl: ttl}
}

func transcriptKey(videoID string) string {
	return "transcript:" + videoID
}

func (c *RedisTranscriptCache) Get(ctx context.Context, videoID string) ([]models.TranscriptSegment, bool) {
	data, err := c.client.Get(ctx, transcriptKey(videoID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("transcript cache read failed for %s: %v", videoID, err)
		}
		return nil, false
	}

	var segments []models.TranscriptSegment
	if err := json.Unmarshal(data, &segments); err != nil {
		log.Printf("transcript cache entry corrupt for %s: %v", videoID, err)
		return nil, false
	}
	return segments, true
}

func (c *RedisTranscriptCache) Set(ctx context.Context, videoID string, segments []models.TranscriptSegment) {
	data, err := json.Marshal(segments)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, transcriptKey(videoID), data, c.ttl).Err(); err != nil {
		log.Printf("transcript cache write failed for %s: %v", videoID, err)
	}
}
