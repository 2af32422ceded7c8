package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"vocab-tiers-service/internal/audio"
)

// AudioCache stores synthesized clips as JSON under vocab:audio:{cacheKey}.
type AudioCache struct {
	client *redis.Client
}

func NewAudioCache(client *redis.Client) *AudioCache {
	return &AudioCache{client: client}
}

func (c *AudioCache) Get(ctx context.Context, key string) (audio.Clip, bool, error) {
	data, err := c.client.Get(ctx, audioKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return audio.Clip{}, false, nil
	}
	if err != nil {
		return audio.Clip{}, false, err
	}
	var clip audio.Clip
	if err := json.Unmarshal(data, &clip); err != nil {
		return audio.Clip{}, false, err
	}
	return clip, true, nil
}

func (c *AudioCache) Set(ctx context.Context, key string, clip audio.Clip, ttl time.Duration) error {
	data, err := json.Marshal(clip)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, audioKey(key), data, ttl).Err()
}

func audioKey(key string) string {
	return "vocab:audio:" + key
}
