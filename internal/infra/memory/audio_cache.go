package memory

import (
	"context"
	"sync"
	"time"

	"vocab-tiers-service/internal/audio"
)

// AudioCache is an in-process audio.Cache.
type AudioCache struct {
	clock func() time.Time

	mu    sync.RWMutex
	clips map[string]cachedClip
}

type cachedClip struct {
	clip      audio.Clip
	expiresAt time.Time
}

func NewAudioCache() *AudioCache {
	return &AudioCache{clock: time.Now, clips: make(map[string]cachedClip)}
}

func (c *AudioCache) Get(_ context.Context, key string) (audio.Clip, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.clips[key]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return audio.Clip{}, false, nil
	}
	return entry.clip, true, nil
}

func (c *AudioCache) Set(_ context.Context, key string, clip audio.Clip, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clips[key] = cachedClip{clip: clip, expiresAt: c.clock().Add(ttl)}
	return nil
}
