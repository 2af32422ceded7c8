package memory

import (
	"context"
	"testing"
	"time"

	"vocab-tiers-service/internal/audio"
)

func TestAudioCacheExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cache := NewAudioCache()
	cache.clock = func() time.Time { return now }

	key := audio.Request{Text: "Haye", Speed: audio.SpeedNormal}.CacheKey()
	if err := cache.Set(ctx, key, audio.Clip{Audio: []byte{1, 2, 3}, CacheKey: key}, time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	if clip, ok, _ := cache.Get(ctx, key); !ok || len(clip.Audio) != 3 {
		t.Fatalf("expected hit, got %v %+v", ok, clip)
	}

	now = now.Add(time.Hour)
	if _, ok, _ := cache.Get(ctx, key); ok {
		t.Fatalf("expected entry expired at ttl")
	}
}
