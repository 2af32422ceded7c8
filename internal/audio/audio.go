// Package audio describes pronunciation requests and caches synthesized clips.
// Speech synthesis itself is an external service behind Synthesizer.
package audio

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync/atomic"
	"time"
)

// Locale is the voice locale every clip is synthesized in.
const Locale = "so-SO"

// DefaultCacheTTL is how long a synthesized clip stays cached.
const DefaultCacheTTL = 30 * 24 * time.Hour

// Speed is a playback speed preset.
type Speed string

const (
	SpeedNormal    Speed = "normal"
	SpeedSlow      Speed = "slow"
	SpeedUltraSlow Speed = "ultra_slow"
)

var rates = map[Speed]struct {
	rate  float64
	label string
}{
	SpeedNormal:    {1.0, "1.0"},
	SpeedSlow:      {0.7, "0.7"},
	SpeedUltraSlow: {0.4, "0.4"},
}

// ParseSpeed accepts a preset name; empty means normal.
func ParseSpeed(s string) (Speed, error) {
	if s == "" {
		return SpeedNormal, nil
	}
	sp := Speed(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := rates[sp]; !ok {
		return "", fmt.Errorf("unknown speed %q", s)
	}
	return sp, nil
}

// Rate is the speaking-rate multiplier sent to the synthesizer. Unknown
// speeds play at normal rate.
func (s Speed) Rate() float64 {
	if r, ok := rates[s]; ok {
		return r.rate
	}
	return 1.0
}

// Request is one synthesis call.
type Request struct {
	Text  string `json:"text"`
	Speed Speed  `json:"speed"`
}

// CacheKey is the hex sha256 of "text-rate-locale".
func (r Request) CacheKey() string {
	sum := sha256.Sum256([]byte(r.Text + "-" + rates[r.Speed].label + "-" + Locale))
	return hex.EncodeToString(sum[:])
}

// EstimateDuration assumes 150 words per minute at normal speed, never less
// than half a second.
func (r Request) EstimateDuration() time.Duration {
	words := len(strings.Fields(r.Text))
	secs := float64(words) / 150 * 60 / r.Speed.Rate()
	if secs < 0.5 {
		secs = 0.5
	}
	return time.Duration(math.Round(secs*1000)) * time.Millisecond
}

// Clip is synthesized audio.
type Clip struct {
	Audio    []byte        `json:"audio"`
	CacheKey string        `json:"cacheKey"`
	Duration time.Duration `json:"duration"`
}

// Synthesizer turns text into speech.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (Clip, error)
}

// Cache stores clips by cache key.
type Cache interface {
	Get(ctx context.Context, key string) (Clip, bool, error)
	Set(ctx context.Context, key string, clip Clip, ttl time.Duration) error
}

// CachedSynthesizer serves repeated requests from a Cache. Cache failures are
// logged and fall through to the synthesizer.
type CachedSynthesizer struct {
	next   Synthesizer
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// CacheStats counts Synthesize calls since start. Pregenerate does not count.
type CacheStats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hitRate"`
}

// PregenerateResult summarizes one Pregenerate run.
type PregenerateResult struct {
	Texts     int     `json:"texts"`
	Generated int     `json:"generated"`
	Cached    int     `json:"cached"`
	Failed    int     `json:"failed"`
	Speeds    []Speed `json:"speeds"`
}

// Speeds lists every preset, fastest first.
var Speeds = []Speed{SpeedNormal, SpeedSlow, SpeedUltraSlow}

func NewCachedSynthesizer(next Synthesizer, cache Cache, ttl time.Duration, logger *slog.Logger) *CachedSynthesizer {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedSynthesizer{next: next, cache: cache, ttl: ttl, logger: logger}
}

func (c *CachedSynthesizer) Synthesize(ctx context.Context, req Request) (Clip, error) {
	if strings.TrimSpace(req.Text) == "" {
		return Clip{}, fmt.Errorf("synthesize: empty text")
	}
	if _, ok := rates[req.Speed]; !ok {
		return Clip{}, fmt.Errorf("synthesize: unknown speed %q", req.Speed)
	}
	clip, hit, err := c.lookup(ctx, req)
	if err != nil {
		return Clip{}, err
	}
	if hit {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return clip, nil
}

func (c *CachedSynthesizer) Stats() CacheStats {
	st := CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load()}
	if total := st.Hits + st.Misses; total > 0 {
		st.HitRate = math.Round(float64(st.Hits)/float64(total)*10000) / 10000
	}
	return st
}

// Pregenerate fills the cache for every text at every speed. Failures are
// logged and counted; only a cancelled context stops the run early.
func (c *CachedSynthesizer) Pregenerate(ctx context.Context, texts []string) (PregenerateResult, error) {
	res := PregenerateResult{Texts: len(texts), Speeds: Speeds}
	for _, text := range texts {
		for _, speed := range Speeds {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			_, hit, err := c.lookup(ctx, Request{Text: text, Speed: speed})
			switch {
			case err != nil:
				res.Failed++
				c.logger.Warn("audio pregenerate failed", "text", text, "speed", speed, "err", err)
			case hit:
				res.Cached++
			default:
				res.Generated++
			}
		}
	}
	c.logger.Info("audio pregenerated", "texts", res.Texts, "generated", res.Generated, "failed", res.Failed)
	return res, nil
}

// lookup serves req from the cache or synthesizes and stores it; hit reports
// which.
func (c *CachedSynthesizer) lookup(ctx context.Context, req Request) (clip Clip, hit bool, err error) {
	key := req.CacheKey()
	clip, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("audio cache read failed", "key", key, "err", err)
	}
	if ok {
		return clip, true, nil
	}

	clip, err = c.next.Synthesize(ctx, req)
	if err != nil {
		return Clip{}, false, err
	}
	clip.CacheKey = key
	if clip.Duration == 0 {
		clip.Duration = req.EstimateDuration()
	}
	if err := c.cache.Set(ctx, key, clip, c.ttl); err != nil {
		c.logger.Warn("audio cache write failed", "key", key, "err", err)
	}
	return clip, false, nil
}
