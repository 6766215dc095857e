package predictor

import (
	"time"

	"github.com/shreeshjha/flowdispatch/internal/flowpath"
)

// CacheSize is the number of direct-mapped slots in the prediction cache
// (spec.md §3).
const CacheSize = 1024

// TTL is the maximum age at which a cached prediction remains valid
// (spec.md §4.4).
const TTL = 30 * time.Second

type predictionCacheEntry struct {
	key             uint32
	valid           bool
	prediction      float64
	suggestedPath   flowpath.Path
	timestamp       time.Time
	confidenceLevel uint8
}

// Cache is the direct-mapped prediction shortcut for established flows. It
// short-circuits path selection for flows with Hits > 2 whenever a
// fresh-enough cached value exists for the same key (spec.md §4.7 step 5);
// the dispatcher still computes a fresh Predict for every established flow.
type Cache struct {
	slots [CacheSize]predictionCacheEntry
}

// NewCache returns an empty prediction cache.
func NewCache() *Cache { return &Cache{} }

func slot(key uint32) uint32 {
	return mix(key) % CacheSize
}

// mix is the prediction cache's own mixing function, kept independent from
// the sketch's and the flow table's so a skew in one never leaks into
// another (mirrors the flow table's and sketch's per-structure hashing).
func mix(x uint32) uint32 {
	x ^= x >> 16
	x *= 0x7feb352d
	x ^= x >> 15
	x *= 0x846ca68b
	x ^= x >> 16
	return x
}

// Lookup returns the cached prediction and path for key if present and not
// older than TTL as of now.
func (c *Cache) Lookup(key uint32, now time.Time) (prediction float64, path flowpath.Path, ok bool) {
	e := &c.slots[slot(key)]
	if !e.valid || e.key != key {
		return 0, 0, false
	}
	if now.Sub(e.timestamp) > TTL {
		return 0, 0, false
	}
	return e.prediction, e.suggestedPath, true
}

// Store installs (key, prediction, path) into its direct-mapped slot,
// evicting whatever previously occupied it.
func (c *Cache) Store(key uint32, prediction float64, path flowpath.Path, now time.Time) {
	c.slots[slot(key)] = predictionCacheEntry{
		key:             key,
		valid:           true,
		prediction:      prediction,
		suggestedPath:   path,
		timestamp:       now,
		confidenceLevel: uint8(clamp01(prediction) * 255),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// PathForPrediction maps a cached (or freshly computed) prediction score to
// the suggested path per spec.md §4.7 step 5's thresholds.
func PathForPrediction(prediction float64) flowpath.Path {
	switch {
	case prediction > 0.8:
		return flowpath.UltraFast
	case prediction > 0.6:
		return flowpath.Fast
	case prediction > 0.4:
		return flowpath.Accelerated
	default:
		return flowpath.Adaptive
	}
}
