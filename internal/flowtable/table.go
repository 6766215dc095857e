package flowtable

import (
	"time"

	"github.com/shreeshjha/flowdispatch/internal/arena"
)

// Sizing constants from spec.md §3/§4.2. LargeArea+BurstyArea+MicroArea is
// the arena's total capacity, matching original_source's
// LARGE/BURSTY/MICRO_FLOW_AREA_SIZE split.
const (
	LargeArea  = 50_000
	BurstyArea = 500
	MicroArea  = 1_000
	PoolSize   = LargeArea + BurstyArea + MicroArea // 51_500

	HashTableSize = 65_536
	CacheSize     = 8_192
)

// Table is the multi-tier flow store: an arena-backed pool of FlowEntry,
// a chained hash index over it, and a small direct-mapped cache in front
// of both (spec.md §4.2).
type Table struct {
	pool *arena.Pool[FlowEntry]

	buckets []arena.Index // len HashTableSize, each a head into the pool's chain
	cache   []arena.Index // len CacheSize, direct-mapped shortcut

	totalLookups    uint64
	collisionCount  uint64
	directCacheHits uint64
}

// New constructs a Table whose arena holds capacity entries. Production
// code should pass PoolSize; tests exercising arena exhaustion (spec.md §8
// scenario S4) pass a small capacity instead.
func New(capacity int) *Table {
	return &Table{
		pool:    arena.New[FlowEntry](capacity),
		buckets: make([]arena.Index, HashTableSize),
		cache:   make([]arena.Index, CacheSize),
	}
}

func hashBucket(key uint32) uint32 {
	return mix(key, 0xd6e8feb8) % HashTableSize
}

func hashCacheSlot(key uint32) uint32 {
	return mix(key, 0x1b873593) % CacheSize
}

// mix is the flow table's own 32-bit mixer, independent of the sketch's and
// the predictor cache's so skew in one never leaks into another.
func mix(key, salt uint32) uint32 {
	x := key ^ salt
	x ^= x >> 16
	x *= 0x7feb352d
	x ^= x >> 15
	x *= 0x846ca68b
	x ^= x >> 16
	return x
}

// Lookup finds the flow for key, preferring the direct-mapped cache and
// falling back to a hash-chain walk, installing the result into the cache
// slot on a chain hit (spec.md §4.2 steps 1-3).
func (t *Table) Lookup(key uint32) (*FlowEntry, bool) {
	t.totalLookups++

	cslot := hashCacheSlot(key)
	if idx := t.cache[cslot]; idx != 0 {
		e := t.pool.At(idx)
		if e.Key == key {
			e.CacheHits++
			t.directCacheHits++
			return e, true
		}
	}

	bslot := hashBucket(key)
	idx := t.buckets[bslot]
	first := true
	for idx != 0 {
		e := t.pool.At(idx)
		if e.Key == key {
			t.cache[cslot] = idx
			return e, true
		}
		if !first {
			t.collisionCount++
		}
		first = false
		idx = e.next
	}
	return nil, false
}

// initEntry resets an entry's fields before it is returned to the caller.
// Shared by Create and PrePopulate so the two initial-state recipes stay
// textually close to each other and to spec.md.
func initEntry(e *FlowEntry, key uint32, now time.Time) {
	*e = FlowEntry{}
	e.Key = key
	e.FirstSeen = now
	e.LastSeen = now
}

// Create allocates a fresh entry for key with the default initial state of
// spec.md §4.2: confidence 35, hits 1, packet_count 1, Normal/Exponential,
// promotion_score 100, path_consistency 1.0, burst_score 0. It links the
// entry at the head of its bucket chain. Returns arena.ErrExhausted if the
// pool is full.
func (t *Table) Create(key uint32, now time.Time) (*FlowEntry, error) {
	idx, err := t.pool.Alloc()
	if err != nil {
		return nil, err
	}
	e := t.pool.At(idx)
	initEntry(e, key, now)

	e.Confidence = 35
	e.Hits = 1
	e.PacketCount = 1
	e.FlowType = Normal
	e.PreviousType = Normal
	e.Aging.Created = now
	e.Aging.LastAccess = now
	e.Aging.Strategy = Exponential
	e.Aging.AgingMultiplier = 1.0
	e.PromotionScore = 100
	e.Pattern.PathConsistency = 1.0
	e.Pattern.BurstScore = 0

	t.linkBucket(key, idx)
	return e, nil
}

// PrePopulate allocates an entry for key with the elevated initial state
// specified for dataset-known keys (spec.md §6 "Pre-population").
func (t *Table) PrePopulate(key uint32, now time.Time) (*FlowEntry, error) {
	idx, err := t.pool.Alloc()
	if err != nil {
		return nil, err
	}
	e := t.pool.At(idx)
	initEntry(e, key, now)

	e.Confidence = 75
	e.Hits = 12
	e.PacketCount = 15
	e.FlowType = Large
	e.PreviousType = Large
	e.Aging.Created = now
	e.Aging.LastAccess = now
	e.Aging.Strategy = Adaptive
	e.Aging.AgingMultiplier = 1.0
	e.PromotionScore = 800
	e.Pattern.PathConsistency = 0.85
	e.Pattern.ConsecutiveFastPaths = 5

	t.linkBucket(key, idx)
	return e, nil
}

func (t *Table) linkBucket(key uint32, idx arena.Index) {
	bslot := hashBucket(key)
	e := t.pool.At(idx)
	e.next = t.buckets[bslot]
	t.buckets[bslot] = idx
}

// TotalLookups and CollisionCount expose the hash index's observability
// counters (spec.md §4.2).
func (t *Table) TotalLookups() uint64   { return t.totalLookups }
func (t *Table) CollisionCount() uint64 { return t.collisionCount }

// CollisionRate is CollisionCount/TotalLookups, 0 if no lookups occurred.
func (t *Table) CollisionRate() float64 {
	if t.totalLookups == 0 {
		return 0
	}
	return float64(t.collisionCount) / float64(t.totalLookups)
}

// DirectCacheHits returns the number of lookups satisfied directly from
// the direct-mapped cache slot, without walking the hash chain.
func (t *Table) DirectCacheHits() uint64 { return t.directCacheHits }

// CacheHitRate is DirectCacheHits/TotalLookups, 0 if no lookups occurred.
func (t *Table) CacheHitRate() float64 {
	if t.totalLookups == 0 {
		return 0
	}
	return float64(t.directCacheHits) / float64(t.totalLookups)
}

// Used returns the number of entries allocated so far.
func (t *Table) Used() int { return t.pool.Used() }

// Cap returns the arena's total capacity.
func (t *Table) Cap() int { return t.pool.Cap() }

// MemoryUtilization is Used/Cap, the input to the aging manager's
// aging_pressure computation (spec.md §4.5).
func (t *Table) MemoryUtilization() float64 {
	if t.pool.Cap() == 0 {
		return 0
	}
	return float64(t.pool.Used()) / float64(t.pool.Cap())
}

// Range iterates every allocated entry, in allocation order. Used by
// report/stats collection and the retired-flow accessor — never called on
// the per-packet hot path.
func (t *Table) Range(fn func(idx arena.Index, e *FlowEntry) bool) {
	t.pool.Range(fn)
}

// At returns the entry at idx, for callers (the aging manager) that
// iterate by index rather than by key.
func (t *Table) At(idx arena.Index) *FlowEntry { return t.pool.At(idx) }
