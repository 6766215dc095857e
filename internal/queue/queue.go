// Package queue implements the bounded priority ring buffer that models
// admission/scheduling for a downstream executor (spec.md §4.8). It is
// orthogonal to path selection: the dispatcher's path decision never reads
// from or blocks on this queue.
//
// © 2025 flowdispatch authors. MIT License.
package queue

import (
	"math/rand"
	"time"
)

// Capacity is the ring's fixed size (spec.md §3).
const Capacity = 64_000

// Priority 0 is the most urgent; 3 is the least.
const (
	PriorityCritical = 0
	PriorityHigh     = 1
	PriorityNormal   = 2
	PriorityLow      = 3
)

type item struct {
	key       uint32
	priority  int
	timestamp time.Time
}

// Queue is a bounded ring buffer of pending (key, priority, timestamp)
// triples with probabilistic drop-on-overflow (spec.md §4.8).
type Queue struct {
	items []item
	rng   *rand.Rand

	dropCount uint64
}

// New returns an empty Queue. seed must come from configuration, never
// from wall-clock, so that drop decisions are reproducible across runs
// with identical input (spec.md §5 "Randomness").
func New(seed int64) *Queue {
	return &Queue{
		items: make([]item, 0, Capacity),
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// Len returns the number of items currently queued.
func (q *Queue) Len() int { return len(q.items) }

// DropCount returns the number of packets dropped due to overflow.
func (q *Queue) DropCount() uint64 { return q.dropCount }

// loadFactor is size/capacity.
func (q *Queue) loadFactor() float64 {
	return float64(len(q.items)) / float64(Capacity)
}

// Enqueue admits (key, priority) at timestamp now. When the ring is full,
// it drops the incoming packet with probability p_drop =
// max(0, (load-0.7)/0.3); on survival it overwrites whichever queued entry
// holds the numerically highest (least urgent) priority value with the new
// packet — deliberately losing that entry rather than the incoming one,
// per spec.md §9's preserved (not "fixed") overwrite contract.
func (q *Queue) Enqueue(key uint32, priority int, now time.Time) {
	if len(q.items) < Capacity {
		q.items = append(q.items, item{key: key, priority: priority, timestamp: now})
		return
	}

	load := q.loadFactor()
	pDrop := (load - 0.7) / 0.3
	if pDrop < 0 {
		pDrop = 0
	}
	if q.rng.Float64() < pDrop {
		q.dropCount++
		return
	}

	worst := 0
	for i := 1; i < len(q.items); i++ {
		if q.items[i].priority > q.items[worst].priority {
			worst = i
		}
	}
	q.items[worst] = item{key: key, priority: priority, timestamp: now}
}

// DequeueHighestPriority scans the ring for the entry with the numerically
// lowest (most urgent) priority, removes it by compacting the gap, and
// returns its key. ok is false if the queue is empty.
func (q *Queue) DequeueHighestPriority() (key uint32, ok bool) {
	if len(q.items) == 0 {
		return 0, false
	}
	best := 0
	for i := 1; i < len(q.items); i++ {
		if q.items[i].priority < q.items[best].priority {
			best = i
		}
	}
	key = q.items[best].key
	q.items = append(q.items[:best], q.items[best+1:]...)
	return key, true
}
