// Package flowtable implements the multi-tier per-flow state store: a
// bump-allocated arena of FlowEntry records, a chained hash index over it,
// and a small direct-mapped cache in front of both. See spec.md §3 and §4.2.
//
// © 2025 flowdispatch authors. MIT License.
package flowtable

import (
	"time"

	"github.com/shreeshjha/flowdispatch/internal/arena"
	"github.com/shreeshjha/flowdispatch/internal/pattern"
)

// FlowType classifies the behavioural shape the dispatcher believes a flow
// has taken on. Types drive which aging strategy applies and gate promotion
// eligibility.
type FlowType uint8

const (
	Normal FlowType = iota
	Large
	Bursty
	Micro
	Dying
	Promoted
	Suspected
)

var flowTypeNames = [...]string{"Normal", "Large", "Bursty", "Micro", "Dying", "Promoted", "Suspected"}

func (t FlowType) String() string {
	if int(t) < len(flowTypeNames) {
		return flowTypeNames[t]
	}
	return "Unknown"
}

// Ordinal returns the flow type's position in the enum, used as feature f7
// by the predictor (spec.md §4.4).
func (t FlowType) Ordinal() int { return int(t) }

// AgingStrategy selects the decay shape applied to a flow's confidence
// during an aging cycle (spec.md §4.5).
type AgingStrategy uint8

const (
	Linear AgingStrategy = iota
	Exponential
	Adaptive
	Aggressive
)

// DefaultStrategy returns the aging strategy a freshly (re)classified flow
// of the given type should use, per spec.md §4.5's default table.
func DefaultStrategy(t FlowType) AgingStrategy {
	switch t {
	case Large:
		return Adaptive
	case Bursty:
		return Linear
	case Micro:
		return Aggressive
	default:
		return Exponential
	}
}

// AgingInfo tracks the timestamps and strategy driving a flow's decay.
type AgingInfo struct {
	Created         time.Time
	LastAccess      time.Time
	Strategy        AgingStrategy
	AgingMultiplier float64
}

// FlowEntry is the per-flow state record. Key == 0 means the slot is
// unused; every other field is meaningful only once Key is set.
//
// Entries are arena-owned and never relocated: the hash index and the
// direct-mapped cache hold arena.Index references into the pool, never Go
// pointers that the GC could move or that would keep a chain of garbage
// reachable after a logical reclaim.
type FlowEntry struct {
	Key  uint32
	next arena.Index // intrusive hash-chain link, spec.md §9

	Confidence     int
	Hits           uint64
	PacketCount    uint64
	LastSeen       time.Time
	FirstSeen      time.Time
	FlowType       FlowType
	PreviousType   FlowType
	Pattern        pattern.Pattern
	Aging          AgingInfo
	CacheHits      uint64
	PromotionScore int
}

// CacheHitRatio returns CacheHits/Hits, 0 if Hits is 0 — feature f6 in the
// predictor's feature vector (spec.md §4.4).
func (e *FlowEntry) CacheHitRatio() float64 {
	if e.Hits == 0 {
		return 0
	}
	return float64(e.CacheHits) / float64(e.Hits)
}
