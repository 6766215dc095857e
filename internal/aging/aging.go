// Package aging implements the four confidence-decay strategies, the
// periodic aging cycle, and the flow lifecycle pass (promotion/demotion/
// retirement) described in spec.md §4.5.
//
// © 2025 flowdispatch authors. MIT License.
package aging

import (
	"time"

	"github.com/shreeshjha/flowdispatch/internal/arena"
	"github.com/shreeshjha/flowdispatch/internal/flowtable"
	"github.com/shreeshjha/flowdispatch/internal/predictor"
)

// Interval is the packet cadence at which the dispatcher invokes RunCycle
// (spec.md §4.5/§4.7 step 13).
const Interval = 25_000

// LifecycleInterval is the packet cadence at which the dispatcher invokes
// RunLifecycle (spec.md §4.5/§4.7 step 13).
const LifecycleInterval = 100_000

// lifecycleScanLimit bounds the lifecycle pass to the arena's first N
// slots, matching the source's deliberate "limit scope" choice so the
// O(packets/100000 * N) lifecycle cost stays flat regardless of how large
// the arena has grown.
const lifecycleScanLimit = 1000

const (
	minAgingPeriod = 30 * time.Second

	dyingConfidenceFloor = 10

	promoteMinPredict  = 0.75
	promoteMinScore    = 700
	promoteMinHits     = 8
	promotedConfidence = 60 // spec.md: "confidence ≥ 60"

	demoteMaxPredict = 0.4
	demoteMaxIdle    = 300 * time.Second
	demoteMinScore   = 200
	demoteFloor      = 10

	retireIdle = 900 * time.Second
)

// RetireIdle is the idle duration past which a Dying flow becomes eligible
// for lifecycle retirement (spec.md §4.5). Exported so external consumers
// — e.g. an audit sink archiving retired flows — can identify the same
// population RunLifecycle would retire without duplicating the constant.
const RetireIdle = retireIdle

// ApplyStrategy decays flow.Confidence in place according to its aging
// strategy, using predict (the model's current score for the flow, which
// the caller supplies so this package never needs a reference back to the
// predictor for the non-Adaptive strategies). idle is now - flow.LastSeen.
func ApplyStrategy(flow *flowtable.FlowEntry, strategy flowtable.AgingStrategy, idle time.Duration, predict float64) {
	switch strategy {
	case flowtable.Linear:
		if idle > 180*time.Second {
			flow.Confidence -= 3
			if flow.Confidence < 0 {
				flow.Confidence = 0
			}
		}
	case flowtable.Exponential:
		if idle > 60*time.Second {
			factor := 1 - idle.Seconds()/600
			if factor < 0.1 {
				factor = 0.1
			}
			flow.Confidence = int(float64(flow.Confidence) * factor)
		}
	case flowtable.Adaptive:
		decay := (idle.Seconds() / 1200) * (1 - 0.8*predict)
		if decay < 0 {
			decay = 0
		}
		flow.Confidence = int(float64(flow.Confidence) * (1 - decay))
	case flowtable.Aggressive:
		if idle > 90*time.Second {
			flow.Confidence -= 8
			if flow.Confidence < dyingConfidenceFloor+5 {
				flow.FlowType = flowtable.Dying
			}
		}
	}
	if flow.Confidence < 0 {
		flow.Confidence = 0
	}
}

// Manager owns the periodic aging-cycle and lifecycle-pass state: the
// rotating arena cursor, wall-clock gating, and the promoted/demoted/aged-
// out counters surfaced in the end-of-run report (spec.md §6).
type Manager struct {
	lastCycle time.Time
	cursor    uint32

	FlowsAgedOut  uint64
	FlowsDemoted  uint64
	FlowsPromoted uint64

	AgingPressure     float64
	MemoryUtilization float64
}

// NewManager returns a Manager ready to run its first cycle immediately.
func NewManager() *Manager {
	return &Manager{}
}

// RunCycle executes one aging cycle if at least 30s of wall time have
// elapsed since the previous one (spec.md §4.5). The caller is responsible
// for invoking this only every Interval packets (spec.md §4.7 step 13);
// RunCycle itself only gates on wall-clock time.
func (m *Manager) RunCycle(table *flowtable.Table, model *predictor.Model, now time.Time) {
	if !m.lastCycle.IsZero() && now.Sub(m.lastCycle) < minAgingPeriod {
		return
	}
	m.lastCycle = now

	m.MemoryUtilization = table.MemoryUtilization()
	switch {
	case m.MemoryUtilization > 0.85:
		m.AgingPressure = 0.9
	case m.MemoryUtilization > 0.70:
		m.AgingPressure = 0.6
	default:
		m.AgingPressure = 0.3
	}

	used := table.Used()
	if used == 0 {
		return
	}
	sliceSize := used / 10
	if sliceSize < 1 {
		sliceSize = 1
	}

	start := m.cursor % uint32(used)
	m.cursor += uint32(sliceSize)

	for i := 0; i < sliceSize; i++ {
		idx := arena.Index(((start+uint32(i))%uint32(used))+1) // +1: slot 0 is reserved
		flow := table.At(idx)
		if flow.Key == 0 || flow.FlowType == flowtable.Dying {
			continue
		}

		idle := now.Sub(flow.LastSeen)
		var predict float64
		if flow.Aging.Strategy == flowtable.Adaptive {
			predict = model.Predict(flow, now)
		}
		ApplyStrategy(flow, flow.Aging.Strategy, idle, predict)

		if flow.Confidence < dyingConfidenceFloor && flow.FlowType != flowtable.Dying {
			flow.PreviousType = flow.FlowType
			flow.FlowType = flowtable.Dying
			m.FlowsDemoted++
		}
	}
}

// RunLifecycle executes the promotion/demotion/retirement pass over the
// arena's first lifecycleScanLimit slots (spec.md §4.5).
func (m *Manager) RunLifecycle(table *flowtable.Table, model *predictor.Model, now time.Time) {
	limit := table.Used()
	if limit > lifecycleScanLimit {
		limit = lifecycleScanLimit
	}

	for i := 1; i <= limit; i++ {
		flow := table.At(arena.Index(i))
		if flow.Key == 0 {
			continue
		}

		idle := now.Sub(flow.LastSeen)
		predict := model.Predict(flow, now)

		if flow.FlowType == flowtable.Normal && predict > promoteMinPredict &&
			flow.PromotionScore > promoteMinScore && flow.Hits > promoteMinHits {
			flow.PreviousType = flow.FlowType
			flow.FlowType = flowtable.Promoted
			flow.Confidence = promotedConfidence
			m.FlowsPromoted++
		}

		if flow.FlowType == flowtable.Promoted &&
			(predict < demoteMaxPredict || idle > demoteMaxIdle || flow.PromotionScore < demoteMinScore) {
			flow.FlowType = flow.PreviousType
			flow.Confidence -= 15
			if flow.Confidence < demoteFloor {
				flow.Confidence = demoteFloor
			}
			m.FlowsDemoted++
		}

		if flow.FlowType == flowtable.Dying && idle > retireIdle {
			flow.Confidence = 0
			m.FlowsAgedOut++
		}
	}
}
