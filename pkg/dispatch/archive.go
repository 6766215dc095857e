// archive.go exposes read-only access to flows eligible for lifecycle
// retirement, for external audit consumers; no such consumer is included in
// this module. The Engine itself never persists
// anything — this is purely an observation surface over state RunLifecycle
// (internal/aging) would otherwise silently retire.
//
// © 2025 flowdispatch authors. MIT License.
package dispatch

import (
	"time"

	"github.com/shreeshjha/flowdispatch/internal/aging"
	"github.com/shreeshjha/flowdispatch/internal/arena"
	"github.com/shreeshjha/flowdispatch/internal/flowtable"
)

// RetiredFlow is a snapshot of one flow eligible for retirement at the
// moment RetiredFlows was called.
type RetiredFlow struct {
	Key        uint32
	Confidence int
	IdleFor    time.Duration
}

// RetiredFlows returns every Dying flow that has been idle longer than
// aging.RetireIdle as of now — the same population the next lifecycle pass
// would zero out. It does not mutate engine state, so calling it has no
// effect on Dispatch's behavior.
func (e *Engine) RetiredFlows(now time.Time) []RetiredFlow {
	var out []RetiredFlow
	e.table.Range(func(_ arena.Index, f *flowtable.FlowEntry) bool {
		if f.Key == 0 || f.FlowType != flowtable.Dying {
			return true
		}
		idle := now.Sub(f.LastSeen)
		if idle > aging.RetireIdle {
			out = append(out, RetiredFlow{Key: f.Key, Confidence: f.Confidence, IdleFor: idle})
		}
		return true
	})
	return out
}
