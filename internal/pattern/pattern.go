// Package pattern tracks, per flow, a short ring of recent path decisions
// and the scalars derived from it: how consistently the flow takes one
// path (path_consistency), how much it oscillates between paths
// (burst_score), and how many fast paths it has taken back to back
// (consecutive_fast_paths). See spec.md §4.3.
//
// © 2025 flowdispatch authors. MIT License.
package pattern

import "github.com/shreeshjha/flowdispatch/internal/flowpath"

// History is the ring length: the last H decisions are retained.
const History = 8

// minSamplesForScore is the number of recorded decisions required before
// path_consistency/burst_score are considered meaningful (spec.md §4.3:
// "after at least 4 samples").
const minSamplesForScore = 4

// Pattern is the bounded decision history for a single flow, plus its
// derived scalars. Zero value is a valid, empty pattern.
type Pattern struct {
	history      [History]flowpath.Path
	historyIndex uint8
	filled       bool
	count        uint8 // number of valid entries when not yet filled

	PathConsistency      float64
	BurstScore           float64
	ConsecutiveFastPaths uint32
	RecentPromotions     uint32
}

// Record appends path to the ring, advances the cursor, and — once at least
// minSamplesForScore decisions have been recorded — recomputes
// PathConsistency and (once the ring is full) BurstScore.
func (p *Pattern) Record(path flowpath.Path) {
	p.history[p.historyIndex] = path
	p.historyIndex = (p.historyIndex + 1) % History
	if !p.filled {
		p.count++
		if p.count >= History {
			p.filled = true
		}
	}

	if path.IsFast() {
		p.ConsecutiveFastPaths++
	} else {
		p.ConsecutiveFastPaths = 0
	}

	n := int(p.count)
	if p.filled {
		n = History
	}
	if n >= minSamplesForScore {
		p.recompute(n)
	}
}

// recompute derives PathConsistency (modal path's share of the n most
// recent samples) and, once the ring is completely filled, BurstScore (the
// fraction of adjacent pairs that differ).
func (p *Pattern) recompute(n int) {
	var counts [flowpath.Count]int
	for i := 0; i < n; i++ {
		counts[p.history[i]]++
	}
	max := 0
	for _, c := range counts {
		if c > max {
			max = c
		}
	}
	p.PathConsistency = float64(max) / float64(n)

	if !p.filled {
		return
	}

	// Walk the H-1 adjacent pairs in chronological order, starting from the
	// oldest entry (the slot historyIndex points at once the ring is full).
	transitions := 0
	start := int(p.historyIndex)
	for i := 0; i < History-1; i++ {
		a := p.history[(start+i)%History]
		b := p.history[(start+i+1)%History]
		if a != b {
			transitions++
		}
	}
	p.BurstScore = float64(transitions) / float64(History-1)
}

// Filled reports whether the ring holds a full History of decisions —
// required before BurstScore is meaningful and before anomaly detection on
// PathConsistency may fire (spec.md §4.7 step 12).
func (p *Pattern) Filled() bool { return p.filled }

// RecordPromotion bumps RecentPromotions; called by the dispatcher whenever
// a burst promotion (spec.md §4.6) touches this flow.
func (p *Pattern) RecordPromotion() { p.RecentPromotions++ }
