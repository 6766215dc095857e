// report.go assembles the end-of-run report spec.md §6 asks for: timing,
// throughput, per-path counts, cache/collision rates, predictor accuracy,
// aging/lifecycle counters, and per-type flow statistics. The format has
// no stability contract — it is meant for a human reading terminal output,
// not for machine parsing, so Snapshot returns a plain struct and String
// renders it, rather than the other way around.
//
// © 2025 flowdispatch authors. MIT License.
package dispatch

import (
	"fmt"
	"strings"
	"time"

	"github.com/shreeshjha/flowdispatch/internal/arena"
	"github.com/shreeshjha/flowdispatch/internal/flowpath"
	"github.com/shreeshjha/flowdispatch/internal/flowtable"
	"github.com/shreeshjha/flowdispatch/internal/predictor"
)

// TypeStats summarizes one flow type's population.
type TypeStats struct {
	Type            string
	Count           int
	MeanConfidence  float64
	MeanPrediction  float64
	MeanPromotion   float64
}

// Snapshot is the full end-of-run report, computed once the packet stream
// driving Dispatch calls has finished.
type Snapshot struct {
	Elapsed        time.Duration
	TotalPackets   uint64
	Mpps           float64
	Pps            float64
	MeanNsPerPkt   float64

	FlowsCreated     uint64
	ArenaExhaustions uint64

	PathCounts      [flowpath.Count]uint64
	PathPercentages [flowpath.Count]float64

	CacheHitRate   float64
	CollisionRate  float64
	PredictorAccuracy float64

	FlowsAgedOut  uint64
	FlowsDemoted  uint64
	FlowsPromoted uint64

	UltraFastPromotions uint64
	BurstyPromotions    uint64

	QueueDropCount uint64
	QueueLen       int

	TypeBreakdown []TypeStats
}

// Snapshot computes a Snapshot as of now (used to score each live flow's
// current prediction for the per-type breakdown), given the wall-clock
// elapsed time since the run started.
func (e *Engine) Snapshot(elapsed time.Duration, now time.Time) Snapshot {
	s := Snapshot{
		Elapsed:          elapsed,
		TotalPackets:     e.totalProcessed,
		FlowsCreated:     e.flowsCreated,
		ArenaExhaustions: e.arenaExhaustions,
		PathCounts:       e.pathCounts,

		CacheHitRate:      e.table.CacheHitRate(),
		CollisionRate:     e.table.CollisionRate(),
		PredictorAccuracy: e.model.Accuracy,

		FlowsAgedOut:  e.agingMgr.FlowsAgedOut,
		FlowsDemoted:  e.agingMgr.FlowsDemoted,
		FlowsPromoted: e.agingMgr.FlowsPromoted,

		UltraFastPromotions: e.ultraFastPromotions,
		BurstyPromotions:    e.burstyPromotions,

		QueueDropCount: e.queue.DropCount(),
		QueueLen:       e.queue.Len(),
	}

	secs := elapsed.Seconds()
	if secs > 0 {
		s.Pps = float64(s.TotalPackets) / secs
		s.Mpps = s.Pps / 1e6
	}
	if s.TotalPackets > 0 {
		s.MeanNsPerPkt = float64(elapsed.Nanoseconds()) / float64(s.TotalPackets)
	}
	for i, c := range s.PathCounts {
		if s.TotalPackets > 0 {
			s.PathPercentages[i] = 100 * float64(c) / float64(s.TotalPackets)
		}
	}

	s.TypeBreakdown = typeBreakdown(e.table, e.model, now)
	return s
}

type typeAccum struct {
	count                       int
	confidenceSum, promotionSum float64
	predictionSum               float64
}

// typeBreakdown scans every live flow once and aggregates per-type means.
// This is strictly an end-of-run reporting pass — never called from
// Dispatch's hot path.
func typeBreakdown(table *flowtable.Table, model *predictor.Model, now time.Time) []TypeStats {
	var accum [flowtable.Suspected + 1]typeAccum

	table.Range(func(_ arena.Index, e *flowtable.FlowEntry) bool {
		if e.Key == 0 {
			return true
		}
		a := &accum[e.FlowType]
		a.count++
		a.confidenceSum += float64(e.Confidence)
		a.promotionSum += float64(e.PromotionScore)
		a.predictionSum += model.Predict(e, now)
		return true
	})

	stats := make([]TypeStats, 0, len(accum))
	for t, a := range accum {
		if a.count == 0 {
			continue
		}
		n := float64(a.count)
		stats = append(stats, TypeStats{
			Type:           flowtable.FlowType(t).String(),
			Count:          a.count,
			MeanConfidence: a.confidenceSum / n,
			MeanPrediction: a.predictionSum / n,
			MeanPromotion:  a.promotionSum / n,
		})
	}
	return stats
}

// String renders the snapshot as a human-readable multi-line report, in
// the style of the teacher's cache stats dump: one metric per line, grouped
// under short headers.
func (s Snapshot) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "flowdispatch report\n")
	fmt.Fprintf(&b, "  elapsed:            %s\n", s.Elapsed)
	fmt.Fprintf(&b, "  packets:            %d\n", s.TotalPackets)
	fmt.Fprintf(&b, "  throughput:         %.3f Mpps (%.0f pps)\n", s.Mpps, s.Pps)
	fmt.Fprintf(&b, "  mean latency:       %.1f ns/packet\n", s.MeanNsPerPkt)
	fmt.Fprintf(&b, "  flows created:      %d\n", s.FlowsCreated)
	fmt.Fprintf(&b, "  arena exhaustions:  %d\n", s.ArenaExhaustions)
	fmt.Fprintf(&b, "\npath distribution:\n")
	for i, c := range s.PathCounts {
		fmt.Fprintf(&b, "  %-12s %10d  (%5.2f%%)\n", flowpath.Path(i).String(), c, s.PathPercentages[i])
	}
	fmt.Fprintf(&b, "\ncache hit rate:       %.2f%%\n", 100*s.CacheHitRate)
	fmt.Fprintf(&b, "hash collision rate:  %.4f%%\n", 100*s.CollisionRate)
	fmt.Fprintf(&b, "predictor accuracy:   %.2f%%\n", 100*s.PredictorAccuracy)
	fmt.Fprintf(&b, "\naging: %d aged out, %d demoted, %d promoted\n", s.FlowsAgedOut, s.FlowsDemoted, s.FlowsPromoted)
	fmt.Fprintf(&b, "burst promotions:     %d ultra-fast, %d bursty\n", s.UltraFastPromotions, s.BurstyPromotions)
	fmt.Fprintf(&b, "queue:                %d pending, %d dropped\n", s.QueueLen, s.QueueDropCount)

	if len(s.TypeBreakdown) > 0 {
		fmt.Fprintf(&b, "\nper-type breakdown:\n")
		for _, t := range s.TypeBreakdown {
			fmt.Fprintf(&b, "  %-10s n=%-6d conf=%.1f pred=%.3f promo=%.1f\n",
				t.Type, t.Count, t.MeanConfidence, t.MeanPrediction, t.MeanPromotion)
		}
	}

	return b.String()
}
