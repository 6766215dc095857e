package dispatch

import (
	"testing"
	"time"

	"github.com/shreeshjha/flowdispatch/internal/flowpath"
	"github.com/shreeshjha/flowdispatch/internal/flowtable"
)

func mustEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

// TestUniformRepetitionAllAccelerated covers spec.md §8 scenario S1: four
// distinct keys touched repeatedly never reach UltraFast, and every
// dispatch takes Accelerated.
func TestUniformRepetitionAllAccelerated(t *testing.T) {
	e := mustEngine(t)
	now := time.Unix(0, 0)
	packets := []uint32{0, 1, 2, 3, 0, 1, 2, 3, 0, 1}

	for _, k := range packets {
		path := e.Dispatch(k, now)
		if path != flowpath.Accelerated {
			t.Fatalf("key %d: path = %s, want Accelerated", k, path)
		}
		now = now.Add(time.Microsecond)
	}
	if e.flowsCreated != 4 {
		t.Fatalf("flowsCreated = %d, want 4", e.flowsCreated)
	}
	if got := e.pathCounts[flowpath.Accelerated]; got != 10 {
		t.Fatalf("pathCounts[Accelerated] = %d, want 10", got)
	}
	if e.pathCounts[flowpath.UltraFast] != 0 {
		t.Fatal("no packet should have taken UltraFast")
	}
}

// TestArenaExhaustionIsBenign covers spec.md §8 scenario S4 at the Engine
// level: with a pool of 1, every packet still gets dispatched to some
// path and none crash.
func TestArenaExhaustionIsBenign(t *testing.T) {
	e := mustEngine(t, WithPoolCapacity(1))
	now := time.Unix(0, 0)

	var total uint64
	for _, k := range []uint32{1, 2, 3} {
		path := e.Dispatch(k, now)
		total++
		_ = path
	}
	var sum uint64
	for _, c := range e.pathCounts {
		sum += c
	}
	if sum != total {
		t.Fatalf("sum(pathCounts) = %d, want %d", sum, total)
	}
	if e.arenaExhaustions == 0 {
		t.Fatal("expected at least one arena exhaustion to be recorded")
	}
}

// TestSketchSaturationScenario covers spec.md §8 scenario S3 through the
// Engine: five packets for the same key leave the sketch reporting an
// exact count of 5.
func TestSketchSaturationScenario(t *testing.T) {
	e := mustEngine(t)
	now := time.Unix(0, 0)
	for i := 0; i < 5; i++ {
		e.Dispatch(42, now)
		now = now.Add(time.Millisecond)
	}
	if got := e.sk.Query(42); got != 5 {
		t.Fatalf("sketch.Query(42) = %d, want 5", got)
	}
}

// TestSustainedHeavyHitterReachesUltraFast covers spec.md §8 scenario S2:
// a single key hammered for many packets eventually sustains UltraFast.
func TestSustainedHeavyHitterReachesUltraFast(t *testing.T) {
	e := mustEngine(t)
	now := time.Unix(0, 0)
	var sawUltraFast bool
	for i := 0; i < 1000; i++ {
		path := e.Dispatch(7, now)
		if path == flowpath.UltraFast {
			sawUltraFast = true
		}
		now = now.Add(time.Microsecond)
	}
	if !sawUltraFast {
		t.Fatal("expected sustained single-key traffic to eventually reach UltraFast")
	}
	flow, ok := e.table.Lookup(7)
	if !ok {
		t.Fatal("flow for key 7 should exist")
	}
	if flow.PromotionScore != 1000 {
		t.Fatalf("PromotionScore = %d, want 1000 (saturated)", flow.PromotionScore)
	}
}

// TestBurstPromotionNeverLowersConfidence covers spec.md §8 property 7 in
// the specific shape of scenario S6: once a flow has been observed taking
// several fast paths in a row, a burst second can only raise its
// confidence, never lower it.
func TestBurstPromotionNeverLowersConfidence(t *testing.T) {
	e := mustEngine(t)
	now := time.Unix(0, 0)
	flow, err := e.table.Create(99, now)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	flow.Confidence = 80
	flow.Pattern.ConsecutiveFastPaths = 5
	flow.Hits = 10

	before := flow.Confidence
	e.applyBurstPromotion(flow, 0.9, flow.Pattern.ConsecutiveFastPaths)
	if flow.Confidence < before {
		t.Fatalf("burst promotion lowered confidence: %d -> %d", before, flow.Confidence)
	}
}

// TestReclassifySuspectedRequiresFilledHistory covers the anomaly-detection
// precondition pattern.Filled() documents: a flow with wildly inconsistent
// paths but an incomplete history must not be marked Suspected yet.
func TestReclassifySuspectedRequiresFilledHistory(t *testing.T) {
	flow := &flowtable.FlowEntry{Hits: 20}
	paths := []flowpath.Path{
		flowpath.UltraFast, flowpath.Slow, flowpath.Fast,
		flowpath.DeepAnalysis, flowpath.Adaptive,
	}
	for _, p := range paths {
		flow.Pattern.Record(p)
	}
	if flow.Pattern.Filled() {
		t.Fatal("test setup invalid: history should not be filled yet")
	}

	reclassify(flow)
	if flow.FlowType == flowtable.Suspected {
		t.Fatal("flow marked Suspected before its pattern history was filled")
	}

	// Filling out the ring to a full, inconsistent history should now let
	// the anomaly check fire.
	more := []flowpath.Path{flowpath.UltraFast, flowpath.Slow, flowpath.Fast}
	for _, p := range more {
		flow.Pattern.Record(p)
	}
	if !flow.Pattern.Filled() {
		t.Fatal("test setup invalid: history should be filled now")
	}
	reclassify(flow)
	if flow.Pattern.PathConsistency < 0.3 && flow.FlowType != flowtable.Suspected {
		t.Fatalf("flow should be Suspected once history is filled and inconsistent, got %s", flow.FlowType)
	}
}

// TestReclassifyNeverDemotesPromotedFlow covers the guard protecting a
// burst-promoted flow from this unrelated per-packet reclassification:
// only the dedicated lifecycle demotion rule may take it out of Promoted.
func TestReclassifyNeverDemotesPromotedFlow(t *testing.T) {
	flow := &flowtable.FlowEntry{
		FlowType:    flowtable.Promoted,
		Hits:        20,
		PacketCount: 50,
	}
	flow.Pattern.BurstScore = 0.9

	reclassify(flow)
	if flow.FlowType != flowtable.Promoted {
		t.Fatalf("Promoted flow was reclassified to %s by the Bursty rule", flow.FlowType)
	}
}

// TestNewFlowStopsAtAccelerated exercises protocol step 3 directly: a
// brand-new flow always takes Accelerated and nothing past pattern
// recording runs for it.
func TestNewFlowStopsAtAccelerated(t *testing.T) {
	e := mustEngine(t)
	now := time.Unix(0, 0)
	path := e.Dispatch(555, now)
	if path != flowpath.Accelerated {
		t.Fatalf("path = %s, want Accelerated", path)
	}
	flow, ok := e.table.Lookup(555)
	if !ok {
		t.Fatal("flow should exist after first dispatch")
	}
	if flow.Hits != 1 || flow.PacketCount != 1 {
		t.Fatalf("Hits=%d PacketCount=%d, want 1,1 (step 3 must not run post-update)", flow.Hits, flow.PacketCount)
	}
}

func TestPrePopulateElevatedState(t *testing.T) {
	e := mustEngine(t)
	now := time.Unix(0, 0)
	if err := e.PrePopulate(321, now); err != nil {
		t.Fatalf("PrePopulate: %v", err)
	}
	flow, ok := e.table.Lookup(321)
	if !ok {
		t.Fatal("pre-populated flow should exist")
	}
	if flow.Confidence != 75 || flow.Hits != 12 || flow.PacketCount != 15 {
		t.Fatalf("unexpected pre-populated state: %+v", flow)
	}
}

func TestEnqueueDequeueThroughEngine(t *testing.T) {
	e := mustEngine(t)
	now := time.Now()
	e.Enqueue(1, 0, now)
	e.Enqueue(2, 3, now)
	key, ok := e.Dequeue()
	if !ok || key != 1 {
		t.Fatalf("Dequeue = (%d,%v), want (1,true)", key, ok)
	}
}
