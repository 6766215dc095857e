package aging

import (
	"testing"
	"time"

	"github.com/shreeshjha/flowdispatch/internal/flowtable"
	"github.com/shreeshjha/flowdispatch/internal/predictor"
)

func TestLinearStrategyFloorsAtZero(t *testing.T) {
	flow := &flowtable.FlowEntry{Confidence: 2}
	ApplyStrategy(flow, flowtable.Linear, 200*time.Second, 0)
	if flow.Confidence != 0 {
		t.Fatalf("Confidence = %d, want floored at 0", flow.Confidence)
	}
}

func TestExponentialStrategyDecaysAfterGrace(t *testing.T) {
	flow := &flowtable.FlowEntry{Confidence: 100}
	ApplyStrategy(flow, flowtable.Exponential, 30*time.Second, 0)
	if flow.Confidence != 100 {
		t.Fatalf("Confidence should be unchanged within the 60s grace period, got %d", flow.Confidence)
	}
	ApplyStrategy(flow, flowtable.Exponential, 600*time.Second, 0)
	if flow.Confidence > 10 {
		t.Fatalf("Confidence = %d, want heavy decay at idle>=600s", flow.Confidence)
	}
}

func TestAggressiveStrategyMarksDying(t *testing.T) {
	flow := &flowtable.FlowEntry{Confidence: 20, FlowType: flowtable.Micro}
	ApplyStrategy(flow, flowtable.Aggressive, 100*time.Second, 0)
	if flow.FlowType != flowtable.Dying {
		t.Fatalf("FlowType = %v, want Dying once confidence drops below threshold", flow.FlowType)
	}
}

func TestDecayNeverRaisesConfidence(t *testing.T) {
	for _, strat := range []flowtable.AgingStrategy{flowtable.Linear, flowtable.Exponential, flowtable.Adaptive, flowtable.Aggressive} {
		flow := &flowtable.FlowEntry{Confidence: 50}
		ApplyStrategy(flow, strat, 500*time.Second, 0.9)
		if flow.Confidence > 50 {
			t.Fatalf("strategy %v raised confidence: %d > 50", strat, flow.Confidence)
		}
	}
}

// TestAgingInducesDying mirrors spec.md §8 scenario S5: a flow under
// Aggressive aging, after a simulated 1000s time jump, must transition to
// Dying at the next aging cycle.
func TestAgingInducesDying(t *testing.T) {
	tbl := flowtable.New(16)
	start := time.Now()

	flow, err := tbl.Create(9, start)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	flow.Aging.Strategy = flowtable.Aggressive // Micro-shaped flow in the scenario
	// Aggressive aging subtracts 8 per cycle and marks Dying below 15, so a
	// flow at 15 lands at 7 after one cycle.
	flow.Confidence = 15

	later := start.Add(1000 * time.Second)
	flow.LastSeen = start // idle = 1000s at the jump

	mgr := NewManager()
	model := predictor.New()
	mgr.RunCycle(tbl, model, later)

	if flow.FlowType != flowtable.Dying {
		t.Fatalf("FlowType = %v, want Dying after 1000s idle under Aggressive aging", flow.FlowType)
	}
	if flow.Confidence >= 10 {
		t.Fatalf("Confidence = %d, want < 10 once Dying", flow.Confidence)
	}
}

func TestLifecyclePromoteAndDemote(t *testing.T) {
	tbl := flowtable.New(16)
	now := time.Now()

	flow, _ := tbl.Create(100, now)
	flow.FlowType = flowtable.Normal
	flow.Confidence = 100
	flow.Hits = 1000
	flow.PromotionScore = 900
	// Push features high enough that the model predicts > 0.75: with every
	// feature except burst_score and flow type at its normalization maximum,
	// z = 0.2 + 0.92 = 1.12 and σ(z) ≈ 0.754.
	flow.PacketCount = 10000
	flow.Pattern.PathConsistency = 1.0
	flow.CacheHits = flow.Hits

	mgr := NewManager()
	model := predictor.New()
	mgr.RunLifecycle(tbl, model, now)

	if flow.FlowType != flowtable.Promoted {
		t.Fatalf("FlowType = %v, want Promoted", flow.FlowType)
	}
	if flow.Confidence < 60 {
		t.Fatalf("Confidence = %d, want >= 60 after promotion", flow.Confidence)
	}
	if mgr.FlowsPromoted != 1 {
		t.Fatalf("FlowsPromoted = %d, want 1", mgr.FlowsPromoted)
	}

	// Now force demotion: stale idle time and a collapsed promotion score.
	flow.PromotionScore = 50
	flow.LastSeen = now.Add(-400 * time.Second)
	confBefore := flow.Confidence
	mgr.RunLifecycle(tbl, model, now)
	if flow.FlowType == flowtable.Promoted {
		t.Fatal("flow should have been demoted back to its previous type")
	}
	if flow.Confidence > confBefore {
		t.Fatal("demotion must never raise confidence")
	}
}

func TestLifecycleRetiresDyingFlows(t *testing.T) {
	tbl := flowtable.New(16)
	now := time.Now()
	flow, _ := tbl.Create(5, now)
	flow.FlowType = flowtable.Dying
	flow.LastSeen = now.Add(-1000 * time.Second)

	mgr := NewManager()
	model := predictor.New()
	mgr.RunLifecycle(tbl, model, now)

	if flow.Confidence != 0 {
		t.Fatalf("Confidence = %d, want 0 for retired flow", flow.Confidence)
	}
	if mgr.FlowsAgedOut != 1 {
		t.Fatalf("FlowsAgedOut = %d, want 1", mgr.FlowsAgedOut)
	}
}

func TestRunCycleGatedByWallClock(t *testing.T) {
	tbl := flowtable.New(16)
	now := time.Now()
	mgr := NewManager()
	model := predictor.New()

	mgr.RunCycle(tbl, model, now)
	firstPressure := mgr.AgingPressure
	mgr.AgingPressure = -1 // sentinel to detect a second run
	mgr.RunCycle(tbl, model, now.Add(time.Second))
	if mgr.AgingPressure != -1 {
		t.Fatal("RunCycle should be a no-op before 30s elapse")
	}
	_ = firstPressure
}
