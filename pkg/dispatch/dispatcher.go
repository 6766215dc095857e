// dispatcher.go implements the Engine: the single no-globals context that
// owns every collaborator (sketch, flow table, predictor, aging manager,
// burst detector, priority queue) and runs the thirteen-step path-selection
// protocol of spec.md §4.7 for one packet at a time. There are no
// suspension points and no I/O inside Dispatch — the only external effect
// is reading the now parameter the caller supplies, never wall-clock
// directly, so the whole run stays reproducible given the same input and
// the same sequence of now values.
//
// © 2025 flowdispatch authors. MIT License.
package dispatch

import (
	"time"

	"go.uber.org/zap"

	"github.com/shreeshjha/flowdispatch/internal/aging"
	"github.com/shreeshjha/flowdispatch/internal/burst"
	"github.com/shreeshjha/flowdispatch/internal/flowpath"
	"github.com/shreeshjha/flowdispatch/internal/flowtable"
	"github.com/shreeshjha/flowdispatch/internal/predictor"
	"github.com/shreeshjha/flowdispatch/internal/queue"
	"github.com/shreeshjha/flowdispatch/internal/sketch"
)

// Engine is the dispatcher context. Every piece of mutable state the
// dispatch protocol touches lives here, never in a package-level variable —
// the source parks its table, queue and perf monitor as process-wide
// singletons; this is the one change spec.md §9 calls out by name.
type Engine struct {
	cfg *config

	table     *flowtable.Table
	sk        *sketch.Sketch
	model     *predictor.Model
	predCache *predictor.Cache
	agingMgr  *aging.Manager
	burstDet  *burst.Detector
	queue     *queue.Queue

	metrics metricsSink
	logger  *zap.Logger

	pathFuncs [flowpath.Count]PathFunc

	pathCounts          [flowpath.Count]uint64
	totalProcessed      uint64
	flowsCreated        uint64
	arenaExhaustions    uint64
	ultraFastPromotions uint64
	burstyPromotions    uint64
}

// New constructs an Engine from the given options. The default
// configuration sizes every collaborator per spec.md §3 and installs
// no-op path callbacks.
func New(opts ...Option) (*Engine, error) {
	cfg, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	var sink metricsSink = noopMetrics{}
	if cfg.registry != nil {
		sink = newPromMetrics(cfg.registry)
	}

	return &Engine{
		cfg:       cfg,
		table:     flowtable.New(cfg.poolCapacity),
		sk:        sketch.New(),
		model:     predictor.New(),
		predCache: predictor.NewCache(),
		agingMgr:  aging.NewManager(),
		burstDet:  burst.NewDetector(),
		queue:     queue.New(cfg.queueSeed),
		metrics:   sink,
		logger:    cfg.logger,
		pathFuncs: cfg.pathFuncs,
	}, nil
}

// PrePopulate inserts key into the flow table with the elevated initial
// state reserved for dataset-known keys (spec.md §6). It is a startup-time
// operation, called before the packet stream begins, never from Dispatch.
func (e *Engine) PrePopulate(key uint32, now time.Time) error {
	_, err := e.table.PrePopulate(key, now)
	if err != nil {
		e.logger.Warn("pre-population skipped: arena exhausted", zap.Uint32("key", key))
		return err
	}
	e.flowsCreated++
	e.metrics.ObserveFlowCreated()
	return nil
}

// Dispatch runs the full selection protocol for one packet carrying flow
// key at time now, executes the chosen path's callback, and returns the
// path taken.
func (e *Engine) Dispatch(key uint32, now time.Time) flowpath.Path {
	e.totalProcessed++

	// Step 1: sketch update.
	e.sk.Update(key)

	// Burst-rate bookkeeping runs for every packet, independent of which
	// flow it belongs to (spec.md §4.6).
	e.burstDet.Tick(now)

	// Step 2: lookup or create.
	flow, found := e.table.Lookup(key)
	if !found {
		created, err := e.table.Create(key, now)
		if err != nil {
			// Arena exhausted: spec.md §4.9/§7 AllocationExhaustion — the
			// packet is still served from sketch-only heuristics, no flow
			// state is ever touched.
			e.arenaExhaustions++
			e.metrics.ObserveArenaExhaustion()
			path := e.fallbackPath(key)
			e.execute(path, key)
			e.runMaintenance(now)
			return path
		}

		// Step 3: newly created flow always takes Accelerated; record it
		// in the pattern ring and stop — no burst/prediction/post-update
		// logic runs on a flow's very first packet.
		e.flowsCreated++
		e.metrics.ObserveFlowCreated()
		created.Pattern.Record(flowpath.Accelerated)
		e.execute(flowpath.Accelerated, key)
		e.runMaintenance(now)
		return flowpath.Accelerated
	}

	path, predict, freshPredict := e.selectPath(flow, key, now)

	// Step 10: execute.
	e.execute(path, key)

	// Step 11: update pattern and validate ML. Validation always uses the
	// freshly computed prediction, never a cache-supplied one: the cache
	// only short-circuits path selection, not the bookkeeping that follows
	// it, matching the original's validate_ml_prediction() recomputing
	// regardless of cache state.
	flow.Pattern.Record(path)
	e.model.Validate(flow, freshPredict, path)

	// Step 12: post-update flow state.
	e.postUpdate(flow, path, predict, now)

	e.runMaintenance(now)
	return path
}

// selectPath runs steps 4-9 for an established flow: burst promotion, the
// prediction-cache short-circuit, and the main confidence/prediction rule.
// It returns the chosen path, the prediction value used to choose it (which
// the caller feeds into the post-update rule), and the freshPredict value
// computed once up front — always a live model.Predict result, never a
// cache-supplied one — which the caller must use for validation instead.
func (e *Engine) selectPath(flow *flowtable.FlowEntry, key uint32, now time.Time) (path flowpath.Path, predict, freshPredict float64) {
	freshPredict = e.model.Predict(flow, now)
	predict = freshPredict
	consecutiveFast := flow.Pattern.ConsecutiveFastPaths

	// Step 4: burst promotion (spec.md §4.6). Evaluated on every packet
	// while a burst is active; never lowers confidence.
	if e.burstDet.Active() {
		e.applyBurstPromotion(flow, predict, consecutiveFast)
	}

	usedCache := false

	// Step 5: prediction-cache short-circuit for established flows.
	if flow.Hits > 2 {
		if cachedPred, cachedPath, ok := e.predCache.Lookup(key, now); ok {
			path = cachedPath
			predict = cachedPred
			usedCache = true
			e.metrics.ObserveCacheHit()
		} else {
			e.metrics.ObserveCacheMiss()
		}
	}

	if !usedCache {
		switch {
		case flow.Hits == 1:
			// Step 7: hit==1 fast track. Hits is still the pre-increment
			// value here, so this fires on a flow's *second* touch — its
			// first went through step 3 above and never reaches here.
			path = flowpath.Accelerated
		case flow.Confidence >= 85 && predict > 0.7:
			path = flowpath.UltraFast
		case flow.Confidence >= 60 && predict > 0.5:
			path = flowpath.Fast
		case predict > 0.6 || consecutiveFast >= 3:
			path = flowpath.Adaptive
		default:
			path = flowpath.Accelerated
		}
	}

	// Step 9: cache the prediction for established flows.
	if flow.Hits > 2 {
		e.predCache.Store(key, predict, path, now)
	}

	return path, predict, freshPredict
}

// applyBurstPromotion implements spec.md §4.6's two promotion rules. Both
// only ever raise confidence, never lower it — spec.md §8 property 7.
func (e *Engine) applyBurstPromotion(flow *flowtable.FlowEntry, predict float64, consecutiveFast uint32) {
	switch {
	case predict > 0.75 && consecutiveFast >= 3 && flow.Confidence < 85:
		flow.Confidence = 85
		flow.PreviousType = flow.FlowType
		flow.FlowType = flowtable.Promoted
		flow.Pattern.RecordPromotion()
		e.ultraFastPromotions++
		e.metrics.ObserveBurstPromotion()
	case predict > 0.55 && consecutiveFast >= 2 && flow.Confidence < 60:
		flow.Confidence = 60
		flow.PreviousType = flow.FlowType
		flow.FlowType = flowtable.Bursty
		flow.Pattern.RecordPromotion()
		e.burstyPromotions++
		e.metrics.ObserveBurstPromotion()
	}
}

// fallbackPath implements step 6: the sketch-only heuristic used when no
// flow record exists at all (only reachable under arena exhaustion).
func (e *Engine) fallbackPath(key uint32) flowpath.Path {
	if e.sk.Query(key) > 8 {
		return flowpath.Accelerated
	}
	return flowpath.Slow
}

func (e *Engine) execute(path flowpath.Path, key uint32) {
	e.pathFuncs[path](key)
	e.pathCounts[path]++
	e.metrics.ObservePath(path)
}

// postUpdate implements step 12: hit/packet-count/recency bookkeeping,
// confidence growth every 4th hit, type reclassification, and the
// promotion-score nudge.
func (e *Engine) postUpdate(flow *flowtable.FlowEntry, path flowpath.Path, predict float64, now time.Time) {
	flow.Hits++
	flow.PacketCount++
	flow.LastSeen = now

	if flow.Hits%4 == 0 {
		flow.Confidence += 4 + int(6*predict)
		if flow.Confidence > 100 {
			flow.Confidence = 100
		}
	}

	reclassify(flow)

	if path.IsFast() {
		flow.PromotionScore += 10
	} else {
		flow.PromotionScore -= 5
	}
	if flow.PromotionScore > 1000 {
		flow.PromotionScore = 1000
	} else if flow.PromotionScore < 0 {
		flow.PromotionScore = 0
	}
}

// reclassify applies spec.md §4.7 step 12's type-reclassification rules.
// Each rule also resets the flow's aging strategy to that type's default
// (entry.go's DefaultStrategy), so a type change always carries a matching
// decay shape with it. It applies the Large/Bursty/Micro chain first, then
// evaluates the anomaly-detection Suspected check as a separate,
// independent step that can fire on top of whatever the chain just set —
// matching the original's shape of one if-else-if chain followed by a
// standalone anomaly check, rather than folding all four rules into one
// mutually-exclusive switch.
func reclassify(flow *flowtable.FlowEntry) {
	switch {
	case flow.PacketCount > 800:
		flow.PreviousType = flow.FlowType
		flow.FlowType = flowtable.Large
		flow.Aging.Strategy = flowtable.DefaultStrategy(flowtable.Large)
	case flow.FlowType != flowtable.Bursty && flow.FlowType != flowtable.Promoted &&
		flow.Pattern.BurstScore > 0.6 && flow.Hits > 10:
		// Promoted flows are protected from this per-packet reclassification;
		// only the dedicated lifecycle demotion rule (internal/aging) may
		// take a flow out of Promoted.
		flow.PreviousType = flow.FlowType
		flow.FlowType = flowtable.Bursty
		flow.Aging.Strategy = flowtable.DefaultStrategy(flowtable.Bursty)
	case flow.PacketCount < 10 && flow.Hits < 5:
		flow.PreviousType = flow.FlowType
		flow.FlowType = flowtable.Micro
		flow.Aging.Strategy = flowtable.DefaultStrategy(flowtable.Micro)
	}

	// Anomaly detection: independent of the chain above, and gated on a
	// full pattern history, per Pattern.Filled's own documented precondition
	// (spec.md §4.7 step 12).
	if flow.Pattern.Filled() && flow.Pattern.PathConsistency < 0.3 && flow.Hits > 8 {
		flow.PreviousType = flow.FlowType
		flow.FlowType = flowtable.Suspected
		flow.Aging.Strategy = flowtable.DefaultStrategy(flowtable.Suspected)
	}
}

// runMaintenance implements step 13: the aging cycle, predictor
// adaptation, and lifecycle pass each run at their own packet cadence.
func (e *Engine) runMaintenance(now time.Time) {
	if e.totalProcessed%aging.Interval == 0 {
		e.agingMgr.RunCycle(e.table, e.model, now)
	}
	if e.totalProcessed%predictor.AdaptationInterval == 0 {
		e.model.Adapt(e.totalProcessed)
	}
	if e.totalProcessed%aging.LifecycleInterval == 0 {
		e.agingMgr.RunLifecycle(e.table, e.model, now)
	}
}

// Enqueue admits key at priority into the engine's priority queue. The
// queue is orthogonal to path selection (spec.md §4.8): callers decide
// independently whether a dispatched packet also needs downstream
// scheduling.
func (e *Engine) Enqueue(key uint32, priority int, now time.Time) {
	before := e.queue.DropCount()
	e.queue.Enqueue(key, priority, now)
	if e.queue.DropCount() != before {
		e.metrics.ObserveQueueDrop()
	}
}

// Dequeue pops the highest-priority pending key, if any.
func (e *Engine) Dequeue() (key uint32, ok bool) {
	return e.queue.DequeueHighestPriority()
}
