// Package predictor implements the fixed-shape linear-plus-sigmoid model
// that scores a flow's likelihood of being fast-pathable, plus the online
// accuracy bookkeeping that tunes its learning rate. See spec.md §4.4.
//
// © 2025 flowdispatch authors. MIT License.
package predictor

import (
	"math"
	"time"

	"github.com/shreeshjha/flowdispatch/internal/flowpath"
	"github.com/shreeshjha/flowdispatch/internal/flowtable"
)

// FeatureCount is the fixed width of the model's input vector (spec.md §3).
const FeatureCount = 8

// AdaptationInterval is the packet cadence at which the learning rate is
// retuned from recent validation accuracy (spec.md §4.4).
const AdaptationInterval = 50_000

const (
	accuracyHigh = 0.85
	accuracyLow  = 0.70
	lrDecay      = 0.98
	lrGrowth     = 1.05
	lrMin        = 5e-4
	lrMax        = 1e-2
)

// Model is the dispatcher's fixed-shape predictor: 8 weights, 1 bias, a
// learning rate, per-feature normalization bounds, and online accuracy
// counters. Weights are fixed at construction and never mutated by the
// adaptation loop — see the doc comment on Adapt for why.
type Model struct {
	weights [FeatureCount]float64
	bias    float64

	LearningRate float64

	featureMin [FeatureCount]float64
	featureMax [FeatureCount]float64

	ValidationSamples uint64
	ValidationCorrect uint64
	PredictionsMade   uint64
	Accuracy          float64
	LastAdaptation    uint64
}

// New constructs the model with the weights specified in spec.md §3,
// ordered by descending importance and summing to 1.0.
func New() *Model {
	m := &Model{
		weights: [FeatureCount]float64{
			0.35, // confidence
			0.20, // hits
			0.15, // packet_count
			0.10, // recency
			0.08, // path_consistency
			0.05, // burst_score
			0.04, // cache-hit ratio
			0.03, // flow_type ordinal
		},
		bias:         0.2,
		LearningRate: 0.002,
	}
	for i := range m.featureMax {
		m.featureMax[i] = 100.0
	}
	m.featureMax[1] = 1000.0  // hits can run much higher than 100
	m.featureMax[2] = 10000.0 // packet_count likewise
	return m
}

// Features computes the raw (unnormalized) feature vector for flow at now,
// per spec.md §4.4.
func Features(flow *flowtable.FlowEntry, now time.Time) [FeatureCount]float64 {
	var f [FeatureCount]float64
	idleSeconds := now.Sub(flow.LastSeen).Seconds() + 1
	f[0] = float64(flow.Confidence)
	f[1] = float64(flow.Hits)
	f[2] = float64(flow.PacketCount)
	f[3] = 100.0 / idleSeconds
	f[4] = flow.Pattern.PathConsistency * 100.0
	f[5] = flow.Pattern.BurstScore * 100.0
	f[6] = flow.CacheHitRatio() * 100.0
	f[7] = float64(flow.FlowType.Ordinal()) * 10.0
	return f
}

// normalize maps each raw feature into [0,1] using the model's per-feature
// bounds, clamping out-of-range values.
func (m *Model) normalize(f [FeatureCount]float64) [FeatureCount]float64 {
	for i := range f {
		rng := m.featureMax[i] - m.featureMin[i]
		if rng > 1e-6 {
			f[i] = (f[i] - m.featureMin[i]) / rng
		} else {
			f[i] = 0.5
		}
		if f[i] > 1.0 {
			f[i] = 1.0
		} else if f[i] < 0.0 {
			f[i] = 0.0
		}
	}
	return f
}

// Predict returns σ(bias + Σ wᵢ·normalized(fᵢ)) for flow at now, and bumps
// PredictionsMade. A nil flow scores 0.0 (spec.md §4.9).
func (m *Model) Predict(flow *flowtable.FlowEntry, now time.Time) float64 {
	if flow == nil {
		return 0.0
	}
	f := m.normalize(Features(flow, now))

	z := m.bias
	for i, w := range m.weights {
		z += w * f[i]
	}
	m.PredictionsMade++
	return sigmoid(z)
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

// Validate records an online accuracy sample for flows with Hits >= 5: the
// model's "fast" vote (prediction > 0.6) against the ground truth of the
// path actually taken (spec.md §4.4).
func (m *Model) Validate(flow *flowtable.FlowEntry, prediction float64, actual flowpath.Path) {
	if flow == nil || flow.Hits < 5 {
		return
	}
	predictedFast := prediction > 0.6
	actualFast := actual.IsFast()
	m.ValidationSamples++
	if predictedFast == actualFast {
		m.ValidationCorrect++
	}
}

// Adapt runs every AdaptationInterval packets. It retunes LearningRate from
// the validation accuracy collected since the last call and resets the
// validation counters. It does NOT update weights.
//
// This is a deliberate, documented choice (spec.md §9 Open Question): the
// source this model is adapted from tracks validation accuracy and adjusts
// only the learning rate, leaving the linear layer weights fixed — in
// effect an offline-trained model with an online-tunable learning rate
// reserved for a future gradient-update pass. Implementing that pass would
// change §4.4's behavioral contract (a model that starts mispredicting
// differently run to run), so it is deliberately left undone here; Adapt
// only prepares the knob a future SGD step would consume.
func (m *Model) Adapt(totalProcessed uint64) {
	if totalProcessed-m.LastAdaptation < AdaptationInterval {
		return
	}
	if m.ValidationSamples > 0 {
		m.Accuracy = float64(m.ValidationCorrect) / float64(m.ValidationSamples)

		switch {
		case m.Accuracy > accuracyHigh:
			m.LearningRate *= lrDecay
		case m.Accuracy < accuracyLow:
			m.LearningRate *= lrGrowth
		}
		if m.LearningRate > lrMax {
			m.LearningRate = lrMax
		} else if m.LearningRate < lrMin {
			m.LearningRate = lrMin
		}

		m.ValidationSamples = 0
		m.ValidationCorrect = 0
	}
	m.LastAdaptation = totalProcessed
}
