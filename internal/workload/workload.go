// Package workload implements the traffic-generator collaborator of
// spec.md §6: named profiles that produce a packet key stream and a known-
// flow set in the dataset format internal/dataset reads. It generalizes
// original_source/src/dataset_gen.c's single uniform generator (and the
// teacher's tools/dataset_gen.go, which adds a Zipf mode on top of it) to
// the full set of twelve named profiles spec.md §6 calls for.
//
// Every profile is a parameterization of the same underlying generator —
// a base key-sampling shape (uniform, Zipf, Pareto, normal, bimodal) plus
// the seven named knobs (elephant_ratio, mice_ratio, burst_intensity,
// temporal_locality, spatial_locality, avg_flow_size, seasonality).
// burst_intensity, temporal_locality and spatial_locality modulate every
// shape; elephant_ratio applies to the Zipf and Pareto shapes, and
// seasonality varies it over the stream for Zipf only. mice_ratio and
// avg_flow_size are carried on the Profile but not read by the generator.
// None of this is consumed by the dispatcher core; it exists to produce
// test/benchmark datasets under realistic traffic shapes.
//
// © 2025 flowdispatch authors. MIT License.
package workload

import (
	"fmt"
	"math"
	"math/rand"
)

// Shape selects the base key-sampling distribution a Profile builds on.
type Shape int

const (
	ShapeUniform Shape = iota
	ShapeZipf
	ShapePareto
	ShapeNormal
	ShapeBimodal
)

// Profile is a named traffic shape, parameterized exactly as spec.md §6
// describes: elephant/mice ratios, burst intensity, temporal and spatial
// locality, average flow size, and seasonality. Alpha is the shape
// exponent for Zipf/Pareto profiles; it is an implementation detail behind
// the two explicitly named exponents (Zipf α=1.2, Pareto α=1.5).
type Profile struct {
	Name  string
	Shape Shape
	Alpha float64

	ElephantRatio    float64
	MiceRatio        float64
	BurstIntensity   float64
	TemporalLocality float64
	SpatialLocality  float64
	AvgFlowSize      float64
	Seasonality      float64
}

// Named holds the twelve profiles spec.md §6 enumerates, in plausible
// preset form. Callers needing a custom shape can construct a Profile
// directly instead of looking one up here.
var Named = map[string]Profile{
	"uniform": {
		Name: "uniform", Shape: ShapeUniform,
		ElephantRatio: 0.0, MiceRatio: 1.0, BurstIntensity: 0.0,
		TemporalLocality: 0.0, SpatialLocality: 0.0, AvgFlowSize: 1.0, Seasonality: 0.0,
	},
	"zipf": {
		Name: "zipf", Shape: ShapeZipf, Alpha: 1.2,
		ElephantRatio: 0.2, MiceRatio: 0.8, BurstIntensity: 0.1,
		TemporalLocality: 0.2, SpatialLocality: 0.0, AvgFlowSize: 50.0, Seasonality: 0.0,
	},
	"pareto": {
		Name: "pareto", Shape: ShapePareto, Alpha: 1.5,
		ElephantRatio: 0.15, MiceRatio: 0.85, BurstIntensity: 0.1,
		TemporalLocality: 0.15, SpatialLocality: 0.05, AvgFlowSize: 40.0, Seasonality: 0.0,
	},
	"normal": {
		Name: "normal", Shape: ShapeNormal,
		ElephantRatio: 0.05, MiceRatio: 0.95, BurstIntensity: 0.05,
		TemporalLocality: 0.1, SpatialLocality: 0.1, AvgFlowSize: 10.0, Seasonality: 0.0,
	},
	"bimodal": {
		Name: "bimodal", Shape: ShapeBimodal,
		ElephantRatio: 0.1, MiceRatio: 0.9, BurstIntensity: 0.1,
		TemporalLocality: 0.1, SpatialLocality: 0.15, AvgFlowSize: 15.0, Seasonality: 0.0,
	},
	"ddos": {
		Name: "ddos", Shape: ShapeZipf, Alpha: 0.6,
		ElephantRatio: 0.02, MiceRatio: 0.98, BurstIntensity: 0.9,
		TemporalLocality: 0.05, SpatialLocality: 0.0, AvgFlowSize: 3.0, Seasonality: 0.0,
	},
	"iot": {
		Name: "iot", Shape: ShapeUniform,
		ElephantRatio: 0.0, MiceRatio: 1.0, BurstIntensity: 0.2,
		TemporalLocality: 0.4, SpatialLocality: 0.0, AvgFlowSize: 4.0, Seasonality: 0.3,
	},
	"streaming": {
		Name: "streaming", Shape: ShapeZipf, Alpha: 1.8,
		ElephantRatio: 0.3, MiceRatio: 0.7, BurstIntensity: 0.05,
		TemporalLocality: 0.5, SpatialLocality: 0.0, AvgFlowSize: 500.0, Seasonality: 0.1,
	},
	"datacenter-east-west": {
		Name: "datacenter-east-west", Shape: ShapeBimodal,
		ElephantRatio: 0.25, MiceRatio: 0.75, BurstIntensity: 0.15,
		TemporalLocality: 0.3, SpatialLocality: 0.4, AvgFlowSize: 100.0, Seasonality: 0.0,
	},
	"cdn-edge": {
		Name: "cdn-edge", Shape: ShapeZipf, Alpha: 1.4,
		ElephantRatio: 0.4, MiceRatio: 0.6, BurstIntensity: 0.1,
		TemporalLocality: 0.6, SpatialLocality: 0.0, AvgFlowSize: 200.0, Seasonality: 0.2,
	},
	"enterprise-mixed": {
		Name: "enterprise-mixed", Shape: ShapePareto, Alpha: 2.0,
		ElephantRatio: 0.1, MiceRatio: 0.9, BurstIntensity: 0.1,
		TemporalLocality: 0.3, SpatialLocality: 0.1, AvgFlowSize: 30.0, Seasonality: 0.4,
	},
	"gaming": {
		Name: "gaming", Shape: ShapeNormal,
		ElephantRatio: 0.05, MiceRatio: 0.95, BurstIntensity: 0.5,
		TemporalLocality: 0.25, SpatialLocality: 0.05, AvgFlowSize: 8.0, Seasonality: 0.1,
	},
}

// Names returns the sorted-by-declaration profile name list, for CLI usage
// text and flag validation.
func Names() []string {
	return []string{
		"uniform", "zipf", "pareto", "normal", "bimodal", "ddos", "iot",
		"streaming", "datacenter-east-west", "cdn-edge", "enterprise-mixed", "gaming",
	}
}

// Lookup returns the named profile, or an error listing valid names.
func Lookup(name string) (Profile, error) {
	p, ok := Named[name]
	if !ok {
		return Profile{}, fmt.Errorf("workload: unknown profile %q (valid: %v)", name, Names())
	}
	return p, nil
}

// generator holds the per-run state a Profile's sampling needs: the RNG,
// the elephant key set, and a small recency ring for temporal locality.
type generator struct {
	profile Profile
	rng     *rand.Rand
	ipRange uint32

	elephants []uint32
	zipf      *rand.Zipf

	recent    []uint32
	lastKey   uint32
	hasLast   bool
}

func newGenerator(profile Profile, rng *rand.Rand, ipRange uint32) *generator {
	g := &generator{profile: profile, rng: rng, ipRange: ipRange}

	numElephants := int(float64(ipRange) * 0.02)
	if numElephants < 1 {
		numElephants = 1
	}
	if numElephants > 2000 {
		numElephants = 2000
	}
	g.elephants = make([]uint32, numElephants)
	for i := range g.elephants {
		g.elephants[i] = uint32(rng.Int63n(int64(ipRange)))
	}

	if profile.Shape == ShapeZipf && len(g.elephants) > 1 {
		s := profile.Alpha
		if s <= 1.0 {
			s = 1.0 + 1e-3
		}
		g.zipf = rand.NewZipf(rng, s, 1.0, uint64(len(g.elephants)-1))
	}

	return g
}

func (g *generator) uniform() uint32 {
	return uint32(g.rng.Int63n(int64(g.ipRange)))
}

// paretoValue draws a raw Pareto(xm=1, alpha)-distributed value via
// inverse-transform sampling; the result is always >= 1 and unbounded
// above, so callers must clamp before converting to a fixed-width key.
func (g *generator) paretoValue() float64 {
	alpha := g.profile.Alpha
	if alpha <= 0 {
		alpha = 1.5
	}
	u := g.rng.Float64()
	if u >= 1.0 {
		u = 0.999999
	}
	return 1.0 / math.Pow(1-u, 1/alpha)
}

// paretoElephantIndex maps a Pareto draw onto an elephant-set index,
// front-loading the skew toward index 0 the way a rank-ordered heavy-
// hitter population would be indexed.
func (g *generator) paretoElephantIndex() int {
	x := g.paretoValue() - 1 // shift to start at 0
	n := len(g.elephants)
	idx := int(x)
	if idx >= n {
		idx = n - 1
	}
	return idx
}

func (g *generator) normal(mu, sigma float64) uint32 {
	x := g.rng.NormFloat64()*sigma + mu
	if x < 0 {
		x = 0
	}
	max := float64(g.ipRange) * 10
	if x > max {
		x = max
	}
	return uint32(x) % g.ipRange
}

func (g *generator) bimodal() uint32 {
	mu1 := float64(g.ipRange) * 0.25
	mu2 := float64(g.ipRange) * 0.75
	sigma := float64(g.ipRange) * 0.05
	if g.rng.Float64() < 0.5 {
		return g.normal(mu1, sigma)
	}
	return g.normal(mu2, sigma)
}

// base samples one key from the profile's underlying shape, ignoring the
// elephant/mice mixing and the burst/locality/seasonality modulation that
// Next layers on top.
func (g *generator) base(packetIndex, numPackets int) uint32 {
	switch g.profile.Shape {
	case ShapeZipf:
		elephantRatio := g.seasonalElephantRatio(packetIndex, numPackets)
		if g.zipf != nil && g.rng.Float64() < elephantRatio {
			return g.elephants[g.zipf.Uint64()]
		}
		return g.uniform()
	case ShapePareto:
		if g.rng.Float64() < g.profile.ElephantRatio {
			return g.elephants[g.paretoElephantIndex()]
		}
		return g.uniform()
	case ShapeNormal:
		return g.normal(float64(g.ipRange)/2, float64(g.ipRange)*0.15)
	case ShapeBimodal:
		return g.bimodal()
	default:
		return g.uniform()
	}
}

// seasonalElephantRatio modulates elephant_ratio sinusoidally across the
// packet stream when Seasonality > 0, simulating a time-of-day swing
// between "heavy hitter" and "long tail" dominated periods.
func (g *generator) seasonalElephantRatio(packetIndex, numPackets int) float64 {
	r := g.profile.ElephantRatio
	if g.profile.Seasonality <= 0 || numPackets <= 1 {
		return r
	}
	phase := 2 * math.Pi * float64(packetIndex) / float64(numPackets)
	swing := g.profile.Seasonality * r * math.Sin(phase)
	r += swing
	if r < 0 {
		r = 0
	} else if r > 1 {
		r = 1
	}
	return r
}

// Next produces the i-th of numPackets total keys, applying burst
// repetition, spatial clustering around the previous key, and temporal
// reuse from a short recency window on top of the base shape.
func (g *generator) Next(packetIndex, numPackets int) uint32 {
	if g.hasLast && g.rng.Float64() < g.profile.BurstIntensity {
		return g.lastKey
	}

	if len(g.recent) > 0 && g.rng.Float64() < g.profile.TemporalLocality {
		key := g.recent[g.rng.Intn(len(g.recent))]
		g.remember(key)
		return key
	}

	key := g.base(packetIndex, numPackets)

	if g.hasLast && g.rng.Float64() < g.profile.SpatialLocality {
		delta := int32(g.rng.Intn(21)) - 10 // +/-10 around the previous key
		key = uint32((int64(g.lastKey) + int64(delta) + int64(g.ipRange)) % int64(g.ipRange))
	}

	g.remember(key)
	return key
}

func (g *generator) remember(key uint32) {
	g.lastKey = key
	g.hasLast = true
	const recencyWindow = 32
	g.recent = append(g.recent, key)
	if len(g.recent) > recencyWindow {
		g.recent = g.recent[1:]
	}
}

// Generate produces a known-key set and a packet stream for profile, using
// seed for full reproducibility (spec.md §5 "Randomness"). known keys are
// drawn uniformly, matching original_source's known-flow generation; only
// the packet stream's shape varies by profile.
func Generate(profile Profile, seed int64, knownCount, numPackets int, ipRange uint32) (known, packets []uint32) {
	rng := rand.New(rand.NewSource(seed))

	known = make([]uint32, knownCount)
	for i := range known {
		known[i] = uint32(rng.Int63n(int64(ipRange)))
	}

	g := newGenerator(profile, rng, ipRange)
	packets = make([]uint32, numPackets)
	for i := range packets {
		packets[i] = g.Next(i, numPackets)
	}

	return known, packets
}
