// Package sketch implements a fixed-shape Count-Min sketch used by the
// dispatcher to approximate per-flow arrival frequency in O(D) time.
//
// The sketch never allocates after construction: the counter matrix is
// sized once (D rows × W columns) and mutated in place. Counters saturate
// at math.MaxUint32 instead of wrapping, so a hot flow can never corrupt a
// neighbouring estimate through overflow.
//
// © 2025 flowdispatch authors. MIT License.
package sketch

import "math"

// Depth and Width are fixed by the source design: three rows of 4096
// power-of-two-width counters give a good frequency/size tradeoff at the
// target packet rates.
const (
	Depth = 3
	Width = 4096
)

// seeds are fixed, non-zero constants so that two runs over the same
// dataset produce bit-identical frequency estimates (spec.md §8 property 1).
var seeds = [Depth]uint32{0x9e3779b9, 0x85ebca6b, 0xc2b2ae35}

// Sketch is a Count-Min estimator over 32-bit flow keys.
type Sketch struct {
	counters [Depth][Width]uint32
}

// New returns a zeroed sketch ready for use.
func New() *Sketch {
	return &Sketch{}
}

// mix is a fixed 32-bit xorshift/multiply mixer. It has no relation to any
// hash used elsewhere in the dispatcher (hash table, cache) — each
// structure owns its own mixing so that skew in one does not leak into
// another.
func mix(x uint32) uint32 {
	x ^= x >> 16
	x *= 0x7feb352d
	x ^= x >> 15
	x *= 0x846ca68b
	x ^= x >> 16
	return x
}

func column(key, seed uint32) uint32 {
	return mix(key^seed) & (Width - 1)
}

// Update increments the counter cell for key in every row, saturating at
// math.MaxUint32.
func (s *Sketch) Update(key uint32) {
	for i := 0; i < Depth; i++ {
		c := column(key, seeds[i])
		if s.counters[i][c] < math.MaxUint32 {
			s.counters[i][c]++
		}
	}
}

// Query returns the minimum counter across all rows for key — the Count-Min
// frequency estimate, always ≥ the true count (spec.md §8 property 3).
func (s *Sketch) Query(key uint32) uint32 {
	min := uint32(math.MaxUint32)
	for i := 0; i < Depth; i++ {
		c := s.counters[i][column(key, seeds[i])]
		if c < min {
			min = c
		}
	}
	return min
}
