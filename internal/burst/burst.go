// Package burst tracks per-second packet arrival rate and declares bursts,
// the input to the dispatcher's burst-promotion rule (spec.md §4.6).
//
// © 2025 flowdispatch authors. MIT License.
package burst

import "time"

// WindowSize is the number of trailing per-second buckets retained for the
// rolling mean (spec.md §3/§4.6).
const WindowSize = 100

// Threshold is the minimum per-second packet count that can ever qualify
// as a burst, regardless of how low the rolling mean is (spec.md §4.6).
const Threshold = 100

// Detector maintains the 100-slot ring of per-second packet counts and the
// currently-active burst flag. A burst, once declared for a second, stays
// active for every packet processed during that second — the dispatcher
// consults Active() on every packet, not just at the second boundary.
type Detector struct {
	history [WindowSize]uint32
	index   int

	secondStart time.Time
	secondCount uint32
	currentRate float64
	active      bool
	totalBursts uint64
}

// NewDetector returns a Detector with an empty history.
func NewDetector() *Detector {
	return &Detector{}
}

// Tick registers one packet's arrival at now. It must be called exactly
// once per dispatched packet; it rolls the ring forward whenever the
// wall-clock second changes, and re-evaluates Active for the new second.
func (d *Detector) Tick(now time.Time) {
	sec := now.Truncate(time.Second)

	if d.secondStart.IsZero() {
		d.secondStart = sec
		d.secondCount = 1
		return
	}

	if sec.Equal(d.secondStart) {
		d.secondCount++
		return
	}

	// Second boundary crossed: close out the second that just ended. Seconds
	// with no packets in between are not recorded in the ring.
	d.history[d.index] = d.secondCount
	d.index = (d.index + 1) % WindowSize

	var total uint64
	for _, c := range d.history {
		total += uint64(c)
	}
	d.currentRate = float64(total) / float64(WindowSize)

	d.active = float64(d.secondCount) > d.currentRate*2.0 && d.secondCount > Threshold
	if d.active {
		d.totalBursts++
	}

	d.secondStart = sec
	d.secondCount = 1
}

// Active reports whether the second currently in progress was flagged as a
// burst at its opening tick.
func (d *Detector) Active() bool { return d.active }

// CurrentRate returns the rolling mean per-second packet count.
func (d *Detector) CurrentRate() float64 { return d.currentRate }

// TotalBursts returns the number of seconds ever flagged as a burst.
func (d *Detector) TotalBursts() uint64 { return d.totalBursts }
