// Package bench provides reproducible micro-benchmarks for flowdispatch.
// Run via:  go test ./bench -bench=. -benchmem -cpu 1,4,16
//
// We measure:
//   1. Dispatch         – single-engine sequential throughput over a fixed
//                         key population (the Mpps figure cmd/flow-dispatch
//                         reports)
//   2. DispatchParallel – ShardedEngine throughput under b.RunParallel
//   3. DispatchBatch    – ShardedEngine.DispatchBatch on a pre-built packet
//                         slice, the shape a real NIC poll loop would use
//   4. DispatchBurst    – a tight 256-key working set, exercising the
//                         Hits==1 fast track and the prediction cache
//                         instead of continual flow creation
//
// Results are printed in ns/op + alloc/op so CI can diff via benchstat.
//
// NOTE: Unit tests live alongside the packages they cover; this file is
// only for performance.
//
// © 2025 flowdispatch authors. MIT License.

package bench

import (
	"context"
	"math/rand"
	"runtime"
	"testing"
	"time"

	"github.com/shreeshjha/flowdispatch/pkg/dispatch"
)

/* -------------------------------------------------------------------------
   Test harness helpers
   ------------------------------------------------------------------------- */

const (
	ipRange = 1 << 20 // 1M distinct keys for the dataset
	keys    = 1 << 16 // working set per benchmark iteration
)

func newTestEngine() *dispatch.Engine {
	e, err := dispatch.New()
	if err != nil {
		panic(err)
	}
	return e
}

// global dataset reused across benches to avoid reallocating large slices.
// It draws from its own seed-42 source, so every run benchmarks the same keys.
var ds = func() []uint32 {
	r := rand.New(rand.NewSource(42))
	arr := make([]uint32, keys)
	for i := range arr {
		arr[i] = r.Uint32() % ipRange
	}
	return arr
}()

/* -------------------------------------------------------------------------
   Benchmarks
   ------------------------------------------------------------------------- */

func BenchmarkDispatch(b *testing.B) {
	e := newTestEngine()
	now := time.Unix(0, 0)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := ds[i&(keys-1)]
		e.Dispatch(key, now)
		now = now.Add(time.Microsecond)
	}
	b.StopTimer()
	snap := e.Snapshot(time.Duration(b.N)*time.Microsecond, now)
	b.ReportMetric(snap.CacheHitRate*100, "cache-hit-%")
}

func BenchmarkDispatchParallel(b *testing.B) {
	se, err := dispatch.NewSharded(runtime.GOMAXPROCS(0))
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		idx := rand.Intn(keys)
		now := time.Unix(0, 0)
		for pb.Next() {
			idx = (idx + 1) & (keys - 1)
			se.Shard(ds[idx]).Dispatch(ds[idx], now)
			now = now.Add(time.Microsecond)
		}
	})
}

func BenchmarkDispatchBatch(b *testing.B) {
	se, err := dispatch.NewSharded(runtime.GOMAXPROCS(0))
	if err != nil {
		b.Fatal(err)
	}
	now := time.Unix(0, 0)
	pkts := make([]dispatch.Packet, keys)
	for i, k := range ds {
		pkts[i] = dispatch.Packet{Key: k, Now: now}
		now = now.Add(time.Microsecond)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := se.DispatchBatch(context.Background(), pkts); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDispatchBurst(b *testing.B) {
	e := newTestEngine()
	now := time.Unix(0, 0)
	const burstSize = 256
	burst := ds[:burstSize]
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := burst[i&(burstSize-1)]
		e.Dispatch(key, now)
		now = now.Add(time.Microsecond)
	}
}

/* -------------------------------------------------------------------------
   Utility – runtime setup. ds above is seeded on its own; rand.Seed has no
   effect on Go 1.24+, so BenchmarkDispatchParallel's start offsets from the
   global source vary between runs.
   ------------------------------------------------------------------------- */

func init() {
	rand.Seed(42)
	runtime.GOMAXPROCS(runtime.NumCPU())
}
