// path.go re-exports the flowpath enum at the package boundary callers
// actually import, mirroring the teacher's pattern of keeping its public
// pkg/ surface independent of internal/ package names.
//
// © 2025 flowdispatch authors. MIT License.
package dispatch

import "github.com/shreeshjha/flowdispatch/internal/flowpath"

// Path is the six-way processing path enum (spec.md §4.7).
type Path = flowpath.Path

// The six paths, ordered by increasing cost.
const (
	UltraFast    = flowpath.UltraFast
	Fast         = flowpath.Fast
	Accelerated  = flowpath.Accelerated
	Adaptive     = flowpath.Adaptive
	Slow         = flowpath.Slow
	DeepAnalysis = flowpath.DeepAnalysis
)

// PathCount is the number of distinct paths.
const PathCount = flowpath.Count
