// Command dataset-gen produces a dataset.txt-format file (internal/dataset)
// under a named traffic profile (internal/workload). It generalizes the
// teacher's tools/dataset_gen.go — which offered only "uniform" and "zipf"
// — to the full profile list spec.md §6 names, in the same flag-driven
// single-file style.
//
// Usage:
//
//	dataset-gen -profile zipf -known 1000 -packets 1000000 -range 20000 -seed 42 -out dataset.txt
//
// © 2025 flowdispatch authors. MIT License.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shreeshjha/flowdispatch/internal/dataset"
	"github.com/shreeshjha/flowdispatch/internal/workload"
)

func main() {
	var (
		profileName = flag.String("profile", "uniform", "traffic profile: "+strings.Join(workload.Names(), ", "))
		known       = flag.Int("known", 1000, "number of pre-populated known flows")
		numPackets  = flag.Int("packets", 1_000_000, "number of packets to generate")
		ipRange     = flag.Uint("range", 20000, "ip/key space size")
		seed        = flag.Int64("seed", time.Now().UnixNano(), "PRNG seed")
		outPath     = flag.String("out", "dataset.txt", "output file path")
	)
	flag.Parse()

	profile, err := workload.Lookup(*profileName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	knownKeys, packets := workload.Generate(profile, *seed, *known, *numPackets, uint32(*ipRange))

	out, err := os.Create(*outPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "dataset-gen: cannot create output file:", err)
		os.Exit(1)
	}
	defer out.Close()

	if err := dataset.Write(out, knownKeys, packets, uint32(*ipRange)); err != nil {
		fmt.Fprintln(os.Stderr, "dataset-gen: write failed:", err)
		os.Exit(1)
	}

	fmt.Printf("dataset-gen: wrote %d known flows and %d packets (profile=%s, seed=%d) to %s\n",
		len(knownKeys), len(packets), profile.Name, *seed, *outPath)
}
