// Command flow-dispatch-inspect polls the /debug/flowdispatch/snapshot
// endpoint of a running process that serves an Engine Snapshot as JSON (no
// command in this module serves that endpoint) and prints it, in the
// same one-shot/watch/JSON shape as cmd/arena-cache-inspect, retargeted at
// the dispatcher's report fields instead of the cache's.
//
// Usage:
//
//	flow-dispatch-inspect -target http://localhost:6061
//	flow-dispatch-inspect -target http://localhost:6061 -watch -interval 2s
//	flow-dispatch-inspect -target http://localhost:6061 -json
//
// © 2025 flowdispatch authors. MIT License.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

type options struct {
	target   string
	watch    bool
	interval time.Duration
	json     bool
}

func parseFlags() *options {
	opts := &options{}
	fs := flag.NewFlagSet("flow-dispatch-inspect", flag.ExitOnError)
	fs.StringVar(&opts.target, "target", "http://localhost:6061", "base URL of a process serving /debug/flowdispatch/snapshot")
	fs.BoolVar(&opts.watch, "watch", false, "poll repeatedly instead of one-shot")
	fs.DurationVar(&opts.interval, "interval", 2*time.Second, "poll interval in watch mode")
	fs.BoolVar(&opts.json, "json", false, "print raw JSON instead of a formatted summary")
	fs.Parse(os.Args[1:])
	return opts
}

func main() {
	opts := parseFlags()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	if opts.watch {
		ticker := time.NewTicker(opts.interval)
		defer ticker.Stop()
		for {
			if err := dumpOnce(ctx, opts); err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
			}
			select {
			case <-ticker.C:
				continue
			case <-ctx.Done():
				return
			}
		}
	}

	if err := dumpOnce(ctx, opts); err != nil {
		fatal(err)
	}
}

func dumpOnce(ctx context.Context, opts *options) error {
	snap, err := fetchSnapshot(ctx, opts.target)
	if err != nil {
		return err
	}
	if opts.json {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	return prettyPrint(snap)
}

func fetchSnapshot(ctx context.Context, base string) (map[string]any, error) {
	url := base + "/debug/flowdispatch/snapshot"
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", res.Status)
	}
	var data map[string]any
	if err := json.NewDecoder(res.Body).Decode(&data); err != nil {
		return nil, err
	}
	return data, nil
}

func prettyPrint(data map[string]any) error {
	fmt.Printf("Packets:     %v\n", data["TotalPackets"])
	fmt.Printf("Mpps:        %v\n", data["Mpps"])
	fmt.Printf("FlowsCreated:%v\n", data["FlowsCreated"])
	fmt.Printf("CacheHitRate:%v\n", data["CacheHitRate"])
	fmt.Printf("PredictorAcc:%v\n", data["PredictorAccuracy"])
	return nil
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "flow-dispatch-inspect:", err)
	os.Exit(1)
}
