// Package main provides hibench, a micro-benchmark driver for hibitset.
//
// Usage:
//
//	hibench [flags]
//
// Flags:
//
//	-w, --workload   Workload definition file (JWCC); built-in default if omitted
//	-o, --out        Report output path (default .benchmarks/hibench.json)
//	-r, --runs       Runs per case (default 5)
//	-s, --seed       Base RNG seed (default 1)
//
// The workload file describes benchmark cases; comments and trailing
// commas are allowed:
//
//	{
//	    "cases": [
//	        // dense fill of the low range
//	        {"name": "dense-insert", "width": 64, "count": 100000, "span": 150000},
//	    ],
//	}
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"
	flag "github.com/spf13/pflag"
	"github.com/tailscale/hujson"

	"github.com/calvinalkan/hibitset/pkg/hibitset"
)

var (
	errUnknownWidth = errors.New("width must be 64, 128 or 256")
	errNoCases      = errors.New("workload has no cases")
	errBadCase      = errors.New("invalid case")
)

// Case is one benchmark case from the workload file.
type Case struct {
	Name  string `json:"name"`
	Width int    `json:"width"`
	Count int    `json:"count"` // indices inserted per operand
	Span  int    `json:"span"`  // indices drawn from [0, span)
}

// Workload is the parsed workload file.
type Workload struct {
	Cases []Case `json:"cases"`
}

// Result is the timing summary of one case and operation.
type Result struct {
	Case      string  `json:"case"`
	Op        string  `json:"op"`
	Runs      int     `json:"runs"`
	MeanNs    float64 `json:"mean_ns"`
	MinNs     int64   `json:"min_ns"`
	MaxNs     int64   `json:"max_ns"`
	CheckSum  uint64  `json:"checksum"` // defeats dead-code elimination; stable per seed
	Timestamp string  `json:"timestamp"`
}

// Report is the JSON document written to --out.
type Report struct {
	Seed    int64    `json:"seed"`
	Results []Result `json:"results"`
}

func defaultWorkload() Workload {
	return Workload{Cases: []Case{
		{Name: "dense-64", Width: 64, Count: 100_000, Span: 150_000},
		{Name: "sparse-64", Width: 64, Count: 2_000, Span: 260_000},
		{Name: "dense-128", Width: 128, Count: 400_000, Span: 600_000},
		{Name: "sparse-256", Width: 256, Count: 10_000, Span: 16_000_000},
	}}
}

func loadWorkload(path string) (Workload, error) {
	if path == "" {
		return defaultWorkload(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Workload{}, fmt.Errorf("read workload: %w", err)
	}

	// Standardize JWCC to JSON.
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Workload{}, fmt.Errorf("invalid JWCC: %w", err)
	}

	var w Workload
	if err := json.Unmarshal(standardized, &w); err != nil {
		return Workload{}, fmt.Errorf("invalid workload: %w", err)
	}

	if len(w.Cases) == 0 {
		return Workload{}, errNoCases
	}

	for _, c := range w.Cases {
		if c.Name == "" || c.Count <= 0 || c.Span <= 0 {
			return Workload{}, fmt.Errorf("%w: %+v", errBadCase, c)
		}

		if c.Width != 64 && c.Width != 128 && c.Width != 256 {
			return Workload{}, fmt.Errorf("%w: %+v", errUnknownWidth, c)
		}
	}

	return w, nil
}

func main() {
	flags := flag.NewFlagSet("hibench", flag.ContinueOnError)
	workloadPath := flags.StringP("workload", "w", "", "Workload definition file (JWCC)")
	outPath := flags.StringP("out", "o", filepath.Join(".benchmarks", "hibench.json"), "Report output path")
	runs := flags.IntP("runs", "r", 5, "Runs per case")
	seed := flags.Int64P("seed", "s", 1, "Base RNG seed")

	if err := flags.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}

	workload, err := loadWorkload(*workloadPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	report := Report{Seed: *seed}

	for _, c := range workload.Cases {
		results := runCase(c, *runs, *seed)
		report.Results = append(report.Results, results...)

		for _, r := range results {
			fmt.Printf("%-14s %-10s runs=%d mean=%s\n",
				r.Case, r.Op, r.Runs, time.Duration(int64(r.MeanNs)))
		}
	}

	if err := writeReport(*outPath, report); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	fmt.Println("report:", *outPath)
}

func writeReport(path string, report Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	buf, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	if err := atomic.WriteFile(path, bytes.NewReader(buf)); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	return nil
}

func runCase(c Case, runs int, seed int64) []Result {
	switch c.Width {
	case 128:
		return benchCase[hibitset.Block128, hibitset.Block128, hibitset.Block128](c, runs, seed)
	case 256:
		return benchCase[hibitset.Block256, hibitset.Block256, hibitset.Block256](c, runs, seed)
	default:
		return benchCase[hibitset.Block64, hibitset.Block64, hibitset.Block64](c, runs, seed)
	}
}

// benchCase times insert, traversal and the binary operations for one
// case. Every run rebuilds its inputs from the same seed so timings are
// comparable across invocations.
func benchCase[L0 hibitset.Block[L0], L1 hibitset.Block[L1], D hibitset.Block[D]](
	c Case, runs int, seed int64,
) []Result {
	build := func(offset int64) *hibitset.Set[L0, L1, D] {
		rng := rand.New(rand.NewSource(seed + offset))
		s := hibitset.New[L0, L1, D]()

		span := min(c.Span, int(s.MaxIndex())+1)

		for i := 0; i < c.Count; i++ {
			s.Insert(uint(rng.Intn(span)))
		}

		return s
	}

	type op struct {
		name string
		run  func() uint64
	}

	a, b := build(0), build(1)

	ops := []op{
		{name: "insert", run: func() uint64 {
			s := build(2)

			return uint64(s.Len())
		}},
		{name: "traverse", run: func() uint64 {
			var sum uint64

			it := a.Iter()
			it.Traverse(func(x uint) bool {
				sum += uint64(x)

				return true
			})

			return sum
		}},
		{name: "and", run: func() uint64 { return uint64(a.And(b).Len()) }},
		{name: "or", run: func() uint64 { return uint64(a.Or(b).Len()) }},
		{name: "xor", run: func() uint64 { return uint64(a.Xor(b).Len()) }},
		{name: "andnot", run: func() uint64 { return uint64(a.AndNot(b).Len()) }},
	}

	now := time.Now().UTC().Format(time.RFC3339)
	results := make([]Result, 0, len(ops))

	for _, o := range ops {
		var (
			total int64
			minNs int64
			maxNs int64
			check uint64
		)

		for r := 0; r < runs; r++ {
			start := time.Now()
			check = o.run()
			elapsed := time.Since(start).Nanoseconds()

			total += elapsed
			if r == 0 || elapsed < minNs {
				minNs = elapsed
			}

			if elapsed > maxNs {
				maxNs = elapsed
			}
		}

		results = append(results, Result{
			Case:      c.Name,
			Op:        o.name,
			Runs:      runs,
			MeanNs:    float64(total) / float64(runs),
			MinNs:     minNs,
			MaxNs:     maxNs,
			CheckSum:  check,
			Timestamp: now,
		})
	}

	return results
}
