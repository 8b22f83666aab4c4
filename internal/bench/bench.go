// Package bench provides benchmarking primitives for the spikematch
// bench command: timing one or more engine.Detect passes over a fixed
// trace chunk and reporting throughput.
package bench

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Run result and stats
// ---------------------------------------------------------------------------

// RunResult holds the timing and output metadata for a single Detect
// pass.
type RunResult struct {
	Index            int
	Cold             bool // true for the first run; like every run, its Duration times only the Detect call
	Duration         time.Duration
	DetectionCount   int
	SamplesPerSecond float64
}

// Stats holds aggregate timing statistics across all runs.
type Stats struct {
	Min  time.Duration
	Max  time.Duration
	Mean time.Duration
}

// ComputeStats calculates min, max and mean over a slice of durations.
// The slice must be non-empty.
func ComputeStats(durations []time.Duration) Stats {
	if len(durations) == 0 {
		return Stats{}
	}

	mn, mx := durations[0], durations[0]

	var sum time.Duration
	for _, d := range durations {
		if d < mn {
			mn = d
		}

		if d > mx {
			mx = d
		}

		sum += d
	}

	return Stats{
		Min:  mn,
		Max:  mx,
		Mean: sum / time.Duration(len(durations)),
	}
}

// Throughput returns processed samples per second of wall-clock time.
// Returns 0 if dur is zero to avoid division by zero.
func Throughput(samples int, dur time.Duration) float64 {
	if dur <= 0 {
		return 0
	}

	return float64(samples) / dur.Seconds()
}

// ---------------------------------------------------------------------------
// Output formatters
// ---------------------------------------------------------------------------

// FormatTable writes a human-readable ASCII table of bench results to w.
func FormatTable(runs []RunResult, stats Stats, w io.Writer) {
	sb := &strings.Builder{}

	fmt.Fprintf(sb, "%-5s  %-5s  %10s  %12s  %14s\n", "Run", "Cold", "MS", "Detections", "Samples/sec")
	fmt.Fprintln(sb, strings.Repeat("-", 54))

	for _, r := range runs {
		cold := ""
		if r.Cold {
			cold = "yes"
		}

		fmt.Fprintf(sb, "%-5d  %-5s  %10.1f  %12d  %14.0f\n",
			r.Index+1,
			cold,
			float64(r.Duration.Milliseconds()),
			r.DetectionCount,
			r.SamplesPerSecond,
		)
	}

	fmt.Fprintln(sb, strings.Repeat("-", 54))
	fmt.Fprintf(sb, "%-5s  %-5s  %10.1f  %12s  %14s  (min)\n", "", "", float64(stats.Min.Milliseconds()), "", "")
	fmt.Fprintf(sb, "%-5s  %-5s  %10.1f  %12s  %14s  (mean)\n", "", "", float64(stats.Mean.Milliseconds()), "", "")
	fmt.Fprintf(sb, "%-5s  %-5s  %10.1f  %12s  %14s  (max)\n", "", "", float64(stats.Max.Milliseconds()), "", "")

	fmt.Fprint(w, sb.String())
}

// jsonReport is the top-level JSON structure emitted by FormatJSON.
type jsonReport struct {
	Runs  []jsonRun `json:"runs"`
	Stats jsonStats `json:"stats"`
}

type jsonRun struct {
	Index            int     `json:"index"`
	Cold             bool    `json:"cold"`
	DurationMS       float64 `json:"duration_ms"`
	DetectionCount   int     `json:"detection_count"`
	SamplesPerSecond float64 `json:"samples_per_second"`
}

type jsonStats struct {
	MinMS  float64 `json:"min_ms"`
	MeanMS float64 `json:"mean_ms"`
	MaxMS  float64 `json:"max_ms"`
}

// FormatJSON writes a JSON report of bench results to w.
func FormatJSON(runs []RunResult, stats Stats, w io.Writer) {
	jr := jsonReport{
		Runs: make([]jsonRun, len(runs)),
		Stats: jsonStats{
			MinMS:  float64(stats.Min.Milliseconds()),
			MeanMS: float64(stats.Mean.Milliseconds()),
			MaxMS:  float64(stats.Max.Milliseconds()),
		},
	}

	for i, r := range runs {
		jr.Runs[i] = jsonRun{
			Index:            r.Index,
			Cold:             r.Cold,
			DurationMS:       float64(r.Duration.Milliseconds()),
			DetectionCount:   r.DetectionCount,
			SamplesPerSecond: r.SamplesPerSecond,
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(jr)
}
