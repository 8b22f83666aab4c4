package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/spikematch/internal/bench"
)

func newBenchCmd() *cobra.Command {
	var (
		tracePath string
		runs      int
		format    string
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark engine throughput over a fixed trace",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if tracePath == "" {
				return fmt.Errorf("--trace is required")
			}

			if runs < 1 {
				return fmt.Errorf("--runs must be at least 1")
			}

			if format != "table" && format != "json" {
				return fmt.Errorf("--format must be 'table' or 'json'")
			}

			bankObj, err := loadBank(cfg)
			if err != nil {
				return err
			}

			eng, err := buildEngine(bankObj, cfg)
			if err != nil {
				return err
			}

			chunk, err := loadTrace(tracePath, bankObj)
			if err != nil {
				return err
			}

			results := make([]bench.RunResult, 0, runs)
			durations := make([]time.Duration, 0, runs)

			for i := 0; i < runs; i++ {
				start := time.Now()

				records, err := eng.Detect(chunk)
				if err != nil {
					return fmt.Errorf("run %d: %w", i+1, err)
				}

				dur := time.Since(start)
				durations = append(durations, dur)

				results = append(results, bench.RunResult{
					Index:            i,
					Cold:             i == 0,
					Duration:         dur,
					DetectionCount:   len(records),
					SamplesPerSecond: bench.Throughput(chunk.Trace.Rows(), dur),
				})
			}

			stats := bench.ComputeStats(durations)

			switch format {
			case "json":
				bench.FormatJSON(results, stats, os.Stdout)
			default:
				bench.FormatTable(results, stats, os.Stdout)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&tracePath, "trace", "", "Path to a WAV trace file (required)")
	cmd.Flags().IntVar(&runs, "runs", 5, "Number of detect passes")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table|json")

	return cmd
}
