package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/spikematch/internal/calibrate"
	"github.com/example/spikematch/internal/config"
	"github.com/example/spikematch/internal/detect"
	"github.com/example/spikematch/internal/engine"
	"github.com/example/spikematch/internal/template"
	"github.com/example/spikematch/internal/trace"
)

func newRunCmd() *cobra.Command {
	var (
		tracePath string
		format    string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one engine pass over a WAV trace and print detections",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if tracePath == "" {
				return fmt.Errorf("--trace is required")
			}

			if format != "table" && format != "json" {
				return fmt.Errorf("--format must be 'table' or 'json'")
			}

			bank, err := loadBank(cfg)
			if err != nil {
				return err
			}

			eng, err := buildEngine(bank, cfg)
			if err != nil {
				return err
			}

			chunk, err := loadTrace(tracePath, bank)
			if err != nil {
				return err
			}

			records, err := eng.Detect(chunk)
			if err != nil {
				return fmt.Errorf("detect: %w", err)
			}

			switch format {
			case "json":
				printRecordsJSON(records)
			default:
				printRecordsTable(records)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&tracePath, "trace", "", "Path to a WAV trace file (required)")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table|json")

	return cmd
}

// detector is the narrow interface both engine types satisfy.
type detector interface {
	Detect(chunk *trace.Chunk) ([]detect.Record, error)
}

func buildEngine(bank *template.Bank, cfg config.Config) (detector, error) {
	engineName, err := config.NormalizeEngine(cfg.Engine)
	if err != nil {
		return nil, err
	}

	preWindow := bank.L / 2
	postWindow := bank.L - preWindow

	switch engineName {
	case config.EngineOMP:
		return engine.NewOMPEngine(bank, cfg.Bank.Rank, engine.OMPParams{
			AmplitudeMin: float32(cfg.OMP.AmplitudeMin),
			AmplitudeMax: float32(cfg.OMP.AmplitudeMax),
			MinSPS:       float32(cfg.OMP.MinSPS),
			IgnoredIDs:   cfg.OMP.IgnoredIDs,
			Vicinity:     cfg.OMP.Vicinity,
			PreWindow:    preWindow,
			PostWindow:   postWindow,
		})
	case config.EngineGreedy:
		sign, err := parsePeakSign(cfg.Greedy.PeakSign)
		if err != nil {
			return nil, err
		}

		return engine.NewGreedyEngine(bank, nil, engine.GreedyParams{
			Sign:                  sign,
			DetectThreshold:       float32(cfg.Greedy.DetectThreshold),
			LockoutSamples:        preWindow + postWindow,
			JitterRadius:          1,
			MinAmplitude:          float32(cfg.Greedy.MinAmplitude),
			MaxAmplitude:          float32(cfg.Greedy.MaxAmplitude),
			SparseMatrixThreshold: int(cfg.Greedy.UseSparseMatrixThreshold * float64(bank.N())),
		}, nil, calibrate.Range{
			MinAmplitude: float32(cfg.Greedy.MinAmplitude),
			MaxAmplitude: float32(cfg.Greedy.MaxAmplitude),
		})
	default:
		return nil, fmt.Errorf("unknown engine %q", engineName)
	}
}

func parsePeakSign(s string) (detect.Sign, error) {
	switch s {
	case "neg", "negative", "":
		return detect.SignNegative, nil
	case "pos", "positive":
		return detect.SignPositive, nil
	case "both":
		return detect.SignBoth, nil
	default:
		return 0, fmt.Errorf("invalid peak-sign %q (want neg|pos|both)", s)
	}
}

func loadTrace(path string, bank *template.Bank) (*trace.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}

	margin := trace.MarginFor(bank.L/2, bank.L-bank.L/2)

	chunk, err := trace.LoadChunkFromWAV(data, margin)
	if err != nil {
		return nil, fmt.Errorf("decode trace: %w", err)
	}

	return chunk, nil
}

func printRecordsTable(records []detect.Record) {
	fmt.Printf("%-10s %-8s %-8s %-10s\n", "sample", "channel", "cluster", "amplitude")

	for _, r := range records {
		fmt.Printf("%-10d %-8d %-8d %-10.4f\n", r.SampleIndex, r.ChannelIndex, r.ClusterIndex, r.Amplitude)
	}
}

func printRecordsJSON(records []detect.Record) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(records)
}
