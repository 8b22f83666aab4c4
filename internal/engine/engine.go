// Package engine wires the Overlap Builder, Template Compressor, Scorer,
// and the two solvers into the external interface named in spec §6: an
// engine instance is built once from a template bank and configuration,
// then invoked per chunk to produce a sorted detection array.
package engine

import (
	"fmt"
	"sort"

	"github.com/example/spikematch/internal/calibrate"
	"github.com/example/spikematch/internal/compress"
	"github.com/example/spikematch/internal/detect"
	"github.com/example/spikematch/internal/greedy"
	"github.com/example/spikematch/internal/omp"
	"github.com/example/spikematch/internal/overlap"
	"github.com/example/spikematch/internal/runtime/tensor"
	"github.com/example/spikematch/internal/score"
	"github.com/example/spikematch/internal/template"
	"github.com/example/spikematch/internal/trace"
)

// OMPEngine is the OMP Peeler engine instance (spec §6).
type OMPEngine struct {
	bank       *template.Bank
	compressor *compress.Compressor
	overlap    *overlap.Tensor
	cfg        OMPParams
}

// OMPParams mirrors spec §6's OMP configuration table in physical units.
type OMPParams struct {
	AmplitudeMin, AmplitudeMax float32
	MinSPS                     float32
	IgnoredIDs                 []int
	Vicinity                   int
	NoiseLevels                []float32
	PreWindow, PostWindow      int
}

// NewOMPEngine builds an OMP engine instance from a template bank and
// configuration (spec §7 "Configuration error... Reported at
// initialization; fatal").
func NewOMPEngine(bank *template.Bank, rank int, cfg OMPParams) (*OMPEngine, error) {
	if rank <= 0 {
		return nil, fmt.Errorf("engine: rank must be positive, got %d", rank)
	}

	if maxRank := min(bank.L, bank.C); rank > maxRank {
		return nil, fmt.Errorf("engine: rank %d exceeds min(L,C)=%d", rank, maxRank)
	}

	cp, err := compress.Build(bank, rank)
	if err != nil {
		return nil, fmt.Errorf("engine: compress: %w", err)
	}

	ot, err := overlap.Build(bank)
	if err != nil {
		return nil, fmt.Errorf("engine: overlap: %w", err)
	}

	return &OMPEngine{bank: bank, compressor: cp, overlap: ot, cfg: cfg}, nil
}

// Detect runs the full OMP pass over one chunk, returning a sorted
// detection array whose sample_index is the atom's offset plus PreWindow
// (spec §4.4 "Output filter"). The whole chunk is scored; its margin is
// neither trimmed nor subtracted from sample_index.
func (e *OMPEngine) Detect(chunk *trace.Chunk) ([]detect.Record, error) {
	s, err := score.OMP(e.compressor, chunk.Trace, e.cfg.IgnoredIDs)
	if err != nil {
		return nil, fmt.Errorf("engine: score: %w", err)
	}

	records, err := omp.Solve(e.bank, e.overlap, s, omp.Config{
		MinSPS:       e.cfg.MinSPS,
		AmplitudeMin: e.cfg.AmplitudeMin,
		AmplitudeMax: e.cfg.AmplitudeMax,
		NoiseLevels:  e.cfg.NoiseLevels,
		Vicinity:     e.cfg.Vicinity,
		PreWindow:    e.cfg.PreWindow,
	})
	if err != nil {
		return nil, fmt.Errorf("engine: solve: %w", err)
	}

	return records, nil
}

// GreedyEngine is the Greedy Peeler engine instance (spec §6).
type GreedyEngine struct {
	bank     *template.Bank
	overlap  *overlap.Tensor
	detector detect.PeakDetector
	bounds   []greedy.Bounds
	cfg      GreedyParams
}

// GreedyParams mirrors spec §6's Greedy configuration table.
type GreedyParams struct {
	Sign                  detect.Sign
	DetectThreshold       float32
	LockoutSamples        int
	JitterRadius          int
	MinAmplitude          float32
	MaxAmplitude          float32
	SparseMatrixThreshold int
	NoiseLevels           []float32
}

// NewGreedyEngine builds a Greedy engine instance. If calibration
// samples are supplied, per-template acceptance bands are learned (spec
// §4.6); otherwise every template uses the global [MinAmplitude,
// MaxAmplitude] bracket from GreedyParams.
func NewGreedyEngine(bank *template.Bank, detector detect.PeakDetector, cfg GreedyParams, calibration []calibrate.Samples, calibrationRange calibrate.Range) (*GreedyEngine, error) {
	ot, err := overlap.Build(bank)
	if err != nil {
		return nil, fmt.Errorf("engine: overlap: %w", err)
	}

	bounds := make([]greedy.Bounds, bank.N())
	for i := range bounds {
		bounds[i] = greedy.Bounds{Min: cfg.MinAmplitude, Max: cfg.MaxAmplitude}
	}

	if calibration != nil {
		bands, err := calibrate.Calibrate(bank, calibration, calibrationRange)
		if err != nil {
			return nil, fmt.Errorf("engine: calibrate: %w", err)
		}

		for i, b := range bands {
			bounds[i] = greedy.Bounds{Min: b.Min, Max: b.Max}
		}
	}

	if detector == nil {
		detector = detect.NewThresholdDetector(cfg.NoiseLevels)
	}

	return &GreedyEngine{bank: bank, overlap: ot, detector: detector, bounds: bounds, cfg: cfg}, nil
}

// Detect runs the full Greedy pass over one chunk's interior (spec §4.3
// "Greedy mode" calls the detector on the margin-trimmed interior).
// Snippet extraction still reads from the full chunk, margin included, so
// a peak sitting right at the interior's edge still gets a complete
// length-L window to match against (spec §5 margin contract).
func (e *GreedyEngine) Detect(chunk *trace.Chunk) ([]detect.Record, error) {
	lo, hi := chunk.Interior()

	interior := e.detector
	if lo > 0 || hi < chunk.Trace.Rows() {
		interior = restrictToInterior(e.detector, lo, hi)
	}

	candidates := score.Greedy(e.bank, chunk.Trace, interior, score.GreedyParams{
		Sign:                  e.cfg.Sign,
		ThresholdMultiple:     e.cfg.DetectThreshold,
		LockoutSamples:        e.cfg.LockoutSamples,
		JitterRadius:          e.cfg.JitterRadius,
		SparseMatrixThreshold: e.cfg.SparseMatrixThreshold,
	})

	if len(candidates) == 0 {
		return nil, nil
	}

	peakChannel := make(map[int]int, len(candidates))
	for _, c := range candidates {
		peakChannel[c.SampleIndex] = c.Channel
	}

	records := greedy.Solve(e.bank, e.overlap, candidates, e.bounds, peakChannel)

	sort.Slice(records, func(i, j int) bool { return records[i].SampleIndex < records[j].SampleIndex })

	return records, nil
}

// restrictToInterior wraps a PeakDetector so it only reports peaks whose
// sample falls within [lo, hi), the margin-trimmed interior (spec §4.3).
// The detector still sees the full trace, so its lockout window isn't
// artificially interrupted at the interior boundary; only the reported
// peaks are filtered, keeping sample indices absolute so the snippet
// extraction that follows can still reach into the margin.
func restrictToInterior(d detect.PeakDetector, lo, hi int) detect.PeakDetector {
	return func(trace *tensor.Matrix, sign detect.Sign, thresholdMultiple float32, lockoutSamples int) []detect.Peak {
		peaks := d(trace, sign, thresholdMultiple, lockoutSamples)

		out := peaks[:0:0]
		for _, pk := range peaks {
			if pk.Sample >= lo && pk.Sample < hi {
				out = append(out, pk)
			}
		}

		return out
	}
}
