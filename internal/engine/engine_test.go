package engine

import (
	"math"
	"testing"

	"github.com/example/spikematch/internal/calibrate"
	"github.com/example/spikematch/internal/detect"
	"github.com/example/spikematch/internal/runtime/tensor"
	"github.com/example/spikematch/internal/template"
	"github.com/example/spikematch/internal/trace"
)

func gaussianModulatedSineWave(l, c int) []float32 {
	out := make([]float32, l*c)

	for t := 0; t < l; t++ {
		center := float64(t-l/2) / float64(l)
		env := math.Exp(-8 * center * center)

		for ch := 0; ch < c; ch++ {
			out[t*c+ch] = float32(env * math.Sin(2*math.Pi*float64(t)/float64(l)*3+float64(ch)*0.3))
		}
	}

	return out
}

func TestOMPEngineEndToEnd(t *testing.T) {
	l, c := 32, 4
	wave := gaussianModulatedSineWave(l, c)

	bank, err := template.NewBank(template.Config{L: l, C: c, Waveforms: [][]float32{wave}})
	if err != nil {
		t.Fatalf("NewBank: %v", err)
	}

	eng, err := NewOMPEngine(bank, 4, OMPParams{
		AmplitudeMin: 0.5,
		AmplitudeMax: 2.0,
		MinSPS:       0.1,
		NoiseLevels:  []float32{0, 0, 0, 0},
		PreWindow:    8,
	})
	if err != nil {
		t.Fatalf("NewOMPEngine: %v", err)
	}

	traceLen := 200
	traceData := make([]float32, traceLen*c)

	const injected = 1.3
	for ti := 0; ti < l; ti++ {
		for ch := 0; ch < c; ch++ {
			traceData[(50+ti)*c+ch] += injected * bank.Templates[0].Waveform[ti*c+ch]
		}
	}

	m, err := tensor.NewMatrix(traceLen, c, traceData)
	if err != nil {
		t.Fatalf("NewMatrix: %v", err)
	}

	chunk := &trace.Chunk{Trace: m, Margin: 0}

	records, err := eng.Detect(chunk)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("got %d records, want 1: %+v", len(records), records)
	}

	if records[0].SampleIndex != 58 {
		t.Errorf("sample_index = %d, want 58 (50+pre 8)", records[0].SampleIndex)
	}
}

// fixedGreedyDetector reports exactly the given peaks regardless of the
// trace contents, letting the end-to-end test pin down sample indices
// and channels without depending on threshold-crossing arithmetic.
func fixedGreedyDetector(peaks []detect.Peak) detect.PeakDetector {
	return func(trace *tensor.Matrix, sign detect.Sign, thresholdMultiple float32, lockoutSamples int) []detect.Peak {
		return peaks
	}
}

func TestGreedyEngineEndToEnd(t *testing.T) {
	l, c := 16, 1
	wave := gaussianModulatedSineWave(l, c)

	bank, err := template.NewBank(template.Config{L: l, C: c, Waveforms: [][]float32{wave}})
	if err != nil {
		t.Fatalf("NewBank: %v", err)
	}

	// One peak sits deep inside the interior and should be detected and
	// reported at its true sample with its detector-reported channel; the
	// other sits in the margin and must be dropped entirely (spec §4.3
	// "Greedy mode" calls the detector on the margin-trimmed interior).
	const (
		interiorWindowStart = 40
		marginWindowStart   = 0
		peakChannel         = 2
	)

	interiorPeak := interiorWindowStart + l/2
	marginPeak := marginWindowStart + l/2

	detector := fixedGreedyDetector([]detect.Peak{
		{Sample: marginPeak, Channel: peakChannel},
		{Sample: interiorPeak, Channel: peakChannel},
	})

	eng, err := NewGreedyEngine(bank, detector, GreedyParams{
		Sign:            detect.SignBoth,
		DetectThreshold: 3,
		LockoutSamples:  l,
		JitterRadius:    0,
		MinAmplitude:    0.5,
		MaxAmplitude:    2.0,
	}, nil, calibrate.Range{MinAmplitude: 0.1, MaxAmplitude: 3.0})
	if err != nil {
		t.Fatalf("NewGreedyEngine: %v", err)
	}

	traceLen := 100
	traceData := make([]float32, traceLen*c)
	for ti := 0; ti < l; ti++ {
		traceData[interiorWindowStart+ti] += 1.0 * bank.Templates[0].Waveform[ti]
		traceData[marginWindowStart+ti] += 1.0 * bank.Templates[0].Waveform[ti]
	}

	m, err := tensor.NewMatrix(traceLen, c, traceData)
	if err != nil {
		t.Fatalf("NewMatrix: %v", err)
	}

	// Margin 20 trims 10 samples off each side, so marginPeak (8) falls
	// outside the interior [10, 90) and interiorPeak (48) falls well
	// inside it.
	chunk := &trace.Chunk{Trace: m, Margin: 20}

	records, err := eng.Detect(chunk)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("got %d records, want 1 (margin peak must be dropped): %+v", len(records), records)
	}

	if records[0].SampleIndex != interiorPeak {
		t.Errorf("sample_index = %d, want %d", records[0].SampleIndex, interiorPeak)
	}

	if records[0].ChannelIndex != peakChannel {
		t.Errorf("channel_index = %d, want %d", records[0].ChannelIndex, peakChannel)
	}
}
