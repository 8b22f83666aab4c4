package greedy

import (
	"math"
	"testing"

	"github.com/example/spikematch/internal/detect"
	"github.com/example/spikematch/internal/overlap"
	"github.com/example/spikematch/internal/runtime/tensor"
	"github.com/example/spikematch/internal/score"
	"github.com/example/spikematch/internal/template"
)

func gaussianBump(l int) []float32 {
	out := make([]float32, l)
	for i := 0; i < l; i++ {
		d := (float64(i) - float64(l)/2) / (float64(l) / 8)
		out[i] = float32(math.Exp(-d * d))
	}

	return out
}

func TestGreedyRecoversTwoNonOverlappingSpikes(t *testing.T) {
	l, c := 16, 1
	wave := gaussianBump(l)

	bank, err := template.NewBank(template.Config{L: l, C: c, Waveforms: [][]float32{wave}})
	if err != nil {
		t.Fatalf("NewBank: %v", err)
	}

	ot, err := overlap.Build(bank)
	if err != nil {
		t.Fatalf("overlap.Build: %v", err)
	}

	traceLen := 200
	traceData := make([]float32, traceLen)

	const amp1, amp2 = 1.0, 1.5
	for i := 0; i < l; i++ {
		traceData[30+i] += amp1 * bank.Templates[0].Waveform[i]
		traceData[120+i] += amp2 * bank.Templates[0].Waveform[i]
	}

	traceMatrix, err := tensor.NewMatrix(traceLen, c, traceData)
	if err != nil {
		t.Fatalf("NewMatrix: %v", err)
	}

	detector := func(trace *tensor.Matrix, sign detect.Sign, thresholdMultiple float32, lockoutSamples int) []detect.Peak {
		return []detect.Peak{
			{Sample: 30 + l/2, Channel: 0},
			{Sample: 120 + l/2, Channel: 0},
		}
	}

	candidates := score.Greedy(bank, traceMatrix, detector, score.GreedyParams{
		Sign:              detect.SignBoth,
		ThresholdMultiple: 4,
		LockoutSamples:    l,
		JitterRadius:      1,
	})

	bounds := []Bounds{{Min: 0.5, Max: 2.0}}

	detections := Solve(bank, ot, candidates, bounds, nil)
	if len(detections) != 2 {
		t.Fatalf("got %d detections, want 2: %+v", len(detections), detections)
	}

	if detections[0].SampleIndex >= detections[1].SampleIndex {
		t.Fatalf("detections not ordered: %+v", detections)
	}

	if math.Abs(float64(detections[0].Amplitude-amp1)) > 0.05 {
		t.Errorf("first amplitude = %v, want ~%v", detections[0].Amplitude, amp1)
	}

	if math.Abs(float64(detections[1].Amplitude-amp2)) > 0.05 {
		t.Errorf("second amplitude = %v, want ~%v", detections[1].Amplitude, amp2)
	}
}
