// Package testutil provides shared synthetic fixtures for package tests
// across spikematch: Gaussian-bump waveforms, a single-template bank, and
// trace chunks with injected spikes at known positions. The
// core has no external binary or model dependency to skip around (unlike
// the teacher's pocket-tts CLI/ONNX Runtime prerequisites), so these
// helpers build deterministic numeric fixtures instead of gating on
// environment availability.
package testutil

import (
	"math"
	"testing"

	"github.com/example/spikematch/internal/runtime/tensor"
	"github.com/example/spikematch/internal/template"
)

// GaussianBump returns an L*C row-major waveform: a Gaussian-modulated
// sinusoid repeated (with a small channel-dependent phase shift) on
// every channel, a stand-in unit template.
func GaussianBump(l, c int) []float32 {
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

// SingleTemplateBank builds a one-template bank of shape L x C from
// GaussianBump.
func SingleTemplateBank(t *testing.T, l, c int) *template.Bank {
	t.Helper()

	bank, err := template.NewBank(template.Config{
		L:         l,
		C:         c,
		Waveforms: [][]float32{GaussianBump(l, c)},
	})
	if err != nil {
		t.Fatalf("testutil: NewBank: %v", err)
	}

	return bank
}

// InjectSpike adds amplitude*waveform into trace starting at sample lo,
// building a trace with a single known ground-truth spike. The peeler and
// engine tests inline the same loop rather than calling this helper.
func InjectSpike(traceData []float32, c, lo int, waveform []float32, l int, amplitude float32) {
	for ti := 0; ti < l; ti++ {
		for ch := 0; ch < c; ch++ {
			traceData[(lo+ti)*c+ch] += amplitude * waveform[ti*c+ch]
		}
	}
}

// ZeroTrace builds a T x C all-zero tensor.Matrix, a starting point for
// fixture traces before spikes are injected via InjectSpike.
func ZeroTrace(t *testing.T, samples, c int) *tensor.Matrix {
	t.Helper()

	m, err := tensor.NewMatrix(samples, c, make([]float32, samples*c))
	if err != nil {
		t.Fatalf("testutil: NewMatrix: %v", err)
	}

	return m
}
