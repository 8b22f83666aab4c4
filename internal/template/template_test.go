package template

import (
	"math"
	"testing"
)

func TestNewBankNormalizesAndMasks(t *testing.T) {
	// L=2, C=2. Template 0 lives only on channel 0.
	wave := []float32{1, 0, 1, 0}

	b, err := NewBank(Config{
		L:         2,
		C:         2,
		Waveforms: [][]float32{wave},
		Masks:     [][]int{{0}},
	})
	if err != nil {
		t.Fatalf("NewBank: %v", err)
	}

	if b.N() != 1 {
		t.Fatalf("N() = %d, want 1", b.N())
	}

	tpl := b.Templates[0]
	wantNorm := float32(math.Sqrt(2))

	if math.Abs(float64(tpl.Norm-wantNorm)) > 1e-6 {
		t.Fatalf("Norm = %v, want %v", tpl.Norm, wantNorm)
	}

	for i, v := range tpl.Normalized {
		got := v
		want := tpl.Waveform[i] / tpl.Norm
		if got != want {
			t.Fatalf("Normalized[%d] = %v, want %v", i, got, want)
		}
	}
}

func TestNewBankDegenerateTemplateFails(t *testing.T) {
	wave := []float32{0, 0, 0, 0}

	_, err := NewBank(Config{
		L:         2,
		C:         2,
		Waveforms: [][]float32{wave},
	})
	if err == nil {
		t.Fatal("expected error for zero-norm template")
	}
}

func TestNewBankDegenerateTemplateExcludedWhenAllowed(t *testing.T) {
	zero := []float32{0, 0, 0, 0}
	good := []float32{1, 0, 1, 0}

	b, err := NewBank(Config{
		L:               2,
		C:               2,
		Waveforms:       [][]float32{zero, good},
		AllowDegenerate: true,
	})
	if err != nil {
		t.Fatalf("NewBank: %v", err)
	}

	if b.N() != 1 {
		t.Fatalf("N() = %d, want 1", b.N())
	}

	if len(b.Excluded) != 1 || b.Excluded[0] != 0 {
		t.Fatalf("Excluded = %v, want [0]", b.Excluded)
	}
}

func TestInferSparsityPTPKeepsLoudChannel(t *testing.T) {
	// Channel 0 has amplitude swing 2, channel 1 swing 0.1.
	wave := []float32{-1, 0, 1, 0.1}
	mask := inferSparsityPTP(wave, 2, 2, 1.0)

	if len(mask) != 1 || mask[0] != 0 {
		t.Fatalf("inferSparsityPTP = %v, want [0]", mask)
	}
}
