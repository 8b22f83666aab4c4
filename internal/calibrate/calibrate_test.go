package calibrate

import (
	"math"
	"testing"

	"github.com/example/spikematch/internal/template"
)

func gaussianBumpC(l, c int) []float32 {
	out := make([]float32, l*c)

	for t := 0; t < l; t++ {
		d := (float64(t) - float64(l)/2) / (float64(l) / 8)
		v := float32(math.Exp(-d * d))

		for ch := 0; ch < c; ch++ {
			out[t*c+ch] = v
		}
	}

	return out
}

func shift(wave []float32, l, c, by int) []float32 {
	out := make([]float32, len(wave))

	for t := 0; t < l; t++ {
		src := t - by
		if src < 0 || src >= l {
			continue
		}

		copy(out[t*c:(t+1)*c], wave[src*c:(src+1)*c])
	}

	return out
}

// TestCalibrateTwoTemplateBank mirrors spec §8 scenario S6: a
// two-template bank where one template is a 1-sample shifted copy of the
// other must still produce a_max > a_min for both after calibration.
func TestCalibrateTwoTemplateBank(t *testing.T) {
	l, c := 16, 2
	w0 := gaussianBumpC(l, c)
	w1 := shift(w0, l, c, 1)

	bank, err := template.NewBank(template.Config{L: l, C: c, Waveforms: [][]float32{w0, w1}})
	if err != nil {
		t.Fatalf("NewBank: %v", err)
	}

	own0 := scaledCopies(bank.Templates[0].Normalized, []float32{0.8, 1.0, 1.2})
	own1 := scaledCopies(bank.Templates[1].Normalized, []float32{0.8, 1.0, 1.2})

	noise := randomNoise(l*c, 6, 0.1)

	samples := []Samples{
		{Own: own0, Other: own1, Noise: noise},
		{Own: own1, Other: own0, Noise: noise},
	}

	bands, err := Calibrate(bank, samples, Range{MinAmplitude: 0.1, MaxAmplitude: 3.0})
	if err != nil {
		t.Fatalf("Calibrate: %v", err)
	}

	for n, b := range bands {
		if b.Max <= b.Min {
			t.Errorf("template %d: max %v <= min %v", n, b.Max, b.Min)
		}
	}
}

func scaledCopies(normalized []float32, scales []float32) [][]float32 {
	out := make([][]float32, len(scales))

	for i, s := range scales {
		w := make([]float32, len(normalized))
		for j, v := range normalized {
			w[j] = v * s
		}

		out[i] = w
	}

	return out
}

func randomNoise(n, count int, scale float32) [][]float32 {
	// Deterministic pseudo-noise (no math/rand dependency needed for a
	// fixed small fixture): a simple linear congruential sequence.
	out := make([][]float32, count)
	seed := uint32(12345)

	for i := 0; i < count; i++ {
		w := make([]float32, n)
		for j := range w {
			seed = seed*1664525 + 1013904223
			w[j] = (float32(seed%1000)/1000 - 0.5) * 2 * scale
		}

		out[i] = w
	}

	return out
}
