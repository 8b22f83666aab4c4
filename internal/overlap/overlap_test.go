package overlap

import (
	"math"
	"testing"

	"github.com/example/spikematch/internal/template"
)

func gaussianSine(l int, phase float64) []float32 {
	out := make([]float32, l)

	for i := 0; i < l; i++ {
		t := float64(i-l/2) / float64(l)
		out[i] = float32(math.Exp(-8*t*t) * math.Sin(2*math.Pi*float64(i)/float64(l)*3+phase))
	}

	return out
}

func buildTestBank(t *testing.T, n, l, c int) *template.Bank {
	t.Helper()

	waves := make([][]float32, n)
	for i := 0; i < n; i++ {
		sine := gaussianSine(l, float64(i))
		w := make([]float32, l*c)

		for ti := 0; ti < l; ti++ {
			for ch := 0; ch < c; ch++ {
				w[ti*c+ch] = sine[ti] * float32(1.0/float64(ch+1))
			}
		}

		waves[i] = w
	}

	bank, err := template.NewBank(template.Config{L: l, C: c, Waveforms: waves})
	if err != nil {
		t.Fatalf("NewBank: %v", err)
	}

	return bank
}

func TestOverlapSelfPeak(t *testing.T) {
	bank := buildTestBank(t, 2, 16, 3)

	ot, err := Build(bank)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for n := range ot.Rows {
		self := ot.Rows[n].At(n, ot.L-1)
		if math.Abs(float64(self-1)) > 1e-5 {
			t.Fatalf("template %d self-peak O[%d,%d] = %v, want 1", n, n, ot.L-1, self)
		}
	}
}

func TestOverlapSymmetry(t *testing.T) {
	bank := buildTestBank(t, 3, 12, 2)

	ot, err := Build(bank)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	lags := ot.Rows[0].Lags()

	for n := range ot.Rows {
		for m := range ot.Rows {
			for delta := 0; delta < lags; delta++ {
				a := ot.Rows[n].At(m, delta)
				b := ot.Rows[m].At(n, lags-1-delta)

				if math.Abs(float64(a-b)) > 1e-5 {
					t.Fatalf("symmetry violated: O_%d[%d,%d]=%v O_%d[%d,%d]=%v", n, m, delta, a, m, n, lags-1-delta, b)
				}
			}
		}
	}
}

func TestOverlapDense(t *testing.T) {
	bank := buildTestBank(t, 2, 8, 2)

	ot, err := Build(bank)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	dense := ot.Rows[0].Dense()
	if len(dense) != 2 || len(dense[0]) != ot.Rows[0].Lags() {
		t.Fatalf("Dense() shape = %dx%d, want 2x%d", len(dense), len(dense[0]), ot.Rows[0].Lags())
	}
}
