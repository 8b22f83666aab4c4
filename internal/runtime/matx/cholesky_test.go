package matx

import (
	"math"
	"testing"
)

func TestGrowableCholeskyIdentity(t *testing.T) {
	g := NewGrowableCholesky(2)

	if err := g.Extend(nil, 1); err != nil {
		t.Fatalf("Extend atom 0: %v", err)
	}

	if err := g.Extend([]float32{0}, 1); err != nil {
		t.Fatalf("Extend atom 1: %v", err)
	}

	if err := g.Extend([]float32{0, 0}, 1); err != nil {
		t.Fatalf("Extend atom 2 (triggers growth): %v", err)
	}

	if g.Size() != 3 {
		t.Fatalf("Size() = %d, want 3", g.Size())
	}

	gram := g.Gram()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := float32(0)
			if i == j {
				want = 1
			}

			if math.Abs(float64(gram[i][j]-want)) > 1e-4 {
				t.Fatalf("Gram[%d][%d] = %v, want %v", i, j, gram[i][j], want)
			}
		}
	}
}

func TestGrowableCholeskyLinearDependence(t *testing.T) {
	g := NewGrowableCholesky(4)

	if err := g.Extend(nil, 1); err != nil {
		t.Fatalf("Extend atom 0: %v", err)
	}

	// Gram row [1] with selfGram 1 means the new atom equals the first:
	// x = 1, radicand = 1 - 1 = 0 <= eps.
	if err := g.Extend([]float32{1}, 1); err != ErrLinearlyDependent {
		t.Fatalf("Extend duplicate atom: err = %v, want ErrLinearlyDependent", err)
	}
}

func TestGrowableCholeskySolveSymmetric(t *testing.T) {
	g := NewGrowableCholesky(4)
	_ = g.Extend(nil, 4)          // G = [[4]]
	_ = g.Extend([]float32{2}, 5) // G = [[4,2],[2,5]]

	alpha, err := g.SolveSymmetric([]float32{4, 5})
	if err != nil {
		t.Fatalf("SolveSymmetric: %v", err)
	}

	// Solve [[4,2],[2,5]] x = [4,5] by hand: x = [0.625, 0.75].
	want := []float32{0.625, 0.75}
	for i := range want {
		if math.Abs(float64(alpha[i]-want[i])) > 1e-3 {
			t.Fatalf("alpha[%d] = %v, want %v", i, alpha[i], want[i])
		}
	}
}
