// Package matx provides the small set of dense-linear-algebra primitives
// the peeler solvers need beyond the tensor package: an incrementally
// growable Cholesky factor (OMP atom selection) and a thin rank-truncated
// SVD wrapper over gonum/mat (Template Compressor).
package matx

import (
	"errors"
	"fmt"
	"math"
)

// ErrLinearlyDependent is returned by GrowableCholesky.Extend when the new
// row is linearly dependent on the already-selected rows (spec §4.4 step
// 2): the Cholesky update would require a negative square root. Callers
// treat this as a clean solver-termination signal, not an error condition
// (spec §7).
var ErrLinearlyDependent = errors.New("matx: new atom linearly dependent on selection")

// epsFloat32 is the float32 machine epsilon used by the OMP solver's
// linear-dependence check (spec §4.4/§5).
const epsFloat32 = 1.1920929e-7

// GrowableCholesky maintains the lower-triangular Cholesky factor M of the
// Gram matrix of a growing set of selected atoms, M*Mᵀ = G, one row at a
// time. Storage is a square float32 buffer that doubles capacity on
// overflow (spec §4.4/§9); only the lower triangle is ever read or
// written.
type GrowableCholesky struct {
	cap  int
	size int
	data []float32 // cap x cap, row-major, lower triangle populated
}

// NewGrowableCholesky creates an empty factor with the given initial
// capacity (spec §4.4 names 100 as the default allocation).
func NewGrowableCholesky(initialCapacity int) *GrowableCholesky {
	if initialCapacity < 1 {
		initialCapacity = 1
	}

	return &GrowableCholesky{
		cap:  initialCapacity,
		data: make([]float32, initialCapacity*initialCapacity),
	}
}

// Size returns the current number of selected atoms (rows/cols of M).
func (g *GrowableCholesky) Size() int { return g.size }

func (g *GrowableCholesky) at(i, j int) float32 {
	return g.data[i*g.cap+j]
}

func (g *GrowableCholesky) set(i, j int, v float32) {
	g.data[i*g.cap+j] = v
}

func (g *GrowableCholesky) grow() {
	newCap := g.cap * 2
	newData := make([]float32, newCap*newCap)

	for i := 0; i < g.size; i++ {
		copy(newData[i*newCap:i*newCap+g.size], g.data[i*g.cap:i*g.cap+g.size])
	}

	g.cap = newCap
	g.data = newData
}

// Extend appends one new row to the factor given the new Gram row g
// (length equal to the current size, the Gram entries between the new
// atom and each already-selected atom) and the new atom's self-Gram
// value (normally 1 for a normalized atom). It solves M*x = g by forward
// substitution, sets the new diagonal to sqrt(selfGram - ||x||²), and
// returns ErrLinearlyDependent when that radicand is at or below the
// float32 machine epsilon (spec §4.4 step 2).
func (g *GrowableCholesky) Extend(gramRow []float32, selfGram float32) error {
	if len(gramRow) != g.size {
		return fmt.Errorf("matx: gram row length %d does not match factor size %d", len(gramRow), g.size)
	}

	if g.size+1 > g.cap {
		g.grow()
	}

	k := g.size

	// Forward substitution: M[0:k,0:k] * x = gramRow.
	x := make([]float32, k)

	for i := 0; i < k; i++ {
		sum := gramRow[i]
		for j := 0; j < i; j++ {
			sum -= g.at(i, j) * x[j]
		}

		diag := g.at(i, i)
		if diag == 0 {
			return fmt.Errorf("matx: zero pivot at row %d", i)
		}

		x[i] = sum / diag
	}

	var normSq float32
	for _, v := range x {
		normSq += v * v
	}

	radicand := selfGram - normSq
	if radicand <= epsFloat32 {
		return ErrLinearlyDependent
	}

	for j := 0; j < k; j++ {
		g.set(k, j, x[j])
	}

	g.set(k, k, float32(math.Sqrt(float64(radicand))))
	g.size = k + 1

	return nil
}

// SolveSymmetric solves M*Mᵀ*alpha = rhs for alpha, via forward
// substitution (Ly=rhs) followed by back substitution (Lᵀalpha=y), the
// two triangular solves spec §4.4 step 3 calls out explicitly (the
// systems-language analogue of LAPACK potrs on the cached factor M).
func (g *GrowableCholesky) SolveSymmetric(rhs []float32) ([]float32, error) {
	n := g.size
	if len(rhs) != n {
		return nil, fmt.Errorf("matx: rhs length %d does not match factor size %d", len(rhs), n)
	}

	y := make([]float32, n)
	for i := 0; i < n; i++ {
		sum := rhs[i]
		for j := 0; j < i; j++ {
			sum -= g.at(i, j) * y[j]
		}

		y[i] = sum / g.at(i, i)
	}

	alpha := make([]float32, n)
	for i := n - 1; i >= 0; i-- {
		sum := y[i]
		for j := i + 1; j < n; j++ {
			sum -= g.at(j, i) * alpha[j]
		}

		alpha[i] = sum / g.at(i, i)
	}

	return alpha, nil
}

// Gram reconstructs G = M*Mᵀ restricted to the selected rows/cols,
// exposed for the Cholesky-consistency property test (spec §8 #3).
func (g *GrowableCholesky) Gram() [][]float32 {
	n := g.size
	out := make([][]float32, n)

	for i := 0; i < n; i++ {
		out[i] = make([]float32, n)

		for j := 0; j < n; j++ {
			var sum float32
			for k := 0; k <= min(i, j); k++ {
				sum += g.at(i, k) * g.at(j, k)
			}

			out[i][j] = sum
		}
	}

	return out
}
