// Package overlap implements the Overlap Builder (spec §4.1): for every
// pair of templates and every integer lag in [0, 2L-1], the inner
// product of the two templates at that relative shift. The result is the
// read-only table both solvers consult in their residual-subtraction hot
// loop.
package overlap

import (
	"fmt"

	"github.com/example/spikematch/internal/runtime/tensor"
	"github.com/example/spikematch/internal/template"
)

// Row is template n's sparse overlap row, O_n, against every other
// template m at every lag. entries[m] is nil when templates n and m
// never overlap at any lag (e.g. disjoint sparsity masks), which is the
// common case in a bank with localized templates and is what keeps the
// residual-subtraction loop proportional to actual coupling rather than
// to N (spec §4.1 rationale).
type Row struct {
	lags    int // 2L-1
	entries [][]float32
}

// At returns O_n[m, delta], 0 if the (m, delta) pair has no recorded
// overlap.
func (r *Row) At(m, delta int) float32 {
	e := r.entries[m]
	if e == nil {
		return 0
	}

	return e[delta]
}

// LagSlice returns O_n[m, lo:hi] as a contiguous view, or nil if the
// (n, m) pair never overlaps at any lag. Used by the solvers' residual
// subtraction to feed tensor.Axpy directly instead of looping per lag.
func (r *Row) LagSlice(m, lo, hi int) []float32 {
	e := r.entries[m]
	if e == nil {
		return nil
	}

	return e[lo:hi]
}

// Lags returns 2L-1, the number of valid lag indices.
func (r *Row) Lags() int { return r.lags }

// Dense materializes the full N x (2L-1) matrix for this row. The solvers
// do not call it: they read overlap entries straight from the row through
// At and LagSlice, and keep no dense cache.
func (r *Row) Dense() [][]float32 {
	out := make([][]float32, len(r.entries))

	for m, e := range r.entries {
		if e == nil {
			out[m] = make([]float32, r.lags)
			continue
		}

		out[m] = append([]float32(nil), e...)
	}

	return out
}

// Tensor is the overlap tensor: one Row per template (spec §3).
type Tensor struct {
	L    int
	Rows []*Row
}

// Build constructs the overlap tensor for a template bank, using the
// normalized waveforms (so that the zero-lag self-term is 1, per the
// spec §3/§8 invariant).
//
// Algorithm (spec §4.1): for every shift s in [0, L-1], build the
// "source" matrix of each template's samples [s:L] and the "target"
// matrix of each template's samples [0:L-s], both flattened across
// channels, and take their cross-Gram. That gives O_n[m, L-1+s] directly;
// the mirror O_n[m, L-1-s] is the transpose, O_m[n, L-1+s], for s >= 1.
func Build(bank *template.Bank) (*Tensor, error) {
	n := bank.N()
	l := bank.L
	c := bank.C

	if n == 0 {
		return nil, fmt.Errorf("overlap: bank has no templates")
	}

	lags := 2*l - 1

	full, err := tensor.NewBank3(n, l, c, flattenNormalized(bank))
	if err != nil {
		return nil, fmt.Errorf("overlap: materialize bank: %w", err)
	}

	// grid[n][m] is a length-`lags` slice, lazily allocated the first time
	// any lag for the (n, m) pair is non-zero.
	grid := make([][][]float32, n)
	for i := range grid {
		grid[i] = make([][]float32, n)
	}

	set := func(rowN, colM, delta int, v float32) {
		if v == 0 && grid[rowN][colM] == nil {
			return
		}

		if grid[rowN][colM] == nil {
			grid[rowN][colM] = make([]float32, lags)
		}

		grid[rowN][colM][delta] = v
	}

	for s := 0; s < l; s++ {
		source := full.TimeWindowMatrix(s, l)   // each template's [s:L]
		target := full.TimeWindowMatrix(0, l-s) // each template's [0:L-s]

		cross, err := tensor.RowGram(source, target)
		if err != nil {
			return nil, fmt.Errorf("overlap: cross-Gram at shift %d: %w", s, err)
		}

		delta := l - 1 + s

		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				v := cross.At(i, j)
				set(i, j, delta, v)

				if s > 0 {
					// Mirror: O_j[i, L-1-s] = O_i[j, L-1+s].
					set(j, i, l-1-s, v)
				}
			}
		}
	}

	rows := make([]*Row, n)
	for i := 0; i < n; i++ {
		rows[i] = &Row{lags: lags, entries: grid[i]}
	}

	return &Tensor{L: l, Rows: rows}, nil
}

func flattenNormalized(bank *template.Bank) []float32 {
	n := bank.N()
	step := bank.L * bank.C
	out := make([]float32, n*step)

	for i, tpl := range bank.Templates {
		copy(out[i*step:(i+1)*step], tpl.Normalized)
	}

	return out
}
