// Package compress implements the Template Compressor (spec §4.2): a
// rank-R truncated factorization of every template's waveform into
// (spatial, singular, temporal) components, enabling the OMP Scorer to
// score a whole trace chunk via three stacked 1-D operations (a spatial
// GEMM, an elementwise scale, and a 1-D convolution per rank component)
// instead of a dense 2-D convolution per template.
package compress

import (
	"fmt"

	"github.com/cwbudde/algo-dsp/dsp/conv"

	"github.com/example/spikematch/internal/runtime/matx"
	"github.com/example/spikematch/internal/runtime/tensor"
	"github.com/example/spikematch/internal/template"
)

// templateFactors holds one template's rank-R decomposition.
type templateFactors struct {
	spatial []float64 // C x R, row-major
	single  []float64 // R
	// temporalRev[r] is the length-L temporal atom for rank r, time-
	// reversed so that convolving it against the trace yields a
	// correlation (spec §4.2, §3 data-model note on the temporal axis).
	temporalRev [][]float64
}

// Compressor holds the rank-R factorization of an entire template bank.
type Compressor struct {
	rank    int
	l, c    int
	factors []templateFactors
}

// Build factors every template in bank at the given rank via a truncated
// SVD of its L x C waveform (spec §4.2).
func Build(bank *template.Bank, rank int) (*Compressor, error) {
	if rank <= 0 {
		return nil, fmt.Errorf("compress: rank must be positive, got %d", rank)
	}

	cp := &Compressor{rank: rank, l: bank.L, c: bank.C}

	for n, tpl := range bank.Templates {
		wave64 := make([]float64, len(tpl.Normalized))
		for i, v := range tpl.Normalized {
			wave64[i] = float64(v)
		}

		factors, err := matx.TruncatedSVD(wave64, bank.L, bank.C, rank)
		if err != nil {
			return nil, fmt.Errorf("compress: template %d: %w", n, err)
		}

		effRank := len(factors.Singular)

		temporalRev := make([][]float64, effRank)
		for r := 0; r < effRank; r++ {
			rev := make([]float64, bank.L)
			for t := 0; t < bank.L; t++ {
				rev[t] = factors.Temporal[(bank.L-1-t)*effRank+r]
			}

			temporalRev[r] = rev
		}

		spatial := make([]float64, bank.C*effRank)
		copy(spatial, factors.Spatial)

		cp.factors = append(cp.factors, templateFactors{
			spatial:     spatial,
			single:      factors.Singular,
			temporalRev: temporalRev,
		})
	}

	return cp, nil
}

// Rank returns the rank passed to Build. Templates are factored at
// min(rank, L, C) components, so this can exceed the rank actually used.
func (cp *Compressor) Rank() int { return cp.rank }

// Score computes the dense score tensor S[n, p] = <W_n, trace[p:p+L]>
// over every template and every valid offset p in [0, T-L] (spec §4.2,
// §4.3 OMP mode), via the low-rank convolutional path: spatial
// projection, singular scaling, then 1-D convolution per rank component
// using algo-dsp's FFT-backed convolution with valid boundary handling.
func (cp *Compressor) Score(trace *tensor.Matrix) (*tensor.Matrix, error) {
	t := trace.Rows()
	c := trace.Cols()

	if c != cp.c {
		return nil, fmt.Errorf("compress: trace channel count %d does not match template channel count %d", c, cp.c)
	}

	if t < cp.l {
		return nil, fmt.Errorf("compress: trace length %d shorter than template length %d", t, cp.l)
	}

	p := t - cp.l + 1
	n := len(cp.factors)
	out := tensor.ZerosMatrix(n, p)

	trace64 := make([][]float64, t)
	for ti := 0; ti < t; ti++ {
		row := make([]float64, c)
		for ci := 0; ci < c; ci++ {
			row[ci] = float64(trace.At(ti, ci))
		}

		trace64[ti] = row
	}

	for ni, f := range cp.factors {
		dst := out.Row(ni)

		for r := range f.single {
			proj := make([]float64, t)

			for ti := 0; ti < t; ti++ {
				var sum float64
				for ci := 0; ci < c; ci++ {
					sum += trace64[ti][ci] * f.spatial[ci*len(f.single)+r]
				}

				proj[ti] = sum * f.single[r]
			}

			full, err := conv.Convolve(proj, f.temporalRev[r])
			if err != nil {
				return nil, fmt.Errorf("compress: convolve template %d rank %d: %w", ni, r, err)
			}

			// "valid" region of a full convolution of length t+l-1: the
			// l-1 leading and trailing samples are edge effects.
			for pi := 0; pi < p; pi++ {
				dst[pi] += float32(full[cp.l-1+pi])
			}
		}
	}

	return out, nil
}
