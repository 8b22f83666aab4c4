package matx

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// RankRFactors holds the rank-R truncated factors of a single template's
// flattened [L, C] waveform, used by the Template Compressor (spec §4.2):
//
//	waveform ≈ temporal * diag(singular) * spatialᵀ
//
// spatial has shape [C, R], temporal has shape [L, R] (not yet
// time-reversed — that happens in the compress package, which owns the
// domain meaning of the factors).
type RankRFactors struct {
	Spatial  []float64 // C x R, row-major
	Singular []float64 // length R
	Temporal []float64 // L x R, row-major
}

// TruncatedSVD factors a dense L x C matrix (row-major, float64) and
// returns the top-rank components via gonum's mat.SVD. rank is clamped to
// min(L, C).
func TruncatedSVD(waveform []float64, l, c, rank int) (RankRFactors, error) {
	if l <= 0 || c <= 0 {
		return RankRFactors{}, fmt.Errorf("matx: truncated SVD requires positive dims, got %dx%d", l, c)
	}

	if len(waveform) != l*c {
		return RankRFactors{}, fmt.Errorf("matx: truncated SVD data length %d does not match %dx%d", len(waveform), l, c)
	}

	if rank <= 0 {
		return RankRFactors{}, fmt.Errorf("matx: truncated SVD requires rank > 0, got %d", rank)
	}

	maxRank := l
	if c < maxRank {
		maxRank = c
	}

	if rank > maxRank {
		rank = maxRank
	}

	a := mat.NewDense(l, c, waveform)

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return RankRFactors{}, fmt.Errorf("matx: SVD factorization failed for %dx%d matrix", l, c)
	}

	var u, v mat.Dense

	svd.UTo(&u)
	svd.VTo(&v)

	values := svd.Values(nil)

	out := RankRFactors{
		Spatial:  make([]float64, c*rank),
		Singular: append([]float64(nil), values[:rank]...),
		Temporal: make([]float64, l*rank),
	}

	// U is L x k (thin SVD), V is C x k; the spec's "spatial" factor lives
	// on the channel axis and "temporal" on the time axis, so spatial =
	// V[:, :rank] and temporal = U[:, :rank].
	for i := 0; i < c; i++ {
		for r := 0; r < rank; r++ {
			out.Spatial[i*rank+r] = v.At(i, r)
		}
	}

	for i := 0; i < l; i++ {
		for r := 0; r < rank; r++ {
			out.Temporal[i*rank+r] = u.At(i, r)
		}
	}

	return out, nil
}
