// Package score implements the Scorer (spec §4.3): producing the score
// tensor S[n, p], the inner product of each template with the trace at
// offset p, via the low-rank convolutional path for OMP and the
// peak-driven matched-filter path for Greedy.
package score

import (
	"math"

	"github.com/example/spikematch/internal/compress"
	"github.com/example/spikematch/internal/runtime/tensor"
)

// OMP computes the dense N x P score tensor via the Template
// Compressor's low-rank convolutional path, then sets the rows of any
// ignored template to -Inf so the OMP solver never selects them (spec
// §4.3 "OMP mode").
func OMP(cp *compress.Compressor, trace *tensor.Matrix, ignored []int) (*tensor.Matrix, error) {
	s, err := cp.Score(trace)
	if err != nil {
		return nil, err
	}

	for _, n := range ignored {
		if n < 0 || n >= s.Rows() {
			continue
		}

		row := s.Row(n)
		for i := range row {
			row[i] = float32(math.Inf(-1))
		}
	}

	return s, nil
}
