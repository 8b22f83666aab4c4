// Package greedy implements the Greedy Solver (spec §4.5): a
// peak-detection-driven single-atom-at-a-time fit, each accepted spike
// subtracting its residual contribution from the score tensor via the
// overlap tensor and suppressing further matches of that cluster in the
// same neighborhood.
package greedy

import (
	"math"
	"sort"

	"github.com/example/spikematch/internal/detect"
	"github.com/example/spikematch/internal/overlap"
	"github.com/example/spikematch/internal/runtime/tensor"
	"github.com/example/spikematch/internal/score"
	"github.com/example/spikematch/internal/template"
)

// Bounds is one template's acceptance band in physical amplitude units,
// as produced by the Amplitude Calibrator (spec §4.6) and widened here to
// score units via the template norm.
type Bounds struct {
	Min, Max float32
}

// Solve runs the Greedy Solver to completion against the candidates
// produced by the Greedy Scorer (spec §4.3 "Greedy mode") and the bank's
// overlap tensor.
//
// candidates need not be deduplicated beyond what score.Greedy already
// does (one entry per (template, sample) pair). Solve builds its own
// dense N x P working tensor indexed by the distinct peak sample
// positions present in candidates.
func Solve(bank *template.Bank, ot *overlap.Tensor, candidates []score.Candidate, bounds []Bounds, peakChannel map[int]int) []detect.Record {
	if len(candidates) == 0 {
		return nil
	}

	peaks := distinctSortedSamples(candidates)
	peakIndex := make(map[int]int, len(peaks))
	for i, s := range peaks {
		peakIndex[s] = i
	}

	n := bank.N()
	p := len(peaks)
	l := bank.L

	s := make([][]float32, n)
	for i := range s {
		s[i] = make([]float32, p)
		for j := range s[i] {
			s[i][j] = float32(math.Inf(-1))
		}
	}

	for _, c := range candidates {
		pi := peakIndex[c.SampleIndex]
		if c.Score > s[c.TemplateIndex][pi] {
			s[c.TemplateIndex][pi] = c.Score
		}
	}

	// bounds[i].Min/Max widened to score units via each template's norm,
	// since s is expressed as an inner product against a normalized
	// template (spec §4.5 "per-template bounds (min_n, max_n) =
	// amplitudes_n * ||W_n||").
	scoreMin := make([]float32, n)
	scoreMax := make([]float32, n)

	for i, tpl := range bank.Templates {
		b := Bounds{Min: 0, Max: float32(math.Inf(1))}
		if i < len(bounds) {
			b = bounds[i]
		}

		scoreMin[i] = b.Min * tpl.Norm
		scoreMax[i] = b.Max * tpl.Norm
	}

	var out []detect.Record

	// gather is reused scratch space holding one row of the overlap
	// tensor, regathered per pick onto the irregular peak-sample grid
	// (spec §9 row-major storage motivates the contiguous Axpy below).
	gather := make([]float32, p)

	for {
		nStar, pStar, ok := argMaxInBand(s, scoreMin, scoreMax)
		if !ok {
			break
		}

		a := s[nStar][pStar]
		pStarSample := peaks[pStar]

		lo := sort.SearchInts(peaks, pStarSample-l+1)
		hi := sort.SearchInts(peaks, pStarSample+l)

		row := ot.Rows[nStar]

		buf := gather[:hi-lo]

		for r := 0; r < n; r++ {
			nonzero := false

			for j := lo; j < hi; j++ {
				lag := (l - 1) + (peaks[j] - pStarSample)

				v := row.At(r, lag)
				buf[j-lo] = v

				if v != 0 {
					nonzero = true
				}
			}

			if !nonzero {
				continue
			}

			// -Inf entries (already suppressed) stay -Inf: adding a
			// finite delta to -Inf is still -Inf, so no extra guard is
			// needed here.
			tensor.Axpy(s[r][lo:hi], -a, buf)
		}

		// Suppress the whole neighbor window for this cluster, not just
		// pStar, so a nearby jittered column for the same template can't
		// be picked again as a duplicate of the spike just accepted
		// (spec §4.5 step 4; circus.py's scalar_products[best_cluster_ind,
		// is_valid_nn[0]:is_valid_nn[1]] = -inf).
		for j := lo; j < hi; j++ {
			s[nStar][j] = float32(math.Inf(-1))
		}

		channel := 0
		if peakChannel != nil {
			channel = peakChannel[pStarSample]
		}

		out = append(out, detect.Record{
			SampleIndex:  pStarSample,
			ChannelIndex: channel,
			ClusterIndex: nStar,
			Amplitude:    a / bank.Templates[nStar].Norm,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].SampleIndex < out[j].SampleIndex })

	return out
}

func distinctSortedSamples(candidates []score.Candidate) []int {
	seen := make(map[int]bool)
	var out []int

	for _, c := range candidates {
		if !seen[c.SampleIndex] {
			seen[c.SampleIndex] = true
			out = append(out, c.SampleIndex)
		}
	}

	sort.Ints(out)

	return out
}

// argMaxInBand picks the largest entry of s strictly inside (min_n,
// max_n) for its row (spec §4.5 step 1: "While any S[n,p] in (min_n,
// max_n)").
func argMaxInBand(s [][]float32, scoreMin, scoreMax []float32) (n, p int, ok bool) {
	best := float32(math.Inf(-1))

	for r := range s {
		for c, v := range s[r] {
			if v <= scoreMin[r] || v >= scoreMax[r] {
				continue
			}

			if v > best {
				best = v
				n, p, ok = r, c, true
			}
		}
	}

	return n, p, ok
}
