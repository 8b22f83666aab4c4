package score

import (
	"sort"

	"github.com/example/spikematch/internal/detect"
	"github.com/example/spikematch/internal/runtime/tensor"
	"github.com/example/spikematch/internal/template"
)

// Candidate is one (template, time, jitter) match surfaced by the Greedy
// Scorer for the Greedy Solver to rank and accept (spec §4.3 "Greedy
// mode", §4.5).
type Candidate struct {
	TemplateIndex int
	SampleIndex   int
	// Channel is the channel the originating peak was detected on (spec
	// §3 Record.ChannelIndex, circus.py best_peak_chan_ind).
	Channel int
	// Jitter is the sub-window shift, in samples, applied when extracting
	// the snippet this candidate scored against (spec §4.5 jitter search).
	Jitter int
	Score  float32
}

// GreedyParams configures one Greedy Scorer pass over a trace chunk.
type GreedyParams struct {
	Sign              detect.Sign
	ThresholdMultiple float32
	LockoutSamples    int
	// JitterRadius is the maximum +/- sample shift tried around each
	// detected peak (spec §4.5 "amplitude and timing jitter").
	JitterRadius int
	// SparseMatrixThreshold: once the bank holds at least this many
	// templates, match against each template's Mask-restricted channels
	// only instead of the full dense snippet (spec §6
	// use_sparse_matrix_threshold). 0 disables the switch (always dense).
	SparseMatrixThreshold int
}

// Greedy detects peaks via the external detector, extracts a length-L
// snippet around every (peak, jitter) pair, and scores it against every
// template in bank by inner product with the template's normalized
// waveform, deduplicating identical (template, sample) pairs by keeping
// the highest-scoring jitter (spec §4.3 "Greedy mode").
func Greedy(bank *template.Bank, trace *tensor.Matrix, detector detect.PeakDetector, p GreedyParams) []Candidate {
	peaks := detector(trace, p.Sign, p.ThresholdMultiple, p.LockoutSamples)
	if len(peaks) == 0 {
		return nil
	}

	l := bank.L
	c := bank.C
	t := trace.Rows()
	half := l / 2

	sparse := p.SparseMatrixThreshold > 0 && bank.N() >= p.SparseMatrixThreshold

	best := make(map[[2]int]Candidate)

	for _, pk := range peaks {
		for j := -p.JitterRadius; j <= p.JitterRadius; j++ {
			lo := pk.Sample - half + j
			hi := lo + l
			if lo < 0 || hi > t {
				continue
			}

			sample := pk.Sample + j

			snippet := extractSnippet(trace, lo, l, c)

			for n, tpl := range bank.Templates {
				var s float32
				if sparse && len(tpl.Mask) > 0 {
					s = maskedDot(snippet, tpl.Normalized, tpl.Mask, c)
				} else {
					s = tensor.DotProduct(snippet, tpl.Normalized)
				}

				key := [2]int{n, sample}
				cand := Candidate{TemplateIndex: n, SampleIndex: sample, Channel: pk.Channel, Jitter: j, Score: s}

				if cur, ok := best[key]; !ok || s > cur.Score {
					best[key] = cand
				}
			}
		}
	}

	out := make([]Candidate, 0, len(best))
	for _, cand := range best {
		out = append(out, cand)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].SampleIndex != out[j].SampleIndex {
			return out[i].SampleIndex < out[j].SampleIndex
		}

		return out[i].TemplateIndex < out[j].TemplateIndex
	})

	return out
}

// extractSnippet flattens trace[lo:lo+l, :] into a row-major L*C slice
// directly comparable to a Template's Normalized field.
func extractSnippet(trace *tensor.Matrix, lo, l, c int) []float32 {
	out := make([]float32, l*c)

	for ti := 0; ti < l; ti++ {
		row := trace.Row(lo + ti)
		copy(out[ti*c:(ti+1)*c], row)
	}

	return out
}

// maskedDot computes the inner product restricted to the channels in
// mask, the "sparse matrix" path used once the bank is large enough that
// skipping zeroed channels outweighs the bookkeeping (spec §6
// use_sparse_matrix_threshold).
func maskedDot(snippet, normalized []float32, mask []int, c int) float32 {
	l := len(snippet) / c

	var sum float32
	for t := 0; t < l; t++ {
		base := t * c
		for _, ch := range mask {
			sum += snippet[base+ch] * normalized[base+ch]
		}
	}

	return sum
}
