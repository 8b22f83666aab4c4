// Package template holds the unit template bank: dense waveforms, their
// sparsity masks, and normalized forms (spec §3). It is the first
// collaborator-facing data structure the Overlap Builder, Template
// Compressor, and both solvers consume read-only.
package template

import (
	"errors"
	"fmt"
	"math"
)

// Template is one unit's canonical waveform (spec §3).
type Template struct {
	// Waveform is the dense L*C row-major array, pre-zeroed on channels
	// outside Mask.
	Waveform []float32
	// Mask lists the channel indices in the sparsity set σ_n.
	Mask []int
	// Norm is ‖W_n‖₂ computed over the Mask-restricted samples.
	Norm float32
	// Normalized is Waveform / Norm.
	Normalized []float32
}

// Bank is the collection of N templates sharing length L and channel
// count C (spec §3).
type Bank struct {
	L, C      int
	Templates []Template
	// Excluded holds the indices of input templates dropped for having
	// zero norm (spec §3 invariant, §7 "degenerate template").
	Excluded []int
}

// Config supplies the raw per-template waveforms and masks used to build
// a Bank.
type Config struct {
	L, C int
	// Waveforms[n] is the dense L*C row-major waveform for template n.
	Waveforms [][]float32
	// Masks[n], if non-nil, lists template n's sparsity channel indices.
	// When nil, the mask is inferred via a peak-to-peak threshold (the
	// "ptp" method named in spec §6's sparse_kwargs), since the spec
	// treats sparsity mask inference as something the engine may need to
	// do when the waveform-extractor collaborator hands it dense,
	// unmasked waveforms.
	Masks [][]int
	// SparsityThreshold controls ptp-based mask inference: a channel is
	// kept if its peak-to-peak amplitude is at least SparsityThreshold
	// times the largest per-channel peak-to-peak amplitude of that same
	// template. Ignored for templates with an explicit mask.
	SparsityThreshold float64
	// AllowDegenerate, when true, excludes zero-norm templates instead of
	// failing Bank construction (spec §7).
	AllowDegenerate bool
}

// NewBank validates and constructs a Bank from raw waveforms, zeroing
// samples outside each template's sparsity mask and computing norms.
func NewBank(cfg Config) (*Bank, error) {
	if cfg.L <= 0 || cfg.C <= 0 {
		return nil, fmt.Errorf("template: bank requires positive L, C, got %d, %d", cfg.L, cfg.C)
	}

	if len(cfg.Waveforms) == 0 {
		return nil, errors.New("template: bank requires at least one template")
	}

	if cfg.Masks != nil && len(cfg.Masks) != len(cfg.Waveforms) {
		return nil, fmt.Errorf("template: masks length %d does not match waveforms length %d", len(cfg.Masks), len(cfg.Waveforms))
	}

	threshold := cfg.SparsityThreshold
	if threshold == 0 {
		threshold = 1.0
	}

	b := &Bank{L: cfg.L, C: cfg.C}

	for n, wave := range cfg.Waveforms {
		if len(wave) != cfg.L*cfg.C {
			return nil, fmt.Errorf("template: template %d waveform length %d does not match L*C=%d", n, len(wave), cfg.L*cfg.C)
		}

		var mask []int
		if cfg.Masks != nil && cfg.Masks[n] != nil {
			mask = cfg.Masks[n]
		} else {
			mask = inferSparsityPTP(wave, cfg.L, cfg.C, threshold)
		}

		masked := maskWaveform(wave, cfg.L, cfg.C, mask)
		norm := l2Norm(masked)

		if norm == 0 {
			if cfg.AllowDegenerate {
				b.Excluded = append(b.Excluded, n)
				continue
			}

			return nil, fmt.Errorf("template: template %d has zero norm (degenerate)", n)
		}

		normalized := make([]float32, len(masked))
		for i, v := range masked {
			normalized[i] = v / norm
		}

		b.Templates = append(b.Templates, Template{
			Waveform:   masked,
			Mask:       mask,
			Norm:       norm,
			Normalized: normalized,
		})
	}

	if len(b.Templates) == 0 {
		return nil, errors.New("template: bank has no usable templates after exclusions")
	}

	return b, nil
}

// N returns the number of usable templates in the bank.
func (b *Bank) N() int { return len(b.Templates) }

func maskWaveform(wave []float32, l, c int, mask []int) []float32 {
	if mask == nil {
		return append([]float32(nil), wave...)
	}

	keep := make([]bool, c)
	for _, ch := range mask {
		if ch >= 0 && ch < c {
			keep[ch] = true
		}
	}

	out := make([]float32, l*c)

	for t := 0; t < l; t++ {
		for ch := 0; ch < c; ch++ {
			if keep[ch] {
				out[t*c+ch] = wave[t*c+ch]
			}
		}
	}

	return out
}

func l2Norm(v []float32) float32 {
	var sum float32
	for _, x := range v {
		sum += x * x
	}

	return float32(math.Sqrt(float64(sum)))
}

// inferSparsityPTP picks the channel mask by peak-to-peak amplitude
// relative to the waveform's loudest channel, the "ptp" sparsity method
// named in spec §6.
func inferSparsityPTP(wave []float32, l, c int, threshold float64) []int {
	ptp := make([]float32, c)

	for ch := 0; ch < c; ch++ {
		mn, mx := wave[ch], wave[ch]

		for t := 1; t < l; t++ {
			v := wave[t*c+ch]
			if v < mn {
				mn = v
			}

			if v > mx {
				mx = v
			}
		}

		ptp[ch] = mx - mn
	}

	var maxPTP float32
	for _, p := range ptp {
		if p > maxPTP {
			maxPTP = p
		}
	}

	cutoff := float32(threshold) * maxPTP

	var mask []int
	for ch, p := range ptp {
		if p >= cutoff {
			mask = append(mask, ch)
		}
	}

	return mask
}
