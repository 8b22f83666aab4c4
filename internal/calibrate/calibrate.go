// Package calibrate implements the Amplitude Calibrator (spec §4.6): for
// each template, it learns a per-template acceptance band (a_min, a_max)
// by minimizing an MCC-based classification error between the
// template's own training projections and everything else that
// resembles noise or another unit's projection onto the same template.
package calibrate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/example/spikematch/internal/runtime/tensor"
	"github.com/example/spikematch/internal/template"
)

// alpha weighs the MCC-error term against the band-width penalty in the
// combined objective (spec §4.6, fixed at 0.5).
const alpha = 0.5

// Samples supplies the training data needed to calibrate one template's
// acceptance band.
type Samples struct {
	// Own holds unit n's own training waveforms, each L*C row-major and
	// already channel-masked to match the template.
	Own [][]float32
	// Other holds training waveforms belonging to other units.
	Other [][]float32
	// Noise holds random noise snippets of the same L*C shape.
	Noise [][]float32
}

// Band is a calibrated per-template acceptance bracket.
type Band struct {
	Min, Max float32
}

// Range bounds the search domain for a and b (spec §6 min_amplitude,
// max_amplitude).
type Range struct {
	MinAmplitude, MaxAmplitude float32
}

// Calibrate learns (a_n, b_n) for every template in bank using its
// paired training Samples (spec §4.6). len(samples) must equal
// bank.N().
func Calibrate(bank *template.Bank, samples []Samples, rng Range) ([]Band, error) {
	if len(samples) != bank.N() {
		return nil, fmt.Errorf("calibrate: samples length %d does not match bank size %d", len(samples), bank.N())
	}

	out := make([]Band, bank.N())

	for n, tpl := range bank.Templates {
		good := projectAll(samples[n].Own, tpl.Normalized)
		bad := badProjections(samples[n].Other, samples[n].Noise, tpl.Normalized, good)

		band, err := calibrateOne(good, bad, rng)
		if err != nil {
			return nil, fmt.Errorf("calibrate: template %d: %w", n, err)
		}

		out[n] = band
	}

	return out, nil
}

func projectAll(waveforms [][]float32, normalized []float32) []float32 {
	out := make([]float32, len(waveforms))
	for i, w := range waveforms {
		out[i] = tensor.DotProduct(w, normalized)
	}

	return out
}

// badProjections computes bad_n: other-unit projections restricted to
// good_n's lower envelope (spec §4.6 "only the entries >= good_n's
// lower envelope"), unioned with noise projections.
func badProjections(other, noise [][]float32, normalized []float32, good []float32) []float32 {
	lowerEnvelope := float32(math.Inf(1))
	for _, g := range good {
		if g < lowerEnvelope {
			lowerEnvelope = g
		}
	}

	var out []float32

	for _, w := range other {
		proj := tensor.DotProduct(w, normalized)
		if proj >= lowerEnvelope {
			out = append(out, proj)
		}
	}

	for _, w := range noise {
		out = append(out, tensor.DotProduct(w, normalized))
	}

	return out
}

// mccError computes E(a, b) = 1 - MCC, spec §4.6.
func mccError(good, bad []float32, a, b float64) float64 {
	var tp, fn, fp, tn float64

	for _, g := range good {
		v := float64(g)
		if v > a && v < b {
			tp++
		} else {
			fn++
		}
	}

	for _, bd := range bad {
		v := float64(bd)
		if v > a && v < b {
			fp++
		} else {
			tn++
		}
	}

	denom := math.Sqrt((tp + fp) * (tp + fn) * (tn + fp) * (tn + fn))
	if denom == 0 {
		return 1
	}

	mcc := (tp*tn - fp*fn) / denom

	return 1 - mcc
}

// calibrateOne finds (a, b) minimizing alpha*E(a,b) + (1-alpha)*|1 -
// (b-a)/(max-min)| over a in [min_amplitude, 1], b in [1, max_amplitude]
// via a single Nelder-Mead run started at (min_amplitude, max_amplitude)
// (gonum has no differential evolution implementation, see DESIGN.md for
// the tradeoff). Nelder-Mead is a local, derivative-free search and no
// restarts are made, so the band found is a local minimum of the
// objective.
func calibrateOne(good, bad []float32, rng Range) (Band, error) {
	width := rng.MaxAmplitude - rng.MinAmplitude
	if width <= 0 {
		return Band{}, fmt.Errorf("calibrate: invalid amplitude range [%v, %v]", rng.MinAmplitude, rng.MaxAmplitude)
	}

	objective := func(x []float64) float64 {
		a, b := x[0], x[1]

		// Soft penalty for excursions outside the valid domain, since
		// Nelder-Mead is an unconstrained optimizer.
		penalty := 0.0

		if a < float64(rng.MinAmplitude) {
			penalty += float64(rng.MinAmplitude) - a
			a = float64(rng.MinAmplitude)
		}

		if a > 1 {
			penalty += a - 1
			a = 1
		}

		if b < 1 {
			penalty += 1 - b
			b = 1
		}

		if b > float64(rng.MaxAmplitude) {
			penalty += b - float64(rng.MaxAmplitude)
			b = float64(rng.MaxAmplitude)
		}

		if b <= a {
			penalty += a - b + 1e-3
		}

		widthTerm := math.Abs(1 - (b-a)/float64(width))

		return alpha*mccError(good, bad, a, b) + (1-alpha)*widthTerm + penalty
	}

	p := optimize.Problem{Func: objective}

	x0 := []float64{float64(rng.MinAmplitude), float64(rng.MaxAmplitude)}

	result, err := optimize.Minimize(p, x0, nil, &optimize.NelderMead{})
	if err != nil {
		return Band{}, fmt.Errorf("calibrate: optimize: %w", err)
	}

	a, b := result.X[0], result.X[1]
	if a < float64(rng.MinAmplitude) {
		a = float64(rng.MinAmplitude)
	}

	if b > float64(rng.MaxAmplitude) {
		b = float64(rng.MaxAmplitude)
	}

	if b <= a {
		b = a + 1e-3
	}

	return Band{Min: float32(a), Max: float32(b)}, nil
}
