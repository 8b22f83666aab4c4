// Package omp implements the OMP Solver (spec §4.4): iterative greedy
// atom selection over the score tensor, with an incrementally maintained
// Cholesky factor of the selected-atoms Gram matrix driving a joint
// re-fit of all current amplitudes after every pick.
package omp

import (
	"errors"
	"math"
	"sort"

	"github.com/example/spikematch/internal/detect"
	"github.com/example/spikematch/internal/overlap"
	"github.com/example/spikematch/internal/runtime/matx"
	"github.com/example/spikematch/internal/runtime/tensor"
	"github.com/example/spikematch/internal/template"
)

// epsFloat32 is the float32 machine epsilon used for the "amplitude
// changed" test in step 4 (spec §4.4).
const epsFloat32 = 1.1920929e-7

// Config configures one OMP Solver pass (spec §6 "Configuration options
// (OMP)").
type Config struct {
	// MinSPS is the fractional stopping threshold p in tau_n = p *
	// max(||W_n||, sqrt(sum noise_c^2 * L)).
	MinSPS float32
	// AmplitudeMin, AmplitudeMax bound the output acceptance band, in
	// physical (unnormalized) amplitude units.
	AmplitudeMin, AmplitudeMax float32
	// NoiseLevels is the per-channel noise standard deviation used in the
	// stopping threshold.
	NoiseLevels []float32
	// Vicinity, if > 0, restricts the joint re-fit to previously selected
	// atoms within Vicinity samples of the newly picked one (spec §4.4
	// "Vicinity option"). The source marks this path as not fully
	// working; it is feature-gated here and disabled by default (spec
	// §9).
	Vicinity int
	// PreWindow is added to each atom's sample offset to produce the
	// emitted detection's sample_index (spec §4.4 "Output filter").
	PreWindow int
	// InitialCholeskyCapacity is the Cholesky factor's starting
	// allocation (spec §4.4 names 100 as the default).
	InitialCholeskyCapacity int
}

type atom struct {
	templateIndex int
	offset        int
	physAlpha     float32
}

// Solve runs the OMP Solver to completion against a dense N x P score
// tensor (spec §4.4). s is mutated in place as residual is subtracted;
// callers that need the original score for any other purpose should pass
// a copy.
func Solve(bank *template.Bank, ot *overlap.Tensor, s *tensor.Matrix, cfg Config) ([]detect.Record, error) {
	n := s.Rows()
	p := s.Cols()
	l := bank.L

	if cfg.InitialCholeskyCapacity <= 0 {
		cfg.InitialCholeskyCapacity = 100
	}

	tau := make([]float32, n)
	for i, tpl := range bank.Templates {
		tau[i] = stoppingThreshold(tpl, l, cfg.NoiseLevels, cfg.MinSPS)
	}

	sOrig := cloneMatrix(s)

	chol := matx.NewGrowableCholesky(cfg.InitialCholeskyCapacity)
	var atoms []atom
	selected := make(map[[2]int]bool)

	for {
		nStar, pStar, ok := argMax(s, tau, selected)
		if !ok {
			break
		}

		gramRow := make([]float32, len(atoms))
		for i, a := range atoms {
			delta := a.offset - pStar
			if delta <= -l || delta >= l {
				gramRow[i] = 0
				continue
			}

			lag := l - 1 + delta
			gramRow[i] = ot.Rows[nStar].At(a.templateIndex, lag)
		}

		if err := chol.Extend(gramRow, 1); err != nil {
			if errors.Is(err, matx.ErrLinearlyDependent) {
				break
			}

			return nil, err
		}

		atoms = append(atoms, atom{templateIndex: nStar, offset: pStar})
		selected[[2]int{nStar, pStar}] = true

		sSel := make([]float32, len(atoms))
		for i, a := range atoms {
			sSel[i] = sOrig.At(a.templateIndex, a.offset)
		}

		alphaNorm, err := chol.SolveSymmetric(sSel)
		if err != nil {
			return nil, err
		}

		for i := range atoms {
			norm := bank.Templates[atoms[i].templateIndex].Norm
			newPhys := alphaNorm[i] / norm

			if abs32(newPhys-atoms[i].physAlpha) <= epsFloat32 {
				continue
			}

			if cfg.Vicinity > 0 && abs(atoms[i].offset-pStar) >= cfg.Vicinity {
				continue
			}

			deltaPhys := (newPhys - atoms[i].physAlpha) * norm
			atoms[i].physAlpha = newPhys

			ni := atoms[i].templateIndex
			pi := atoms[i].offset

			lo := pi - (l - 1)
			if lo < 0 {
				lo = 0
			}

			hi := pi + (l - 1)
			if hi > p-1 {
				hi = p - 1
			}

			row := ot.Rows[ni]

			// [lo, hi] maps affinely onto a run of lags, so each row's
			// update is a contiguous slice op (spec §9 row-major storage).
			lagLo := (lo - pi) + (l - 1)
			lagHi := lagLo + (hi - lo + 1)

			for r := 0; r < n; r++ {
				entries := row.LagSlice(r, lagLo, lagHi)
				if entries == nil {
					continue
				}

				tensor.Axpy(s.Row(r)[lo:hi+1], -deltaPhys, entries)
			}
		}
	}

	var out []detect.Record
	for _, a := range atoms {
		if a.physAlpha < cfg.AmplitudeMin || a.physAlpha > cfg.AmplitudeMax {
			continue
		}

		out = append(out, detect.Record{
			SampleIndex:  a.offset + cfg.PreWindow,
			ChannelIndex: 0,
			ClusterIndex: a.templateIndex,
			Amplitude:    a.physAlpha,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].SampleIndex < out[j].SampleIndex })

	return out, nil
}

func stoppingThreshold(tpl template.Template, l int, noise []float32, p float32) float32 {
	var noiseEnergy float64
	for _, c := range noise {
		noiseEnergy += float64(c) * float64(c)
	}

	noiseTerm := float32(math.Sqrt(noiseEnergy * float64(l)))

	base := tpl.Norm
	if noiseTerm > base {
		base = noiseTerm
	}

	return p * base
}

// argMax picks the (template, offset) pair with the largest score that
// exceeds its row's threshold and has not already been selected (spec
// §4.4 step 1). The already-selected exclusion is a solver-level
// safeguard against re-picking an atom whose residual did not fully
// collapse to zero.
func argMax(s *tensor.Matrix, tau []float32, selected map[[2]int]bool) (n, p int, ok bool) {
	best := float32(math.Inf(-1))

	for r := 0; r < s.Rows(); r++ {
		row := s.Row(r)

		for c, v := range row {
			if v <= tau[r] {
				continue
			}

			if selected[[2]int{r, c}] {
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

func cloneMatrix(m *tensor.Matrix) *tensor.Matrix {
	data := append([]float32(nil), m.RawData()...)
	out, _ := tensor.NewMatrix(m.Rows(), m.Cols(), data)

	return out
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}

	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}

	return v
}
