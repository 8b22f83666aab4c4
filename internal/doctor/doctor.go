// Package doctor provides preflight checks for a spikematch template
// bank before it is handed to an engine: zero-norm templates, mask
// consistency, and rank sanity (spec §7 "Degenerate template... fatal
// unless the caller explicitly ignores").
package doctor

import (
	"fmt"
	"io"

	"github.com/example/spikematch/internal/template"
)

// PassMark and FailMark are the prefix symbols printed for each check result.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// Config holds the bank and knobs to validate.
type Config struct {
	Bank *template.Bank
	// Rank is the SVD truncation rank the caller intends to use; a rank
	// exceeding min(L, C) is a configuration error (spec §7).
	Rank int
}

// Result collects the outcome of all checks.
type Result struct {
	failures []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

func (r *Result) fail(msg string) { r.failures = append(r.failures, msg) }

// Run executes all configured checks and writes human-readable output to
// w, one line per check prefixed with PassMark or FailMark.
func Run(cfg Config, w io.Writer) Result {
	var res Result

	if cfg.Bank == nil {
		res.fail("template bank: nil")
		fmt.Fprintf(w, "%s template bank: not loaded\n", FailMark)
		return res
	}

	fmt.Fprintf(w, "%s template bank: %d templates, L=%d, C=%d\n", PassMark, cfg.Bank.N(), cfg.Bank.L, cfg.Bank.C)

	if len(cfg.Bank.Excluded) > 0 {
		fmt.Fprintf(w, "%s excluded (degenerate) templates: %v\n", FailMark, cfg.Bank.Excluded)
		res.fail(fmt.Sprintf("bank has %d excluded degenerate templates: %v", len(cfg.Bank.Excluded), cfg.Bank.Excluded))
	} else {
		fmt.Fprintf(w, "%s no degenerate templates excluded\n", PassMark)
	}

	for n, tpl := range cfg.Bank.Templates {
		if tpl.Norm <= 0 {
			res.fail(fmt.Sprintf("template %d: non-positive norm %v", n, tpl.Norm))
			fmt.Fprintf(w, "%s template %d: non-positive norm\n", FailMark, n)
			continue
		}

		if len(tpl.Mask) == 0 {
			res.fail(fmt.Sprintf("template %d: empty sparsity mask", n))
			fmt.Fprintf(w, "%s template %d: empty sparsity mask\n", FailMark, n)
			continue
		}
	}

	if res.Failed() {
		return res
	}

	fmt.Fprintf(w, "%s all templates have positive norm and non-empty masks\n", PassMark)

	maxRank := cfg.Bank.L
	if cfg.Bank.C < maxRank {
		maxRank = cfg.Bank.C
	}

	if cfg.Rank > maxRank {
		res.fail(fmt.Sprintf("rank %d exceeds min(L,C)=%d", cfg.Rank, maxRank))
		fmt.Fprintf(w, "%s rank %d exceeds min(L,C)=%d\n", FailMark, cfg.Rank, maxRank)
	} else if cfg.Rank > 0 {
		fmt.Fprintf(w, "%s rank %d within bank dimensions\n", PassMark, cfg.Rank)
	}

	return res
}
