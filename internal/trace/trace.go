// Package trace holds the chunk abstraction and margin-contract helpers
// both peeler engines consume (spec §5 "Margin contract", §6
// "Per-invocation input"), plus a WAV-backed fixture loader for the CLI
// and tests.
package trace

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/cwbudde/wav"

	"github.com/example/spikematch/internal/runtime/tensor"
)

// Chunk is one T x C trace delivered to an engine, carrying the margin
// the caller promised around it (spec §5).
type Chunk struct {
	Trace      *tensor.Matrix
	SampleRate int
	// Margin is the number of samples of context delivered on each side
	// of the chunk, required to be 2*max(pre_window, post_window) (spec
	// §5).
	Margin int
}

// MarginFor computes the margin contract's required width for a given
// pre/post window pair (spec §5: "margin = 2*max(pre_window,
// post_window)").
func MarginFor(preWindow, postWindow int) int {
	m := preWindow
	if postWindow > m {
		m = postWindow
	}

	return 2 * m
}

// Interior returns the [lo, hi) sample range the external peak detector
// is run over: the chunk trimmed by margin/2 on each side (spec §4.3
// "Greedy mode").
func (c *Chunk) Interior() (lo, hi int) {
	half := c.Margin / 2
	lo = half
	hi = c.Trace.Rows() - half

	if hi < lo {
		hi = lo
	}

	return lo, hi
}

// LoadChunkFromWAV decodes a WAV file (interpreting each WAV channel as
// a trace channel) into a Chunk, the fixture path used by the CLI and by
// package tests that want a realistic multichannel waveform without
// shipping a bespoke binary format (spec §6 "a trace array of shape T x
// C, float32").
func LoadChunkFromWAV(data []byte, margin int) (*Chunk, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, errors.New("trace: invalid WAV file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("trace: reading PCM data: %w", err)
	}

	c := int(dec.NumChans)
	if c <= 0 {
		return nil, fmt.Errorf("trace: invalid channel count %d", c)
	}

	if len(buf.Data)%c != 0 {
		return nil, fmt.Errorf("trace: sample count %d not divisible by channel count %d", len(buf.Data), c)
	}

	t := len(buf.Data) / c

	m, err := tensor.NewMatrix(t, c, buf.Data)
	if err != nil {
		return nil, fmt.Errorf("trace: %w", err)
	}

	return &Chunk{Trace: m, SampleRate: int(dec.SampleRate), Margin: margin}, nil
}
