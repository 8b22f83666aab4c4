// Package detect defines the shapes at the boundary between the peeler
// core and its two external collaborators named in spec §6: the
// peak-detection primitive (Greedy mode) and the emitted detection
// record itself.
package detect

import "github.com/example/spikematch/internal/runtime/tensor"

// Sign selects which polarity of threshold crossing the external peak
// detector should report (spec §6 peak_sign).
type Sign int

const (
	SignNegative Sign = iota
	SignPositive
	SignBoth
)

// Peak is one crossing reported by the external peak-detection primitive.
type Peak struct {
	// Sample is the index into the trace chunk.
	Sample int
	// Channel is the channel the peak was detected on.
	Channel int
}

// PeakDetector is the narrow external collaborator interface (spec §6):
// given a T x C trace chunk and detection parameters, return every
// threshold crossing respecting the lockout window. The core never
// implements peak detection itself; it is consumed as an external
// function (spec §1).
type PeakDetector func(trace *tensor.Matrix, sign Sign, thresholdMultiple float32, lockoutSamples int) []Peak

// Record is one emitted detection (spec §3).
type Record struct {
	SampleIndex  int
	ChannelIndex int
	ClusterIndex int
	Amplitude    float32
	SegmentIndex int
}
