package detect

import "github.com/example/spikematch/internal/runtime/tensor"

// NewThresholdDetector returns a reference PeakDetector: a per-channel
// threshold crossing scan with a lockout window. The core treats peak
// detection as an external collaborator (spec §1); this implementation
// exists so the CLI and tests have a working default when no bespoke
// detector is wired in.
func NewThresholdDetector(noiseLevels []float32) PeakDetector {
	return func(trace *tensor.Matrix, sign Sign, thresholdMultiple float32, lockoutSamples int) []Peak {
		if lockoutSamples < 1 {
			lockoutSamples = 1
		}

		c := trace.Cols()
		t := trace.Rows()

		lastPeak := make([]int, c)
		for ch := range lastPeak {
			lastPeak[ch] = -lockoutSamples
		}

		var peaks []Peak

		for i := 0; i < t; i++ {
			for ch := 0; ch < c; ch++ {
				v := trace.At(i, ch)

				noise := float32(1)
				if ch < len(noiseLevels) && noiseLevels[ch] > 0 {
					noise = noiseLevels[ch]
				}

				threshold := thresholdMultiple * noise

				crossed := false
				switch sign {
				case SignNegative:
					crossed = v < -threshold
				case SignPositive:
					crossed = v > threshold
				case SignBoth:
					crossed = v > threshold || v < -threshold
				}

				if !crossed {
					continue
				}

				if i-lastPeak[ch] < lockoutSamples {
					continue
				}

				peaks = append(peaks, Peak{Sample: i, Channel: ch})
				lastPeak[ch] = i
			}
		}

		return peaks
	}
}
