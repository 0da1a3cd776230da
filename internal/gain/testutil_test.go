package gain

import (
	"math"
	"testing"
)

// ToneOptions configures a synthetic test signal
type ToneOptions struct {
	SampleRate   int     // Sample rate (default: 44100)
	DurationSecs float64 // Duration in seconds (default: 1.0)
	ToneFreq     float64 // Sine frequency in Hz (0 = no tone)
	Amplitude    float64 // Peak amplitude of the tone, 0.0 to 1.0
	NoiseLevel   float64 // White noise amplitude, 0.0 to 1.0
}

// generateTone returns normalised mono samples for opts.
func generateTone(t *testing.T, opts ToneOptions) []float64 {
	t.Helper()

	if opts.SampleRate == 0 {
		opts.SampleRate = 44100
	}
	if opts.DurationSecs == 0 {
		opts.DurationSecs = 1.0
	}

	total := int(math.Round(opts.DurationSecs * float64(opts.SampleRate)))
	samples := make([]float64, total)

	// Deterministic LCG so tests are reproducible
	rngState := uint32(12345)
	nextRandom := func() float64 {
		rngState = rngState*1664525 + 1013904223
		return (float64(rngState)/float64(0xFFFFFFFF))*2.0 - 1.0
	}

	for i := range samples {
		var s float64
		if opts.ToneFreq > 0 {
			s += opts.Amplitude * math.Sin(2*math.Pi*opts.ToneFreq*float64(i)/float64(opts.SampleRate))
		}
		if opts.NoiseLevel > 0 {
			s += opts.NoiseLevel * nextRandom()
		}
		samples[i] = s
	}

	return samples
}

// scaled returns a copy of samples multiplied by Scale.
func scaled(samples []float64) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s * Scale
	}
	return out
}

// analyzeInChunks runs one title through a fresh analyzer, feeding it
// chunkSize samples at a time, and returns the title gain and peak.
func analyzeInChunks(t *testing.T, sampleRate int, samples []float64, chunkSize int) (float64, float64) {
	t.Helper()

	a := NewAnalyzer()
	if err := a.Init(sampleRate); err != nil {
		t.Fatalf("Init(%d) failed: %v", sampleRate, err)
	}
	feedMono(t, a, samples, chunkSize)
	return a.TitleGain()
}

func feedMono(t *testing.T, a *Analyzer, samples []float64, chunkSize int) {
	t.Helper()

	buf := scaled(samples)
	for start := 0; start < len(buf); start += chunkSize {
		end := min(start+chunkSize, len(buf))
		if err := a.AnalyzeSamples(buf[start:end], nil, 1); err != nil {
			t.Fatalf("AnalyzeSamples failed at %d: %v", start, err)
		}
	}
}

// referenceTitleGain is a direct, whole-buffer computation of the
// ReplayGain statistic for a mono signal, written without the sliding
// buffers of Analyzer so the streaming implementation can be checked
// against it.
func referenceTitleGain(sampleRate int, samples []float64) float64 {
	c := lookupCoefficients(sampleRate)
	if c == nil {
		return math.NaN()
	}

	n := len(samples)
	in := make([]float64, maxOrder+n)
	step := make([]float64, maxOrder+n)
	out := make([]float64, maxOrder+n)
	for i, s := range samples {
		in[maxOrder+i] = s * Scale
	}

	for i := maxOrder; i < maxOrder+n; i++ {
		acc := 1e-10 + in[i]*c.yule[0]
		for j := 1; j <= yuleOrder; j++ {
			acc = acc - step[i-j]*c.yule[2*j-1] + in[i-j]*c.yule[2*j]
		}
		step[i] = acc
	}
	for i := maxOrder; i < maxOrder+n; i++ {
		out[i] = step[i]*c.butter[0] -
			out[i-1]*c.butter[1] + step[i-1]*c.butter[2] -
			out[i-2]*c.butter[3] + step[i-2]*c.butter[4]
	}

	window := int(math.Ceil(float64(sampleRate) * 0.05))
	counts := make(map[int]int)
	total := 0
	for start := maxOrder; start+window <= maxOrder+n; start += window {
		var sum float64
		for i := start; i < start+window; i++ {
			sum += out[i] * out[i]
		}
		level := 100 * 10 * math.Log10((sum+sum)/float64(window)*0.5+1e-37)
		bin := int(level)
		if bin < 0 {
			bin = 0
		}
		if bin > 11999 {
			bin = 11999
		}
		counts[bin]++
		total++
	}
	if total == 0 {
		return NotEnoughSamples
	}

	percentile := 0.95
	tail := 1 - percentile
	remaining := int(math.Ceil(float64(total) * tail))
	for bin := 11999; bin >= 0; bin-- {
		remaining -= counts[bin]
		if remaining <= 0 {
			return 64.82 - float64(bin)/100
		}
	}
	return 64.82
}
