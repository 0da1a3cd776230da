// Package gain implements streaming ReplayGain loudness analysis.
//
// Samples pass through an order-10 Yule-Walker equal-loudness filter and an
// order-2 Butterworth high-pass, are squared and summed over 50 ms windows,
// and each window's level is counted in a histogram with 0.01 dB bins. The
// loudness of a title or album is read from the 95th percentile of that
// histogram and reported as a gain relative to the 89 dB reference.
package gain

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	// Scale maps normalised ±1.0 samples onto the 16-bit range the filter
	// coefficients were derived for.
	Scale = 32768.0

	// NotEnoughSamples is returned by TitleGain and AlbumGain when no
	// complete window has been analysed.
	NotEnoughSamples = -24601.0

	rmsPercentile = 0.95
	rmsWindowMs   = 50
	stepsPerDB    = 100
	maxDB         = 120
	histogramSize = stepsPerDB * maxDB
	pinkRef       = 64.82

	maxSampleRate       = 48000
	maxSamplesPerWindow = maxSampleRate*rmsWindowMs/1000 + 1
)

var (
	ErrUnsupportedSampleRate = errors.New("unsupported sample rate")
	ErrNotInitialized        = errors.New("analyzer not initialised")
	ErrChannelCount          = errors.New("only mono and stereo can be analysed")
	ErrChannelMismatch       = errors.New("channel count changed during analysis run")
)

// histogram counts windows per 0.01 dB level.
type histogram [histogramSize]uint32

// Analyzer accumulates loudness for one analysis run: a sequence of titles
// sharing a sample rate, typically the tracks of one album. It is not safe
// for concurrent use.
type Analyzer struct {
	coeffs *coefficients
	window int // samples per RMS window
	chans  int // channel count fixed by the first AnalyzeSamples call

	linprebuf [2 * maxOrder]float64
	rinprebuf [2 * maxOrder]float64
	lstepbuf  [maxOrder + maxSamplesPerWindow]float64
	rstepbuf  [maxOrder + maxSamplesPerWindow]float64
	loutbuf   [maxOrder + maxSamplesPerWindow]float64
	routbuf   [maxOrder + maxSamplesPerWindow]float64

	lsum, rsum float64
	totsamp    int

	title histogram
	album histogram

	titlePeak float64
	albumPeak float64
}

// NewAnalyzer returns an analyzer that must be initialised with Init.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Init selects the filter cascade for sampleRate and clears all title and
// album state. It must be called before the first AnalyzeSamples and
// whenever the sample rate changes.
func (a *Analyzer) Init(sampleRate int) error {
	c := lookupCoefficients(sampleRate)
	if c == nil {
		return fmt.Errorf("%w: %d Hz", ErrUnsupportedSampleRate, sampleRate)
	}

	a.coeffs = c
	// ceil(rate * 0.05) without going through floating point
	a.window = (sampleRate*rmsWindowMs + 999) / 1000
	a.chans = 0

	a.resetHistory()
	a.title = histogram{}
	a.album = histogram{}
	a.titlePeak = 0
	a.albumPeak = 0

	return nil
}

// AnalyzeSamples feeds one chunk of a continuous stream. Samples are scaled
// so that full scale is ±Scale. right is ignored for mono and must be at
// least as long as left for stereo.
func (a *Analyzer) AnalyzeSamples(left, right []float64, channels int) error {
	if a.coeffs == nil {
		return ErrNotInitialized
	}

	switch channels {
	case 1:
		right = left
	case 2:
		if len(right) < len(left) {
			return fmt.Errorf("right channel has %d samples, want %d", len(right), len(left))
		}
	default:
		return fmt.Errorf("%w: %d channels", ErrChannelCount, channels)
	}

	if a.chans != 0 && a.chans != channels {
		return fmt.Errorf("%w: %d -> %d", ErrChannelMismatch, a.chans, channels)
	}
	a.chans = channels

	n := len(left)
	if n == 0 {
		return nil
	}
	right = right[:n]

	a.trackPeak(left)
	if channels == 2 {
		a.trackPeak(right)
	}

	head := min(n, maxOrder)
	copy(a.linprebuf[maxOrder:], left[:head])
	copy(a.rinprebuf[maxOrder:], right[:head])

	pos := 0
	for remaining := n; remaining > 0; {
		cur := min(remaining, a.window-a.totsamp)

		// The first maxOrder samples of a chunk read their history from the
		// prebuffers; later samples find it in the chunk itself.
		var lin, rin []float64
		var inPos int
		if pos < maxOrder {
			lin, rin = a.linprebuf[:], a.rinprebuf[:]
			inPos = maxOrder + pos
			cur = min(cur, maxOrder-pos)
		} else {
			lin, rin = left, right
			inPos = pos
		}

		outPos := maxOrder + a.totsamp
		filterYule(lin, inPos, a.lstepbuf[:], outPos, cur, &a.coeffs.yule)
		filterYule(rin, inPos, a.rstepbuf[:], outPos, cur, &a.coeffs.yule)
		filterButter(a.lstepbuf[:], outPos, a.loutbuf[:], outPos, cur, &a.coeffs.butter)
		filterButter(a.rstepbuf[:], outPos, a.routbuf[:], outPos, cur, &a.coeffs.butter)

		for i := outPos; i < outPos+cur; i++ {
			a.lsum += a.loutbuf[i] * a.loutbuf[i]
			a.rsum += a.routbuf[i] * a.routbuf[i]
		}

		remaining -= cur
		pos += cur
		a.totsamp += cur
		if a.totsamp == a.window {
			a.foldWindow()
		}
	}

	// Keep the last maxOrder input samples as history for the next chunk.
	if n < maxOrder {
		copy(a.linprebuf[:maxOrder-n], a.linprebuf[n:maxOrder])
		copy(a.rinprebuf[:maxOrder-n], a.rinprebuf[n:maxOrder])
		copy(a.linprebuf[maxOrder-n:maxOrder], left)
		copy(a.rinprebuf[maxOrder-n:maxOrder], right)
	} else {
		copy(a.linprebuf[:maxOrder], left[n-maxOrder:])
		copy(a.rinprebuf[:maxOrder], right[n-maxOrder:])
	}

	return nil
}

// foldWindow turns a completed window's energy into a histogram count and
// carries the filter output history over to the next window.
func (a *Analyzer) foldWindow() {
	val := stepsPerDB * 10 * math.Log10((a.lsum+a.rsum)/float64(a.totsamp)*0.5+1e-37)
	bin := int(val)
	if bin < 0 {
		bin = 0
	}
	if bin >= histogramSize {
		bin = histogramSize - 1
	}
	a.title[bin]++

	a.lsum, a.rsum = 0, 0
	copy(a.loutbuf[:maxOrder], a.loutbuf[a.totsamp:a.totsamp+maxOrder])
	copy(a.routbuf[:maxOrder], a.routbuf[a.totsamp:a.totsamp+maxOrder])
	copy(a.lstepbuf[:maxOrder], a.lstepbuf[a.totsamp:a.totsamp+maxOrder])
	copy(a.rstepbuf[:maxOrder], a.rstepbuf[a.totsamp:a.totsamp+maxOrder])
	a.totsamp = 0
}

func (a *Analyzer) trackPeak(samples []float64) {
	peak := math.Max(floats.Max(samples), -floats.Min(samples)) / Scale
	if peak > a.titlePeak {
		a.titlePeak = peak
	}
}

// resetHistory clears filter history and the partially filled window.
func (a *Analyzer) resetHistory() {
	for i := 0; i < maxOrder; i++ {
		a.linprebuf[i], a.rinprebuf[i] = 0, 0
		a.lstepbuf[i], a.rstepbuf[i] = 0, 0
		a.loutbuf[i], a.routbuf[i] = 0, 0
	}
	a.lsum, a.rsum = 0, 0
	a.totsamp = 0
}

// TitleGain returns the gain and peak of the title analysed since the last
// TitleGain (or Init). The title histogram is added to the album total and
// title state is cleared; the partial trailing window is discarded.
func (a *Analyzer) TitleGain() (gain, peak float64) {
	gain = analyzeResult(&a.title)
	peak = a.titlePeak

	for i := range a.title {
		a.album[i] += a.title[i]
	}
	a.albumPeak = max(a.albumPeak, a.titlePeak)
	a.DiscardTitle()

	return gain, peak
}

// DiscardTitle drops the title in progress without adding it to the
// album, leaving the analyzer ready for the next title.
func (a *Analyzer) DiscardTitle() {
	a.title = histogram{}
	a.titlePeak = 0
	a.resetHistory()
}

// AlbumGain returns the gain over every title completed since Init and the
// largest peak of those titles. Call it after the last TitleGain.
func (a *Analyzer) AlbumGain() (gain, peak float64) {
	return analyzeResult(&a.album), a.albumPeak
}

// analyzeResult walks the histogram from the loudest bin down until the
// top 5% of windows are covered.
func analyzeResult(h *histogram) float64 {
	var elems uint64
	for _, c := range h {
		elems += uint64(c)
	}
	if elems == 0 {
		return NotEnoughSamples
	}

	// The tail fraction is computed in float64, not as an exact constant,
	// so the rounding matches the reference implementation.
	percentile := float64(rmsPercentile)
	upper := int64(math.Ceil(float64(elems) * (1 - percentile)))
	i := len(h)
	for i > 0 {
		i--
		upper -= int64(h[i])
		if upper <= 0 {
			break
		}
	}

	return pinkRef - float64(i)/stepsPerDB
}
