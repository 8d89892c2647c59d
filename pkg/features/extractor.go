// Package features computes the per-window acoustic indicators:
// the RMS level, the zero-crossing rate and a handful of statistics
// of the Hann-windowed one-sided power spectrum.
package features

import (
	"fmt"
	"math"
	"sync"

	"github.com/brettbuddin/fourier"
	"github.com/mjibson/go-dsp/window"
)

const (
	// SilenceRMSDB is reported for an empty window.
	SilenceRMSDB = -120.0

	// HFCutoffHz is the lower edge of the band counted as high-frequency energy.
	HFCutoffHz = 6000.0

	// RolloffFraction is the share of the total power below the roll-off frequency.
	RolloffFraction = 0.85

	epsilon = 1e-12
)

// Extractor computes Indicators for windows of a stream with a fixed
// sample rate.
//
// The Hann window and the transform buffers depend only on the window
// length, so they are kept between calls and rebuilt only when the length
// changes. The cache is guarded by a mutex, so a single Extractor may be
// shared by concurrently running pipelines.
type Extractor struct {
	sampleRate float64

	locker     sync.Mutex
	windowLen  int
	fftSize    int
	hannWindow []float64
	spectrum   []complex128
	power      []float64
}

func NewExtractor(sampleRate uint32) (*Extractor, error) {
	if sampleRate == 0 {
		return nil, fmt.Errorf("sample rate must be greater than 0")
	}
	return &Extractor{
		sampleRate: float64(sampleRate),
	}, nil
}

func (e *Extractor) SampleRate() float64 {
	return e.sampleRate
}

// FFTSize returns the transform size used for the last extracted window
// (zero before the first non-empty window).
func (e *Extractor) FFTSize() int {
	e.locker.Lock()
	defer e.locker.Unlock()
	return e.fftSize
}

func (e *Extractor) Extract(samples []float64) Indicators {
	if len(samples) == 0 {
		return Indicators{RMSDB: SilenceRMSDB}
	}

	result := Indicators{
		RMSDB: RMSDB(samples),
		ZCR:   ZeroCrossingRate(samples),
	}

	e.locker.Lock()
	defer e.locker.Unlock()
	e.spectralIndicators(samples, &result)
	return result
}

// RMSDB returns 20*log10(rms+1e-12) of the samples; for an empty slice
// it returns SilenceRMSDB.
//
// Note: an all-zero non-empty window yields 20*log10(1e-12) = -240,
// which is lower than SilenceRMSDB.
func RMSDB(samples []float64) float64 {
	if len(samples) == 0 {
		return SilenceRMSDB
	}
	var sum float64
	for _, v := range samples {
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(len(samples)))
	return 20 * math.Log10(rms+epsilon)
}

// ZeroCrossingRate returns the fraction of adjacent sample pairs with
// different signs, zero counting as positive.
func ZeroCrossingRate(samples []float64) float64 {
	if len(samples) < 2 {
		return 0
	}
	crossings := 0
	prevPositive := samples[0] >= 0
	for _, v := range samples[1:] {
		positive := v >= 0
		if positive != prevPositive {
			crossings++
		}
		prevPositive = positive
	}
	return float64(crossings) / float64(len(samples)-1)
}

func (e *Extractor) prepare(windowLen int) {
	if windowLen == e.windowLen && e.hannWindow != nil {
		return
	}

	fftSize := nextPowerOfTwo(windowLen)
	e.windowLen = windowLen
	e.fftSize = fftSize
	e.hannWindow = hann(windowLen)
	e.spectrum = make([]complex128, fftSize)
	e.power = make([]float64, fftSize/2+1)
}

func hann(length int) []float64 {
	if length == 1 {
		return []float64{1}
	}
	return window.Hann(length)
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func (e *Extractor) spectralIndicators(samples []float64, result *Indicators) {
	e.prepare(len(samples))

	for idx := range e.spectrum {
		if idx < len(samples) {
			e.spectrum[idx] = complex(samples[idx]*e.hannWindow[idx], 0)
		} else {
			e.spectrum[idx] = 0
		}
	}
	if e.fftSize > 1 {
		if err := fourier.Forward(e.spectrum); err != nil {
			// unreachable: the transform size is always a power of two
			panic(fmt.Errorf("unable to transform a window of size %d: %w", e.fftSize, err))
		}
	}

	binHz := e.sampleRate / float64(e.fftSize)
	var sum float64
	for idx := range e.power {
		c := e.spectrum[idx]
		p := real(c)*real(c) + imag(c)*imag(c)
		e.power[idx] = p
		sum += p
	}
	total := sum + epsilon

	var weightedFreq, hfPower float64
	for idx, p := range e.power {
		freq := float64(idx) * binHz
		weightedFreq += freq * p
		if freq >= HFCutoffHz {
			hfPower += p
		}
	}
	centroid := weightedFreq / total

	var spread float64
	for idx, p := range e.power {
		d := float64(idx)*binHz - centroid
		spread += d * d * p
	}

	var rolloff float64
	target := RolloffFraction * total
	var cumulative float64
	for idx, p := range e.power {
		cumulative += p
		if cumulative >= target {
			rolloff = float64(idx) * binHz
			break
		}
	}

	var logSum, arithSum float64
	for _, p := range e.power {
		logSum += math.Log(p + epsilon)
		arithSum += p + epsilon
	}
	bins := float64(len(e.power))
	flatness := math.Exp(logSum/bins) / (arithSum / bins)

	result.SpectralCentroidHz = centroid
	result.SpectralBandwidthHz = math.Sqrt(spread / total)
	result.SpectralRolloffHz = rolloff
	result.HFEnergyRatio = hfPower / total
	result.SpectralFlatness = clamp(flatness, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
