// Package window cuts an arbitrary-length sample stream into fixed-length
// overlapping windows at a fixed hop.
package window

import (
	"fmt"
	"math"
)

type Window struct {
	// StartSample advances by the hop size per emitted window.
	StartSample uint64
	Samples     []float64
}

type Segmenter struct {
	windowSamples int
	hopSamples    int
	backlog       []float64
	nextStart     uint64
}

// DurationToSamples converts seconds to a sample count, rounding to the
// nearest sample and flooring the result to 1.
func DurationToSamples(sec float64, sampleRate uint32) int {
	n := int(math.Round(sec * float64(sampleRate)))
	if n < 1 {
		n = 1
	}
	return n
}

func NewSegmenter(
	sampleRate uint32,
	windowSec float64,
	hopSec float64,
) (*Segmenter, error) {
	if sampleRate == 0 {
		return nil, fmt.Errorf("sample rate must be greater than 0")
	}
	if !(windowSec > 0) || !(hopSec > 0) {
		return nil, fmt.Errorf("window and hop durations must be positive: %v, %v", windowSec, hopSec)
	}
	return NewSegmenterSamples(
		DurationToSamples(windowSec, sampleRate),
		DurationToSamples(hopSec, sampleRate),
	), nil
}

// NewSegmenterSamples creates a segmenter with sizes given in samples;
// values below 1 are raised to 1.
func NewSegmenterSamples(windowSamples, hopSamples int) *Segmenter {
	return &Segmenter{
		windowSamples: max(windowSamples, 1),
		hopSamples:    max(hopSamples, 1),
	}
}

func (s *Segmenter) WindowSamples() int {
	return s.windowSamples
}

func (s *Segmenter) HopSamples() int {
	return s.hopSamples
}

// Backlog returns the amount of buffered samples not yet dropped.
func (s *Segmenter) Backlog() int {
	return len(s.backlog)
}

// Push appends the chunk to the backlog and returns every window that
// became complete. The returned windows own their sample slices.
func (s *Segmenter) Push(chunk []float64) []Window {
	s.backlog = append(s.backlog, chunk...)

	var windows []Window
	for len(s.backlog) >= s.windowSamples {
		samples := make([]float64, s.windowSamples)
		copy(samples, s.backlog)
		windows = append(windows, Window{
			StartSample: s.nextStart,
			Samples:     samples,
		})
		s.nextStart += uint64(s.hopSamples)

		if len(s.backlog) <= s.hopSamples {
			s.backlog = s.backlog[:0]
			continue
		}
		s.backlog = s.backlog[s.hopSamples:]
	}

	return windows
}

// Reset drops the backlog and restarts the start-sample counter.
func (s *Segmenter) Reset() {
	s.backlog = nil
	s.nextStart = 0
}
