// Package webrtc confirms voice activity with the WebRTC voice detector.
//
// The detector is a cgo binding of libfvad, so it is built only with the
// tag 'fvad'; without it NewVAD always fails.
package webrtc

import (
	"fmt"
	"math"
	"time"
)

const (
	DefaultMode           = 2
	DefaultMinVoicedRatio = 0.3
	DefaultFrameDuration  = 30 * time.Millisecond
)

var supportedSampleRates = []uint32{8000, 16000, 32000, 48000}

func validateParams(
	sampleRate uint32,
	minVoicedRatio float64,
	frameDuration time.Duration,
) error {
	if !isSupportedSampleRate(sampleRate) {
		return fmt.Errorf("sample rate %d is not supported, supported rates: %v", sampleRate, supportedSampleRates)
	}
	switch frameDuration {
	case 10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond:
	default:
		return fmt.Errorf("frame duration must be 10ms, 20ms or 30ms, but is %v", frameDuration)
	}
	if minVoicedRatio < 0 || minVoicedRatio > 1 {
		return fmt.Errorf("min voiced ratio must be within [0, 1], but is %v", minVoicedRatio)
	}
	return nil
}

func isSupportedSampleRate(sampleRate uint32) bool {
	for _, rate := range supportedSampleRates {
		if rate == sampleRate {
			return true
		}
	}
	return false
}

func toInt16(s float64) int16 {
	s = math.Max(-1, math.Min(1, s))
	return int16(math.Round(s * math.MaxInt16))
}
