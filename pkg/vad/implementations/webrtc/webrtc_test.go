package webrtc

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateParams(t *testing.T) {
	for _, tc := range []struct {
		name           string
		sampleRate     uint32
		minVoicedRatio float64
		frameDuration  time.Duration
		valid          bool
	}{
		{name: "defaults", sampleRate: 16000, minVoicedRatio: DefaultMinVoicedRatio, frameDuration: DefaultFrameDuration, valid: true},
		{name: "10ms at 8kHz", sampleRate: 8000, minVoicedRatio: 0, frameDuration: 10 * time.Millisecond, valid: true},
		{name: "unsupported rate", sampleRate: 44100, minVoicedRatio: DefaultMinVoicedRatio, frameDuration: DefaultFrameDuration},
		{name: "unsupported frame", sampleRate: 16000, minVoicedRatio: DefaultMinVoicedRatio, frameDuration: 25 * time.Millisecond},
		{name: "ratio above one", sampleRate: 16000, minVoicedRatio: 1.5, frameDuration: DefaultFrameDuration},
		{name: "negative ratio", sampleRate: 16000, minVoicedRatio: -0.1, frameDuration: DefaultFrameDuration},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := validateParams(tc.sampleRate, tc.minVoicedRatio, tc.frameDuration)
			if tc.valid {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestToInt16(t *testing.T) {
	assert.Equal(t, int16(math.MaxInt16), toInt16(1))
	assert.Equal(t, int16(-math.MaxInt16), toInt16(-1))
	assert.Equal(t, int16(math.MaxInt16), toInt16(3))
	assert.Equal(t, int16(0), toInt16(0))
}
