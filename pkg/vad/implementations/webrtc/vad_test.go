//go:build fvad
// +build fvad

package webrtc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVADValidation(t *testing.T) {
	ctx := context.Background()

	_, err := NewVAD(ctx, 44100, DefaultMode, DefaultMinVoicedRatio, DefaultFrameDuration)
	require.Error(t, err)

	_, err = NewVAD(ctx, 16000, DefaultMode, DefaultMinVoicedRatio, 25*time.Millisecond)
	require.Error(t, err)

	_, err = NewVAD(ctx, 16000, DefaultMode, 1.5, DefaultFrameDuration)
	require.Error(t, err)

	v, err := NewVAD(ctx, 16000, DefaultMode, DefaultMinVoicedRatio, DefaultFrameDuration)
	require.NoError(t, err)
	defer v.Close()
	assert.Equal(t, 480, v.FrameSamples)
	assert.Equal(t, uint32(16000), v.SampleRate())
}

func TestVoicedRatioSilence(t *testing.T) {
	ctx := context.Background()
	v, err := NewVAD(ctx, 16000, DefaultMode, DefaultMinVoicedRatio, DefaultFrameDuration)
	require.NoError(t, err)
	defer v.Close()

	ratio, err := v.VoicedRatio(ctx, make([]float64, 16000))
	require.NoError(t, err)
	assert.Equal(t, float64(0), ratio)

	isVoice, err := v.IsVoice(ctx, make([]float64, 16000))
	require.NoError(t, err)
	assert.False(t, isVoice)
}

func TestVoicedRatioShortWindow(t *testing.T) {
	ctx := context.Background()
	v, err := NewVAD(ctx, 16000, DefaultMode, 0, DefaultFrameDuration)
	require.NoError(t, err)
	defer v.Close()

	isVoice, err := v.IsVoice(ctx, make([]float64, 100))
	require.NoError(t, err)
	assert.False(t, isVoice)
}

func TestVADClose(t *testing.T) {
	ctx := context.Background()
	v, err := NewVAD(ctx, 16000, DefaultMode, DefaultMinVoicedRatio, DefaultFrameDuration)
	require.NoError(t, err)

	require.NoError(t, v.Close())
	assert.Nil(t, v.Detector)
	require.NoError(t, v.Close())

	_, err = v.IsVoice(ctx, make([]float64, 16000))
	require.Error(t, err)
}

func TestNewVADInvalidMode(t *testing.T) {
	_, err := NewVAD(context.Background(), 16000, 7, DefaultMinVoicedRatio, DefaultFrameDuration)
	require.Error(t, err)
}
