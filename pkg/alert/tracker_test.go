package alert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerHold(t *testing.T) {
	tracker, err := NewTracker(0.8, 3.0, 0.5)
	require.NoError(t, err)

	assert.True(t, tracker.Update(0.9, true))
	for i := 0; i < 5; i++ {
		assert.True(t, tracker.Update(0.0, false), "update #%d", i)
	}
	assert.False(t, tracker.Update(0.0, false))
	assert.Equal(t, float64(0), tracker.HoldRemaining())
}

func TestTrackerRearmIsNotAdditive(t *testing.T) {
	tracker, err := NewTracker(0.8, 3.0, 0.5)
	require.NoError(t, err)

	tracker.Update(0.9, true)
	tracker.Update(0.9, true)
	tracker.Update(0.9, true)
	assert.Equal(t, 3.0, tracker.HoldRemaining())

	tracker.Update(0.1, true)
	assert.Equal(t, 2.5, tracker.HoldRemaining())
}

func TestTrackerRequiresSpeech(t *testing.T) {
	tracker, err := NewTracker(0.8, 3.0, 0.5)
	require.NoError(t, err)
	assert.False(t, tracker.Update(0.99, false))
	assert.True(t, tracker.Update(0.8, true))
}

func TestTrackerZeroHold(t *testing.T) {
	tracker, err := NewTracker(0.5, 0, 0.5)
	require.NoError(t, err)
	assert.False(t, tracker.Update(0.9, true))
}

func TestTrackerSetThreshold(t *testing.T) {
	tracker, err := NewTracker(0.8, 3.0, 0.5)
	require.NoError(t, err)

	assert.False(t, tracker.Update(0.7, true))
	require.NoError(t, tracker.SetThreshold(0.6))
	assert.Equal(t, 0.6, tracker.Threshold())
	assert.True(t, tracker.Update(0.7, true))

	require.Error(t, tracker.SetThreshold(1.5))
	assert.Equal(t, 0.6, tracker.Threshold())

	tracker.Reset()
	assert.Equal(t, float64(0), tracker.HoldRemaining())
}

func TestNewTrackerValidation(t *testing.T) {
	for _, tc := range []struct {
		name      string
		threshold float64
		holdSec   float64
		stepSec   float64
	}{
		{"threshold above one", 1.1, 3, 0.5},
		{"negative threshold", -0.1, 3, 0.5},
		{"negative hold", 0.8, -1, 0.5},
		{"zero step", 0.8, 3, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewTracker(tc.threshold, tc.holdSec, tc.stepSec)
			require.Error(t, err)
		})
	}
}
