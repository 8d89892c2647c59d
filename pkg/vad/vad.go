package vad

import (
	"context"
	"io"
)

// VAD confirms whether a window of mono samples contains voice.
type VAD interface {
	io.Closer

	SampleRate() uint32
	IsVoice(ctx context.Context, samples []float64) (bool, error)
}
