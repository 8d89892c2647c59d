package vad

import (
	"context"
)

// Dummy reports a constant decision.
type Dummy struct {
	SampleRateValue uint32
	IsVoiceValue    bool
}

var _ VAD = (*Dummy)(nil)

func NewDummy(sampleRate uint32, isVoice bool) *Dummy {
	return &Dummy{
		SampleRateValue: sampleRate,
		IsVoiceValue:    isVoice,
	}
}

func (*Dummy) Close() error {
	return nil
}

func (d *Dummy) SampleRate() uint32 {
	return d.SampleRateValue
}

func (d *Dummy) IsVoice(context.Context, []float64) (bool, error) {
	return d.IsVoiceValue, nil
}
