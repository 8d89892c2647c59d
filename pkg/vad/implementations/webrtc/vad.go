//go:build fvad
// +build fvad

package webrtc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/josharian/fvad"
	"github.com/xaionaro-go/voiceguard/pkg/vad"
)

type VAD struct {
	Locker         sync.Mutex
	Detector       *fvad.Detector
	SampleRateHz   uint32
	FrameSamples   int
	FrameDuration  time.Duration
	MinVoicedRatio float64
	Buffer         []int16
}

var _ vad.VAD = (*VAD)(nil)

// NewVAD creates a detector that reports voice when at least minVoicedRatio
// of the frames in a window are voiced. mode is the detector aggressiveness
// in [0, 3]. The VAD must be closed.
func NewVAD(
	ctx context.Context,
	sampleRate uint32,
	mode int,
	minVoicedRatio float64,
	frameDuration time.Duration,
) (_ret *VAD, _err error) {
	if err := validateParams(sampleRate, minVoicedRatio, frameDuration); err != nil {
		return nil, err
	}

	detector := fvad.NewDetector()
	defer func() {
		if _err != nil {
			detector.Close()
		}
	}()
	if err := detector.SetMode(mode); err != nil {
		return nil, fmt.Errorf("unable to set mode %d: %w", mode, err)
	}
	if err := detector.SetSampleRate(int(sampleRate)); err != nil {
		return nil, fmt.Errorf("unable to set sample rate %d: %w", sampleRate, err)
	}

	frameSamples := int(uint64(sampleRate) * uint64(frameDuration) / uint64(time.Second))
	logger.Debugf(ctx, "resulting frameSamples:%d and frameDuration:%v", frameSamples, frameDuration)

	return &VAD{
		Detector:       detector,
		SampleRateHz:   sampleRate,
		FrameSamples:   frameSamples,
		FrameDuration:  frameDuration,
		MinVoicedRatio: minVoicedRatio,
		Buffer:         make([]int16, frameSamples),
	}, nil
}

// Close releases the native detector; it is safe to call more than once.
func (v *VAD) Close() error {
	v.Locker.Lock()
	defer v.Locker.Unlock()
	if v.Detector == nil {
		return nil
	}
	v.Detector.Close()
	v.Detector = nil
	return nil
}

func (v *VAD) SampleRate() uint32 {
	return v.SampleRateHz
}

// IsVoice classifies every complete frame of the window; the incomplete
// tail is ignored. A window shorter than one frame is not voice.
func (v *VAD) IsVoice(
	ctx context.Context,
	samples []float64,
) (bool, error) {
	ratio, err := v.VoicedRatio(ctx, samples)
	if err != nil {
		return false, err
	}
	return ratio > 0 && ratio >= v.MinVoicedRatio, nil
}

// VoicedRatio returns the fraction of complete frames classified as voiced.
func (v *VAD) VoicedRatio(
	ctx context.Context,
	samples []float64,
) (_ret float64, _err error) {
	logger.Tracef(ctx, "VoicedRatio(ctx, %d samples)", len(samples))
	defer func() { logger.Tracef(ctx, "/VoicedRatio(ctx, %d samples): %v %v", len(samples), _ret, _err) }()

	v.Locker.Lock()
	defer v.Locker.Unlock()
	if v.Detector == nil {
		return 0, fmt.Errorf("the VAD is closed")
	}

	var frames, voiced int
	for len(samples) >= v.FrameSamples {
		frame := samples[:v.FrameSamples]
		samples = samples[len(frame):]
		for idx, s := range frame {
			v.Buffer[idx] = toInt16(s)
		}

		isVoice, err := v.Detector.Process(v.Buffer)
		if err != nil {
			return 0, fmt.Errorf("unable to process frame #%d: %w", frames, err)
		}
		frames++
		if isVoice {
			voiced++
		}
	}
	if frames == 0 {
		return 0, nil
	}
	return float64(voiced) / float64(frames), nil
}
