// Package pipeline wires a segmenter, an inference engine and an alert
// tracker into the detector of a single stream.
package pipeline

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/voiceguard/pkg/alert"
	"github.com/xaionaro-go/voiceguard/pkg/config"
	"github.com/xaionaro-go/voiceguard/pkg/engine"
	"github.com/xaionaro-go/voiceguard/pkg/features"
	"github.com/xaionaro-go/voiceguard/pkg/metrics"
	"github.com/xaionaro-go/voiceguard/pkg/scorer/implementations/heuristic"
	"github.com/xaionaro-go/voiceguard/pkg/vad"
	"github.com/xaionaro-go/voiceguard/pkg/vad/implementations/webrtc"
	"github.com/xaionaro-go/voiceguard/pkg/window"
)

// Point is the outcome of one window. Times are in seconds from the
// stream start.
type Point struct {
	StartSample uint64        `json:"start_sample"`
	TStart      float64       `json:"t_start"`
	TEnd        float64       `json:"t_end"`
	Result      engine.Result `json:"result"`
	Alert       bool          `json:"alert"`
}

// Pipeline is the detector of one stream. Push must be called from one
// goroutine at a time; the windows are processed in order.
type Pipeline struct {
	Config    config.Config
	Segmenter *window.Segmenter
	Engine    *engine.Engine
	Tracker   *alert.Tracker
	Metrics   *metrics.Metrics
	FileMode  bool

	locker      sync.Mutex
	alertActive bool
}

func New(
	ctx context.Context,
	cfg config.Config,
	opts ...Option,
) (_ret *Pipeline, _err error) {
	logger.Debugf(ctx, "New")
	defer func() { logger.Debugf(ctx, "/New: %v", _err) }()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	o := Options(opts).config()

	segmenter, err := window.NewSegmenter(cfg.SampleRate, cfg.WindowSec, cfg.HopSec)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize the segmenter: %w", err)
	}

	extractor := o.Extractor
	if extractor == nil {
		extractor, err = features.NewExtractor(cfg.SampleRate)
		if err != nil {
			return nil, fmt.Errorf("unable to initialize the feature extractor: %w", err)
		}
	}

	sc := o.Scorer
	if sc == nil {
		sc = heuristic.New()
	}

	voiceDetector := o.VAD
	if voiceDetector == nil && cfg.WebRTCVAD.Enabled {
		voiceDetector, err = webrtc.NewVAD(
			ctx,
			cfg.SampleRate,
			cfg.WebRTCVAD.Mode,
			cfg.WebRTCVAD.MinVoicedRatio,
			webrtc.DefaultFrameDuration,
		)
		if err != nil {
			return nil, fmt.Errorf("unable to initialize the WebRTC VAD: %w", err)
		}
	}

	eng, err := engine.New(extractor, sc, voiceDetector, engine.Config{
		EMAAlpha:       cfg.EMAAlpha,
		VADThresholdDB: cfg.VADThresholdDB,
	})
	if err != nil {
		closeVAD(ctx, voiceDetector)
		return nil, fmt.Errorf("unable to initialize the engine: %w", err)
	}

	stepSec := float64(segmenter.HopSamples()) / float64(cfg.SampleRate)
	holdSec := cfg.AlertHoldSec
	if o.FileMode {
		holdSec = math.Min(holdSec, cfg.HopSec)
	}
	tracker, err := alert.NewTracker(cfg.AlertThreshold, holdSec, stepSec)
	if err != nil {
		closeVAD(ctx, voiceDetector)
		return nil, fmt.Errorf("unable to initialize the alert tracker: %w", err)
	}

	return &Pipeline{
		Config:    cfg,
		Segmenter: segmenter,
		Engine:    eng,
		Tracker:   tracker,
		Metrics:   o.Metrics,
		FileMode:  o.FileMode,
	}, nil
}

func closeVAD(ctx context.Context, v vad.VAD) {
	if v == nil {
		return
	}
	if err := v.Close(); err != nil {
		logger.Errorf(ctx, "unable to close the VAD: %v", err)
	}
}

func (p *Pipeline) SampleRate() uint32 {
	return p.Config.SampleRate
}

// WindowDuration returns the duration of a window after rounding to samples.
func (p *Pipeline) WindowDuration() time.Duration {
	return p.samplesToDuration(uint64(p.Segmenter.WindowSamples()))
}

// HopDuration returns the duration of a hop after rounding to samples.
func (p *Pipeline) HopDuration() time.Duration {
	return p.samplesToDuration(uint64(p.Segmenter.HopSamples()))
}

func (p *Pipeline) samplesToDuration(samples uint64) time.Duration {
	return time.Duration(samples) * time.Second / time.Duration(p.Config.SampleRate)
}

// Push feeds the next chunk of mono samples and returns the points of the
// windows completed by it.
func (p *Pipeline) Push(
	ctx context.Context,
	chunk []float64,
) []Point {
	p.locker.Lock()
	defer p.locker.Unlock()

	windows := p.Segmenter.Push(chunk)
	if len(windows) == 0 {
		return nil
	}

	sampleRate := float64(p.Config.SampleRate)
	windowSamples := uint64(p.Segmenter.WindowSamples())
	points := make([]Point, 0, len(windows))
	for _, w := range windows {
		result := p.Engine.InferWindow(ctx, w.Samples)

		probability := result.PFakeSmooth
		if p.FileMode {
			probability = result.PFake
		}
		alertActive := p.Tracker.Update(probability.Value, result.IsSpeech)
		p.observeAlert(ctx, alertActive)
		p.Metrics.RecordWindow(ctx, result.IsSpeech, result.PFakeSmooth.Value)

		points = append(points, Point{
			StartSample: w.StartSample,
			TStart:      float64(w.StartSample) / sampleRate,
			TEnd:        float64(w.StartSample+windowSamples) / sampleRate,
			Result:      result,
			Alert:       alertActive,
		})
	}
	return points
}

func (p *Pipeline) observeAlert(ctx context.Context, active bool) {
	switch {
	case active && !p.alertActive:
		logger.Debugf(ctx, "the alert is raised")
		p.Metrics.RecordAlertRaised(ctx)
	case !active && p.alertActive:
		logger.Debugf(ctx, "the alert is lowered")
	}
	p.alertActive = active
}

// SetAlertThreshold changes the alert threshold of the running stream.
func (p *Pipeline) SetAlertThreshold(threshold float64) error {
	if err := p.Tracker.SetThreshold(threshold); err != nil {
		return fmt.Errorf("unable to set the alert threshold: %w", err)
	}
	p.locker.Lock()
	defer p.locker.Unlock()
	p.Config.AlertThreshold = threshold
	return nil
}

// Reset restarts the stream: the buffered samples, the engine state and
// the alert are dropped.
func (p *Pipeline) Reset() {
	p.locker.Lock()
	defer p.locker.Unlock()
	p.Segmenter.Reset()
	p.Engine.ResetState()
	p.Tracker.Reset()
	p.alertActive = false
}

func (p *Pipeline) Close() error {
	if p.Engine.VAD == nil {
		return nil
	}
	if err := p.Engine.VAD.Close(); err != nil {
		return fmt.Errorf("unable to close the VAD: %w", err)
	}
	return nil
}
