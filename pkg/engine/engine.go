// Package engine turns windows into per-window inference results: it gates
// non-speech away, scores speech, weights the score by confidence and
// smooths it over time.
package engine

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/voiceguard/pkg/features"
	"github.com/xaionaro-go/voiceguard/pkg/scorer"
	"github.com/xaionaro-go/voiceguard/pkg/vad"
	"github.com/xaionaro-go/voiceguard/pkg/vad/implementations/adaptive"
)

const (
	DefaultEMAAlpha       = 0.35
	DefaultVADThresholdDB = adaptive.DefaultThresholdDB

	fastWeight = 0.65
	slowWeight = 0.35
)

type Config struct {
	// EMAAlpha is the fast smoothing coefficient; the slow one is its square.
	EMAAlpha float64

	// VADThresholdDB is the lowest level the speech gate may use.
	VADThresholdDB float64
}

func DefaultConfig() Config {
	return Config{
		EMAAlpha:       DefaultEMAAlpha,
		VADThresholdDB: DefaultVADThresholdDB,
	}
}

func (cfg Config) Validate() error {
	if !(cfg.EMAAlpha > 0 && cfg.EMAAlpha <= 1) {
		return fmt.Errorf("EMA alpha must be within (0, 1], but is %v", cfg.EMAAlpha)
	}
	if math.IsNaN(cfg.VADThresholdDB) || math.IsInf(cfg.VADThresholdDB, 0) {
		return fmt.Errorf("VAD threshold must be finite, but is %v", cfg.VADThresholdDB)
	}
	return nil
}

// Engine is the stateful per-stream inference. Windows must be fed in
// stream order; an Engine must not be shared between streams.
type Engine struct {
	Extractor *features.Extractor
	Scorer    scorer.Scorer
	VAD       vad.VAD
	Config    Config

	locker sync.Mutex
	state  State
}

// New creates an Engine; voiceDetector is optional and, if set, must
// work at the extractor's sample rate.
func New(
	extractor *features.Extractor,
	sc scorer.Scorer,
	voiceDetector vad.VAD,
	cfg Config,
) (*Engine, error) {
	if extractor == nil {
		return nil, fmt.Errorf("extractor is not set")
	}
	if sc == nil {
		return nil, fmt.Errorf("scorer is not set")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if voiceDetector != nil && float64(voiceDetector.SampleRate()) != extractor.SampleRate() {
		return nil, fmt.Errorf(
			"the VAD works at %d Hz, while the stream is %v Hz",
			voiceDetector.SampleRate(), extractor.SampleRate(),
		)
	}
	return &Engine{
		Extractor: extractor,
		Scorer:    sc,
		VAD:       voiceDetector,
		Config:    cfg,
	}, nil
}

// InferWindow processes the next window of the stream.
func (e *Engine) InferWindow(
	ctx context.Context,
	samples []float64,
) Result {
	indicators := e.Extractor.Extract(samples)

	e.locker.Lock()
	defer e.locker.Unlock()

	var (
		result   Result
		decision adaptive.Decision
	)
	e.state, decision = Gate(e.state, indicators.RMSDB, e.Config.VADThresholdDB)
	if decision.IsSpeech && e.VAD != nil {
		isVoice, err := e.VAD.IsVoice(ctx, samples)
		switch {
		case err != nil:
			logger.Warnf(ctx, "unable to confirm the voice activity, keeping the level gate decision: %v", err)
		case !isVoice:
			logger.Tracef(ctx, "the level gate passed, but the VAD found no voice")
			decision.IsSpeech = false
		}
	}

	e.state, result = Infer(e.state, e.Config, e.Scorer, indicators, decision)
	logger.Tracef(ctx, "InferWindow(%d samples): %s", len(samples), result)
	return result
}

// ResetState forgets the noise floor and the smoothing history.
func (e *Engine) ResetState() {
	e.locker.Lock()
	defer e.locker.Unlock()
	e.state = State{}
}

func (e *Engine) State() State {
	e.locker.Lock()
	defer e.locker.Unlock()
	return e.state
}

// Gate advances the noise floor of the state by a window of level rmsDB.
func Gate(
	state State,
	rmsDB float64,
	minThresholdDB float64,
) (State, adaptive.Decision) {
	g, decision := adaptive.Step(state.gate(), rmsDB, minThresholdDB)
	state.setGate(g)
	return state, decision
}

// Infer scores a gated window and advances the smoothing state. Non-speech
// windows leave the state untouched.
func Infer(
	state State,
	cfg Config,
	sc scorer.Scorer,
	indicators features.Indicators,
	decision adaptive.Decision,
) (State, Result) {
	result := Result{
		IsSpeech:    decision.IsSpeech,
		Reasons:     []scorer.Reason{},
		Indicators:  indicators,
		ThresholdDB: decision.ThresholdDB,
	}
	if !decision.IsSpeech {
		return state, result
	}

	rawP, reasons := sc.Score(indicators)
	if reasons != nil {
		result.Reasons = reasons
	}

	modelConfidence := math.Abs(rawP-0.5) * 2
	quality := SignalQuality(indicators, decision.ThresholdDB)
	confidence := clamp(0.15+0.85*(0.55*quality+0.45*modelConfidence), 0, 1)
	adjusted := 0.5 + (rawP-0.5)*confidence

	state.EMAFast = ema(state.EMAFast, adjusted, cfg.EMAAlpha)
	state.EMASlow = ema(state.EMASlow, adjusted, cfg.EMAAlpha*cfg.EMAAlpha)
	smoothed := fastWeight*state.EMAFast.Value + slowWeight*state.EMASlow.Value

	result.PFake = Some(clamp(adjusted, 0, 1))
	result.PFakeSmooth = Some(clamp(smoothed, 0, 1))
	result.Confidence = confidence
	return state, result
}

// SignalQuality estimates in [0, 1] how reliable the indicators of a
// speech window are.
func SignalQuality(
	ind features.Indicators,
	thresholdDB float64,
) float64 {
	level := clamp((ind.RMSDB-thresholdDB)/25, 0, 1)
	bandwidth := clamp((ind.SpectralBandwidthHz-900)/2500, 0, 1)
	hf := clamp((ind.HFEnergyRatio-0.01)/0.05, 0, 1)
	zcrCloseness := 1 - clamp(math.Abs(ind.ZCR-0.12)/0.12, 0, 1)
	return clamp(0.45*level+0.25*bandwidth+0.20*hf+0.10*zcrCloseness, 0, 1)
}

func ema(prev Optional, value, alpha float64) Optional {
	if !prev.Valid {
		return Some(value)
	}
	return Some(alpha*value + (1-alpha)*prev.Value)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
