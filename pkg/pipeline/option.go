package pipeline

import (
	"github.com/xaionaro-go/voiceguard/pkg/features"
	"github.com/xaionaro-go/voiceguard/pkg/metrics"
	"github.com/xaionaro-go/voiceguard/pkg/scorer"
	"github.com/xaionaro-go/voiceguard/pkg/vad"
)

type Option interface {
	apply(*options)
}

type Options []Option

func (s Options) config() options {
	var cfg options
	for _, opt := range s {
		opt.apply(&cfg)
	}
	return cfg
}

type options struct {
	Metrics   *metrics.Metrics
	Extractor *features.Extractor
	Scorer    scorer.Scorer
	VAD       vad.VAD
	FileMode  bool
}

// OptionMetrics makes the pipeline record its activity.
type OptionMetrics struct{ *metrics.Metrics }

func (o OptionMetrics) apply(cfg *options) { cfg.Metrics = o.Metrics }

// OptionExtractor shares an already existing extractor.
type OptionExtractor struct{ *features.Extractor }

func (o OptionExtractor) apply(cfg *options) { cfg.Extractor = o.Extractor }

// OptionScorer replaces the heuristic scorer.
type OptionScorer struct{ scorer.Scorer }

func (o OptionScorer) apply(cfg *options) { cfg.Scorer = o.Scorer }

// OptionVAD sets the voice confirmation, overriding the webrtc_vad config
// section.
type OptionVAD struct{ vad.VAD }

func (o OptionVAD) apply(cfg *options) { cfg.VAD = o.VAD }

// OptionFileMode tunes the alert for offline analysis of a whole file:
// the hold is capped by the hop and the tracker is fed the unsmoothed
// probability.
type OptionFileMode bool

func (o OptionFileMode) apply(cfg *options) { cfg.FileMode = bool(o) }
