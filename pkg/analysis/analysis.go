// Package analysis runs the detector over a whole recording and
// summarizes the outcome.
package analysis

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/voiceguard/pkg/alert"
	"github.com/xaionaro-go/voiceguard/pkg/audio/source"
	"github.com/xaionaro-go/voiceguard/pkg/config"
	"github.com/xaionaro-go/voiceguard/pkg/pipeline"
	"github.com/xaionaro-go/voiceguard/pkg/scorer"
)

const progressEvery = 10

// ProgressFunc is called with the amount of processed windows and the
// expected total.
type ProgressFunc func(processed, total int)

type Summary struct {
	TotalWindows   int             `json:"total_windows"`
	SpeechWindows  int             `json:"speech_windows"`
	DurationSec    float64         `json:"duration_sec"`
	PFakeOverall   float64         `json:"p_fake_overall"`
	PFakeMedian    float64         `json:"p_fake_median"`
	PFakeP95       float64         `json:"p_fake_p95"`
	PFakeMean      float64         `json:"p_fake_mean"`
	PFakeMax       float64         `json:"p_fake_max"`
	FakeFraction   float64         `json:"fake_fraction"`
	ConfidenceMean float64         `json:"confidence_mean"`
	ConfidenceMin  float64         `json:"confidence_min"`
	AlertSegments  []alert.Segment `json:"alert_segments"`
	ReasonCounts   map[string]int  `json:"reason_counts"`
}

type Result struct {
	Config  config.Config    `json:"config"`
	Windows []pipeline.Point `json:"windows"`
	Summary Summary          `json:"summary"`
}

// EstimateWindows returns the amount of windows a clip of numSamples
// samples is cut into; a clip shorter than a window still gives one.
func EstimateWindows(numSamples, windowSamples, hopSamples int) int {
	if numSamples <= 0 || windowSamples <= 0 || hopSamples <= 0 {
		return 0
	}
	if numSamples < windowSamples {
		return 1
	}
	return 1 + (numSamples-windowSamples)/hopSamples
}

// Analyze runs a fresh pipeline in file mode over the clip. The clip must
// be at the configured sample rate. progress may be nil.
func Analyze(
	ctx context.Context,
	clip *source.Clip,
	cfg config.Config,
	progress ProgressFunc,
	opts ...pipeline.Option,
) (_ret *Result, _err error) {
	logger.Debugf(ctx, "Analyze")
	defer func() { logger.Debugf(ctx, "/Analyze: %v", _err) }()

	if clip == nil {
		return nil, fmt.Errorf("clip is not set")
	}
	if uint32(clip.SampleRate) != cfg.SampleRate {
		return nil, fmt.Errorf("the clip is at %d Hz, but the analysis is configured for %d Hz", clip.SampleRate, cfg.SampleRate)
	}

	opts = append(append([]pipeline.Option{}, opts...), pipeline.OptionFileMode(true))
	p, err := pipeline.New(ctx, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize the pipeline: %w", err)
	}
	defer func() {
		if err := p.Close(); err != nil {
			logger.Errorf(ctx, "unable to close the pipeline: %v", err)
		}
	}()

	windowSamples := p.Segmenter.WindowSamples()
	hopSamples := p.Segmenter.HopSamples()
	samples := clip.Samples
	if len(samples) > 0 && len(samples) < windowSamples {
		padded := make([]float64, windowSamples)
		copy(padded, samples)
		samples = padded
	}
	total := EstimateWindows(len(samples), windowSamples, hopSamples)

	result := &Result{
		Config:  cfg,
		Windows: make([]pipeline.Point, 0, total),
	}
	segments := alert.NewSegmentRecorder()
	for offset := 0; offset < len(samples); offset += hopSamples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(offset+hopSamples, len(samples))
		for _, point := range p.Push(ctx, samples[offset:end]) {
			result.Windows = append(result.Windows, point)
			segments.Observe(point.TStart, point.TEnd, point.Alert)

			processed := len(result.Windows)
			if progress != nil && (processed == total || processed%progressEvery == 0) {
				progress(processed, total)
			}
		}
	}
	if n := len(result.Windows); n > 0 {
		segments.Finalize(result.Windows[n-1].TEnd)
	}

	result.Summary = Summarize(result.Windows, cfg.AlertThreshold)
	result.Summary.TotalWindows = total
	result.Summary.DurationSec = float64(len(clip.Samples)) / float64(cfg.SampleRate)
	result.Summary.AlertSegments = segments.Segments()
	return result, nil
}

// Summarize computes the statistics of the unsmoothed probability over
// the speech windows.
func Summarize(points []pipeline.Point, alertThreshold float64) Summary {
	summary := Summary{
		TotalWindows:  len(points),
		AlertSegments: []alert.Segment{},
		ReasonCounts:  map[string]int{},
	}
	if len(points) > 0 {
		last := points[len(points)-1]
		summary.DurationSec = last.TEnd
	}

	var (
		probabilities []float64
		confidences   []float64
		fake          int
	)
	for _, point := range points {
		r := point.Result
		if !r.IsSpeech {
			continue
		}
		confidences = append(confidences, r.Confidence)
		for _, reason := range r.Reasons {
			summary.ReasonCounts[reason.String()]++
		}
		if !r.PFake.Valid || math.IsNaN(r.PFake.Value) {
			continue
		}
		probabilities = append(probabilities, r.PFake.Value)
		if r.PFake.Value >= alertThreshold {
			fake++
		}
	}

	summary.SpeechWindows = len(probabilities)
	if len(probabilities) > 0 {
		sorted := append([]float64(nil), probabilities...)
		sort.Float64s(sorted)
		summary.PFakeMean = mean(sorted)
		summary.PFakeMax = sorted[len(sorted)-1]
		summary.PFakeMedian = Quantile(sorted, 0.5)
		summary.PFakeP95 = Quantile(sorted, 0.95)
		summary.FakeFraction = float64(fake) / float64(len(sorted))
	}
	summary.PFakeOverall = summary.PFakeP95
	if len(confidences) > 0 {
		summary.ConfidenceMean = mean(confidences)
		summary.ConfidenceMin = confidences[0]
		for _, c := range confidences[1:] {
			summary.ConfidenceMin = math.Min(summary.ConfidenceMin, c)
		}
	}
	return summary
}

// Quantile linearly interpolates between the closest ranks of the sorted
// values.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// TopReasons returns the reason codes ordered by frequency, then by code.
func (s Summary) TopReasons() []scorer.Reason {
	var reasons []scorer.Reason
	for code := range s.ReasonCounts {
		reason, err := scorer.ReasonFromString(code)
		if err != nil {
			continue
		}
		reasons = append(reasons, reason)
	}
	sort.Slice(reasons, func(i, j int) bool {
		ci, cj := s.ReasonCounts[reasons[i].String()], s.ReasonCounts[reasons[j].String()]
		if ci != cj {
			return ci > cj
		}
		return reasons[i] < reasons[j]
	})
	return reasons
}
