// Package heuristic implements a fixed, hand-tuned scorer over the
// interpretable acoustic indicators.
//
// Each indicator contributes through a clamped linear ramp that rises
// as the indicator falls below its soft cutoff; the weighted sum goes
// through a sigmoid. Diagnostic reasons use separate hard thresholds,
// so a window may score high without any reason and vice versa.
package heuristic

import (
	"math"

	"github.com/xaionaro-go/voiceguard/pkg/features"
	"github.com/xaionaro-go/voiceguard/pkg/scorer"
)

// ramp is a soft "below the cutoff is suspicious" contribution.
type ramp struct {
	Cutoff float64
	Weight float64
}

func (r ramp) score(v float64) float64 {
	return clamp((r.Cutoff-v)/r.Cutoff, 0, 1)
}

var (
	rampHFRatio   = ramp{Cutoff: 0.06, Weight: 0.36}
	rampRolloff   = ramp{Cutoff: 4200, Weight: 0.27}
	rampFlatness  = ramp{Cutoff: 0.12, Weight: 0.13}
	rampBandwidth = ramp{Cutoff: 1800, Weight: 0.12}
	rampCentroid  = ramp{Cutoff: 1700, Weight: 0.07}
	rampZCR       = ramp{Cutoff: 0.04, Weight: 0.05}
)

const (
	sigmoidCenter = 0.34
	sigmoidGain   = 7.0
)

const (
	reasonHFRatioBelow   = 0.02
	reasonRolloffBelow   = 3200.0
	reasonFlatnessBelow  = 0.08
	reasonBandwidthBelow = 1800.0
	reasonCentroidBelow  = 1700.0
	reasonZCRBelow       = 0.03
)

type Scorer struct{}

var _ scorer.Scorer = Scorer{}

func New() Scorer {
	return Scorer{}
}

func (Scorer) Score(ind features.Indicators) (float64, []scorer.Reason) {
	return Probability(ind), Reasons(ind)
}

// Raw returns the weighted ramp sum before the sigmoid.
func Raw(ind features.Indicators) float64 {
	return rampHFRatio.Weight*rampHFRatio.score(ind.HFEnergyRatio) +
		rampRolloff.Weight*rampRolloff.score(ind.SpectralRolloffHz) +
		rampFlatness.Weight*rampFlatness.score(ind.SpectralFlatness) +
		rampBandwidth.Weight*rampBandwidth.score(ind.SpectralBandwidthHz) +
		rampCentroid.Weight*rampCentroid.score(ind.SpectralCentroidHz) +
		rampZCR.Weight*rampZCR.score(ind.ZCR)
}

func Probability(ind features.Indicators) float64 {
	return clamp(sigmoid((Raw(ind)-sigmoidCenter)*sigmoidGain), 0, 1)
}

func Reasons(ind features.Indicators) []scorer.Reason {
	reasons := make([]scorer.Reason, 0, 6)
	if ind.HFEnergyRatio < reasonHFRatioBelow {
		reasons = append(reasons, scorer.ReasonLowHFEnergy)
	}
	if ind.SpectralRolloffHz < reasonRolloffBelow {
		reasons = append(reasons, scorer.ReasonLowRolloff)
	}
	if ind.SpectralFlatness < reasonFlatnessBelow {
		reasons = append(reasons, scorer.ReasonLowFlatness)
	}
	if ind.SpectralBandwidthHz < reasonBandwidthBelow {
		reasons = append(reasons, scorer.ReasonNarrowBandwidth)
	}
	if ind.SpectralCentroidHz < reasonCentroidBelow {
		reasons = append(reasons, scorer.ReasonLowCentroid)
	}
	if ind.ZCR < reasonZCRBelow {
		reasons = append(reasons, scorer.ReasonLowZCR)
	}
	return reasons
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
