package report

import (
	"fmt"
	"math"
)

type Verdict int

const (
	VerdictUndefined = Verdict(iota)
	VerdictNoData
	VerdictLikelyHuman
	VerdictSuspicious
	VerdictLikelySynthetic
)

// suspiciousFraction is the share of the alert threshold starting from
// which a probability is reported as suspicious.
const suspiciousFraction = 0.6

func (v Verdict) String() string {
	switch v {
	case VerdictUndefined:
		return "<undefined>"
	case VerdictNoData:
		return "no_data"
	case VerdictLikelyHuman:
		return "likely_human"
	case VerdictSuspicious:
		return "suspicious"
	case VerdictLikelySynthetic:
		return "likely_synthetic"
	default:
		return fmt.Sprintf("<unexpected_verdict_%d>", int(v))
	}
}

func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Verdict) UnmarshalText(b []byte) error {
	for candidate := VerdictNoData; candidate <= VerdictLikelySynthetic; candidate++ {
		if candidate.String() == string(b) {
			*v = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown verdict '%s'", b)
}

// Judge turns a probability into a verdict; hasSpeech false means there
// was nothing to judge.
func Judge(p float64, hasSpeech bool, threshold float64) Verdict {
	if !hasSpeech || math.IsNaN(p) {
		return VerdictNoData
	}
	p = clamp(p)
	threshold = clamp(threshold)
	switch {
	case p >= threshold:
		return VerdictLikelySynthetic
	case p >= threshold*suspiciousFraction:
		return VerdictSuspicious
	default:
		return VerdictLikelyHuman
	}
}

type ConfidenceLevel int

const (
	ConfidenceLevelUndefined = ConfidenceLevel(iota)
	ConfidenceLevelLow
	ConfidenceLevelMedium
	ConfidenceLevelHigh
)

func (l ConfidenceLevel) String() string {
	switch l {
	case ConfidenceLevelUndefined:
		return "<undefined>"
	case ConfidenceLevelLow:
		return "low"
	case ConfidenceLevelMedium:
		return "medium"
	case ConfidenceLevelHigh:
		return "high"
	default:
		return fmt.Sprintf("<unexpected_confidence_level_%d>", int(l))
	}
}

func (l ConfidenceLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *ConfidenceLevel) UnmarshalText(b []byte) error {
	for candidate := ConfidenceLevelLow; candidate <= ConfidenceLevelHigh; candidate++ {
		if candidate.String() == string(b) {
			*l = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown confidence level '%s'", b)
}

func ConfidenceLevelOf(confidence float64) ConfidenceLevel {
	c := clamp(confidence)
	switch {
	case c < 0.34:
		return ConfidenceLevelLow
	case c < 0.67:
		return ConfidenceLevelMedium
	default:
		return ConfidenceLevelHigh
	}
}

func clamp(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}
