package engine

import (
	"fmt"
	"strings"

	"github.com/xaionaro-go/voiceguard/pkg/features"
	"github.com/xaionaro-go/voiceguard/pkg/scorer"
)

// Result is the inference for one window. PFake and PFakeSmooth are
// invalid and Confidence is zero for non-speech windows.
type Result struct {
	PFake       Optional            `json:"p_fake"`
	PFakeSmooth Optional            `json:"p_fake_smooth"`
	Confidence  float64             `json:"confidence"`
	IsSpeech    bool                `json:"is_speech"`
	Reasons     []scorer.Reason     `json:"reasons"`
	Indicators  features.Indicators `json:"indicators"`
	ThresholdDB float64             `json:"threshold_db"`
}

func (r Result) String() string {
	if !r.IsSpeech {
		return fmt.Sprintf("silence (rms %.1f dB, threshold %.1f dB)", r.Indicators.RMSDB, r.ThresholdDB)
	}
	reasons := make([]string, 0, len(r.Reasons))
	for _, reason := range r.Reasons {
		reasons = append(reasons, reason.String())
	}
	return fmt.Sprintf(
		"p_fake %s (smooth %s), confidence %.2f, reasons [%s]",
		r.PFake, r.PFakeSmooth, r.Confidence, strings.Join(reasons, ","),
	)
}
