package scorer

import (
	"github.com/xaionaro-go/voiceguard/pkg/features"
)

type Scorer interface {
	// Score maps the indicators of a speech window to the probability
	// that the speech is synthetic, plus the diagnostic reasons in
	// their fixed order.
	Score(features.Indicators) (float64, []Reason)
}
