package scorer

import (
	"encoding/json"
	"fmt"
)

// Reason is a diagnostic code explaining why a window looks synthetic.
// Display text (and its localization) belongs to the presentation layer;
// Description is a plain English fallback.
type Reason uint8

const (
	ReasonUndefined = Reason(iota)
	ReasonLowHFEnergy
	ReasonLowRolloff
	ReasonLowFlatness
	ReasonNarrowBandwidth
	ReasonLowCentroid
	ReasonLowZCR
	EndOfReason
)

func (r Reason) String() string {
	switch r {
	case ReasonUndefined:
		return "undefined"
	case ReasonLowHFEnergy:
		return "low_hf_energy"
	case ReasonLowRolloff:
		return "low_rolloff"
	case ReasonLowFlatness:
		return "low_flatness"
	case ReasonNarrowBandwidth:
		return "narrow_bandwidth"
	case ReasonLowCentroid:
		return "low_centroid"
	case ReasonLowZCR:
		return "low_zcr"
	default:
		return fmt.Sprintf("unknown_reason_%d", uint8(r))
	}
}

func (r Reason) Description() string {
	switch r {
	case ReasonLowHFEnergy:
		return "little high-frequency energy (possible band cut, codec or TTS)"
	case ReasonLowRolloff:
		return "low spectral roll-off (possible high-frequency cut)"
	case ReasonLowFlatness:
		return "low spectral flatness (too sterile or tonal)"
	case ReasonNarrowBandwidth:
		return "narrow spectral bandwidth"
	case ReasonLowCentroid:
		return "low spectral centroid (dull timbre)"
	case ReasonLowZCR:
		return "low zero-crossing rate (too smooth waveform)"
	default:
		return r.String()
	}
}

func ReasonFromString(s string) (Reason, error) {
	for r := ReasonUndefined + 1; r < EndOfReason; r++ {
		if r.String() == s {
			return r, nil
		}
	}
	return ReasonUndefined, fmt.Errorf("unknown reason '%s'", s)
}

func (r Reason) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Reason) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("unable to unmarshal the reason: %w", err)
	}
	parsed, err := ReasonFromString(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
