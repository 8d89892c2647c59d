package features

import (
	"fmt"
)

// Indicators is the set of interpretable acoustic features computed for
// a single analysis window.
type Indicators struct {
	RMSDB               float64 `json:"rms_db"`
	ZCR                 float64 `json:"zcr"`
	SpectralCentroidHz  float64 `json:"spectral_centroid_hz"`
	SpectralBandwidthHz float64 `json:"spectral_bandwidth_hz"`
	SpectralRolloffHz   float64 `json:"spectral_rolloff_hz"`
	HFEnergyRatio       float64 `json:"hf_energy_ratio"`
	SpectralFlatness    float64 `json:"spectral_flatness"`
}

func (i Indicators) String() string {
	return fmt.Sprintf(
		"rms:%.1fdB zcr:%.3f centroid:%.0fHz bandwidth:%.0fHz rolloff:%.0fHz hf:%.3f flatness:%.3f",
		i.RMSDB, i.ZCR, i.SpectralCentroidHz, i.SpectralBandwidthHz, i.SpectralRolloffHz, i.HFEnergyRatio, i.SpectralFlatness,
	)
}
