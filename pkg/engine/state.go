package engine

import (
	"github.com/xaionaro-go/voiceguard/pkg/vad/implementations/adaptive"
)

// State is the sequential per-stream state of an Engine. The zero value
// is the state of a fresh stream.
type State struct {
	NoiseFloorDB Optional `json:"noise_floor_db"`
	EMAFast      Optional `json:"ema_fast"`
	EMASlow      Optional `json:"ema_slow"`
}

func (s State) gate() adaptive.State {
	return adaptive.State{
		NoiseFloorDB:      s.NoiseFloorDB.Value,
		NoiseFloorDBValid: s.NoiseFloorDB.Valid,
	}
}

func (s *State) setGate(g adaptive.State) {
	s.NoiseFloorDB = Optional{
		Value: g.NoiseFloorDB,
		Valid: g.NoiseFloorDBValid,
	}
}
