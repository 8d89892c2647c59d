// Package adaptive implements a loudness gate whose threshold follows a
// slowly adapting noise floor.
package adaptive

const (
	DefaultThresholdDB = -45.0

	// FloorMarginDB is how close to the floor a window has to be
	// to be allowed to move the floor.
	FloorMarginDB = 3.0

	// SpeechMarginDB is the distance above the floor required for speech.
	SpeechMarginDB = 8.0

	FloorDecay = 0.95
)

// State is the noise floor estimate; it is invalid until the first window.
type State struct {
	NoiseFloorDB      float64
	NoiseFloorDBValid bool
}

type Decision struct {
	ThresholdDB float64
	IsSpeech    bool
}

// Step advances the noise floor by one window of level rmsDB and decides
// whether the window is speech. The floor only follows windows that are
// below or near it, so loud speech never raises the gate.
func Step(
	state State,
	rmsDB float64,
	minThresholdDB float64,
) (State, Decision) {
	if !state.NoiseFloorDBValid {
		state = State{
			NoiseFloorDB:      rmsDB,
			NoiseFloorDBValid: true,
		}
	}

	if rmsDB < state.NoiseFloorDB+FloorMarginDB {
		state.NoiseFloorDB = FloorDecay*state.NoiseFloorDB + (1-FloorDecay)*rmsDB
	}

	threshold := max(minThresholdDB, state.NoiseFloorDB+SpeechMarginDB)
	return state, Decision{
		ThresholdDB: threshold,
		IsSpeech:    rmsDB > threshold,
	}
}
