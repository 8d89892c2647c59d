// Package alert turns per-window probabilities into a sticky alert flag
// and into time segments of alerting.
package alert

import (
	"fmt"
	"math"
	"sync"
)

const (
	DefaultThreshold = 0.80
	DefaultHoldSec   = 3.0
)

// Tracker keeps the alert raised for holdSec seconds past the last window
// at or above the threshold. Update is expected once per hop.
type Tracker struct {
	locker        sync.Mutex
	threshold     float64
	holdSec       float64
	stepSec       float64
	holdRemaining float64
}

func NewTracker(
	threshold float64,
	holdSec float64,
	stepSec float64,
) (*Tracker, error) {
	if err := validateThreshold(threshold); err != nil {
		return nil, err
	}
	if !(holdSec >= 0) || math.IsInf(holdSec, 0) {
		return nil, fmt.Errorf("hold duration must be a non-negative number, but is %v", holdSec)
	}
	if !(stepSec > 0) || math.IsInf(stepSec, 0) {
		return nil, fmt.Errorf("step duration must be a positive number, but is %v", stepSec)
	}
	return &Tracker{
		threshold: threshold,
		holdSec:   holdSec,
		stepSec:   stepSec,
	}, nil
}

func validateThreshold(threshold float64) error {
	if !(threshold >= 0 && threshold <= 1) {
		return fmt.Errorf("threshold must be within [0, 1], but is %v", threshold)
	}
	return nil
}

func (t *Tracker) Update(probability float64, isSpeech bool) bool {
	t.locker.Lock()
	defer t.locker.Unlock()

	if isSpeech && probability >= t.threshold {
		t.holdRemaining = t.holdSec
	} else {
		t.holdRemaining = math.Max(0, t.holdRemaining-t.stepSec)
	}
	return t.holdRemaining > 0
}

// SetThreshold changes the threshold for the next updates; the current
// hold is kept.
func (t *Tracker) SetThreshold(threshold float64) error {
	if err := validateThreshold(threshold); err != nil {
		return err
	}
	t.locker.Lock()
	defer t.locker.Unlock()
	t.threshold = threshold
	return nil
}

func (t *Tracker) Threshold() float64 {
	t.locker.Lock()
	defer t.locker.Unlock()
	return t.threshold
}

func (t *Tracker) HoldRemaining() float64 {
	t.locker.Lock()
	defer t.locker.Unlock()
	return t.holdRemaining
}

func (t *Tracker) Reset() {
	t.locker.Lock()
	defer t.locker.Unlock()
	t.holdRemaining = 0
}
