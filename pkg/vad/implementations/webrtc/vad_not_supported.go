//go:build !fvad
// +build !fvad

package webrtc

import (
	"context"
	"fmt"
	"time"

	"github.com/xaionaro-go/voiceguard/pkg/vad"
)

type VAD = vad.Dummy

func NewVAD(
	ctx context.Context,
	sampleRate uint32,
	mode int,
	minVoicedRatio float64,
	frameDuration time.Duration,
) (*VAD, error) {
	return nil, fmt.Errorf("built without tag 'fvad'")
}
