// Package source decodes audio files into mono sample clips at the
// sample rate of the analysis.
package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/voiceguard/pkg/audio"
	"github.com/xaionaro-go/voiceguard/pkg/audio/pcm"
)

type Kind int

const (
	KindUndefined = Kind(iota)
	KindWAV
	KindOggVorbis
	KindRawFloat32
)

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "<undefined>"
	case KindWAV:
		return "wav"
	case KindOggVorbis:
		return "ogg"
	case KindRawFloat32:
		return "f32le"
	default:
		return fmt.Sprintf("<unexpected_kind_%d>", int(k))
	}
}

// KindFromPath picks the decoder by the file extension.
func KindFromPath(path string) (Kind, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav", ".wave":
		return KindWAV, nil
	case ".ogg", ".oga":
		return KindOggVorbis, nil
	case ".f32", ".raw", ".pcm":
		return KindRawFloat32, nil
	default:
		return KindUndefined, fmt.Errorf("unsupported file extension '%s'", ext)
	}
}

// Clip is a decoded mono recording.
type Clip struct {
	Path               string
	SampleRate         audio.SampleRate
	OriginalSampleRate audio.SampleRate
	OriginalChannels   audio.Channel
	Samples            []float64
}

func (c *Clip) Duration() time.Duration {
	if c.SampleRate == 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}

// Open decodes the file at path and converts it to mono at targetRate.
// Raw files are expected to be mono float32 little-endian at targetRate.
func Open(
	ctx context.Context,
	path string,
	targetRate audio.SampleRate,
) (_ret *Clip, _err error) {
	logger.Debugf(ctx, "Open(ctx, '%s', %d)", path, targetRate)
	defer func() { logger.Debugf(ctx, "/Open(ctx, '%s', %d): %v", path, targetRate, _err) }()

	kind, err := KindFromPath(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read '%s': %w", path, err)
	}
	clip, err := Decode(ctx, bytes.NewReader(b), kind, targetRate)
	if err != nil {
		return nil, fmt.Errorf("unable to decode '%s' as %s: %w", path, kind, err)
	}
	clip.Path = path
	return clip, nil
}

// Decode is Open for an in-memory stream of a known kind.
func Decode(
	ctx context.Context,
	r io.ReadSeeker,
	kind Kind,
	targetRate audio.SampleRate,
) (*Clip, error) {
	if targetRate == 0 {
		return nil, fmt.Errorf("target sample rate must be greater than 0")
	}

	var (
		clip *Clip
		err  error
	)
	switch kind {
	case KindWAV:
		clip, err = decodeWAV(r)
	case KindOggVorbis:
		clip, err = decodeOggVorbis(r)
	case KindRawFloat32:
		clip, err = decodeRawFloat32(r, targetRate)
	default:
		return nil, fmt.Errorf("unsupported kind %s", kind)
	}
	if err != nil {
		return nil, err
	}

	logger.Debugf(ctx, "decoded %d samples at %d Hz from %d channels", len(clip.Samples), clip.SampleRate, clip.OriginalChannels)
	if clip.SampleRate != targetRate {
		clip.Samples, err = pcm.Resample(clip.Samples, clip.SampleRate, targetRate)
		if err != nil {
			return nil, fmt.Errorf("unable to resample from %d to %d: %w", clip.SampleRate, targetRate, err)
		}
		clip.SampleRate = targetRate
	}
	return clip, nil
}

func decodeRawFloat32(
	r io.Reader,
	sampleRate audio.SampleRate,
) (*Clip, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read: %w", err)
	}
	samples, err := pcm.ToMono(audio.PCMFormatFloat32LE, 1, b)
	if err != nil {
		return nil, err
	}
	return &Clip{
		SampleRate:         sampleRate,
		OriginalSampleRate: sampleRate,
		OriginalChannels:   1,
		Samples:            samples,
	}, nil
}

// downmix averages interleaved frames of the given amount of channels.
func downmix[T int | float32](
	interleaved []T,
	channels int,
	scale float64,
	offset float64,
) []float64 {
	result := make([]float64, len(interleaved)/channels)
	for idx := range result {
		var sum float64
		for _, v := range interleaved[idx*channels : (idx+1)*channels] {
			sum += (float64(v) - offset) / scale
		}
		result[idx] = sum / float64(channels)
	}
	return result
}
