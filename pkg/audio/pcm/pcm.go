// Package pcm converts between raw interleaved PCM bytes and mono
// float64 sample slices, which is the only sample representation the
// analysis pipeline accepts.
package pcm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/xaionaro-go/voiceguard/pkg/audio/resampler"
	"github.com/xaionaro-go/voiceguard/pkg/audio/types"
)

const readChunkSamples = 4096

// ToMono decodes interleaved PCM into mono samples in [-1, 1],
// averaging the channels of each frame.
func ToMono(
	format types.PCMFormat,
	channels types.Channel,
	data []byte,
) ([]float64, error) {
	frameSize := int(format.Size()) * int(channels)
	if frameSize == 0 {
		return nil, fmt.Errorf("invalid frame layout: format %s, %d channels", format, channels)
	}
	if len(data)%frameSize != 0 {
		return nil, fmt.Errorf("data length %d is not a multiple of the frame size %d", len(data), frameSize)
	}
	if channels == 1 {
		samples := make([]float64, len(data)/frameSize)
		for idx := range samples {
			samples[idx] = resampler.GetFloat64(format, data[idx*frameSize:])
		}
		return samples, nil
	}

	return convert(
		resampler.Format{Channels: channels, SampleRate: 1, PCMFormat: format},
		data,
		resampler.Format{Channels: 1, SampleRate: 1, PCMFormat: types.PCMFormatFloat64LE},
	)
}

// Resample converts mono samples from one sample rate to another.
func Resample(
	samples []float64,
	from types.SampleRate,
	to types.SampleRate,
) ([]float64, error) {
	if from == 0 || to == 0 {
		return nil, fmt.Errorf("sample rates must be positive: %d -> %d", from, to)
	}
	if from == to {
		result := make([]float64, len(samples))
		copy(result, samples)
		return result, nil
	}

	return convert(
		resampler.Format{Channels: 1, SampleRate: from, PCMFormat: types.PCMFormatFloat64LE},
		Encode(types.PCMFormatFloat64LE, samples),
		resampler.Format{Channels: 1, SampleRate: to, PCMFormat: types.PCMFormatFloat64LE},
	)
}

// Encode writes mono samples as PCM of the given format.
func Encode(format types.PCMFormat, samples []float64) []byte {
	size := int(format.Size())
	out := make([]byte, len(samples)*size)
	for idx, v := range samples {
		resampler.SetFloat64(format, out[idx*size:], v)
	}
	return out
}

func convert(
	inFormat resampler.Format,
	data []byte,
	outFormat resampler.Format,
) ([]float64, error) {
	r, err := resampler.NewResampler(inFormat, bytes.NewReader(data), outFormat)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize the resampler: %w", err)
	}

	buf := make([]byte, readChunkSamples*8)
	var result []float64
	for {
		n, err := r.Read(buf)
		for idx := 0; idx+8 <= n; idx += 8 {
			result = append(result, math.Float64frombits(binary.LittleEndian.Uint64(buf[idx:])))
		}
		if errors.Is(err, io.EOF) {
			return result, nil
		}
		if err != nil {
			return result, fmt.Errorf("unable to resample: %w", err)
		}
	}
}
