package source

import (
	"fmt"
	"io"

	"github.com/go-audio/wav"
	"github.com/xaionaro-go/voiceguard/pkg/audio"
)

const wavFormatPCM = 1

func decodeWAV(r io.ReadSeeker) (*Clip, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("not a valid WAV file")
	}
	if d.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("only integer PCM WAV files are supported, but the format is %d", d.WavAudioFormat)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("unable to decode PCM: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 || buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid WAV format: %#+v", buf.Format)
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = int(d.BitDepth)
	}
	if bitDepth <= 0 || bitDepth > 32 {
		return nil, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}

	// 8-bit WAV samples are unsigned.
	scale := float64(int64(1) << (bitDepth - 1))
	var offset float64
	if bitDepth == 8 {
		offset = scale
	}

	channels := buf.Format.NumChannels
	return &Clip{
		SampleRate:         audio.SampleRate(buf.Format.SampleRate),
		OriginalSampleRate: audio.SampleRate(buf.Format.SampleRate),
		OriginalChannels:   audio.Channel(channels),
		Samples:            downmix(buf.Data, channels, scale, offset),
	}, nil
}
