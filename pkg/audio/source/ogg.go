package source

import (
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"
	"github.com/xaionaro-go/voiceguard/pkg/audio"
)

func decodeOggVorbis(r io.Reader) (*Clip, error) {
	data, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to decode Ogg Vorbis: %w", err)
	}
	if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid Ogg Vorbis format: %#+v", format)
	}

	return &Clip{
		SampleRate:         audio.SampleRate(format.SampleRate),
		OriginalSampleRate: audio.SampleRate(format.SampleRate),
		OriginalChannels:   audio.Channel(format.Channels),
		Samples:            downmix(data, format.Channels, 1, 0),
	}, nil
}
