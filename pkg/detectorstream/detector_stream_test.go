package detectorstream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/voiceguard/pkg/audio"
	"github.com/xaionaro-go/voiceguard/pkg/audio/pcm"
	"github.com/xaionaro-go/voiceguard/pkg/config"
	"github.com/xaionaro-go/voiceguard/pkg/pipeline"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.WindowSec = 0.05
	cfg.HopSec = 0.025
	cfg.AlertHoldSec = 0.1
	return cfg
}

func testSignal(sampleRate uint32) []float64 {
	samples := make([]float64, int(sampleRate))
	for i := range samples {
		if i < len(samples)/4 {
			samples[i] = 1e-4
			continue
		}
		samples[i] = 0.5 * math.Sin(2*math.Pi*300*float64(i)/float64(sampleRate))
	}
	return samples
}

func newPipeline(t *testing.T) *pipeline.Pipeline {
	p, err := pipeline.New(context.Background(), testConfig())
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func collect(t *testing.T, s *DetectorStream) []pipeline.Point {
	var points []pipeline.Point
	timeout := time.After(time.Minute)
	for {
		select {
		case point, ok := <-s.Points():
			if !ok {
				return points
			}
			points = append(points, point)
		case <-timeout:
			t.Fatal("timeout")
		}
	}
}

func TestStreamMatchesPipeline(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	// the stream sees the samples through float32
	samples, err := pcm.ToMono(
		audio.PCMFormatFloat32LE, 1,
		pcm.Encode(audio.PCMFormatFloat32LE, testSignal(cfg.SampleRate)),
	)
	require.NoError(t, err)

	expected := newPipeline(t).Push(ctx, samples)
	require.NotEmpty(t, expected)

	for _, tc := range []struct {
		name       string
		input      func() io.Reader
		bufferSize uint
	}{
		{
			name:       "whole",
			input:      func() io.Reader { return bytes.NewReader(pcm.Encode(audio.PCMFormatFloat32LE, samples)) },
			bufferSize: 1 << 20,
		},
		{
			name:       "small buffer",
			input:      func() io.Reader { return bytes.NewReader(pcm.Encode(audio.PCMFormatFloat32LE, samples)) },
			bufferSize: 1000,
		},
		{
			name: "one byte reads",
			input: func() io.Reader {
				return iotest.OneByteReader(bytes.NewReader(pcm.Encode(audio.PCMFormatFloat32LE, samples)))
			},
			bufferSize: 4096,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s, err := NewDetectorStream(ctx, tc.input(), audio.PCMFormatFloat32LE, 1, newPipeline(t), tc.bufferSize)
			require.NoError(t, err)
			defer s.Close()

			points := collect(t, s)
			require.NoError(t, s.Err())
			assert.Equal(t, expected, points)
		})
	}
}

type limitedReader struct {
	io.Reader
	MaxRead int
}

func (r limitedReader) Read(p []byte) (int, error) {
	if len(p) > r.MaxRead {
		p = p[:r.MaxRead]
	}
	return r.Reader.Read(p)
}

func TestStreamBackPressure(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()

	// 600-byte reads do not fit twice into 1000 bytes, so the ring buffer
	// takes them partially while the consumer lags behind; with 3-byte
	// frames the accepted part also ends in the middle of a frame
	for _, format := range []audio.PCMFormat{
		audio.PCMFormatFloat32LE,
		audio.PCMFormatS24LE,
	} {
		t.Run(format.String(), func(t *testing.T) {
			encoded := pcm.Encode(format, testSignal(cfg.SampleRate))
			samples, err := pcm.ToMono(format, 1, encoded)
			require.NoError(t, err)
			expected := newPipeline(t).Push(ctx, samples)
			require.NotEmpty(t, expected)

			input := limitedReader{
				Reader:  bytes.NewReader(encoded),
				MaxRead: 600,
			}
			s, err := NewDetectorStream(ctx, input, format, 1, newPipeline(t), 1000)
			require.NoError(t, err)
			defer s.Close()

			var points []pipeline.Point
			for point := range s.Points() {
				time.Sleep(2 * time.Millisecond)
				points = append(points, point)
			}
			require.NoError(t, s.Err())
			require.Len(t, points, len(expected))
			for idx := range expected {
				require.Equal(t, expected[idx], points[idx], "window #%d", idx)
			}
		})
	}
}

func TestStreamStereo(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	samples := testSignal(cfg.SampleRate)

	expected := newPipeline(t).Push(ctx, samples)

	stereo := make([]float64, 0, 2*len(samples))
	for _, v := range samples {
		stereo = append(stereo, v, v)
	}
	input := bytes.NewReader(pcm.Encode(audio.PCMFormatS16LE, stereo))

	s, err := NewDetectorStream(ctx, input, audio.PCMFormatS16LE, 2, newPipeline(t), 1<<16)
	require.NoError(t, err)
	defer s.Close()

	points := collect(t, s)
	require.NoError(t, s.Err())
	require.Len(t, points, len(expected))
	for idx := range points {
		assert.Equal(t, expected[idx].StartSample, points[idx].StartSample)
		assert.Equal(t, expected[idx].Result.IsSpeech, points[idx].Result.IsSpeech)
	}
}

func TestStreamInputError(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	input := io.MultiReader(
		bytes.NewReader(pcm.Encode(audio.PCMFormatFloat32LE, testSignal(cfg.SampleRate))),
		iotest.ErrReader(errors.New("boom")),
	)

	s, err := NewDetectorStream(ctx, input, audio.PCMFormatFloat32LE, 1, newPipeline(t), 1<<16)
	require.NoError(t, err)
	defer s.Close()

	collect(t, s)
	require.Error(t, s.Err())
	assert.Contains(t, s.Err().Error(), "boom")
}

func TestStreamClose(t *testing.T) {
	ctx := context.Background()
	r, w := io.Pipe()
	defer w.Close()

	s, err := NewDetectorStream(ctx, r, audio.PCMFormatFloat32LE, 1, newPipeline(t), 1<<16)
	require.NoError(t, err)

	require.NoError(t, s.Close())
	_, ok := <-s.Points()
	assert.False(t, ok)
	assert.NoError(t, s.Err())
}

func TestNewDetectorStreamValidation(t *testing.T) {
	ctx := context.Background()
	_, err := NewDetectorStream(ctx, bytes.NewReader(nil), audio.PCMFormatFloat32LE, 0, newPipeline(t), 1024)
	require.Error(t, err)
	_, err = NewDetectorStream(ctx, bytes.NewReader(nil), audio.PCMFormatFloat32LE, 2, newPipeline(t), 4)
	require.Error(t, err)
}
