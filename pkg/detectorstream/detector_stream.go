// Package detectorstream runs a detection pipeline over a PCM byte stream
// in the background.
package detectorstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/iamcalledrob/circular"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/voiceguard/pkg/audio"
	"github.com/xaionaro-go/voiceguard/pkg/audio/pcm"
	"github.com/xaionaro-go/voiceguard/pkg/pipeline"
)

const (
	readChunkSize = 65536
	pointsBacklog = 16
)

// DetectorStream copies PCM from a reader into a ring buffer in one
// goroutine and analyzes it in another, publishing a Point per window.
type DetectorStream struct {
	Pipeline *pipeline.Pipeline

	format            audio.PCMFormat
	channels          audio.Channel
	frameSize         int
	inputBufferLocker sync.Mutex
	inputBuffer       *circular.Buffer
	inputEnded        bool
	resultError       error

	readProgressedCh     chan struct{}
	analysisProgressedCh chan struct{}

	pointsCh   chan pipeline.Point
	cancelFunc context.CancelFunc
	doneCh     chan struct{}
}

// NewDetectorStream starts analyzing input, which is interleaved PCM of
// the given layout at the sample rate of the pipeline. bufferSize is the
// ring buffer size in bytes.
func NewDetectorStream(
	ctx context.Context,
	input io.Reader,
	format audio.PCMFormat,
	channels audio.Channel,
	p *pipeline.Pipeline,
	bufferSize uint,
) (*DetectorStream, error) {
	frameSize := int(format.Size()) * int(channels)
	if frameSize == 0 {
		return nil, fmt.Errorf("invalid frame layout: format %s, %d channels", format, channels)
	}
	if int(bufferSize) < frameSize {
		return nil, fmt.Errorf("the buffer size %d is less than a frame (%d bytes)", bufferSize, frameSize)
	}

	ctx, cancelFunc := context.WithCancel(ctx)
	s := &DetectorStream{
		Pipeline:    p,
		format:      format,
		channels:    channels,
		frameSize:   frameSize,
		inputBuffer: circular.NewBuffer(int(bufferSize)),

		readProgressedCh:     make(chan struct{}),
		analysisProgressedCh: make(chan struct{}),

		pointsCh:   make(chan pipeline.Point, pointsBacklog),
		cancelFunc: cancelFunc,
		doneCh:     make(chan struct{}),
	}
	chunkSize := min(readChunkSize, int(bufferSize))
	chunkSize -= chunkSize % frameSize

	observability.Go(ctx, func() {
		err := s.readerLoop(ctx, input, chunkSize)
		s.latchError(fmt.Errorf("got an error from the reader loop: %w", err), err)
		if err != nil {
			cancelFunc()
		}
	})
	observability.Go(ctx, func() {
		defer close(s.doneCh)
		defer close(s.pointsCh)
		defer cancelFunc()
		err := s.analysisLoop(ctx, chunkSize)
		s.latchError(fmt.Errorf("got an error from the analysis loop: %w", err), err)
	})
	return s, nil
}

func (s *DetectorStream) latchError(wrapped error, cause error) {
	if cause == nil || errors.Is(cause, context.Canceled) {
		return
	}
	s.inputBufferLocker.Lock()
	defer s.inputBufferLocker.Unlock()
	if s.resultError == nil {
		s.resultError = wrapped
	}
}

func (s *DetectorStream) readerLoop(
	ctx context.Context,
	input io.Reader,
	chunkSize int,
) (_err error) {
	logger.Tracef(ctx, "readerLoop")
	defer func() { logger.Tracef(ctx, "/readerLoop %v", _err) }()

	readBuf := make([]byte, chunkSize)
	var pending int
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := input.Read(readBuf[pending:])
		logger.Tracef(ctx, "readerLoop: Read(): %v %v", n, err)
		if n < 0 {
			return fmt.Errorf("received invalid value of received bytes: %d", n)
		}
		pending += n
		aligned := pending - pending%s.frameSize
		if aligned > 0 {
			if err := s.writeInput(ctx, readBuf[:aligned]); err != nil {
				return err
			}
			pending = copy(readBuf, readBuf[aligned:pending])
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				if pending != 0 {
					logger.Warnf(ctx, "discarding a trailing incomplete frame of %d bytes", pending)
				}
				s.endInput(ctx)
				return nil
			}
			return fmt.Errorf("unable to read the input: %w", err)
		}
	}
}

func (s *DetectorStream) writeInput(
	ctx context.Context,
	data []byte,
) error {
	s.inputBufferLocker.Lock()
	defer s.inputBufferLocker.Unlock()
	for len(data) > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		w, err := s.inputBuffer.Write(data)
		if w < 0 || w > len(data) {
			return fmt.Errorf("the circular buffer reported an invalid amount of written bytes: %d (of %d)", w, len(data))
		}
		// Write stores the prefix that fits even when it reports ErrNoSpace.
		data = data[w:]
		if w > 0 {
			s.notifyReadProgressed(ctx)
		}
		switch {
		case err == nil:
			if len(data) > 0 && w == 0 {
				return fmt.Errorf("the circular buffer accepted nothing without an error")
			}
		case errors.Is(err, circular.ErrNoSpace):
			if len(data) > 0 {
				s.waitForAnalysisProgressed(ctx)
			}
		default:
			return fmt.Errorf("unable to write to the circular buffer: %w", err)
		}
	}
	return nil
}

func (s *DetectorStream) endInput(ctx context.Context) {
	s.inputBufferLocker.Lock()
	defer s.inputBufferLocker.Unlock()
	s.inputEnded = true
	s.notifyReadProgressed(ctx)
}

// notifyReadProgressed must be called with inputBufferLocker held.
func (s *DetectorStream) notifyReadProgressed(ctx context.Context) {
	logger.Tracef(ctx, "closing readProgressedCh")
	oldCh := s.readProgressedCh
	s.readProgressedCh = make(chan struct{})
	close(oldCh)
}

func (s *DetectorStream) waitForAnalysisProgressed(ctx context.Context) {
	logger.Tracef(ctx, "waitForAnalysisProgressed")
	defer logger.Tracef(ctx, "/waitForAnalysisProgressed")

	ch := s.analysisProgressedCh
	s.inputBufferLocker.Unlock()
	defer s.inputBufferLocker.Lock()
	select {
	case <-ctx.Done():
	case <-ch:
		logger.Tracef(ctx, "waitForAnalysisProgressed: received an event")
	}
}

func (s *DetectorStream) analysisLoop(
	ctx context.Context,
	chunkSize int,
) (_err error) {
	logger.Tracef(ctx, "analysisLoop")
	defer func() { logger.Tracef(ctx, "/analysisLoop: %v", _err) }()

	inputBuf := make([]byte, chunkSize)
	var pending int
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, waitCh, ended, err := s.readInput(ctx, inputBuf[pending:])
		if err != nil {
			return err
		}
		if n == 0 {
			if ended {
				if pending != 0 {
					logger.Warnf(ctx, "discarding a trailing incomplete frame of %d bytes", pending)
				}
				return nil
			}
			select {
			case <-ctx.Done():
			case <-waitCh:
				logger.Tracef(ctx, "analysisLoop: received a read event")
			}
			continue
		}

		// the ring buffer may hand out a frame split across two reads
		pending += n
		aligned := pending - pending%s.frameSize
		if aligned == 0 {
			continue
		}
		samples, err := pcm.ToMono(s.format, s.channels, inputBuf[:aligned])
		if err != nil {
			return fmt.Errorf("unable to decode PCM: %w", err)
		}
		pending = copy(inputBuf, inputBuf[aligned:pending])
		for _, point := range s.Pipeline.Push(ctx, samples) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case s.pointsCh <- point:
			}
		}
	}
}

func (s *DetectorStream) readInput(
	ctx context.Context,
	buf []byte,
) (int, chan struct{}, bool, error) {
	s.inputBufferLocker.Lock()
	defer s.inputBufferLocker.Unlock()
	n, err := s.inputBuffer.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, nil, false, fmt.Errorf("unable to read from the circular buffer: %w", err)
	}
	if n < 0 {
		return 0, nil, false, fmt.Errorf("received a negative count: %d", n)
	}
	if n > 0 {
		logger.Tracef(ctx, "closing analysisProgressedCh")
		var oldCh chan struct{}
		oldCh, s.analysisProgressedCh = s.analysisProgressedCh, make(chan struct{})
		close(oldCh)
	}
	return n, s.readProgressedCh, s.inputEnded, nil
}

// Points returns the channel of analyzed windows; it is closed when the
// input ends, on a failure or on Close.
func (s *DetectorStream) Points() <-chan pipeline.Point {
	return s.pointsCh
}

// Err returns the first failure of the background loops, if any.
func (s *DetectorStream) Err() error {
	s.inputBufferLocker.Lock()
	defer s.inputBufferLocker.Unlock()
	return s.resultError
}

// Close stops the analysis; the samples not yet analyzed are dropped.
// It does not close the input reader.
func (s *DetectorStream) Close() error {
	s.cancelFunc()
	<-s.doneCh
	return nil
}
