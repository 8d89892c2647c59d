package audio

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/voiceguard/pkg/audio/registry"
)

type Recorder struct {
	RecorderPCM
}

func NewRecorder(recorderPCM RecorderPCM) *Recorder {
	return &Recorder{
		RecorderPCM: recorderPCM,
	}
}

var (
	lastSuccessfulRecorderFactory       registry.RecorderPCMFactory
	lastSuccessfulRecorderFactoryLocker sync.Mutex
)

func getLastSuccessfulRecorderFactory() registry.RecorderPCMFactory {
	lastSuccessfulRecorderFactoryLocker.Lock()
	defer lastSuccessfulRecorderFactoryLocker.Unlock()
	return lastSuccessfulRecorderFactory
}

func setLastSuccessfulRecorderFactory(factory registry.RecorderPCMFactory) {
	lastSuccessfulRecorderFactoryLocker.Lock()
	defer lastSuccessfulRecorderFactoryLocker.Unlock()
	lastSuccessfulRecorderFactory = factory
}

// NewRecorderAuto returns a recorder backed by the highest-priority
// registered backend that is able to reach its audio server.
// If none is available, a dummy recorder is returned, so the caller
// always gets a usable value.
func NewRecorderAuto(
	ctx context.Context,
) *Recorder {
	if factory := getLastSuccessfulRecorderFactory(); factory != nil {
		recorder, err := factory.NewRecorderPCM()
		if err == nil {
			if err := recorder.Ping(ctx); err == nil {
				return NewRecorder(recorder)
			}
			recorder.Close()
		}
	}

	var mErr *multierror.Error
	for _, factory := range registry.RecorderFactories() {
		recorder, err := factory.NewRecorderPCM()
		logger.Debugf(ctx, "initializing recorder %T result is %v", factory, err)
		if err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("unable to initialize %T: %w", factory, err))
			continue
		}

		err = recorder.Ping(ctx)
		logger.Debugf(ctx, "pinging PCM recorder %T result is %v", recorder, err)
		if err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("unable to ping %T: %w", recorder, err))
			recorder.Close()
			continue
		}

		setLastSuccessfulRecorderFactory(factory)
		return NewRecorder(recorder)
	}

	logger.Infof(ctx, "was unable to initialize any PCM recorder: %v", mErr.ErrorOrNil())
	return &Recorder{
		RecorderPCM: RecorderPCMDummy{},
	}
}

func (a *Recorder) IsDummy() bool {
	_, ok := a.RecorderPCM.(RecorderPCMDummy)
	return ok
}

func (a *Recorder) RecordPCM(
	ctx context.Context,
	sampleRate SampleRate,
	channels Channel,
	pcmFormat PCMFormat,
	pcmWriter io.Writer,
) (RecordStream, error) {
	return a.RecorderPCM.RecordPCM(
		ctx,
		sampleRate,
		channels,
		pcmFormat,
		pcmWriter,
	)
}
