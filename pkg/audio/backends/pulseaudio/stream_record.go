package pulseaudio

import (
	"fmt"

	"github.com/jfreymuth/pulse"
)

// RecordStream owns only the Pulse stream; the client belongs to RecorderPCM.
type RecordStream struct {
	*pulse.RecordStream
}

func newRecordStream(
	pulseStream *pulse.RecordStream,
) *RecordStream {
	return &RecordStream{
		RecordStream: pulseStream,
	}
}

func (stream *RecordStream) Close() (err error) {
	defer func() {
		r := recover()
		if r != nil {
			err = fmt.Errorf("got a panic: %v", r)
		}
	}()
	stream.RecordStream.Stop()
	stream.RecordStream.Close()
	if err := stream.RecordStream.Error(); err != nil {
		return fmt.Errorf("the recording ended with an error: %w", err)
	}
	return nil
}
