package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPCMFormat(t *testing.T) {
	for f := PCMFormatUndefined + 1; f < EndOfPCMFormat; f++ {
		t.Run(f.String(), func(t *testing.T) {
			require.NotZero(t, f.Size())
			parsed, err := PCMFormatFromString(f.String())
			require.NoError(t, err)
			require.Equal(t, f, parsed)
		})
	}

	_, err := PCMFormatFromString("s12le")
	require.Error(t, err)
}

func TestEncodingPCMBytesForDuration(t *testing.T) {
	enc := EncodingPCM{
		PCMFormat:  PCMFormatFloat32LE,
		SampleRate: 16000,
	}
	require.Equal(t, uint(4), enc.BytesPerSample())
	require.Equal(t, uint64(16000*4/2), enc.BytesForDuration(500*time.Millisecond))
}
