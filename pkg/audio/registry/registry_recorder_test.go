package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/voiceguard/pkg/audio/types"
)

type lowFactory struct{}

func (lowFactory) NewRecorderPCM() (types.RecorderPCM, error) { return nil, nil }

type highFactory struct{}

func (highFactory) NewRecorderPCM() (types.RecorderPCM, error) { return nil, nil }

func TestRecorderFactoriesPriority(t *testing.T) {
	RegisterRecorderFactory(-10, lowFactory{})
	RegisterRecorderFactory(1000, &highFactory{})

	factories := RecorderFactories()
	require.GreaterOrEqual(t, len(factories), 2)
	require.IsType(t, &highFactory{}, factories[0])
	require.IsType(t, lowFactory{}, factories[len(factories)-1])

	require.Panics(t, func() {
		RegisterRecorderFactory(1, highFactory{})
	})
}
