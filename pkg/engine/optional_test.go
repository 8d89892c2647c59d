package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionalJSON(t *testing.T) {
	b, err := json.Marshal(State{EMAFast: Some(0.25)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"noise_floor_db":null,"ema_fast":0.25,"ema_slow":null}`, string(b))

	var state State
	require.NoError(t, json.Unmarshal(b, &state))
	assert.Equal(t, State{EMAFast: Some(0.25)}, state)

	var o Optional
	require.Error(t, json.Unmarshal([]byte(`"x"`), &o))
}

func TestOptionalString(t *testing.T) {
	assert.Equal(t, "<none>", Optional{}.String())
	assert.Equal(t, "0.500", Some(0.5).String())
}
