package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThresholdQueryFraming(t *testing.T) {
	// GOAL: Verify a get query carries only the op and species/stage key.
	data, err := EncodeThresholdQuery(SpeciesShiitake, StagePinning)
	require.NoError(t, err)

	var obj map[string]any
	require.NoError(t, json.Unmarshal(data, &obj))
	assert.Equal(t, "get", obj["op"])
	assert.Equal(t, float64(SpeciesShiitake), obj["species"])
	assert.Equal(t, float64(StagePinning), obj["stage"])
	assert.NotContains(t, obj, "tempMin", "optional keys MUST be omitted from queries")
}

func TestThresholdResponseDecoding(t *testing.T) {
	// GOAL: Verify responses decode tolerantly: full objects, sparse objects
	// with missing optional keys, and error payloads.
	t.Run("full object", func(t *testing.T) {
		resp := []byte(`{"species":1,"stage":3,"tempMin":17.5,"tempMax":21.0,"rhMin":88.0,` +
			`"co2Max":900,"lightMode":2,"lightOnMinutes":720,"lightOffMinutes":720,"expectedDays":12}`)
		out, err := DecodeThresholdResponse(resp)
		require.NoError(t, err)
		assert.Equal(t, SpeciesOyster, out.Species)
		assert.Equal(t, StageFruiting, out.Stage)
		require.NotNil(t, out.TempMinC)
		assert.Equal(t, 17.5, *out.TempMinC)
		require.NotNil(t, out.Light)
		assert.Equal(t, LightCycle, *out.Light)
		require.NotNil(t, out.ExpectedDays)
		assert.Equal(t, uint16(12), *out.ExpectedDays)
	})

	t.Run("sparse object", func(t *testing.T) {
		out, err := DecodeThresholdResponse([]byte(`{"species":2,"stage":1,"rhMin":60.0}`))
		require.NoError(t, err)
		assert.Equal(t, SpeciesShiitake, out.Species)
		require.NotNil(t, out.RHMin)
		assert.Equal(t, 60.0, *out.RHMin)
		assert.Nil(t, out.TempMinC, "missing optional keys MUST stay nil")
		assert.Nil(t, out.CO2Max)
	})

	t.Run("error payload", func(t *testing.T) {
		out, err := DecodeThresholdResponse([]byte(`{"error":"unknown species"}`))
		assert.Nil(t, out)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRemoteRejected)
		assert.Contains(t, err.Error(), "unknown species")
	})

	t.Run("malformed payload", func(t *testing.T) {
		out, err := DecodeThresholdResponse([]byte(`{not json`))
		assert.Nil(t, out)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrRemoteRejected)
	})
}

func TestThresholdUpdateRoundTrip(t *testing.T) {
	// GOAL: Verify an update frame decodes back into the same profile.
	tempMin := 18.5
	days := uint16(21)
	in := StageThresholds{
		Species:      SpeciesCustom,
		Stage:        StageIncubation,
		TempMinC:     &tempMin,
		ExpectedDays: &days,
	}

	data, err := EncodeThresholdUpdate(in)
	require.NoError(t, err)

	var obj map[string]any
	require.NoError(t, json.Unmarshal(data, &obj))
	assert.Equal(t, "set", obj["op"])

	out, err := DecodeThresholdResponse(data)
	require.NoError(t, err)
	assert.Equal(t, in, *out)
}
