package serialization_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/dayche/pkg/batch/support/util/serialization"
)

func TestMarshalParameters_MasksSecrets(t *testing.T) {
	data, err := serialization.MarshalParameters(map[string]string{"symbol": "BTCUSD", "apikey": "abc", "Password": "p"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"symbol":"BTCUSD","apikey":"********","Password":"********"}`, data)

	back, err := serialization.UnmarshalParameters(data)
	require.NoError(t, err)
	assert.Equal(t, "BTCUSD", back["symbol"])

	empty, err := serialization.MarshalParameters(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", empty)
}

func TestFailures(t *testing.T) {
	data, err := serialization.MarshalFailures([]string{"a", "b"})
	require.NoError(t, err)

	back, err := serialization.UnmarshalFailures(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, back)

	back, err = serialization.UnmarshalFailures("")
	require.NoError(t, err)
	assert.Empty(t, back)

	_, err = serialization.UnmarshalFailures("{not json")
	assert.Error(t, err)
}

func TestExecutionContext(t *testing.T) {
	data, err := serialization.MarshalExecutionContext(map[string]interface{}{"rows": 3})
	require.NoError(t, err)

	back, err := serialization.UnmarshalExecutionContext(data)
	require.NoError(t, err)
	assert.EqualValues(t, 3, back["rows"])

	data, err = serialization.MarshalExecutionContext(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", data)
}
