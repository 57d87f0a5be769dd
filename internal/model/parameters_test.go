package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func twoLayerParams() *ParameterMap {
	pm := NewParameterMap()
	pm.Set("fc1.weight", mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6}))
	pm.Set("fc1.bias", mat.NewDense(1, 2, []float64{0.5, -0.5}))
	return pm
}

func TestParameterMap(t *testing.T) {
	t.Run("keys keep insertion order", func(t *testing.T) {
		pm := twoLayerParams()
		pm.Set("fc1.weight", mat.NewDense(2, 3, nil))
		assert.Equal(t, []string{"fc1.weight", "fc1.bias"}, pm.Keys())
		assert.Equal(t, 8, pm.NumElements())
	})

	t.Run("clone shares no storage", func(t *testing.T) {
		pm := twoLayerParams()
		clone := pm.Clone()
		clone.Get("fc1.bias").Set(0, 0, 42)
		assert.Equal(t, 0.5, pm.Get("fc1.bias").At(0, 0))
	})

	t.Run("compatible maps", func(t *testing.T) {
		assert.NoError(t, twoLayerParams().CheckCompatible(twoLayerParams()))
	})

	t.Run("missing key", func(t *testing.T) {
		other := NewParameterMap()
		other.Set("fc1.weight", mat.NewDense(2, 3, nil))
		other.Set("fc2.bias", mat.NewDense(1, 2, nil))
		assert.ErrorIs(t, twoLayerParams().CheckCompatible(other), ErrParameterMismatch)
	})

	t.Run("shape mismatch", func(t *testing.T) {
		other := twoLayerParams()
		other.Set("fc1.bias", mat.NewDense(1, 3, nil))
		assert.ErrorIs(t, twoLayerParams().CheckCompatible(other), ErrParameterMismatch)
	})

	t.Run("json keeps order and values", func(t *testing.T) {
		data, err := json.Marshal(twoLayerParams())
		require.NoError(t, err)

		decoded := NewParameterMap()
		require.NoError(t, json.Unmarshal(data, decoded))
		assert.Equal(t, []string{"fc1.weight", "fc1.bias"}, decoded.Keys())
		assert.True(t, mat.Equal(twoLayerParams().Get("fc1.weight"), decoded.Get("fc1.weight")))
	})

	t.Run("json rejects bad shapes", func(t *testing.T) {
		decoded := NewParameterMap()
		err := json.Unmarshal([]byte(`[{"name":"w","rows":2,"cols":2,"data":[1,2,3]}]`), decoded)
		assert.Error(t, err)
	})
}

func TestTrainabilityMask(t *testing.T) {
	names := []string{"a", "b", "c"}
	mask := NewTrainabilityMask(names, func(name string) bool { return name != "b" })

	assert.Len(t, mask, 3)
	assert.True(t, mask.Trainable("a"))
	assert.False(t, mask.Trainable("b"))
	assert.Equal(t, []string{"b"}, mask.Frozen(names))
}

func TestEnums(t *testing.T) {
	t.Run("algorithm from name and number", func(t *testing.T) {
		var alg Algorithm
		require.NoError(t, json.Unmarshal([]byte(`"FedRep"`), &alg))
		assert.Equal(t, FedRep, alg)
		require.NoError(t, json.Unmarshal([]byte(`4`), &alg))
		assert.Equal(t, DAPFL, alg)
		assert.ErrorIs(t, json.Unmarshal([]byte(`"scaffold"`), &alg), ErrInvalidConfig)
	})

	t.Run("family from dataset name", func(t *testing.T) {
		var family DatasetFamily
		require.NoError(t, json.Unmarshal([]byte(`"femnist"`), &family))
		assert.Equal(t, Character, family)
		require.NoError(t, json.Unmarshal([]byte(`"large-image"`), &family))
		assert.Equal(t, LargeImage, family)
		assert.ErrorIs(t, json.Unmarshal([]byte(`9`), &family), ErrInvalidConfig)
	})

	t.Run("marshal as names", func(t *testing.T) {
		data, err := json.Marshal(RoundConfig{Algorithm: DAPFL, Family: Sequence})
		require.NoError(t, err)
		assert.Contains(t, string(data), `"algorithm":"dapfl"`)
		assert.Contains(t, string(data), `"family":"sequence"`)
	})
}
