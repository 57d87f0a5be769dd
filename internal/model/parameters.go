package model

import (
	"encoding/json"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ParameterMap is an ordered mapping from parameter name to a fixed-shape tensor.
// Vectors (biases) are stored as 1xN matrices.
type ParameterMap struct {
	keys   []string
	values map[string]*mat.Dense
}

func NewParameterMap() *ParameterMap {
	return &ParameterMap{
		keys:   []string{},
		values: make(map[string]*mat.Dense),
	}
}

// Set stores the tensor under name, appending the name on first insertion.
// The tensor is stored by reference.
func (pm *ParameterMap) Set(name string, value *mat.Dense) {
	if _, found := pm.values[name]; !found {
		pm.keys = append(pm.keys, name)
	}
	pm.values[name] = value
}

func (pm *ParameterMap) Get(name string) *mat.Dense {
	return pm.values[name]
}

func (pm *ParameterMap) Has(name string) bool {
	_, found := pm.values[name]
	return found
}

// Keys returns the parameter names in insertion order.
func (pm *ParameterMap) Keys() []string {
	keys := make([]string, len(pm.keys))
	copy(keys, pm.keys)
	return keys
}

func (pm *ParameterMap) Len() int {
	return len(pm.keys)
}

// Clone returns a deep copy sharing no storage with pm.
func (pm *ParameterMap) Clone() *ParameterMap {
	clone := NewParameterMap()
	for _, key := range pm.keys {
		clone.Set(key, mat.DenseCopyOf(pm.values[key]))
	}
	return clone
}

// CheckCompatible verifies that other has exactly the same keys and per-key shapes.
func (pm *ParameterMap) CheckCompatible(other *ParameterMap) error {
	if other == nil {
		return fmt.Errorf("%w: missing parameter map", ErrParameterMismatch)
	}
	if pm.Len() != other.Len() {
		return fmt.Errorf("%w: %d keys vs %d keys", ErrParameterMismatch, pm.Len(), other.Len())
	}
	for _, key := range pm.keys {
		otherValue, found := other.values[key]
		if !found {
			return fmt.Errorf("%w: key %q not found", ErrParameterMismatch, key)
		}
		r, c := pm.values[key].Dims()
		or, oc := otherValue.Dims()
		if r != or || c != oc {
			return fmt.Errorf("%w: key %q has shape [%d %d], expected [%d %d]", ErrParameterMismatch, key, or, oc, r, c)
		}
	}
	return nil
}

// NumElements returns the total number of scalar values held by the map.
func (pm *ParameterMap) NumElements() int {
	total := 0
	for _, value := range pm.values {
		r, c := value.Dims()
		total += r * c
	}
	return total
}

type jsonTensor struct {
	Name string    `json:"name"`
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

// MarshalJSON encodes the map as an ordered list of row-major tensors.
func (pm *ParameterMap) MarshalJSON() ([]byte, error) {
	tensors := make([]jsonTensor, 0, len(pm.keys))
	for _, key := range pm.keys {
		value := pm.values[key]
		r, c := value.Dims()
		data := make([]float64, 0, r*c)
		for i := 0; i < r; i++ {
			data = append(data, value.RawRowView(i)...)
		}
		tensors = append(tensors, jsonTensor{Name: key, Rows: r, Cols: c, Data: data})
	}
	return json.Marshal(tensors)
}

func (pm *ParameterMap) UnmarshalJSON(b []byte) error {
	var tensors []jsonTensor
	if err := json.Unmarshal(b, &tensors); err != nil {
		return err
	}
	pm.keys = []string{}
	pm.values = make(map[string]*mat.Dense)
	for _, t := range tensors {
		if t.Rows <= 0 || t.Cols <= 0 || len(t.Data) != t.Rows*t.Cols {
			return fmt.Errorf("invalid tensor %q: shape [%d %d] with %d values", t.Name, t.Rows, t.Cols, len(t.Data))
		}
		if pm.Has(t.Name) {
			return fmt.Errorf("duplicate tensor %q", t.Name)
		}
		pm.Set(t.Name, mat.NewDense(t.Rows, t.Cols, t.Data))
	}
	return nil
}

// TrainabilityMask tells, for every parameter name, whether it receives updates.
type TrainabilityMask map[string]bool

// NewTrainabilityMask builds a mask over names, marking a name trainable when trainable(name) is true.
func NewTrainabilityMask(names []string, trainable func(name string) bool) TrainabilityMask {
	mask := make(TrainabilityMask, len(names))
	for _, name := range names {
		mask[name] = trainable(name)
	}
	return mask
}

func (mask TrainabilityMask) Trainable(name string) bool {
	return mask[name]
}

// Frozen returns the names masked out, in the order given by names.
func (mask TrainabilityMask) Frozen(names []string) []string {
	frozen := []string{}
	for _, name := range names {
		if !mask[name] {
			frozen = append(frozen, name)
		}
	}
	return frozen
}
