package shard

import (
	"encoding/json"
	"fmt"
	"os"
)

type leafShard struct {
	X []json.RawMessage `json:"x"`
	Y []int             `json:"y"`
}

// LoadColumnShard reads a LEAF-style user shard: {"x": [...], "y": [...]}.
// Numeric rows become X; sent140 rows (string arrays, tweet text last) or
// plain strings become Text.
func LoadColumnShard(path string) (*ColumnDataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	raw := leafShard{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse shard %s: %w", path, err)
	}

	ds := &ColumnDataset{Y: raw.Y}
	for i, x := range raw.X {
		var features []float64
		if err := json.Unmarshal(x, &features); err == nil {
			ds.X = append(ds.X, features)
			continue
		}

		var fields []string
		if err := json.Unmarshal(x, &fields); err == nil && len(fields) > 0 {
			ds.Text = append(ds.Text, fields[len(fields)-1])
			continue
		}

		var text string
		if err := json.Unmarshal(x, &text); err == nil {
			ds.Text = append(ds.Text, text)
			continue
		}

		return nil, fmt.Errorf("shard %s: unsupported sample %d", path, i)
	}

	if err := ds.validate(); err != nil {
		return nil, fmt.Errorf("shard %s: %w", path, err)
	}
	return ds, nil
}

// LoadDenseDataset reads {"features": [[...]], "labels": [...]}.
func LoadDenseDataset(path string) (*DenseDataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	ds := &DenseDataset{}
	if err := json.Unmarshal(data, ds); err != nil {
		return nil, fmt.Errorf("failed to parse dataset %s: %w", path, err)
	}
	if len(ds.Features) != len(ds.Labels) {
		return nil, fmt.Errorf("dataset %s has %d samples and %d labels", path, len(ds.Features), len(ds.Labels))
	}
	return ds, nil
}
