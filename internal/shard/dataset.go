// Package shard adapts a client's raw data slice into shuffled fixed-size batches.
package shard

import "fmt"

// IndexedDataset is index-addressable sample storage (image/tabular data).
type IndexedDataset interface {
	Len() int
	Sample(i int) ([]float64, int)
}

// ColumnDataset holds parallel input/label columns. Character shards fill X,
// sequence-text shards fill Text.
type ColumnDataset struct {
	X    [][]float64
	Text []string
	Y    []int
}

func (ds *ColumnDataset) Len() int {
	return len(ds.Y)
}

func (ds *ColumnDataset) validate() error {
	if ds.X != nil && len(ds.X) != len(ds.Y) {
		return fmt.Errorf("column shard has %d inputs and %d labels", len(ds.X), len(ds.Y))
	}
	if ds.Text != nil && len(ds.Text) != len(ds.Y) {
		return fmt.Errorf("column shard has %d texts and %d labels", len(ds.Text), len(ds.Y))
	}
	if ds.X == nil && ds.Text == nil && len(ds.Y) > 0 {
		return fmt.Errorf("column shard has labels but no inputs")
	}
	return nil
}

// DenseDataset is an in-memory IndexedDataset.
type DenseDataset struct {
	Features [][]float64 `json:"features"`
	Labels   []int       `json:"labels"`
}

func (ds *DenseDataset) Len() int {
	return len(ds.Labels)
}

func (ds *DenseDataset) Sample(i int) ([]float64, int) {
	return ds.Features[i], ds.Labels[i]
}

// Shard is one client's raw data. Column shards are consumed in full; indexed
// shards only through Idxs.
type Shard struct {
	Indexed IndexedDataset
	Idxs    []int
	Columns *ColumnDataset
}

func (s Shard) isColumnar() bool {
	return s.Columns != nil
}
