package common

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateAverageFloat64(t *testing.T) {
	assert.Equal(t, 0.0, CalculateAverageFloat64(nil))
	assert.InDelta(t, 2.0, CalculateAverageFloat64([]float64{1, 2, 3}), 1e-12)
}

func TestWriteResultsToFile(t *testing.T) {
	fileName := GetResultsFileName(t.TempDir(), "results")
	assert.Equal(t, ".csv", filepath.Ext(fileName))

	require.NoError(t, WriteResultsToFile(fileName, "1", FormatFloat(0.5)))
	require.NoError(t, WriteResultsToFile(fileName, "2", FormatFloat(0.25)))

	file, err := os.Open(fileName)
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "0.5000"}, {"2", "0.2500"}}, records)
}
