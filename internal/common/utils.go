package common

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

func CalculateAverageFloat64(numbers []float64) float64 {
	if len(numbers) == 0 {
		return 0
	}

	var sum float64
	for _, number := range numbers {
		sum += number
	}

	return sum / float64(len(numbers))
}

func GetResultsFileName(folder string, prefix string) string {
	os.MkdirAll(folder, 0777)
	return filepath.Join(folder, fmt.Sprintf("%s_%s.csv", prefix, time.Now().Format("2006-01-02_15-04")))
}

// WriteResultsToFile appends one CSV record per call.
func WriteResultsToFile(fileName string, record ...string) error {
	file, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open results file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(record); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	writer.Flush()
	return writer.Error()
}

func FormatFloat(value float64) string {
	return fmt.Sprintf("%.4f", value)
}
