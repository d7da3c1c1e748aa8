package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// csvBatch is a column-oriented factor.Batch loaded from a CSV file whose
// first row is a header of column names and whose remaining rows are all
// numeric. It is the one concrete Batch implementation in this repo; the
// engine package itself never constructs one.
type csvBatch struct {
	columns map[string]int
	data    [][]float64
}

// loadCSVBatch reads a CSV file into a csvBatch. Every column after the
// header must parse as float64; "NA", "NaN", and "" are treated as NaN so
// gaps in a data source don't block loading the rest of the batch.
func loadCSVBatch(path string) (*csvBatch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open batch file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read batch header: %w", err)
	}

	columns := make(map[string]int, len(header))
	data := make([][]float64, len(header))
	for i, name := range header {
		columns[name] = i
		data[i] = make([]float64, 0)
	}

	for rowNum := 2; ; rowNum++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read batch row %d: %w", rowNum, err)
		}

		for i, raw := range row {
			v, err := parseCell(raw)
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", rowNum, header[i], err)
			}
			data[i] = append(data[i], v)
		}
	}

	return &csvBatch{columns: columns, data: data}, nil
}

func parseCell(raw string) (float64, error) {
	switch raw {
	case "", "NA", "NaN", "nan":
		return nan(), nil
	}
	return strconv.ParseFloat(raw, 64)
}

func nan() float64 {
	var zero float64
	return zero / zero
}

func (b *csvBatch) Len() int {
	if len(b.data) == 0 {
		return 0
	}
	return len(b.data[0])
}

func (b *csvBatch) IndexOf(name string) (int, bool) {
	idx, ok := b.columns[name]
	return idx, ok
}

func (b *csvBatch) Values(i int) ([]float64, bool) {
	if i < 0 || i >= len(b.data) {
		return nil, false
	}
	return b.data[i], true
}
