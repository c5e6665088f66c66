package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Column describes one table column. Key addresses row values, Label is what
// the rendered document shows. Width only matters to the PDF renderer and is
// a relative weight, not millimetres.
type Column struct {
	Key   string
	Label string
	Width float64
}

// Table is the renderer-independent manifest content.
type Table struct {
	Columns []Column
	Rows    []map[string]string
}

// CSVExporter renders a Table as RFC 4180 CSV.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV bytes with a header row followed by one line per row.
func (e *CSVExporter) Render(table Table) ([]byte, error) {
	if len(table.Columns) == 0 {
		return nil, fmt.Errorf("csv requires at least one column")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)

	labels := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		labels[i] = col.Label
	}
	if err := writer.Write(labels); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	record := make([]string, len(table.Columns))
	for _, row := range table.Rows {
		for i, col := range table.Columns {
			record[i] = row[col.Key]
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
