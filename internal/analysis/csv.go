package analysis

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
)

// RenderCSV serializes a result for export. Columns follow csv_columns
// exactly; contribution cells skipped during the run render empty.
func RenderCSV(result *JobResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(result.CSVColumns); err != nil {
		return nil, fmt.Errorf("failed to render export: %w", err)
	}
	record := make([]string, len(result.CSVColumns))
	for _, row := range result.Rows {
		for i, column := range result.CSVColumns {
			record[i] = cellString(row[column])
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to render export: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to render export: %w", err)
	}
	return buf.Bytes(), nil
}

func cellString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
