package analysis

import (
	"oasis/internal/dataset"
	"oasis/internal/model"
)

// ColumnStats summarizes the non-skipped mixing ratios of one contribution
// column.
type ColumnStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	Count int     `json:"count"`
}

// Summary aggregates the run: sample count, per-column statistics, and skip
// counts keyed by contribution column then reason.
type Summary struct {
	SampleCount int                       `json:"sample_count"`
	Columns     map[string]ColumnStats    `json:"columns"`
	Skipped     map[string]map[string]int `json:"skipped,omitempty"`
}

// JobResult is the complete analysis output for one job. The field layout is
// the API contract for the results endpoint and is stored verbatim with the
// job record.
type JobResult struct {
	JobID       string           `json:"job_id"`
	UserID      string           `json:"user_id"`
	DatasetName string           `json:"dataset_name"`
	SampleCount int              `json:"sample_count"`
	CSVFileName string           `json:"csv_file_name"`
	CSVColumns  []string         `json:"csv_columns"`
	Rows        []map[string]any `json:"rows"`
	Summary     Summary          `json:"summary"`
	ModelType   string           `json:"model_type"`
}

// Meta carries the job identity fields stamped onto the result.
type Meta struct {
	JobID       string
	UserID      string
	DatasetName string
	CSVFileName string
}

// Assemble merges the original dataset with the computed contributions.
// csv_columns is the original header order followed by the generated
// contribution columns; every row keeps its raw cells and gains one value per
// contribution column it was not skipped for.
func Assemble(meta Meta, ds *dataset.Dataset, contrib *model.Contributions) *JobResult {
	columns := make([]string, 0, len(ds.Columns)+len(contrib.Columns))
	columns = append(columns, ds.Columns...)
	columns = append(columns, contrib.Columns...)

	result := &JobResult{
		JobID:       meta.JobID,
		UserID:      meta.UserID,
		DatasetName: meta.DatasetName,
		SampleCount: ds.SampleCount(),
		CSVFileName: meta.CSVFileName,
		CSVColumns:  columns,
		ModelType:   string(contrib.Type),
	}

	for i, raw := range ds.Rows {
		row := make(map[string]any, len(columns))
		for _, column := range ds.Columns {
			row[column] = raw[column]
		}
		for column, value := range contrib.Rows[i].Values {
			row[column] = value
		}
		result.Rows = append(result.Rows, row)
	}

	result.Summary = summarize(ds.SampleCount(), contrib)
	return result
}

func summarize(sampleCount int, contrib *model.Contributions) Summary {
	summary := Summary{
		SampleCount: sampleCount,
		Columns:     make(map[string]ColumnStats, len(contrib.Columns)),
	}

	for _, column := range contrib.Columns {
		var stats ColumnStats
		var sum float64
		for _, row := range contrib.Rows {
			value, ok := row.Values[column]
			if !ok {
				continue
			}
			if stats.Count == 0 || value < stats.Min {
				stats.Min = value
			}
			if stats.Count == 0 || value > stats.Max {
				stats.Max = value
			}
			sum += value
			stats.Count++
		}
		if stats.Count == 0 {
			continue
		}
		stats.Mean = sum / float64(stats.Count)
		summary.Columns[column] = stats
	}

	for _, row := range contrib.Rows {
		for column, reason := range row.Skipped {
			if summary.Skipped == nil {
				summary.Skipped = make(map[string]map[string]int)
			}
			if summary.Skipped[column] == nil {
				summary.Skipped[column] = make(map[string]int)
			}
			summary.Skipped[column][reason]++
		}
	}
	return summary
}
