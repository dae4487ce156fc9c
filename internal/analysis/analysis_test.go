package analysis_test

import (
	"math"
	"strings"
	"testing"

	"oasis/internal/analysis"
	"oasis/internal/dataset"
	"oasis/internal/model"
)

func buildResult(t *testing.T, csv string) *analysis.JobResult {
	t.Helper()
	ds, err := dataset.Parse([]byte(csv))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	em := model.NewEndmembers(map[string]model.Endmember{
		"nitrate": {Low: 0, High: 50},
		"cl":      {Low: 0, High: 250},
	})
	contrib, err := model.Run(ds, model.Classify(ds), em)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	meta := analysis.Meta{
		JobID:       "job-1",
		UserID:      "user-1",
		DatasetName: "Spring Samples",
		CSVFileName: "spring_samples.csv",
	}
	return analysis.Assemble(meta, ds, contrib)
}

func TestAssembleColumnOrder(t *testing.T) {
	result := buildResult(t, "Sample_id,timestamp,Long,Lat,Nitrate(NO3),Cl\nS1,2024-03-01,8.55,47.37,25,125\n")

	want := []string{"Sample_id", "timestamp", "Long", "Lat", "Nitrate(NO3)", "Cl", "nitrate_contribution", "conservative_contribution_1"}
	if len(result.CSVColumns) != len(want) {
		t.Fatalf("expected columns %v, got %v", want, result.CSVColumns)
	}
	for i, column := range want {
		if result.CSVColumns[i] != column {
			t.Fatalf("column %d: expected %q, got %q", i, column, result.CSVColumns[i])
		}
	}

	if result.ModelType != "combined" {
		t.Fatalf("expected combined model type, got %q", result.ModelType)
	}
	if result.SampleCount != 1 || result.Summary.SampleCount != 1 {
		t.Fatalf("sample count mismatch: %d / %d", result.SampleCount, result.Summary.SampleCount)
	}

	row := result.Rows[0]
	if row["Sample_id"] != "S1" || row["Cl"] != "125" {
		t.Fatalf("raw cells not preserved: %v", row)
	}
	if got := row["nitrate_contribution"].(float64); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("expected nitrate contribution 0.5, got %v", got)
	}
}

func TestSummaryStatsAndSkips(t *testing.T) {
	result := buildResult(t, "Sample_id,timestamp,Long,Lat,Cl\nS1,2024-03-01,8.55,47.37,125\nS2,2024-03-02,8.56,47.38,250\nS3,2024-03-03,8.57,47.39,\n")

	stats, ok := result.Summary.Columns["conservative_contribution_1"]
	if !ok {
		t.Fatalf("missing column stats: %v", result.Summary.Columns)
	}
	if stats.Count != 2 {
		t.Fatalf("expected stats over 2 values, got %d", stats.Count)
	}
	if math.Abs(stats.Min-0.5) > 1e-9 || math.Abs(stats.Max-1.0) > 1e-9 || math.Abs(stats.Mean-0.75) > 1e-9 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	if got := result.Summary.Skipped["conservative_contribution_1"][model.SkipMissingValue]; got != 1 {
		t.Fatalf("expected 1 missing_value skip, got %d (%v)", got, result.Summary.Skipped)
	}

	if _, present := result.Rows[2]["conservative_contribution_1"]; present {
		t.Fatal("skipped contribution must not appear on the row")
	}
}

func TestRenderCSV(t *testing.T) {
	result := buildResult(t, "Sample_id,timestamp,Long,Lat,Cl\nS1,2024-03-01,8.55,47.37,125\nS2,2024-03-02,8.56,47.38,\n")

	raw, err := analysis.RenderCSV(result)
	if err != nil {
		t.Fatalf("RenderCSV failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "Sample_id,timestamp,Long,Lat,Cl,conservative_contribution_1" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if lines[1] != "S1,2024-03-01,8.55,47.37,125,0.5" {
		t.Fatalf("unexpected first row: %q", lines[1])
	}
	if !strings.HasSuffix(lines[2], ",") {
		t.Fatalf("skipped cell should render empty: %q", lines[2])
	}
}
