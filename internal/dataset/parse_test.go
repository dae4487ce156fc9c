package dataset_test

import (
	"errors"
	"strings"
	"testing"

	"oasis/internal/dataset"
)

const validCSV = `Sample_id,timestamp,Long,Lat,Nitrate(NO3),Cl,SO4
S1,2024-03-01,8.55,47.37,12.5,45.0,20.1
S2,2024-03-02,8.56,47.38,8.2,50.2,18.7
S3,2024-03-03,8.57,47.39,15.0,48.8,22.4
`

func TestParseClassifiesColumns(t *testing.T) {
	ds, err := dataset.Parse([]byte(validCSV))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	wantColumns := []string{"Sample_id", "timestamp", "Long", "Lat", "Nitrate(NO3)", "Cl", "SO4"}
	if len(ds.Columns) != len(wantColumns) {
		t.Fatalf("expected %d columns, got %d", len(wantColumns), len(ds.Columns))
	}
	for i, want := range wantColumns {
		if ds.Columns[i] != want {
			t.Fatalf("column %d: expected %q, got %q", i, want, ds.Columns[i])
		}
	}

	if len(ds.NitrateColumns) != 1 || ds.NitrateColumns[0] != "Nitrate(NO3)" {
		t.Fatalf("unexpected nitrate columns: %v", ds.NitrateColumns)
	}
	if len(ds.ConservativeColumns) != 2 || ds.ConservativeColumns[0] != "Cl" || ds.ConservativeColumns[1] != "SO4" {
		t.Fatalf("unexpected conservative columns: %v", ds.ConservativeColumns)
	}
	if ds.SampleCount() != 3 {
		t.Fatalf("expected 3 samples, got %d", ds.SampleCount())
	}
	if ds.Rows[0]["Sample_id"] != "S1" || ds.Rows[2]["Cl"] != "48.8" {
		t.Fatalf("row values not preserved: %v", ds.Rows)
	}
}

func TestParseNormalizesAliases(t *testing.T) {
	csv := "sample id,DateTime,Longitude,latitude,Cl\nS1,2024-01-15,10.0,50.0,30\n"
	ds, err := dataset.Parse([]byte(csv))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	want := []string{"Sample_id", "timestamp", "Long", "Lat", "Cl"}
	for i, column := range want {
		if ds.Columns[i] != column {
			t.Fatalf("expected canonical column %q at %d, got %q", column, i, ds.Columns[i])
		}
	}
	if ds.Rows[0]["Long"] != "10.0" {
		t.Fatalf("expected row keyed by canonical name, got %v", ds.Rows[0])
	}
}

func TestParseReportsAllMissingColumns(t *testing.T) {
	csv := "Sample_id,Cl\nS1,30\n"
	_, err := dataset.Parse([]byte(csv))
	if err == nil {
		t.Fatal("expected missing column error")
	}

	var missing *dataset.MissingColumnError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingColumnError, got %T: %v", err, err)
	}
	if len(missing.Columns) != 3 {
		t.Fatalf("expected timestamp, Long, Lat reported, got %v", missing.Columns)
	}
	if !errors.Is(err, dataset.ErrValidation) {
		t.Fatal("MissingColumnError must classify as validation error")
	}
}

func TestParseMissingLatOnly(t *testing.T) {
	csv := "Sample_id,timestamp,Long,Cl\nS1,2024-01-01,10.0,30\n"
	_, err := dataset.Parse([]byte(csv))
	var missing *dataset.MissingColumnError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingColumnError, got %v", err)
	}
	if len(missing.Columns) != 1 || missing.Columns[0] != "Lat" {
		t.Fatalf("expected only Lat reported, got %v", missing.Columns)
	}
}

func TestParseRequiresChemistryColumn(t *testing.T) {
	csv := "Sample_id,timestamp,Long,Lat\nS1,2024-01-01,10.0,50.0\n"
	_, err := dataset.Parse([]byte(csv))
	var noChem *dataset.NoChemistryColumnError
	if !errors.As(err, &noChem) {
		t.Fatalf("expected NoChemistryColumnError, got %v", err)
	}
}

func TestParseRejectsBadTimestampAnywhere(t *testing.T) {
	csv := "Sample_id,timestamp,Long,Lat,Cl\nS1,2024-01-01,10.0,50.0,30\nS2,not-a-date,10.1,50.1,31\n"
	_, err := dataset.Parse([]byte(csv))
	if err == nil || !errors.Is(err, dataset.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "row 2") {
		t.Fatalf("expected failing row named, got %v", err)
	}
}

func TestParseRejectsOutOfRangeCoordinates(t *testing.T) {
	csv := "Sample_id,timestamp,Long,Lat,Cl\nS1,2024-01-01,200.0,50.0,30\n"
	if _, err := dataset.Parse([]byte(csv)); err == nil {
		t.Fatal("expected longitude range error")
	}

	csv = "Sample_id,timestamp,Long,Lat,Cl\nS1,2024-01-01,10.0,,30\n"
	if _, err := dataset.Parse([]byte(csv)); err == nil {
		t.Fatal("expected missing latitude error")
	}
}

func TestParseRejectsNegativeConcentrations(t *testing.T) {
	csv := "Sample_id,timestamp,Long,Lat,Cl\nS1,2024-01-01,10.0,50.0,-3\n"
	_, err := dataset.Parse([]byte(csv))
	if err == nil || !strings.Contains(err.Error(), "negative") {
		t.Fatalf("expected negative concentration rejection, got %v", err)
	}
}

func TestParseToleratesNonNumericChemistry(t *testing.T) {
	csv := "Sample_id,timestamp,Long,Lat,Cl\nS1,2024-01-01,10.0,50.0,n/a\n"
	ds, err := dataset.Parse([]byte(csv))
	if err != nil {
		t.Fatalf("non-numeric chemistry cell should not reject the upload: %v", err)
	}
	if ds.Rows[0]["Cl"] != "n/a" {
		t.Fatalf("raw value should be preserved, got %q", ds.Rows[0]["Cl"])
	}
}

func TestParseEmptyInput(t *testing.T) {
	if _, err := dataset.Parse(nil); !errors.Is(err, dataset.ErrValidation) {
		t.Fatalf("expected validation error for empty input, got %v", err)
	}
	headerOnly := "Sample_id,timestamp,Long,Lat,Cl\n"
	if _, err := dataset.Parse([]byte(headerOnly)); !errors.Is(err, dataset.ErrValidation) {
		t.Fatalf("expected validation error for header-only input, got %v", err)
	}
}

func TestParseStripsBOM(t *testing.T) {
	withBOM := append([]byte{0xEF, 0xBB, 0xBF}, []byte(validCSV)...)
	ds, err := dataset.Parse(withBOM)
	if err != nil {
		t.Fatalf("Parse failed on BOM-prefixed input: %v", err)
	}
	if ds.Columns[0] != "Sample_id" {
		t.Fatalf("BOM leaked into first column: %q", ds.Columns[0])
	}
}

func TestDisplayName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"spring_samples_2024.csv", "Spring Samples 2024"},
		{"/tmp/uploads/rhine-survey.csv", "Rhine Survey"},
		{"", "Untitled Dataset"},
		{"___.csv", "Untitled Dataset"},
	}
	for _, tc := range cases {
		if got := dataset.DisplayName(tc.in); got != tc.want {
			t.Fatalf("DisplayName(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}
