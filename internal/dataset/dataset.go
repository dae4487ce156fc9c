package dataset

import (
	"strings"
)

// Canonical identity column names. Everything else in a header is a chemistry
// column.
const (
	ColumnSampleID  = "Sample_id"
	ColumnTimestamp = "timestamp"
	ColumnLongitude = "Long"
	ColumnLatitude  = "Lat"
)

// Coordinate validation ranges.
const (
	LongitudeMin = -180.0
	LongitudeMax = 180.0
	LatitudeMin  = -90.0
	LatitudeMax  = 90.0
)

// RequiredColumns returns the canonical identity columns every upload must carry.
func RequiredColumns() []string {
	return []string{ColumnSampleID, ColumnTimestamp, ColumnLongitude, ColumnLatitude}
}

// columnAliases maps normalized header names to canonical identity columns.
// Consulted once at load time; nothing downstream does ad hoc name matching.
var columnAliases = map[string]string{
	"sample_id":  ColumnSampleID,
	"sampleid":   ColumnSampleID,
	"sample id":  ColumnSampleID,
	"timestamp":  ColumnTimestamp,
	"time_stamp": ColumnTimestamp,
	"datetime":   ColumnTimestamp,
	"time":       ColumnTimestamp,
	"long":       ColumnLongitude,
	"longitude":  ColumnLongitude,
	"lon":        ColumnLongitude,
	"lng":        ColumnLongitude,
	"lat":        ColumnLatitude,
	"latitude":   ColumnLatitude,
}

// Row maps canonical column names to the raw cell values of one sample.
type Row map[string]string

// Dataset is a validated upload: canonical columns in original header order,
// rows in original order, and the tracer classification derived from the
// header. Consumed read-only downstream.
type Dataset struct {
	Columns             []string
	NitrateColumns      []string
	ConservativeColumns []string
	Rows                []Row
}

// SampleCount returns the number of data rows.
func (d *Dataset) SampleCount() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// HasNitrate reports whether any nitrate-like tracer column is present.
func (d *Dataset) HasNitrate() bool {
	return d != nil && len(d.NitrateColumns) > 0
}

// canonicalColumn resolves a raw header cell to its canonical name. Identity
// aliases collapse to the canonical identity column; chemistry columns keep
// their original (trimmed) spelling.
func canonicalColumn(raw string) string {
	trimmed := strings.TrimSpace(raw)
	normalized := strings.ReplaceAll(strings.ToLower(trimmed), "-", "_")
	if canonical, ok := columnAliases[normalized]; ok {
		return canonical
	}
	return trimmed
}

// IsNitrateColumn reports whether a column name denotes a nitrate-like tracer.
func IsNitrateColumn(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "nitrate") || strings.Contains(lower, "no3")
}

func isIdentityColumn(name string) bool {
	switch name {
	case ColumnSampleID, ColumnTimestamp, ColumnLongitude, ColumnLatitude:
		return true
	}
	return false
}
