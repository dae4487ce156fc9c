package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Timestamp layouts accepted for the timestamp column, tried in order.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
}

// Parse validates raw CSV bytes and returns the canonical dataset. Acceptance
// is all-or-nothing: any invalid row rejects the whole upload so downstream
// stages never see a partially valid dataset.
func Parse(raw []byte) (*Dataset, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: file contains no data", ErrValidation)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse file: %v", ErrValidation, err)
	}

	columns, err := canonicalHeader(header)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{Columns: columns}
	classifyColumns(ds)
	if len(ds.NitrateColumns) == 0 && len(ds.ConservativeColumns) == 0 {
		return nil, &NoChemistryColumnError{}
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse file: %v", ErrValidation, err)
		}

		row := make(Row, len(columns))
		for i, column := range columns {
			row[column] = strings.TrimSpace(record[i])
		}
		if err := validateRow(ds, row, len(ds.Rows)+1); err != nil {
			return nil, err
		}
		ds.Rows = append(ds.Rows, row)
	}

	if len(ds.Rows) == 0 {
		return nil, fmt.Errorf("%w: file contains no data", ErrValidation)
	}
	return ds, nil
}

func canonicalHeader(header []string) ([]string, error) {
	columns := make([]string, 0, len(header))
	seen := make(map[string]struct{}, len(header))
	for _, raw := range header {
		canonical := canonicalColumn(raw)
		if canonical == "" {
			return nil, fmt.Errorf("%w: header contains an empty column name", ErrValidation)
		}
		if _, dup := seen[canonical]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q after normalization", ErrValidation, canonical)
		}
		seen[canonical] = struct{}{}
		columns = append(columns, canonical)
	}

	var missing []string
	for _, required := range RequiredColumns() {
		if _, ok := seen[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnError{Columns: missing}
	}
	return columns, nil
}

// classifyColumns partitions chemistry columns in header order: nitrate-like
// names first match, everything else is conservative-like. The conservative
// order determines contribution column numbering, so it must stay stable.
func classifyColumns(ds *Dataset) {
	for _, column := range ds.Columns {
		if isIdentityColumn(column) {
			continue
		}
		if IsNitrateColumn(column) {
			ds.NitrateColumns = append(ds.NitrateColumns, column)
		} else {
			ds.ConservativeColumns = append(ds.ConservativeColumns, column)
		}
	}
}

func validateRow(ds *Dataset, row Row, rowNum int) error {
	if err := validateTimestamp(row[ColumnTimestamp], rowNum); err != nil {
		return err
	}
	if err := validateCoordinate(row[ColumnLongitude], ColumnLongitude, LongitudeMin, LongitudeMax, rowNum); err != nil {
		return err
	}
	if err := validateCoordinate(row[ColumnLatitude], ColumnLatitude, LatitudeMin, LatitudeMax, rowNum); err != nil {
		return err
	}

	// Non-numeric chemistry values are tolerated here (the model skips them
	// per tracer) but negative concentrations reject the upload.
	for _, column := range ds.NitrateColumns {
		if err := validateConcentration(row[column], column, rowNum); err != nil {
			return err
		}
	}
	for _, column := range ds.ConservativeColumns {
		if err := validateConcentration(row[column], column, rowNum); err != nil {
			return err
		}
	}
	return nil
}

func validateTimestamp(value string, rowNum int) error {
	if value == "" {
		return rowErr(rowNum, "missing timestamp")
	}
	for _, layout := range timestampLayouts {
		if _, err := time.Parse(layout, value); err == nil {
			return nil
		}
	}
	return rowErr(rowNum, "invalid timestamp format %q", value)
}

func validateCoordinate(value, column string, min, max float64, rowNum int) error {
	if value == "" {
		return rowErr(rowNum, "missing %s coordinate", column)
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return rowErr(rowNum, "invalid %s coordinate %q", column, value)
	}
	if parsed < min || parsed > max {
		return rowErr(rowNum, "%s out of range: %v (must be %v to %v)", column, parsed, min, max)
	}
	return nil
}

func validateConcentration(value, column string, rowNum int) error {
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil
	}
	if parsed < 0 {
		return rowErr(rowNum, "negative value in %q: concentrations must be >= 0", column)
	}
	return nil
}
