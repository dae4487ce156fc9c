package model

import (
	"fmt"
	"strconv"

	"oasis/internal/dataset"
)

// nitrateEndmemberKey is the fixed lookup key for the nitrate tracer family.
// Nitrate columns vary in spelling but always model against this entry.
const nitrateEndmemberKey = "nitrate"

// Run computes mixing ratios for every row in the dataset. Configuration is
// checked up front: a present tracer with no usable end-member pair fails the
// whole run rather than silently producing zeros.
func Run(ds *dataset.Dataset, plan ModelPlan, endmembers Endmembers) (*Contributions, error) {
	type binding struct {
		column  string // generated output column
		sources []string
		pair    Endmember
	}
	var bindings []binding

	if len(plan.Nitrate) > 0 {
		pair, ok := endmembers[nitrateEndmemberKey]
		if !ok {
			return nil, &MissingEndmemberError{Tracer: nitrateEndmemberKey}
		}
		if err := checkPair(nitrateEndmemberKey, pair); err != nil {
			return nil, err
		}
		bindings = append(bindings, binding{
			column:  NitrateContributionColumn,
			sources: plan.Nitrate,
			pair:    pair,
		})
	}
	for i, column := range plan.Conservative {
		pair, ok := endmembers.Resolve(column)
		if !ok {
			return nil, &MissingEndmemberError{Tracer: column}
		}
		if err := checkPair(column, pair); err != nil {
			return nil, err
		}
		bindings = append(bindings, binding{
			column:  ConservativeContributionColumn(i + 1),
			sources: []string{column},
			pair:    pair,
		})
	}

	out := &Contributions{Type: plan.Type}
	for _, b := range bindings {
		out.Columns = append(out.Columns, b.column)
	}

	for _, row := range ds.Rows {
		rc := RowContribution{
			Values:  make(map[string]float64, len(bindings)),
			Skipped: make(map[string]string),
		}
		for _, b := range bindings {
			value, reason := tracerValue(row, b.sources)
			if reason != "" {
				rc.Skipped[b.column] = reason
				continue
			}
			rc.Values[b.column] = mixingRatio(value, b.pair)
		}
		out.Rows = append(out.Rows, rc)
	}
	return out, nil
}

func checkPair(tracer string, pair Endmember) error {
	if pair.High == pair.Low {
		return fmt.Errorf("%w: end-member pair for %q is degenerate (high == low)",
			ErrModelConfiguration, tracer)
	}
	return nil
}

// tracerValue averages the numeric cells of the source columns for one row.
// When nothing is numeric the skip reason distinguishes empty cells from
// unparsable ones.
func tracerValue(row dataset.Row, sources []string) (float64, string) {
	var sum float64
	numeric := 0
	sawNonNumeric := false
	for _, column := range sources {
		cell := row[column]
		if cell == "" {
			continue
		}
		parsed, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			sawNonNumeric = true
			continue
		}
		sum += parsed
		numeric++
	}
	if numeric == 0 {
		if sawNonNumeric {
			return 0, SkipNonNumeric
		}
		return 0, SkipMissingValue
	}
	return sum / float64(numeric), ""
}

// mixingRatio maps a measured concentration onto the configured end-member
// interval and clamps the result to [0, 1].
func mixingRatio(measured float64, pair Endmember) float64 {
	ratio := (measured - pair.Low) / (pair.High - pair.Low)
	if ratio < 0 {
		return 0
	}
	if ratio > 1 {
		return 1
	}
	return ratio
}
