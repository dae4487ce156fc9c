package model

import (
	"fmt"
	"strings"

	"oasis/internal/dataset"
)

// ModelType identifies which tracer families the model ran over.
type ModelType string

const (
	ModelNitrate      ModelType = "nitrate"
	ModelConservative ModelType = "conservative"
	ModelCombined     ModelType = "combined"
)

// Generated contribution column names. The conservative index follows the
// dataset's classification order and is 1-based.
const NitrateContributionColumn = "nitrate_contribution"

func ConservativeContributionColumn(index int) string {
	return fmt.Sprintf("conservative_contribution_%d", index)
}

// Skip reasons recorded when a cell cannot contribute a mixing ratio.
const (
	SkipMissingValue = "missing_value"
	SkipNonNumeric   = "non_numeric"
)

// Endmember is a low/high reference concentration pair for one tracer.
type Endmember struct {
	Low  float64
	High float64
}

// Endmembers resolves tracer column names to reference pairs. Keys are held
// normalized; construct through NewEndmembers.
type Endmembers map[string]Endmember

// NewEndmembers builds a lookup table with normalized tracer keys.
func NewEndmembers(pairs map[string]Endmember) Endmembers {
	table := make(Endmembers, len(pairs))
	for name, pair := range pairs {
		table[normalizeTracer(name)] = pair
	}
	return table
}

// Resolve finds the end-member pair for a tracer column. The full normalized
// column name is tried first, then its leading token so that annotated
// headers like "Cl (mg/L)" still match a plain "cl" entry.
func (e Endmembers) Resolve(column string) (Endmember, bool) {
	normalized := normalizeTracer(column)
	if pair, ok := e[normalized]; ok {
		return pair, true
	}
	if token := leadingToken(normalized); token != "" && token != normalized {
		if pair, ok := e[token]; ok {
			return pair, true
		}
	}
	return Endmember{}, false
}

func normalizeTracer(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
}

// leadingToken returns the initial run of letters and digits, so
// "nitrate(no3)" resolves as "nitrate" and "so4 [mg/l]" as "so4".
func leadingToken(normalized string) string {
	for i, r := range normalized {
		isToken := r == '_' ||
			(r >= 'a' && r <= 'z') ||
			(r >= '0' && r <= '9')
		if !isToken {
			return strings.Trim(normalized[:i], "_")
		}
	}
	return strings.Trim(normalized, "_")
}

// ModelPlan captures which tracer columns feed the model and the resulting
// model type. Derived once from the dataset header.
type ModelPlan struct {
	Type         ModelType
	Nitrate      []string
	Conservative []string
}

// Classify derives the model plan from the dataset's column classification.
// The parser guarantees at least one chemistry column, so the plan is never
// empty.
func Classify(ds *dataset.Dataset) ModelPlan {
	plan := ModelPlan{
		Nitrate:      ds.NitrateColumns,
		Conservative: ds.ConservativeColumns,
	}
	switch {
	case len(plan.Nitrate) > 0 && len(plan.Conservative) > 0:
		plan.Type = ModelCombined
	case len(plan.Nitrate) > 0:
		plan.Type = ModelNitrate
	default:
		plan.Type = ModelConservative
	}
	return plan
}

// RowContribution holds the computed mixing ratios for one sample, keyed by
// generated column name, plus the reason for any column skipped on this row.
type RowContribution struct {
	Values  map[string]float64
	Skipped map[string]string
}

// Contributions is the model output: generated column names in output order
// and one contribution record per dataset row, in row order.
type Contributions struct {
	Type    ModelType
	Columns []string
	Rows    []RowContribution
}
