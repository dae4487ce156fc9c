// Package dataset parses uploaded chemistry CSVs into validated, canonically
// named datasets and classifies their tracer columns.
package dataset
