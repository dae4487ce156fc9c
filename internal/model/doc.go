// Package model runs the end-member mixing model over a validated dataset.
//
// Classification derives the model plan from the dataset's tracer columns;
// Run computes one clamped mixing ratio per row and tracer against the
// configured low/high reference concentrations. Rows are never dropped:
// a cell that cannot contribute is skipped with a recorded reason.
package model
