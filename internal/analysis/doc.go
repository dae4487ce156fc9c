// Package analysis assembles model output into the result document served to
// clients and rendered for CSV export.
package analysis
