// Command oasis runs the analysis service and offers operator utilities for
// configuration and job inspection.
package main
