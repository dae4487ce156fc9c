// Package pipeline coordinates analysis runs over a pool of workers.
//
// Jobs enter through Submit after they have won the processing transition;
// every submitted job resolves to Complete or Fail, including on panic, so
// nothing is left stranded in processing while no worker holds it.
package pipeline
