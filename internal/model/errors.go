package model

import (
	"errors"
	"fmt"
)

// ErrModelConfiguration marks a dataset that cannot be modeled with the
// current end-member configuration. Distinct from validation errors so the
// API can tell the caller to fix the server configuration, not the file.
var ErrModelConfiguration = errors.New("model configuration error")

// MissingEndmemberError reports a tracer column present in the dataset with
// no usable end-member pair configured for it.
type MissingEndmemberError struct {
	Tracer string
}

func (e *MissingEndmemberError) Error() string {
	return fmt.Sprintf("no end-member reference concentrations configured for tracer %q", e.Tracer)
}

func (e *MissingEndmemberError) Unwrap() error { return ErrModelConfiguration }
