package api

import "errors"

// ErrNotReady is returned when results are requested for a job that has not
// completed.
var ErrNotReady = errors.New("job results not ready")

// ErrInvalidRequest marks a malformed request (bad status filter, empty
// upload, oversized payload).
var ErrInvalidRequest = errors.New("invalid request")

// ErrBusy is returned when the pipeline cannot accept more work.
var ErrBusy = errors.New("server busy")
