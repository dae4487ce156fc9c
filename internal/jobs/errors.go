package jobs

import "errors"

// ErrNotFound covers both missing jobs and jobs owned by another user.
var ErrNotFound = errors.New("job not found")

// ErrState marks a transition attempted from the wrong lifecycle state.
var ErrState = errors.New("invalid job state")
