package pick

import "errors"

// ErrPickTimeout is returned when the result readback's map poll exceeds its cap. The
// request is aborted and selection state is left untouched.
var ErrPickTimeout = errors.New("pick: readback timed out")

// ErrPickMapFailure is returned when the result readback's buffer map reports failure.
var ErrPickMapFailure = errors.New("pick: readback map failed")

// ErrNoRequest is returned by Execute when no request is pending.
var ErrNoRequest = errors.New("pick: no pending request")
