// internal/batcherr/errors.go
package batcherr

import "errors"

// Sentinel errors for the batch run taxonomy. Per-unit pipeline failures are
// never errors at this level; they are recorded as data in a JobResult and
// only surface through the batch report.
var (
	// ErrConfig marks invalid configuration: bad concurrency, missing root,
	// unusable executor. Fatal before any unit starts.
	ErrConfig = errors.New("configuration error")

	// ErrNoWorkFound marks an empty manifest after discovery. Fatal.
	ErrNoWorkFound = errors.New("no work found")

	// ErrMerge marks a missing or malformed intermediate for a unit that
	// succeeded. Fatal for the affected merge category only.
	ErrMerge = errors.New("merge error")

	// ErrCancelled marks an interrupted run. A distinct terminal state, not
	// a failure.
	ErrCancelled = errors.New("run cancelled")
)
