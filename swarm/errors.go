package swarm

import "fmt"

// UsageError indicates a call-site mistake: bad argument shapes, structural
// mutation with outstanding views, or coordinate writes outside a deform
// scope. It is not retryable; the caller must fix the call site.
type UsageError struct {
	msg string
}

func (e *UsageError) Error() string { return e.msg }

func usageErrorf(format string, args ...any) error {
	return &UsageError{msg: fmt.Sprintf(format, args...)}
}

// NewUsageError builds a UsageError from a formatted message. Exposed for
// collaborating packages that surface caller mistakes in swarm terms.
func NewUsageError(format string, args ...any) error {
	return usageErrorf(format, args...)
}

// ConsistencyError indicates a domain-coverage bug: a particle could not be
// located in any rank's partition while particle escape is disabled. It is
// fatal to the run.
type ConsistencyError struct {
	msg string
}

func (e *ConsistencyError) Error() string { return e.msg }

func consistencyErrorf(format string, args ...any) error {
	return &ConsistencyError{msg: fmt.Sprintf(format, args...)}
}
