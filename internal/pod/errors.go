package pod

import "errors"

// Codec errors. Callers generally treat any decode failure as "this event
// carries nothing for us" rather than a fatal condition.
var (
	// ErrTruncated is returned when a pod header or body extends past the
	// end of the buffer.
	ErrTruncated = errors.New("pod: truncated")

	// ErrWrongType is returned when a pod's type does not match what the
	// accessor expects.
	ErrWrongType = errors.New("pod: wrong type")

	// ErrNotProps is returned when a blob is not a Props object.
	ErrNotProps = errors.New("pod: not a props object")

	// ErrNotProfiler is returned when a blob is not a Profiler object.
	ErrNotProfiler = errors.New("pod: not a profiler object")

	// ErrBadValue is returned when a metadata value string cannot be parsed.
	ErrBadValue = errors.New("pod: bad value")
)
