package generation

import "fmt"

// UnavailableError reports that the model endpoint could not produce a
// response: network failure, timeout or a non-2xx status. It is never retried
// here; retry policy belongs to the caller.
type UnavailableError struct {
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *UnavailableError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("generation service unavailable: status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("generation service unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }
