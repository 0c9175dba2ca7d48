package portal

import (
	"errors"
	"fmt"
	"net"
)

// RequestError is a failed portal request. Status is zero when the
// request never produced a response.
type RequestError struct {
	URL    string
	Status int
	Err    error
}

func (e *RequestError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("portal: %s returned %d", e.URL, e.Status)
	}
	return fmt.Sprintf("portal: request %s: %v", e.URL, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Transient reports whether the failure is worth retrying: timeouts,
// transport errors and server-side status codes.
func (e *RequestError) Transient() bool {
	if e.Status >= 500 || e.Status == 429 {
		return true
	}
	if e.Status != 0 {
		return false
	}
	var netErr net.Error
	if errors.As(e.Err, &netErr) && netErr.Timeout() {
		return true
	}
	// Connection-level failures without a response are transport
	// errors and retryable.
	return e.Err != nil
}
