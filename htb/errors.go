package htb

import "fmt"

// FetchError is returned for every failed status read: transport failures
// and timeouts, non-2xx responses and bodies that cannot be decoded.
type FetchError struct {
	Op string
	// StatusCode is zero when no response was received.
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("htb %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("htb %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
