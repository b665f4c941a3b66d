package upstream

import "fmt"

// ErrorKind classifies fetch failures for the caller: transient errors
// were already retried inside the client, permanent and malformed
// errors fail the account immediately.
type ErrorKind int

const (
	ErrorTransient ErrorKind = iota
	ErrorPermanent
	ErrorMalformed
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorTransient:
		return "transient"
	case ErrorPermanent:
		return "permanent"
	case ErrorMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

type FetchError struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch failed (%s, status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch failed (%s): %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
