package predictor

import "errors"

// ErrorKind classifies inference call failures.
type ErrorKind int

const (
	// KindAPI is a well-formed error response from the service (non-2xx
	// status or an error/detail field in the body).
	KindAPI ErrorKind = iota
	// KindProtocol is an unexpected response shape, e.g. a non-JSON body.
	KindProtocol
	// KindNetwork is a transport failure before a response was read.
	KindNetwork
)

// APIError is a failed inference call. Message is safe to show to the user;
// Raw holds the server body for diagnostics.
type APIError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Raw     string
	cause   error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// AsAPIError unwraps err into an *APIError, if it is one.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
