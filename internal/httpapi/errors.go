package httpapi

import "net/http"

// ErrorKind enumerates the failure categories the API reports. Each kind
// maps to one HTTP status and a stable client-facing message; the kind name
// itself travels in the error details so clients can branch without string
// matching the message.
type ErrorKind string

const (
	ErrInvalidRequest       ErrorKind = "INVALID_REQUEST"
	ErrUnsupportedMediaType ErrorKind = "UNSUPPORTED_MEDIA_TYPE"
	ErrServerMisconfigured  ErrorKind = "SERVER_MISCONFIGURED"
	ErrRateLimited          ErrorKind = "RATE_LIMITED"
	ErrModelUnavailable     ErrorKind = "MODEL_UNAVAILABLE"
	ErrIdentificationFailed ErrorKind = "IDENTIFICATION_FAILED"
)

type errorSpec struct {
	status  int
	message string
}

var errorSpecs = map[ErrorKind]errorSpec{
	ErrInvalidRequest:       {http.StatusBadRequest, "Invalid request"},
	ErrUnsupportedMediaType: {http.StatusUnsupportedMediaType, "Unsupported image type"},
	ErrServerMisconfigured:  {http.StatusInternalServerError, "Service is not configured"},
	ErrRateLimited:          {http.StatusTooManyRequests, "Too many requests, please wait about a minute and retry"},
	ErrModelUnavailable:     {http.StatusInternalServerError, "Identification service is temporarily unavailable"},
	ErrIdentificationFailed: {http.StatusInternalServerError, "Could not identify the plant"},
}

// Status returns the HTTP status code for the kind. Unknown kinds map to
// 500 rather than panicking on a bad constant.
func (k ErrorKind) Status() int {
	if spec, ok := errorSpecs[k]; ok {
		return spec.status
	}
	return http.StatusInternalServerError
}

// Message returns the client-facing message for the kind.
func (k ErrorKind) Message() string {
	if spec, ok := errorSpecs[k]; ok {
		return spec.message
	}
	return "Internal error"
}
