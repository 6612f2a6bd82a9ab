package gemini

import (
	"errors"
	"fmt"
)

// ErrMissingAPIKey is returned before any network I/O when the client was
// constructed without a credential.
var ErrMissingAPIKey = errors.New("gemini: API key is not configured")

// FailureClass is the single source of truth for how an inference failure is
// handled. Both the retry loop and the fallback policy consult it; nothing
// else string-matches on error text.
type FailureClass int

const (
	// ClassTerminal will not be resolved by retrying the identical request.
	ClassTerminal FailureClass = iota
	// ClassTransient is likely to succeed on retry (5xx, timeout, no output).
	ClassTransient
	// ClassRateLimited is transient, but surfaced distinctly so the caller
	// can tell the user to wait.
	ClassRateLimited
	// ClassUnavailable is a capacity/availability failure (503 or an
	// UNAVAILABLE status marker). Transient, and the only class eligible
	// for model fallback.
	ClassUnavailable
	// ClassModelNotFound means the requested model identifier does not exist.
	ClassModelNotFound
	// ClassBadOutput means the model returned unparseable output. Retrying
	// the identical request would replay the same deterministic failure.
	ClassBadOutput
)

func (c FailureClass) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassRateLimited:
		return "rate_limited"
	case ClassUnavailable:
		return "unavailable"
	case ClassModelNotFound:
		return "model_not_found"
	case ClassBadOutput:
		return "bad_output"
	default:
		return "terminal"
	}
}

// Retryable reports whether the attempt loop may spend retry budget on this
// class.
func (c FailureClass) Retryable() bool {
	return c == ClassTransient || c == ClassRateLimited || c == ClassUnavailable
}

// APIError carries the classification and diagnostics for a failed inference
// call. Body is truncated before storage and is never forwarded to app
// clients.
type APIError struct {
	Model      string
	StatusCode int    // HTTP status; 0 for transport errors and timeouts
	Status     string // provider status marker, e.g. "UNAVAILABLE"
	Class      FailureClass
	Body       string
	Err        error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("gemini: model %s: %s", e.Model, e.Class)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *APIError) Unwrap() error { return e.Err }

// Classify extracts the failure class from any error returned by this
// package. Unknown errors are terminal.
func Classify(err error) FailureClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Class
	}
	return ClassTerminal
}

// classifyStatus maps an HTTP status code plus the provider's status marker
// onto a failure class. 429 and 5xx are transient per the provider's own
// guidance; 503/UNAVAILABLE additionally signals that a different model may
// be worth trying.
func classifyStatus(code int, marker string) FailureClass {
	switch {
	case code == 429:
		return ClassRateLimited
	case code == 503 || marker == "UNAVAILABLE":
		return ClassUnavailable
	case code >= 500:
		return ClassTransient
	case code == 404:
		return ClassModelNotFound
	default:
		return ClassTerminal
	}
}
