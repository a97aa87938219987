package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a gateway-level failure for propagation-policy
// decisions (trip the breaker? fall back? surface to the client?) and for
// the wire-level "error" SSE event's kind field.
type ErrorKind string

const (
	ErrorNoModelAvailable  ErrorKind = "NO_MODEL_AVAILABLE"
	ErrorUpstreamNetwork   ErrorKind = "UPSTREAM_NETWORK"
	ErrorUpstream5xx       ErrorKind = "UPSTREAM_5XX"
	ErrorUpstream4xx       ErrorKind = "UPSTREAM_4XX"
	ErrorUpstreamRateLimit ErrorKind = "UPSTREAM_RATE_LIMIT"
	ErrorProtocolError     ErrorKind = "PROTOCOL_ERROR"
	ErrorToolTimeout       ErrorKind = "TOOL_TIMEOUT"
	ErrorToolOutputTooBig  ErrorKind = "TOOL_OUTPUT_TOO_LARGE"
	ErrorInvalidArguments  ErrorKind = "INVALID_ARGUMENTS"
	ErrorUnknownTool       ErrorKind = "UNKNOWN_TOOL"
	ErrorMaxIterations     ErrorKind = "MAX_ITERATIONS"
	ErrorDeadlineExceeded  ErrorKind = "DEADLINE_EXCEEDED"
	ErrorClientCanceled    ErrorKind = "CLIENT_CANCELED"
	ErrorGuardrailBlocked  ErrorKind = "GUARDRAIL_BLOCKED"
	ErrorInternal          ErrorKind = "INTERNAL"
)

// TripsBreaker reports whether a failure of this kind should count against a
// (provider, model)'s circuit breaker, per the propagation policy: network,
// 5xx, rate-limit, and protocol errors trip the breaker and trigger fallback;
// 4xx (client-caused) failures do neither.
func (k ErrorKind) TripsBreaker() bool {
	switch k {
	case ErrorUpstreamNetwork, ErrorUpstream5xx, ErrorUpstreamRateLimit, ErrorProtocolError:
		return true
	default:
		return false
	}
}

// Fallback reports whether this kind should advance to the next candidate in
// the selector's fallback sequence rather than surfacing immediately.
func (k ErrorKind) Fallback() bool {
	return k.TripsBreaker()
}

// Recoverable reports whether this kind is recovered locally as a synthetic
// tool reply rather than surfaced to the client as a fatal error.
func (k ErrorKind) Recoverable() bool {
	switch k {
	case ErrorInvalidArguments, ErrorUnknownTool, ErrorToolTimeout, ErrorToolOutputTooBig:
		return true
	default:
		return false
	}
}

// GatewayError is the gateway's typed error envelope: every error returned
// across a component boundary either is, or wraps via Unwrap, a
// *GatewayError, so that HTTP handlers and the SSE writer never leak a raw Go
// error string to the client without passing through a classified Kind.
type GatewayError struct {
	Kind          ErrorKind
	Code          string
	Message       string
	CorrelationID string
	Status        int
	Cause         error
}

func (e *GatewayError) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s]", e.Kind))
	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("code=%s", e.Code))
	}
	if e.CorrelationID != "" {
		parts = append(parts, fmt.Sprintf("correlation=%s", e.CorrelationID))
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, " ")
}

func (e *GatewayError) Unwrap() error {
	return e.Cause
}

// NewGatewayError creates a *GatewayError wrapping cause, classified by kind.
func NewGatewayError(kind ErrorKind, cause error) *GatewayError {
	return &GatewayError{Kind: kind, Cause: cause}
}

// WithCode attaches a machine-readable error code.
func (e *GatewayError) WithCode(code string) *GatewayError {
	e.Code = code
	return e
}

// WithCorrelationID attaches a correlation ID for log/tracing cross-reference.
func (e *GatewayError) WithCorrelationID(id string) *GatewayError {
	e.CorrelationID = id
	return e
}

// WithStatus attaches an HTTP status code, when the cause originated from an
// upstream HTTP response.
func (e *GatewayError) WithStatus(status int) *GatewayError {
	e.Status = status
	return e
}

// WithMessage overrides the human-readable message (otherwise derived from
// Cause).
func (e *GatewayError) WithMessage(msg string) *GatewayError {
	e.Message = msg
	return e
}

// KindOf extracts the ErrorKind from err if it is, or wraps, a *GatewayError;
// otherwise returns ErrorInternal.
func KindOf(err error) ErrorKind {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return ErrorInternal
}

// ErrNoModelAvailable is returned by the selector when no candidate model
// survives capability, breaker, and rate-limit filtering.
var ErrNoModelAvailable = NewGatewayError(ErrorNoModelAvailable, errors.New("no model available"))
