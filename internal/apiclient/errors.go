package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrorKind classifies a failed backend call.
type ErrorKind int

const (
	// KindStatus means the backend answered with a non-2xx status.
	KindStatus ErrorKind = iota + 1
	// KindTimeout means the request exceeded the client timeout or its deadline.
	KindTimeout
	// KindConnection covers dial/transport failures and an open breaker.
	KindConnection
	// KindDecode means a 2xx body could not be decoded into the target.
	KindDecode
)

func (k ErrorKind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindTimeout:
		return "timeout"
	case KindConnection:
		return "connection"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// NetworkError is the single error type returned by Client.
type NetworkError struct {
	Kind       ErrorKind
	Method     string
	URL        string
	StatusCode int
	Message    string
	Err        error
}

func (e *NetworkError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %s error", e.Method, e.URL, e.Kind)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AsNetworkError unwraps err to a *NetworkError if there is one.
func AsNetworkError(err error) (*NetworkError, bool) {
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne, true
	}
	return nil, false
}

func IsTimeout(err error) bool {
	ne, ok := AsNetworkError(err)
	return ok && ne.Kind == KindTimeout
}

// IsStatus reports whether err is a status error with the given code.
func IsStatus(err error, code int) bool {
	ne, ok := AsNetworkError(err)
	return ok && ne.Kind == KindStatus && ne.StatusCode == code
}

func classifyTransport(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return KindTimeout
	}
	return KindConnection
}
