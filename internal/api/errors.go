// Package api describes the backend the app talks to: the Environment of
// request functions injected into reducers, the closed Error union that
// every request failure is classified into, and an HTTP Client that
// implements the Environment.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// Expired is the specific error of authenticated requests: the token is
// stale and must be refreshed before retrying.
type Expired struct{}

func (Expired) Error() string { return "token expired" }

// CognitoError is the specific error of sign-in requests.
type CognitoError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e CognitoError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}

// ErrorKind is the case of an Error.
type ErrorKind int

const (
	KindNetwork ErrorKind = iota + 1
	KindAPI
	KindServer
	KindUnknown
	KindError
	KindSpecific
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAPI:
		return "api"
	case KindServer:
		return "server"
	case KindUnknown:
		return "unknown"
	case KindError:
		return "error"
	case KindSpecific:
		return "specific"
	default:
		return fmt.Sprintf("error_kind(%d)", int(k))
	}
}

// Error is the closed union of request failures, parameterized by the
// request-specific case E. Only the fields of Kind are set.
//
// Cases:
//   - KindNetwork: Reason
//   - KindAPI: Code, Title, Detail
//   - KindServer: Message
//   - KindUnknown: Payload
//   - KindError: Message
//   - KindSpecific: Specific
type Error[E error] struct {
	Kind     ErrorKind
	Reason   string
	Code     string
	Title    string
	Detail   string
	Message  string
	Payload  string
	Specific E
}

// Error implements the error interface.
func (e *Error[E]) Error() string {
	switch e.Kind {
	case KindNetwork:
		return "network: " + e.Reason
	case KindAPI:
		return fmt.Sprintf("api %s: %s: %s", e.Code, e.Title, e.Detail)
	case KindServer:
		return "server: " + e.Message
	case KindUnknown:
		return "unknown response: " + e.Payload
	case KindSpecific:
		return e.Specific.Error()
	default:
		return e.Message
	}
}

// IsSpecific reports whether the error is the request-specific case.
func (e *Error[E]) IsSpecific() bool {
	return e != nil && e.Kind == KindSpecific
}

// Alert returns a title and message for an alert dialog.
func (e *Error[E]) Alert() (title, message string) {
	switch e.Kind {
	case KindNetwork:
		return "Network unavailable", e.Reason
	case KindAPI:
		if e.Title != "" {
			return e.Title, e.Detail
		}
		return "Request failed", e.Detail
	case KindServer:
		return "Server error", e.Message
	case KindUnknown:
		return "Unexpected response", e.Payload
	case KindSpecific:
		return "Request failed", e.Specific.Error()
	default:
		return "Error", e.Message
	}
}

// StatusError is returned by the Client for non-2xx responses that carry no
// request-specific meaning.
type StatusError struct {
	Status int    `json:"-"`
	Code   string `json:"code"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Title)
}

// DecodeError is returned by the Client when a response body could not be
// decoded.
type DecodeError struct {
	Payload string
	Err     error
}

func (e *DecodeError) Error() string { return "decode response: " + e.Err.Error() }

func (e *DecodeError) Unwrap() error { return e.Err }

// Classify converts any error returned by an Environment function into the
// closed union. A nil error yields nil.
func Classify[E error](err error) *Error[E] {
	if err == nil {
		return nil
	}

	var already *Error[E]
	if errors.As(err, &already) {
		return already
	}

	var specific E
	if errors.As(err, &specific) {
		return &Error[E]{Kind: KindSpecific, Specific: specific}
	}

	var status *StatusError
	if errors.As(err, &status) {
		if status.Status >= 500 {
			msg := status.Detail
			if msg == "" {
				msg = status.Title
			}
			return &Error[E]{Kind: KindServer, Message: msg}
		}
		return &Error[E]{Kind: KindAPI, Code: status.Code, Title: status.Title, Detail: status.Detail}
	}

	var decode *DecodeError
	if errors.As(err, &decode) {
		return &Error[E]{Kind: KindUnknown, Payload: decode.Payload}
	}

	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) {
		return &Error[E]{Kind: KindNetwork, Reason: err.Error()}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error[E]{Kind: KindNetwork, Reason: "request timed out"}
	}

	return &Error[E]{Kind: KindError, Message: err.Error()}
}
