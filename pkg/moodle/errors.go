package moodle

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorKind int

const (
	KIND_INTERNAL ErrorKind = iota
	// a required embedded value (login token, session cookie, sesskey) was not in the response
	KIND_TOKEN_EXTRACTION
	// the portal showed its login failure marker after credentials were submitted
	KIND_AUTHENTICATION_REJECTED
	// the portal answered with a non-success status
	KIND_REQUEST_FAILED
	// the document did not have the expected shape, this is ambiguous between
	// "not logged in" and "the page structure changed"
	KIND_PARSE
	// the request itself failed (network, timeout, cancellation)
	KIND_TRANSPORT
	// the session is missing the cookie or the sesskey, nothing was sent
	KIND_NOT_AUTHENTICATED
	// the caller passed something unusable (ex. a malformed base url)
	KIND_INVALID_ARGUMENT
)

func (k ErrorKind) String() string {
	switch k {
	case KIND_TOKEN_EXTRACTION:
		return "token extraction"
	case KIND_AUTHENTICATION_REJECTED:
		return "authentication rejected"
	case KIND_REQUEST_FAILED:
		return "request failed"
	case KIND_PARSE:
		return "parse"
	case KIND_TRANSPORT:
		return "transport"
	case KIND_NOT_AUTHENTICATED:
		return "not authenticated"
	case KIND_INVALID_ARGUMENT:
		return "invalid argument"
	default:
		return "internal"
	}
}

// Error is the error carried by every failed Result.
type Error struct {
	Kind    ErrorKind
	Message string
	// Status is the http status code, only set for KIND_REQUEST_FAILED.
	Status int
	Cause  error
}

func newError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func requestFailed(message string, status int) *Error {
	return &Error{
		Kind:    KIND_REQUEST_FAILED,
		Message: fmt.Sprintf("%s: request failed, status=%d", message, status),
		Status:  status,
	}
}

func (e *Error) Error() string {
	var out strings.Builder
	out.WriteString("moodle: ")
	if e.Message == "" {
		out.WriteString(e.Kind.String())
	} else {
		out.WriteString(e.Message)
	}
	if e.Cause != nil {
		out.WriteString(": ")
		out.WriteString(e.Cause.Error())
	}
	return out.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind when target is one of the Err* sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Message != "" || t.Cause != nil || t.Status != 0 {
		return e == t
	}
	return e.Kind == t.Kind
}

var (
	ErrInternal               = &Error{Kind: KIND_INTERNAL}
	ErrTokenExtraction        = &Error{Kind: KIND_TOKEN_EXTRACTION}
	ErrAuthenticationRejected = &Error{Kind: KIND_AUTHENTICATION_REJECTED}
	ErrRequestFailed          = &Error{Kind: KIND_REQUEST_FAILED}
	ErrParse                  = &Error{Kind: KIND_PARSE}
	ErrTransport              = &Error{Kind: KIND_TRANSPORT}
	ErrNotAuthenticated       = &Error{Kind: KIND_NOT_AUTHENTICATED}
	ErrInvalidArgument        = &Error{Kind: KIND_INVALID_ARGUMENT}
)

// IsKind reports whether err is a moodle *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var target *Error
	return errors.As(err, &target) && target.Kind == kind
}
