package jcalc

import (
	"fmt"
	"net"

	"github.com/jcalc/jcalc-go/jcalc/jdwp"
)

// Error classification codes. Every error surfaced by this package carries
// exactly one of these.
const (
	// ErrCodeConnect: handshake not received, endpoint unreachable or
	// ID-size negotiation failed. No session is usable.
	ErrCodeConnect = 1 + iota
	// ErrCodeFraming: an inbound packet's declared length disagreed with
	// the bytes on the wire.
	ErrCodeFraming
	// ErrCodeProtocol: malformed or unmatched reply, or the connection
	// dropped mid-request. The connection is unusable afterwards.
	ErrCodeProtocol
	// ErrCodeResolution: a requested remote class or method was not found.
	// Fatal to the current expression only; never cached.
	ErrCodeResolution
	// ErrCodeRemoteInvocation: the remote method raised an exception. The
	// connection remains usable.
	ErrCodeRemoteInvocation
	// ErrCodeParse: malformed input expression, detected before any
	// protocol traffic.
	ErrCodeParse
	// ErrCodeTimeout: a bounded wait on a request or the handshake
	// elapsed. Treated like a protocol failure: the connection is closed.
	ErrCodeTimeout
)

var errCodeText = map[int]string{
	ErrCodeConnect:          "connect failed",
	ErrCodeFraming:          "framing error",
	ErrCodeProtocol:         "protocol error",
	ErrCodeResolution:       "remote resolution failed",
	ErrCodeRemoteInvocation: "remote invocation failed",
	ErrCodeParse:            "parse error",
	ErrCodeTimeout:          "request timed out",
}

// Error describes a failure raised by this package. It always has a
// non-zero classification code and may wrap the underlying cause.
type Error struct {
	Code int   // one of the ErrCode constants
	Err  error // underlying error responsible for the failure; may be nil
}

// Error implements the builtin error interface.
func (err *Error) Error() string {
	if err.Err != nil {
		return fmt.Sprintf("jcalc: %s: %s", errCodeText[err.Code], err.Err.Error())
	}
	return "jcalc: " + errCodeText[err.Code]
}

func (err *Error) Unwrap() error {
	return err.Err
}

func newError(code int, err error) *Error {
	switch err := err.(type) {
	case *Error:
		return err
	case *jdwp.FramingError:
		return &Error{Code: ErrCodeFraming, Err: err}
	case net.Error:
		if err.Timeout() {
			return &Error{Code: ErrCodeTimeout, Err: err}
		}
	}
	return &Error{Code: code, Err: err}
}

func newErrorf(code int, format string, v ...interface{}) *Error {
	return &Error{Code: code, Err: fmt.Errorf(format, v...)}
}

// replyError converts a non-zero JDWP reply error code into an *Error,
// classifying lookup failures as resolution errors and everything else as
// protocol errors.
func replyError(code uint16) *Error {
	name := jdwp.ErrorText(code)
	if name == "" {
		name = "unknown"
	}
	kind := ErrCodeProtocol
	switch code {
	case jdwp.ErrInvalidClass, jdwp.ErrClassNotPrepared, jdwp.ErrInvalidMethodID, jdwp.ErrAbsentInformation:
		kind = ErrCodeResolution
	}
	return newErrorf(kind, "remote error %d (%s)", code, name)
}
