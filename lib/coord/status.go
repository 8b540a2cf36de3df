package coord

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Status Codes
// --------------------------------------------------------------------------

// Status mirrors the status space of the ZooKeeper C client.
// StatusSystemError (-1) doubles as the local "handle unavailable / unspecified failure" code.
type Status int32

const (
	StatusOK               Status = 0
	StatusSystemError      Status = -1
	StatusConnectionLoss   Status = -4
	StatusOperationTimeout Status = -7
	StatusBadArguments     Status = -8
	StatusInvalidState     Status = -9
	StatusNoNode           Status = -101
	StatusNoAuth           Status = -102
	StatusBadVersion       Status = -103
	StatusNoChildrenForEph Status = -108
	StatusNodeExists       Status = -110
	StatusNotEmpty         Status = -111
	StatusSessionExpired   Status = -112
	StatusAuthFailed       Status = -115
	StatusClosing          Status = -116
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusSystemError:
		return "system error"
	case StatusConnectionLoss:
		return "connection loss"
	case StatusOperationTimeout:
		return "operation timeout"
	case StatusBadArguments:
		return "bad arguments"
	case StatusInvalidState:
		return "invalid zhandle state"
	case StatusNoNode:
		return "no node"
	case StatusNoAuth:
		return "not authenticated"
	case StatusBadVersion:
		return "bad version"
	case StatusNoChildrenForEph:
		return "no children for ephemerals"
	case StatusNodeExists:
		return "node exists"
	case StatusNotEmpty:
		return "not empty"
	case StatusSessionExpired:
		return "session expired"
	case StatusAuthFailed:
		return "auth failed"
	case StatusClosing:
		return "zookeeper is closing"
	default:
		return fmt.Sprintf("unknown status %d", int32(s))
	}
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error wraps a Status and an optional message.
type Error struct {
	Code Status // The status code
	Msg  string // Additional context, may be empty
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("coord: %s (%d)", e.Code, int32(e.Code))
	}
	return fmt.Sprintf("coord: %s (%d): %s", e.Code, int32(e.Code), e.Msg)
}

// Is reports whether target is an *Error with the same code. A target with a
// message only matches errors carrying the same message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Msg == "" || t.Msg == e.Msg)
}

// NewError creates a new Error with the given code and message.
func NewError(code Status, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// Errorf creates a new Error with a formatted message.
func Errorf(code Status, format string, args ...interface{}) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// Sentinel errors, compare with errors.Is.
var (
	ErrSystemError      = &Error{Code: StatusSystemError}
	ErrConnectionLoss   = &Error{Code: StatusConnectionLoss}
	ErrOperationTimeout = &Error{Code: StatusOperationTimeout}
	ErrInvalidState     = &Error{Code: StatusInvalidState}
	ErrNoNode           = &Error{Code: StatusNoNode}
	ErrNoAuth           = &Error{Code: StatusNoAuth}
	ErrBadVersion       = &Error{Code: StatusBadVersion}
	ErrNodeExists       = &Error{Code: StatusNodeExists}
	ErrNotEmpty         = &Error{Code: StatusNotEmpty}
	ErrSessionExpired   = &Error{Code: StatusSessionExpired}
	ErrAuthFailed       = &Error{Code: StatusAuthFailed}
	ErrClosing          = &Error{Code: StatusClosing}

	// local failures, all carry StatusSystemError
	ErrUnavailable = &Error{Code: StatusSystemError, Msg: "handle unavailable"}
	ErrClosed      = &Error{Code: StatusSystemError, Msg: "handle closed"}
	ErrLockBusy    = &Error{Code: StatusSystemError, Msg: "lock is held by another session"}
	ErrTooLarge    = &Error{Code: StatusSystemError, Msg: "data length exceeds limit"}
	ErrBadPath     = &Error{Code: StatusSystemError, Msg: "path has no separator"}
)

// StatusOf extracts the status of err. nil maps to StatusOK and errors that
// are not an *Error map to StatusSystemError.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return StatusSystemError
}

// IsStatus reports whether err carries the given status.
func IsStatus(err error, code Status) bool {
	return StatusOf(err) == code
}
