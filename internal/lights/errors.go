package lights

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Kind classifies a failure.
type Kind int

const (
	InvalidArgument Kind = iota + 1
	IOFailure
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid argument"
	case IOFailure:
		return "io failure"
	default:
		return "unknown"
	}
}

const errnoInvalid = unix.EINVAL

// ErrNilDevice is returned when a light operation is invoked without a device.
var ErrNilDevice = &Error{Kind: InvalidArgument, Op: "set", Err: errors.New("nil device")}

// Error is the error type returned by light operations.
type Error struct {
	Kind     Kind
	Op       string // open, write, set, ...
	Endpoint string
	Errno    unix.Errno // zero when no system call was involved
	Err      error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Endpoint != "" {
		msg += " on " + e.Endpoint
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches errors of the same Kind, so callers can test against a template
// such as &Error{Kind: IOFailure}.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

// Code maps err to the numeric convention of the device framework:
// 0 on success, the negated errno when a system call failed, -1 otherwise.
func Code(err error) int {
	if err == nil {
		return 0
	}
	var le *Error
	if errors.As(err, &le) && le.Errno != 0 {
		return -int(le.Errno)
	}
	var errno unix.Errno
	if errors.As(err, &errno) && errno != 0 {
		return -int(errno)
	}
	return -1
}

// IsKind reports whether err is a light error of the given kind.
func IsKind(err error, k Kind) bool {
	var le *Error
	return errors.As(err, &le) && le.Kind == k
}
