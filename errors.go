// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dsmsg

import (
	"errors"
	"syscall"

	"code.hybscloud.com/iox"
)

var (
	// ErrInvalidArgument reports a nil Endpoint passed to (*Poller).Add or
	// (*Poller).Remove.
	ErrInvalidArgument = errors.New("dsmsg: invalid argument")

	// ErrTooLong reports a payload length outside the representable range (§3.1).
	ErrTooLong = errors.New("dsmsg: message too long")

	// ErrBadMagic reports a header whose first five octets are not "DSmsg".
	// It is protocol-fatal: the endpoint that observes it transitions to ERRORED.
	ErrBadMagic = errors.New("dsmsg: bad magic")

	// ErrUnknownType reports a header type octet other than BUFFER.
	// It is protocol-fatal, same as ErrBadMagic.
	ErrUnknownType = errors.New("dsmsg: unknown message type")

	// ErrNotBuffer is returned by (*Message).Unwrap when msg.Type != BUFFER.
	ErrNotBuffer = errors.New("dsmsg: not a buffer message")

	// ErrClosed names a closed endpoint. No operation in this package returns
	// it: Send on a closed or errored endpoint drops the message, and Recv and
	// Accept return nil.
	ErrClosed = errors.New("dsmsg: endpoint closed")

	// ErrAlreadyMember is returned by (*Poller).Add when the endpoint is already
	// a member of this poller. Wraps syscall.EEXIST per spec.md §7/§4.5.
	ErrAlreadyMember = newErrnoError("dsmsg: endpoint already added to this poller", syscall.EEXIST)

	// ErrWrongPoller is returned by (*Poller).Add when the endpoint belongs to a
	// different poller. Wraps syscall.EINVAL per spec.md §7/§4.5.
	ErrWrongPoller = newErrnoError("dsmsg: endpoint belongs to a different poller", syscall.EINVAL)

	// ErrNotMember is returned by (*Poller).Remove when the endpoint is not a
	// member of this poller. Wraps syscall.ENOENT per spec.md §7/§4.5.
	ErrNotMember = newErrnoError("dsmsg: endpoint is not a member of this poller", syscall.ENOENT)
)

// These are provided as package-level aliases, exactly as framer.go re-exports
// iox's control-flow sentinels, so callers never need to import iox directly.
var (
	// ErrWouldBlock means "no further progress without waiting". The socket
	// facade reports it for a read, write or accept that cannot progress yet;
	// Wait and PollWait treat it as transient and never return it. Never fatal.
	ErrWouldBlock = iox.ErrWouldBlock

	// ErrMore means "partial progress happened; call again to continue". It is
	// not io.EOF and never fatal.
	ErrMore = iox.ErrMore
)

// errnoError pairs a sentinel message with the syscall.Errno spec.md §7
// names, so callers may use errors.Is(err, syscall.EEXIST) etc. while the
// package still reports a descriptive message via Error().
type errnoError struct {
	msg   string
	errno syscall.Errno
}

func newErrnoError(msg string, errno syscall.Errno) error {
	return &errnoError{msg: msg, errno: errno}
}

func (e *errnoError) Error() string { return e.msg }

func (e *errnoError) Is(target error) bool {
	errno, ok := target.(syscall.Errno)
	return ok && errno == e.errno
}

func (e *errnoError) Unwrap() error { return e.errno }
