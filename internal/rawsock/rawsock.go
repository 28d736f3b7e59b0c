// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rawsock

import "time"

// Events is a platform-independent mask of poll readiness conditions.
type Events uint8

const (
	// EventRead requests/reports read readiness (POLLIN).
	EventRead Events = 1 << iota
	// EventWrite requests/reports write readiness (POLLOUT).
	EventWrite
)

// PollFd pairs a raw fd with the events a caller wants reported on it.
// On return from Poll, Revents holds the events actually observed.
type PollFd struct {
	Fd      int
	Events  Events
	Revents Events
}

// Socket is the capability dsmsg's core endpoint state machine requires
// from the underlying transport (spec.md §6.3): non-blocking
// serve/connect/accept, fd extraction, and close. The core never imports
// golang.org/x/sys/unix directly; it only depends on this interface.
type Socket interface {
	// Fd returns the raw file descriptor, for use with Poll.
	Fd() int
	// Addr returns the socket's local address (e.g. "127.0.0.1:54321"),
	// resolved from the kernel so callers of Serve with an ephemeral port
	// ("host:0") can discover the bound port.
	Addr() string
	// Read attempts a non-blocking read. It never blocks: on EAGAIN/EWOULDBLOCK
	// or EINTR it returns (0, iox.ErrWouldBlock).
	Read(p []byte) (int, error)
	// Write attempts a non-blocking write. It never blocks: on EAGAIN/EWOULDBLOCK
	// or EINTR it returns (0, iox.ErrWouldBlock).
	Write(p []byte) (int, error)
	// PendingError returns the socket-level pending error (SO_ERROR), used to
	// resolve a CONNECTING endpoint once its fd reports writable.
	PendingError() error
	// Accept performs a non-waiting accept: it must be called only after the
	// listening fd has been reported readable, and returns iox.ErrWouldBlock
	// if, despite that, no connection is ready yet.
	Accept() (Socket, error)
	// Close releases the underlying fd. Idempotent.
	Close() error
}

// ServeAddress starts listening on network/address (e.g. "tcp", "host:port")
// and returns a non-blocking listening Socket (spec.md §4.4 serve).
func ServeAddress(network, address string, backlog int) (Socket, error) {
	return serveAddress(network, address, backlog)
}

// DialAddress starts a non-blocking connect to network/address and returns
// immediately; the caller observes completion via Poll + PendingError
// (spec.md §4.4 connect).
func DialAddress(network, address string) (Socket, error) {
	return dialAddress(network, address)
}

// Poll blocks until at least one fd in fds is ready, the deadline elapses,
// or the wait is interrupted. Interruption (EINTR) is reported exactly like
// a timeout (n==0, err==nil), never as an error, per spec.md §5
// "Cancellation". A negative duration waits with no deadline; a zero
// duration polls without blocking.
func Poll(fds []PollFd, timeout time.Duration) (n int, err error) {
	return poll(fds, timeout)
}
