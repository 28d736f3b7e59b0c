//go:build unix

// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rawsock

import (
	"net"
	"strconv"
	"time"

	"golang.org/x/sys/unix"

	"code.hybscloud.com/iox"
)

// fdSocket is the concrete Socket implementation: a raw, non-blocking fd.
//
// Grounded on e030e212_walteh-gvisor__pkg-unet-unet_unsafe_darwin.go's
// "try a non-blocking syscall first, translate EAGAIN into a retry signal"
// shape (there: ReadVec/WriteVec around unix.Recvmsg/Sendmsg; here:
// unix.Read/unix.Write), adapted from a caller-driven retry loop to
// dsmsg's caller-driven-by-Poll model.
type fdSocket struct {
	fd int
}

func (s *fdSocket) Fd() int { return s.fd }

func (s *fdSocket) Addr() string {
	sa, err := unix.Getsockname(s.fd)
	if err != nil {
		return ""
	}
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return net.JoinHostPort(net.IP(sa.Addr[:]).String(), strconv.Itoa(sa.Port))
	case *unix.SockaddrInet6:
		return net.JoinHostPort(net.IP(sa.Addr[:]).String(), strconv.Itoa(sa.Port))
	default:
		return ""
	}
}

func (s *fdSocket) Close() error {
	if s.fd < 0 {
		return nil
	}
	err := unix.Close(s.fd)
	s.fd = -1
	return err
}

func (s *fdSocket) Read(p []byte) (int, error) {
	n, err := unix.Read(s.fd, p)
	if err != nil {
		return 0, translateErrno(err)
	}
	return n, nil
}

func (s *fdSocket) Write(p []byte) (int, error) {
	n, err := unix.Write(s.fd, p)
	if err != nil {
		return 0, translateErrno(err)
	}
	return n, nil
}

func (s *fdSocket) PendingError() error {
	errno, err := unix.GetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if errno == 0 {
		return nil
	}
	return unix.Errno(errno)
}

func (s *fdSocket) Accept() (Socket, error) {
	nfd, _, err := unix.Accept(s.fd)
	if err != nil {
		return nil, translateErrno(err)
	}
	if err := unix.SetNonblock(nfd, true); err != nil {
		_ = unix.Close(nfd)
		return nil, err
	}
	return &fdSocket{fd: nfd}, nil
}

// translateErrno maps the transient errno family spec.md §7 names (EINTR,
// EAGAIN/EWOULDBLOCK, EINPROGRESS, EALREADY, EISCONN) to iox.ErrWouldBlock;
// everything else is returned unchanged for the endpoint state machine to
// treat as fatal.
func translateErrno(err error) error {
	switch err {
	case unix.EAGAIN, unix.EWOULDBLOCK, unix.EINTR, unix.EINPROGRESS, unix.EALREADY, unix.EISCONN:
		return iox.ErrWouldBlock
	default:
		return err
	}
}

func serveAddress(network, address string, backlog int) (Socket, error) {
	sa, domain, err := resolveSockaddr(network, address)
	if err != nil {
		return nil, err
	}
	fd, err := unix.Socket(domain, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, err
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	if backlog <= 0 {
		backlog = 128
	}
	if err := unix.Listen(fd, backlog); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	return &fdSocket{fd: fd}, nil
}

func dialAddress(network, address string) (Socket, error) {
	sa, domain, err := resolveSockaddr(network, address)
	if err != nil {
		return nil, err
	}
	fd, err := unix.Socket(domain, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	err = unix.Connect(fd, sa)
	if err != nil && translateErrno(err) != iox.ErrWouldBlock {
		_ = unix.Close(fd)
		return nil, err
	}
	// err == nil (connected synchronously, e.g. to localhost) or a transient
	// EINPROGRESS: either way the caller drives completion via Poll +
	// PendingError, matching the CONNECTING state (spec.md §4.3).
	return &fdSocket{fd: fd}, nil
}

// resolveSockaddr resolves "host:port" into a unix.Sockaddr and the socket
// domain (AF_INET/AF_INET6) to create. network is currently expected to be
// "tcp" (IPv4/IPv6 chosen from the resolved address).
func resolveSockaddr(network, address string) (unix.Sockaddr, int, error) {
	addr, err := net.ResolveTCPAddr(network, address)
	if err != nil {
		return nil, 0, err
	}
	if ip4 := addr.IP.To4(); ip4 != nil {
		var sa unix.SockaddrInet4
		sa.Port = addr.Port
		copy(sa.Addr[:], ip4)
		return &sa, unix.AF_INET, nil
	}
	ip6 := addr.IP.To16()
	if ip6 == nil {
		// Unspecified address ("":port or nil IP): bind/connect to all
		// interfaces over IPv4, matching net.Listen's default.
		var sa unix.SockaddrInet4
		sa.Port = addr.Port
		return &sa, unix.AF_INET, nil
	}
	var sa unix.SockaddrInet6
	sa.Port = addr.Port
	copy(sa.Addr[:], ip6)
	return &sa, unix.AF_INET6, nil
}

func poll(fds []PollFd, timeout time.Duration) (int, error) {
	raw := make([]unix.PollFd, len(fds))
	for i, f := range fds {
		var ev int16
		if f.Events&EventRead != 0 {
			ev |= unix.POLLIN
		}
		if f.Events&EventWrite != 0 {
			ev |= unix.POLLOUT
		}
		raw[i] = unix.PollFd{Fd: int32(f.Fd), Events: ev}
	}

	ms := durationToPollTimeout(timeout)
	n, err := unix.Poll(raw, ms)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}

	for i := range raw {
		var revents Events
		if raw[i].Revents&unix.POLLIN != 0 {
			revents |= EventRead
		}
		if raw[i].Revents&unix.POLLOUT != 0 {
			revents |= EventWrite
		}
		// POLLHUP/POLLERR/POLLNVAL surface as both read- and write-ready so
		// the endpoint state machine's next flush/handshake attempt observes
		// the underlying fatal condition via the resulting I/O error.
		if raw[i].Revents&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
			revents |= EventRead | EventWrite
		}
		fds[i].Revents = revents
	}
	return n, nil
}

func durationToPollTimeout(d time.Duration) int {
	if d < 0 {
		return -1
	}
	if d == 0 {
		return 0
	}
	ms := d.Milliseconds()
	if ms <= 0 {
		// Sub-millisecond positive deadlines still get a minimal real wait
		// rather than collapsing to a non-blocking (zero-timeout) poll.
		return 1
	}
	return int(ms)
}
