// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package dsmsg is a non-blocking, length-prefixed message transport.
//
// Semantics and design:
//   - Non-blocking first: an Endpoint never blocks its caller. Send enqueues;
//     Recv and Accept return immediately with whatever is ready, or nil.
//     Progress only happens inside Wait or a Poller's PollWait.
//   - One socket, one Endpoint: each Endpoint owns exactly one send queue,
//     one in-flight send, one in-flight receive, one ready-receive slot, and
//     (for listeners) one pending-accept slot (spec.md §3.3).
//   - Wire format: a fixed 16-byte header ("DSmsg" magic, 2 reserved bytes,
//     1 type byte, 8-byte big-endian length) followed by the payload
//     (spec.md §3.1/§3.2).
//   - Fan-out: a Poller aggregates many endpoints behind one PollWait call,
//     tracking which members are acceptable, readable, or errored without
//     performing I/O on the caller's behalf between calls (spec.md §3.4).
//
// iox.ErrWouldBlock and iox.ErrMore are re-exported as ErrWouldBlock and
// ErrMore: neither is ever returned to a Send/Recv/Accept caller directly
// (those calls never block). ErrWouldBlock classifies the transient
// conditions Wait/PollWait handle internally; nothing in this package
// produces ErrMore.
package dsmsg

import "code.hybscloud.com/dsmsg/internal/rawsock"

// Serve starts listening on network/address (e.g. "tcp", "127.0.0.1:0") and
// returns a Listening endpoint. Accepted connections appear, one at a time,
// in its accept slot (spec.md §4.4 serve).
func Serve(network, address string, opts ...Option) (*Endpoint, error) {
	o := defaultOptions
	for _, opt := range opts {
		opt(&o)
	}
	sock, err := rawsock.ServeAddress(network, address, o.Backlog)
	if err != nil {
		return nil, err
	}
	return newEndpoint(sock, Listening, o.ReadLimit), nil
}

// Connect starts a non-blocking connection attempt to network/address and
// returns a Connecting endpoint immediately; the caller observes the
// transition to Ready (or Errored) via Wait/PollWait (spec.md §4.4 connect).
func Connect(network, address string, opts ...Option) (*Endpoint, error) {
	o := defaultOptions
	for _, opt := range opts {
		opt(&o)
	}
	sock, err := rawsock.DialAddress(network, address)
	if err != nil {
		return nil, err
	}
	return newEndpoint(sock, Connecting, o.ReadLimit), nil
}
