// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dsmsg

import (
	"io"
	"time"

	"github.com/rs/xid"

	"code.hybscloud.com/dsmsg/internal/rawsock"
)

// State is an Endpoint's position in its lifecycle (§3.3, §4.3).
type State uint8

const (
	// Listening endpoints accept new connections; accept_slot populates.
	Listening State = iota
	// Connecting endpoints are waiting for a non-blocking connect to resolve.
	Connecting
	// Ready endpoints exchange messages.
	Ready
	// Errored is terminal: no further I/O is attempted.
	Errored
)

func (s State) String() string {
	switch s {
	case Listening:
		return "LISTENING"
	case Connecting:
		return "CONNECTING"
	case Ready:
		return "READY"
	case Errored:
		return "ERRORED"
	default:
		return "UNKNOWN"
	}
}

// Endpoint is a single non-blocking message connection (§3.3). Ownership is
// single-threaded: all operations on one Endpoint (and its Poller, if any)
// must be serialized by the caller.
type Endpoint struct {
	id     xid.ID
	socket rawsock.Socket
	state  State
	err    error

	sendQueue    msgQueue
	sendInflight *Message

	recvInflight *Message
	recvReady    *Message

	acceptSlot *Endpoint

	group *Poller

	readLimit int64
}

// ID returns the endpoint's process-unique identity (§3.4's "endpoint
// identity"): the key a Poller uses for membership and the value its
// Acceptable/Readable/Errored queries report. Poller.Add takes no
// caller-supplied tag, so this ID is the only handle those queries return.
func (ep *Endpoint) ID() xid.ID { return ep.id }

// Addr returns the endpoint's local socket address, resolving an ephemeral
// port ("host:0" passed to Serve) to the one actually bound.
func (ep *Endpoint) Addr() string {
	if ep.socket == nil {
		return ""
	}
	return ep.socket.Addr()
}

// State returns the endpoint's current lifecycle state.
func (ep *Endpoint) State() State { return ep.state }

func newEndpoint(socket rawsock.Socket, state State, readLimit int64) *Endpoint {
	return &Endpoint{
		id:        xid.New(),
		socket:    socket,
		state:     state,
		readLimit: readLimit,
	}
}

// Send appends msg to the outbound queue. It performs no I/O: ownership of
// msg transfers to the endpoint (§4.4).
func (ep *Endpoint) Send(msg *Message) {
	if ep.state == Errored || msg == nil {
		return
	}
	ep.sendQueue.pushBack(msg)
}

// Recv returns and clears the completed inbound message, or nil if none is
// ready yet. It also removes ep from its group's readable set (§4.4).
func (ep *Endpoint) Recv() *Message {
	msg := ep.recvReady
	ep.recvReady = nil
	if ep.group != nil {
		ep.group.unmarkReadable(ep.id)
	}
	return msg
}

// Accept returns and clears a newly accepted child endpoint, or nil if
// none is waiting. Only meaningful on a Listening endpoint (§4.4).
func (ep *Endpoint) Accept() *Endpoint {
	child := ep.acceptSlot
	ep.acceptSlot = nil
	if ep.group != nil {
		ep.group.unmarkAcceptable(ep.id)
	}
	return child
}

// GetError returns nil unless the endpoint is Errored, in which case it
// returns the captured error (§4.4).
func (ep *Endpoint) GetError() error {
	if ep.state != Errored {
		return nil
	}
	return ep.err
}

// Close transitions the endpoint to Errored with a clean (nil) error,
// leaves its Poller (if any), and releases the socket. Repeated Close and
// Close of a nil Endpoint are both safe no-ops (§8 invariant 3); the
// underlying socket's Close is idempotent, so Close always attempts it
// regardless of whether the endpoint had already errored on its own.
func (ep *Endpoint) Close() error {
	if ep == nil {
		return nil
	}
	ep.die(nil)
	if ep.group != nil {
		// die() scrubs readiness sets only on the transition into Errored; an
		// endpoint that had already errored on its own is still in the errored
		// set, so drop it from every set along with group membership.
		g := ep.group
		g.unmarkAcceptable(ep.id)
		g.unmarkReadable(ep.id)
		g.unmarkErrored(ep.id)
		delete(g.members, ep.id)
		ep.group = nil
	}
	if ep.socket != nil {
		return ep.socket.Close()
	}
	return nil
}

// Wait blocks on this single endpoint until recv_ready or accept_slot is
// populated, the deadline elapses, or it is already Errored (§4.3/§5 wait,
// the single-endpoint sibling of Poller.PollWait). A negative timeout waits
// indefinitely. A zero timeout checks only already-buffered results and
// returns without ever touching the socket, per §8's "wait(e, now) ...
// returns 0 without touching the socket" timeout case.
func (ep *Endpoint) Wait(timeout time.Duration) error {
	var deadline time.Time
	hasDeadline := timeout >= 0
	if hasDeadline {
		deadline = time.Now().Add(timeout)
	}

	var prevRevents rawsock.Events
	for {
		// Step 2: opportunistically drain progress buffered by the
		// previous iteration's sleep before checking for readiness.
		if prevRevents != 0 {
			ep.handleRevents(prevRevents)
			prevRevents = 0
		}

		if ep.state == Errored || ep.recvReady != nil || ep.acceptSlot != nil {
			return nil
		}

		ev := ep.pollEvents()
		if ev == 0 {
			return nil
		}

		remaining := time.Duration(-1)
		if hasDeadline {
			remaining = time.Until(deadline)
			if remaining <= 0 {
				return nil
			}
		}

		fds := []rawsock.PollFd{{Fd: ep.socket.Fd(), Events: ev}}
		if _, err := rawsock.Poll(fds, remaining); err != nil {
			return err
		}
		prevRevents = fds[0].Revents
	}
}

// pollEvents computes the poll events this endpoint currently wants,
// performing no I/O (§4.3 "Poll event computation").
func (ep *Endpoint) pollEvents() rawsock.Events {
	switch ep.state {
	case Listening:
		if ep.acceptSlot == nil {
			return rawsock.EventRead
		}
		return 0
	case Connecting:
		return rawsock.EventWrite
	case Ready:
		var ev rawsock.Events
		if ep.sendInflight != nil || !ep.sendQueue.empty() {
			ev |= rawsock.EventWrite
		}
		if ep.recvReady == nil {
			ev |= rawsock.EventRead
		}
		return ev
	default: // Errored
		return 0
	}
}

// flushResult classifies the outcome of one flushSend/flushRecv pass.
type flushResult uint8

const (
	flushDone    flushResult = iota // no more progress possible right now
	flushWaiting                    // iox.ErrWouldBlock: try again once ready
	flushFatal                      // transport/protocol fatal; caller should die()
)

// flushSend drains as much of the outbound queue as the socket accepts
// without blocking (§4.3 flush_send).
func (ep *Endpoint) flushSend() (flushResult, error) {
	for {
		if ep.sendInflight == nil {
			msg := ep.sendQueue.popFront()
			if msg == nil {
				return flushDone, nil
			}
			writeHeader(&msg.hdr, msg.Type, msg.Len)
			ep.sendInflight = msg
		}
		msg := ep.sendInflight

		if msg.hdrPos < HeaderSize {
			n, err := ep.socket.Write(msg.hdr[msg.hdrPos:HeaderSize])
			msg.hdrPos += int64(n)
			if res, rerr, ok := classifyIO(n, err); !ok {
				return res, rerr
			}
			continue
		}
		if msg.bufPos < msg.Len {
			n, err := ep.socket.Write(msg.Buf[msg.bufPos:msg.Len])
			msg.bufPos += int64(n)
			if res, rerr, ok := classifyIO(n, err); !ok {
				return res, rerr
			}
			continue
		}

		if ep.group != nil {
			ep.group.noteMessageSent(msg.Len)
		}
		ep.sendInflight = nil
	}
}

// flushRecv advances the in-progress inbound message as far as the socket
// allows without blocking, stopping once a message completes into
// recvReady (§4.3 flush_recv).
func (ep *Endpoint) flushRecv() (flushResult, error) {
	for ep.recvReady == nil {
		if ep.recvInflight == nil {
			ep.recvInflight = newInboundMessage()
		}
		msg := ep.recvInflight

		if msg.hdrPos < HeaderSize {
			n, err := ep.socket.Read(msg.hdr[msg.hdrPos:HeaderSize])
			msg.hdrPos += int64(n)
			if res, rerr, ok := classifyIO(n, err); !ok {
				return res, rerr
			}
			continue
		}
		if !msg.parsedHeader {
			typ, length, err := readHeader(&msg.hdr)
			if err != nil {
				return flushFatal, err
			}
			if ep.readLimit > 0 && length > ep.readLimit {
				return flushFatal, ErrTooLong
			}
			msg.Type = typ
			msg.Len = length
			msg.Buf = make([]byte, length+1) // +1 trailing zero octet, §9
			msg.parsedHeader = true
			continue
		}
		if msg.bufPos < msg.Len {
			n, err := ep.socket.Read(msg.Buf[msg.bufPos:msg.Len])
			msg.bufPos += int64(n)
			if res, rerr, ok := classifyIO(n, err); !ok {
				return res, rerr
			}
			continue
		}

		if ep.group != nil {
			ep.group.noteMessageReceived(msg.Len)
		}
		ep.recvReady = msg
		ep.recvInflight = nil
	}
	return flushDone, nil
}

// classifyIO turns one Read/Write result into a flush outcome. ok==true
// means the caller should keep looping because a cursor advanced;
// ok==false means the caller should return (res, err) immediately.
func classifyIO(n int, err error) (res flushResult, rerr error, ok bool) {
	if err == nil {
		if n == 0 {
			// A non-blocking socket only returns (0, nil) on orderly peer
			// shutdown; EAGAIN/EWOULDBLOCK surfaces as ErrWouldBlock instead.
			// Treat it the same as an explicit io.EOF (§4.3, §7).
			return flushFatal, io.ErrUnexpectedEOF, false
		}
		return flushDone, nil, true
	}
	if err == ErrWouldBlock {
		return flushWaiting, nil, false
	}
	if err == io.EOF {
		return flushFatal, io.ErrUnexpectedEOF, false
	}
	return flushFatal, err, false
}

// handleRevents applies one poll result to the endpoint, advancing its
// state machine (§4.3 handle_revents). It is a no-op on an Errored
// endpoint, and refreshes the owning Poller's readiness sets afterward.
func (ep *Endpoint) handleRevents(revents rawsock.Events) {
	if ep.state == Errored {
		return
	}

	switch ep.state {
	case Connecting:
		if revents&rawsock.EventWrite != 0 {
			if perr := ep.socket.PendingError(); perr != nil {
				ep.die(perr)
			} else {
				ep.state = Ready
			}
		}

	case Ready:
		if revents&rawsock.EventWrite != 0 {
			if res, err := ep.flushSend(); res == flushFatal {
				ep.die(err)
			}
		}
		if ep.state == Ready && revents&rawsock.EventRead != 0 {
			if res, err := ep.flushRecv(); res == flushFatal {
				ep.die(err)
			}
		}

	case Listening:
		if revents&rawsock.EventRead != 0 && ep.acceptSlot == nil {
			child, err := ep.socket.Accept()
			if err != nil {
				if err != ErrWouldBlock {
					ep.die(err)
				}
				break
			}
			ep.acceptSlot = newEndpoint(child, Ready, ep.readLimit)
		}
	}

	ep.refreshGroup()
}

// refreshGroup updates the owning Poller's readiness sets to reflect this
// endpoint's post-handleRevents condition (§4.3 "After handling, refresh
// the owning aggregator's readiness sets").
func (ep *Endpoint) refreshGroup() {
	if ep.group == nil {
		return
	}
	if ep.state == Errored {
		ep.group.markErrored(ep.id)
	}
	if ep.recvReady != nil {
		ep.group.markReadable(ep.id)
	}
	if ep.acceptSlot != nil {
		ep.group.markAcceptable(ep.id)
	}
}

// die marks the endpoint Errored, records err, and clears every in-flight
// slot and the outbound queue (§4.3 die, §8 invariant 4). A nil err (clean
// close) removes ep from its group's errored set instead of inserting it.
func (ep *Endpoint) die(err error) {
	if ep.state == Errored {
		return
	}
	ep.state = Errored
	ep.err = err
	ep.sendQueue.clear()
	ep.sendInflight = nil
	ep.recvInflight = nil
	ep.recvReady = nil
	ep.acceptSlot = nil

	if ep.group != nil {
		ep.group.unmarkAcceptable(ep.id)
		ep.group.unmarkReadable(ep.id)
		if err != nil {
			ep.group.markErrored(ep.id)
			ep.group.noteEndpointError()
		} else {
			ep.group.unmarkErrored(ep.id)
		}
	}
}
