// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dsmsg

import (
	"time"

	"github.com/rs/xid"

	"code.hybscloud.com/dsmsg/internal/rawsock"
)

// Poller aggregates many endpoints' readiness behind a single wait call
// (§3.4, §4.5). An Endpoint belongs to at most one Poller at a time; a
// Poller owns no endpoints (closing it does not close its members).
type Poller struct {
	members map[xid.ID]*Endpoint

	acceptable map[xid.ID]struct{}
	readable   map[xid.ID]struct{}
	errored    map[xid.ID]struct{}

	closed bool

	// Monotonic lifetime totals across every endpoint that has ever been a
	// member, surfaced by PollerCollector. They survive member removal, so
	// they never decrease (§2 "messages/bytes sent and received, endpoint
	// errors").
	messagesSent, bytesSent         uint64
	messagesReceived, bytesReceived uint64
	endpointErrors                  uint64
}

// NewPoller creates an empty poll-aggregator (§4.5 poll_create).
func NewPoller() *Poller {
	return &Poller{
		members:    make(map[xid.ID]*Endpoint),
		acceptable: make(map[xid.ID]struct{}),
		readable:   make(map[xid.ID]struct{}),
		errored:    make(map[xid.ID]struct{}),
	}
}

func (p *Poller) noteMessageSent(n int64) {
	p.messagesSent++
	p.bytesSent += uint64(n)
}

func (p *Poller) noteMessageReceived(n int64) {
	p.messagesReceived++
	p.bytesReceived += uint64(n)
}

func (p *Poller) noteEndpointError() {
	p.endpointErrors++
}

// Add registers ep as a member (§4.5 poll_add). It returns ErrAlreadyMember
// if ep already belongs to this Poller, or ErrWrongPoller if ep belongs to
// a different one.
func (p *Poller) Add(ep *Endpoint) error {
	if ep == nil {
		return ErrInvalidArgument
	}
	if ep.group == p {
		return ErrAlreadyMember
	}
	if ep.group != nil {
		return ErrWrongPoller
	}
	ep.group = p
	p.members[ep.id] = ep
	ep.refreshGroup()
	return nil
}

// Remove unregisters ep (§4.5 poll_remove), returning ErrNotMember if ep is
// not currently a member of this Poller.
func (p *Poller) Remove(ep *Endpoint) error {
	if ep == nil {
		return ErrInvalidArgument
	}
	if ep.group != p {
		return ErrNotMember
	}
	delete(p.members, ep.id)
	delete(p.acceptable, ep.id)
	delete(p.readable, ep.id)
	delete(p.errored, ep.id)
	ep.group = nil
	return nil
}

// Acceptable returns the IDs of member endpoints with a connection waiting
// in their accept slot (§4.5 poll_acceptable).
func (p *Poller) Acceptable() []xid.ID { return keysOf(p.acceptable) }

// Readable returns the IDs of member endpoints with a completed message
// waiting in their ready-receive slot (§4.5 poll_readable).
func (p *Poller) Readable() []xid.ID { return keysOf(p.readable) }

// Errored returns the IDs of member endpoints that transitioned to
// ERRORED (§4.5 poll_errored).
func (p *Poller) Errored() []xid.ID { return keysOf(p.errored) }

func keysOf(m map[xid.ID]struct{}) []xid.ID {
	out := make([]xid.ID, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	return out
}

func (p *Poller) markAcceptable(id xid.ID)   { p.acceptable[id] = struct{}{} }
func (p *Poller) unmarkAcceptable(id xid.ID) { delete(p.acceptable, id) }
func (p *Poller) markReadable(id xid.ID)     { p.readable[id] = struct{}{} }
func (p *Poller) unmarkReadable(id xid.ID)   { delete(p.readable, id) }
func (p *Poller) markErrored(id xid.ID)      { p.errored[id] = struct{}{} }
func (p *Poller) unmarkErrored(id xid.ID)    { delete(p.errored, id) }

// PollWait blocks until at least one member becomes acceptable, readable,
// or errored, or the timeout elapses (§4.5/§5 poll_wait). A negative
// timeout waits indefinitely; zero checks only already-buffered results
// and returns without ever touching any member's socket. Dispatch of a
// sleep's revents is always deferred to the following iteration's
// pre-sleep handling, keeping the dispatch path unique (§5 step 5).
func (p *Poller) PollWait(timeout time.Duration) error {
	if len(p.members) == 0 {
		return nil
	}

	var deadline time.Time
	hasDeadline := timeout >= 0
	if hasDeadline {
		deadline = time.Now().Add(timeout)
	}

	var prevIDs []xid.ID
	var prevRevents []rawsock.Events
	for {
		for i, id := range prevIDs {
			if prevRevents[i] == 0 {
				continue
			}
			if ep := p.members[id]; ep != nil {
				ep.handleRevents(prevRevents[i])
			}
		}
		prevIDs, prevRevents = nil, nil

		if p.hasPendingResults() {
			return nil
		}

		ids := make([]xid.ID, 0, len(p.members))
		fds := make([]rawsock.PollFd, 0, len(p.members))
		for id, ep := range p.members {
			if ep.state == Errored {
				continue
			}
			ev := ep.pollEvents()
			if ev == 0 {
				continue
			}
			ids = append(ids, id)
			fds = append(fds, rawsock.PollFd{Fd: ep.socket.Fd(), Events: ev})
		}
		if len(fds) == 0 {
			return nil
		}

		remaining := time.Duration(-1)
		if hasDeadline {
			remaining = time.Until(deadline)
			if remaining <= 0 {
				return nil
			}
		}

		if _, err := rawsock.Poll(fds, remaining); err != nil {
			return err
		}

		prevIDs = ids
		prevRevents = make([]rawsock.Events, len(fds))
		for i := range fds {
			prevRevents[i] = fds[i].Revents
		}
	}
}

func (p *Poller) hasPendingResults() bool {
	return len(p.acceptable) > 0 || len(p.readable) > 0 || len(p.errored) > 0
}

// Close releases the Poller. Member endpoints are detached (their group
// pointer cleared) but not closed: a Poller never owns its members (§4.5).
func (p *Poller) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	for _, ep := range p.members {
		ep.group = nil
	}
	p.members = nil
	p.acceptable = nil
	p.readable = nil
	p.errored = nil
	return nil
}
