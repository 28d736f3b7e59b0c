// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dsmsg

// msgQueue is a FIFO of pending outbound messages (§3.3 send_queue). It is
// an ambient container: spec.md §9 calls only for head-pop/tail-push
// semantics, not any particular container library (see DESIGN.md
// container-utilities).
type msgQueue struct {
	items []*Message
	head  int
}

// pushBack enqueues msg at the tail.
func (q *msgQueue) pushBack(msg *Message) {
	q.items = append(q.items, msg)
}

// popFront dequeues and returns the head of the queue, or nil if empty.
func (q *msgQueue) popFront() *Message {
	if q.head >= len(q.items) {
		return nil
	}
	msg := q.items[q.head]
	q.items[q.head] = nil
	q.head++
	// Reclaim backing storage once fully drained to avoid unbounded growth
	// across long endpoint lifetimes.
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}
	return msg
}

// len reports the number of messages still queued.
func (q *msgQueue) len() int { return len(q.items) - q.head }

// empty reports whether the queue has no pending messages.
func (q *msgQueue) empty() bool { return q.len() == 0 }

// clear drops every queued message (§4.3 die: send_queue becomes empty).
func (q *msgQueue) clear() {
	for i := q.head; i < len(q.items); i++ {
		q.items[i] = nil
	}
	q.items = q.items[:0]
	q.head = 0
}
