// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dsmsg

// Message is an in-memory descriptor for one message in flight, either
// being sent or received (§3.2). It is exclusively owned by whoever
// currently holds the reference: the endpoint while in flight, or the
// caller once received and returned from Recv/WrapBuffer.
type Message struct {
	// Type is the payload kind. Only Buffer is currently defined.
	Type Type
	// Len is the payload length in octets.
	Len int64
	// Buf is the payload buffer. Senders size it exactly Len; receivers
	// allocate Len+1 and leave a trailing zero octet as a convenience for
	// textual payloads (not part of the wire protocol, §9).
	Buf []byte

	hdr          header
	hdrPos       int64 // octets of hdr transferred so far
	bufPos       int64 // octets of Buf transferred so far
	parsedHeader bool
}

// WrapBuffer allocates a new Buffer message, copying b into a freshly
// allocated payload buffer. Cursors start at zero; the header is
// materialised lazily, just before the first send (§3.2).
func WrapBuffer(b []byte) *Message {
	buf := make([]byte, len(b))
	copy(buf, b)
	return &Message{Type: Buffer, Len: int64(len(b)), Buf: buf}
}

// Unwrap transfers payload-buffer ownership to the caller, returning exactly
// Len octets (a received message's trailing zero octet lies just past the
// end of the returned slice). If msg is not a Buffer message, it returns
// ErrNotBuffer and leaves msg untouched.
func (msg *Message) Unwrap() ([]byte, error) {
	if msg.Type != Buffer {
		return nil, ErrNotBuffer
	}
	buf := msg.Buf
	if int64(len(buf)) > msg.Len {
		buf = buf[:msg.Len]
	}
	msg.Buf = nil
	return buf, nil
}

// Discard releases msg's payload buffer. It is safe to call on a nil
// Message.
func (msg *Message) Discard() {
	if msg == nil {
		return
	}
	msg.Buf = nil
}

// newInboundMessage allocates the empty shell an endpoint starts filling
// in at the beginning of receiving a new inbound message (§3.2, §4.3
// flush_recv step 1). The payload buffer is allocated later, once the
// header is parsed and the length is known.
func newInboundMessage() *Message {
	return &Message{}
}
