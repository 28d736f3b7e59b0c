// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dsmsg

import (
	"errors"
	"io"
	"testing"

	"code.hybscloud.com/dsmsg/internal/rawsock"
)

// fakeSocket is a scripted rawsock.Socket for exercising the endpoint state
// machine without a real fd, in the same spirit as framer's scriptedReader
// (see hayabusa-cloud-framer/internal_test.go).
type fakeSocket struct {
	readSteps  []step
	writeSteps []step
	readIdx    int
	writeIdx   int

	pendingErr error
	accepted   []rawsock.Socket
	acceptErr  error

	closed bool
}

type step struct {
	b   []byte
	err error
}

func (s *fakeSocket) Fd() int { return 0 }

func (s *fakeSocket) Addr() string { return "" }

func (s *fakeSocket) Read(p []byte) (int, error) {
	if s.readIdx >= len(s.readSteps) {
		return 0, ErrWouldBlock
	}
	st := s.readSteps[s.readIdx]
	s.readIdx++
	n := copy(p, st.b)
	return n, st.err
}

func (s *fakeSocket) Write(p []byte) (int, error) {
	if s.writeIdx >= len(s.writeSteps) {
		return 0, ErrWouldBlock
	}
	st := s.writeSteps[s.writeIdx]
	s.writeIdx++
	n := len(st.b)
	if n > len(p) {
		n = len(p)
	}
	return n, st.err
}

func (s *fakeSocket) PendingError() error { return s.pendingErr }

func (s *fakeSocket) Accept() (rawsock.Socket, error) {
	if len(s.accepted) == 0 {
		if s.acceptErr != nil {
			return nil, s.acceptErr
		}
		return nil, ErrWouldBlock
	}
	sock := s.accepted[0]
	s.accepted = s.accepted[1:]
	return sock, nil
}

func (s *fakeSocket) Close() error {
	s.closed = true
	return nil
}

func newScriptedSocket(chunks ...[]byte) *fakeSocket {
	sock := &fakeSocket{}
	for _, c := range chunks {
		sock.readSteps = append(sock.readSteps, step{b: c})
	}
	return sock
}

func TestEndpointSendFlushesWholeMessage(t *testing.T) {
	sock := &fakeSocket{writeSteps: []step{
		{b: make([]byte, HeaderSize)},
		{b: []byte("hi")},
	}}
	ep := newEndpoint(sock, Ready, 0)
	ep.Send(WrapBuffer([]byte("hi")))

	res, err := ep.flushSend()
	if err != nil {
		t.Fatalf("flushSend: %v", err)
	}
	if res != flushDone {
		t.Fatalf("res = %v, want flushDone", res)
	}
	if ep.sendInflight != nil {
		t.Fatalf("sendInflight not cleared")
	}
	if !ep.sendQueue.empty() {
		t.Fatalf("send queue not drained")
	}
}

func TestEndpointSendPartialWriteWouldBlock(t *testing.T) {
	sock := &fakeSocket{writeSteps: []step{
		{b: make([]byte, HeaderSize)},
		// no payload step: the payload write would-blocks at once
	}}
	ep := newEndpoint(sock, Ready, 0)
	ep.Send(WrapBuffer([]byte("hello world")))

	res, err := ep.flushSend()
	if res != flushWaiting || err != nil {
		t.Fatalf("res, err = %v, %v; want flushWaiting, nil", res, err)
	}
	if ep.sendInflight == nil {
		t.Fatalf("sendInflight cleared despite incomplete write")
	}
	if ep.sendInflight.hdrPos != HeaderSize {
		t.Fatalf("hdrPos = %d, want %d", ep.sendInflight.hdrPos, HeaderSize)
	}
}

func TestEndpointRecvCompletesMessage(t *testing.T) {
	var hdr header
	writeHeader(&hdr, Buffer, 3)
	sock := newScriptedSocket(hdr[:], []byte("abc"))
	ep := newEndpoint(sock, Ready, 0)

	res, err := ep.flushRecv()
	if err != nil {
		t.Fatalf("flushRecv: %v", err)
	}
	if res != flushDone {
		t.Fatalf("res = %v, want flushDone", res)
	}
	if ep.recvReady == nil {
		t.Fatalf("recvReady not populated")
	}
	if string(ep.recvReady.Buf[:ep.recvReady.Len]) != "abc" {
		t.Fatalf("payload = %q, want %q", ep.recvReady.Buf[:ep.recvReady.Len], "abc")
	}
}

func TestEndpointRecvBadMagicDies(t *testing.T) {
	badHdr := make([]byte, HeaderSize)
	copy(badHdr, "XXXXX")
	sock := newScriptedSocket(badHdr)
	ep := newEndpoint(sock, Ready, 0)

	res, err := ep.flushRecv()
	if res != flushFatal || !errors.Is(err, ErrBadMagic) {
		t.Fatalf("res, err = %v, %v; want flushFatal, ErrBadMagic", res, err)
	}
	ep.die(err)
	if ep.State() != Errored {
		t.Fatalf("state = %v, want Errored", ep.State())
	}
	if !errors.Is(ep.GetError(), ErrBadMagic) {
		t.Fatalf("GetError = %v, want ErrBadMagic", ep.GetError())
	}
}

func TestEndpointReadLimitRejectsOversizedMessage(t *testing.T) {
	var hdr header
	writeHeader(&hdr, Buffer, 100)
	sock := newScriptedSocket(hdr[:])
	ep := newEndpoint(sock, Ready, 10)

	res, err := ep.flushRecv()
	if res != flushFatal || !errors.Is(err, ErrTooLong) {
		t.Fatalf("res, err = %v, %v; want flushFatal, ErrTooLong", res, err)
	}
}

func TestEndpointRecvPeerEOFIsFatal(t *testing.T) {
	// A non-blocking Read returning (0, nil) only happens on orderly peer
	// shutdown; EAGAIN/EWOULDBLOCK would come back as ErrWouldBlock instead.
	sock := &fakeSocket{readSteps: []step{{}}}
	ep := newEndpoint(sock, Ready, 0)

	res, err := ep.flushRecv()
	if res != flushFatal || !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("res, err = %v, %v; want flushFatal, io.ErrUnexpectedEOF", res, err)
	}
}

func TestEndpointSendPeerEOFIsFatal(t *testing.T) {
	sock := &fakeSocket{writeSteps: []step{{}}}
	ep := newEndpoint(sock, Ready, 0)
	ep.Send(WrapBuffer([]byte("hi")))

	res, err := ep.flushSend()
	if res != flushFatal || !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("res, err = %v, %v; want flushFatal, io.ErrUnexpectedEOF", res, err)
	}
}

func TestEndpointCloseIsIdempotent(t *testing.T) {
	sock := &fakeSocket{}
	ep := newEndpoint(sock, Ready, 0)
	if err := ep.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := ep.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if !sock.closed {
		t.Fatalf("underlying socket never closed")
	}
}

func TestEndpointCloseAfterSelfErrorClosesSocket(t *testing.T) {
	sock := &fakeSocket{}
	ep := newEndpoint(sock, Ready, 0)
	ep.die(errTestBoom)
	if ep.State() != Errored {
		t.Fatalf("state = %v, want Errored", ep.State())
	}

	if err := ep.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !sock.closed {
		t.Fatalf("Close must release the socket even after a self-inflicted error")
	}
}

func TestEndpointCloseNilReceiver(t *testing.T) {
	var ep *Endpoint
	if err := ep.Close(); err != nil {
		t.Fatalf("Close on nil endpoint: %v", err)
	}
}

func TestEndpointDieClearsQueues(t *testing.T) {
	sock := &fakeSocket{}
	ep := newEndpoint(sock, Ready, 0)
	ep.Send(WrapBuffer([]byte("queued")))
	ep.die(errTestBoom)

	if !ep.sendQueue.empty() {
		t.Fatalf("sendQueue not cleared on die")
	}
	if ep.State() != Errored {
		t.Fatalf("state = %v, want Errored", ep.State())
	}
}

func TestEndpointAcceptPopulatesSlot(t *testing.T) {
	childSock := &fakeSocket{}
	listener := &fakeSocket{accepted: []rawsock.Socket{childSock}}
	ep := newEndpoint(listener, Listening, 0)

	ep.handleRevents(rawsock.EventRead)
	child := ep.Accept()
	if child == nil {
		t.Fatalf("Accept returned nil after a ready listener")
	}
	if child.State() != Ready {
		t.Fatalf("accepted child state = %v, want Ready", child.State())
	}
	if ep.Accept() != nil {
		t.Fatalf("second Accept should return nil")
	}
}

func TestEndpointConnectingResolvesToReady(t *testing.T) {
	sock := &fakeSocket{pendingErr: nil}
	ep := newEndpoint(sock, Connecting, 0)

	ep.handleRevents(rawsock.EventWrite)
	if ep.State() != Ready {
		t.Fatalf("state = %v, want Ready", ep.State())
	}
}

func TestEndpointConnectingPendingErrorDies(t *testing.T) {
	sock := &fakeSocket{pendingErr: errTestBoom}
	ep := newEndpoint(sock, Connecting, 0)

	ep.handleRevents(rawsock.EventWrite)
	if ep.State() != Errored {
		t.Fatalf("state = %v, want Errored", ep.State())
	}
	if !errors.Is(ep.GetError(), errTestBoom) {
		t.Fatalf("GetError = %v, want errTestBoom", ep.GetError())
	}
}

var errTestBoom = errors.New("boom")
