package main

import (
	"bytes"
	"net"
	"testing"
	"time"
)

// bufConn is a minimal net.Conn backed by an in-memory buffer, used to
// capture what a handler wrote without needing a real socket or goroutine.
type bufConn struct {
	out bytes.Buffer
	in  bytes.Reader
}

func (c *bufConn) Read(b []byte) (int, error)         { return c.in.Read(b) }
func (c *bufConn) Write(b []byte) (int, error)        { return c.out.Write(b) }
func (c *bufConn) Close() error                       { return nil }
func (c *bufConn) LocalAddr() net.Addr                { return dummyAddr{} }
func (c *bufConn) RemoteAddr() net.Addr               { return dummyAddr{} }
func (c *bufConn) SetDeadline(time.Time) error        { return nil }
func (c *bufConn) SetReadDeadline(time.Time) error    { return nil }
func (c *bufConn) SetWriteDeadline(time.Time) error   { return nil }

type dummyAddr struct{}

func (dummyAddr) Network() string { return "tcp" }
func (dummyAddr) String() string  { return "127.0.0.1:0" }

// decodeServerMessages replays everything a bufConn captured through a
// ChunkDemuxer, returning each reassembled message's type ID in order.
// Like a real client, it applies each Set Chunk Size the server sends to
// the chunks that follow.
func decodeServerMessages(t *testing.T, written []byte) []byte {
	t.Helper()
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go func() {
		client.Write(written)
	}()

	demux := NewChunkDemuxer(NewByteReader(server))
	var types []byte
	for i := 0; i < 10; i++ {
		done := make(chan struct{})
		var msg *RTMPMessage
		var err error
		go func() {
			msg, err = demux.ReadMessage()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(200 * time.Millisecond):
			return types
		}
		if err != nil {
			return types
		}
		types = append(types, msg.TypeID)
		if msg.TypeID == rtmpTypeSetChunkSize && len(msg.Payload) >= 4 {
			p := msg.Payload
			demux.SetPeerChunkSize(uint32(p[0])<<24 | uint32(p[1])<<16 | uint32(p[2])<<8 | uint32(p[3]))
		}
	}
	return types
}

func newTestSession(cfg *Config) *Session {
	server := NewServer(cfg)
	s := &Session{
		server: server,
		State:  SessionConnecting,
		Queue:  NewFlvQueue(),
	}
	return s
}

func TestHandleConnectSendsReplyBatchInOrder(t *testing.T) {
	cfg := &Config{Application: "live"}
	session := newTestSession(cfg)

	conn := &bufConn{}
	demux := NewChunkDemuxer(NewByteReader(conn))
	ctrl := NewControlHandler(conn, demux, session)

	cmd := &RTMPCommand{
		Name:  "connect",
		TxnID: 1,
		Args: []*AMF0Value{
			NewAMF0Object(map[string]*AMF0Value{
				"app":   NewAMF0String("live"),
				"tcUrl": NewAMF0String("rtmp://localhost/live"),
			}),
		},
	}

	if err := handleConnect(conn, ctrl, session, cmd); err != nil {
		t.Fatalf("handleConnect failed: %v", err)
	}
	if session.State != SessionConnected {
		t.Fatalf("expected SessionConnected, got %v", session.State)
	}

	types := decodeServerMessages(t, conn.out.Bytes())
	want := []byte{
		rtmpTypeWindowAckSize,
		rtmpTypeSetPeerBW,
		rtmpTypeSetChunkSize,
		rtmpTypeCommandAMF0, // _result
		rtmpTypeCommandAMF0, // onBWDone
		rtmpTypeUserControl, // StreamBegin
	}
	if len(types) != len(want) {
		t.Fatalf("expected %d messages, got %d: %v", len(want), len(types), types)
	}
	for i, w := range want {
		if types[i] != w {
			t.Errorf("message %d: want type %d got %d", i, w, types[i])
		}
	}
}

func TestHandleConnectEchoesAMF3WhenNegotiated(t *testing.T) {
	cfg := &Config{Application: "live"}
	session := newTestSession(cfg)

	conn := &bufConn{}
	demux := NewChunkDemuxer(NewByteReader(conn))
	ctrl := NewControlHandler(conn, demux, session)

	cmd := &RTMPCommand{
		Name:  "connect",
		TxnID: 1,
		Args: []*AMF0Value{
			NewAMF0Object(map[string]*AMF0Value{
				"app":            NewAMF0String("live"),
				"tcUrl":          NewAMF0String("rtmp://localhost/live"),
				"objectEncoding": NewAMF0Number(3),
			}),
		},
	}

	if err := handleConnect(conn, ctrl, session, cmd); err != nil {
		t.Fatalf("handleConnect failed: %v", err)
	}

	types := decodeServerMessages(t, conn.out.Bytes())
	want := []byte{
		rtmpTypeWindowAckSize,
		rtmpTypeSetPeerBW,
		rtmpTypeSetChunkSize,
		rtmpTypeCommandAMF3, // _result
		rtmpTypeCommandAMF3, // onBWDone
		rtmpTypeUserControl, // StreamBegin
	}
	if len(types) != len(want) {
		t.Fatalf("expected %d messages, got %d: %v", len(want), len(types), types)
	}
	for i, w := range want {
		if types[i] != w {
			t.Errorf("message %d: want type %d got %d", i, w, types[i])
		}
	}
}

func TestHandleConnectRejectsWrongApplication(t *testing.T) {
	cfg := &Config{Application: "live"}
	session := newTestSession(cfg)

	conn := &bufConn{}
	demux := NewChunkDemuxer(NewByteReader(conn))
	ctrl := NewControlHandler(conn, demux, session)

	cmd := &RTMPCommand{
		Name:  "connect",
		TxnID: 1,
		Args: []*AMF0Value{
			NewAMF0Object(map[string]*AMF0Value{
				"app": NewAMF0String("not-live"),
			}),
		},
	}

	err := handleConnect(conn, ctrl, session, cmd)
	if errorKindOf(err) != ErrKindAuthorization {
		t.Fatalf("expected ErrKindAuthorization, got %v", err)
	}
	if session.State == SessionConnected {
		t.Fatal("session should not reach Connected on rejection")
	}

	types := decodeServerMessages(t, conn.out.Bytes())
	if len(types) != 1 || types[0] != rtmpTypeCommandAMF0 {
		t.Fatalf("expected a single command message (_error), got %v", types)
	}
}
