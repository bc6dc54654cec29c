package main

import (
	"net"
	"testing"
	"time"
)

// chunkTestPipe returns a ChunkDemuxer reading from one end of an in-memory
// net.Pipe, plus the other end for writing raw chunk bytes.
func chunkTestPipe(t *testing.T) (*ChunkDemuxer, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() { server.Close(); client.Close() })
	return NewChunkDemuxer(NewByteReader(server)), client
}

func writeAsync(t *testing.T, conn net.Conn, b []byte) {
	t.Helper()
	go func() {
		conn.Write(b)
	}()
}

func TestChunkType0SingleChunkMessage(t *testing.T) {
	demux, client := chunkTestPipe(t)

	payload := []byte("hello rtmp")
	basicHeader := byte(0<<6 | 3) // fmt 0, csid 3
	header := []byte{basicHeader,
		0x00, 0x00, 0x00, // timestamp
		0x00, 0x00, byte(len(payload)), // message length
		20,                     // type id: command AMF0
		0x00, 0x00, 0x00, 0x00, // message stream id
	}
	writeAsync(t, client, append(header, payload...))

	msg, err := demux.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}
	if string(msg.Payload) != "hello rtmp" {
		t.Errorf("payload mismatch: got %q", msg.Payload)
	}
	if msg.TypeID != 20 {
		t.Errorf("type id mismatch: got %d", msg.TypeID)
	}
}

func TestChunkType3ContinuationAcrossChunkBoundary(t *testing.T) {
	demux, client := chunkTestPipe(t)
	demux.SetPeerChunkSize(4)

	payload := []byte("ABCDEFGH") // 8 bytes, split into two 4-byte chunks
	basicHeader0 := byte(0<<6 | 3)
	header0 := []byte{basicHeader0,
		0x00, 0x00, 0x00,
		0x00, 0x00, byte(len(payload)),
		9, // video
		0x01, 0x00, 0x00, 0x00,
	}
	basicHeader3 := byte(3<<6 | 3)

	writeAsync(t, client, append(append(header0, payload[:4]...), append([]byte{basicHeader3}, payload[4:]...)...))

	msg, err := demux.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}
	if string(msg.Payload) != "ABCDEFGH" {
		t.Errorf("payload mismatch: got %q", msg.Payload)
	}
}

func TestChunkType3WithoutPriorHeaderIsProtocolError(t *testing.T) {
	demux, client := chunkTestPipe(t)

	basicHeader3 := byte(3<<6 | 5) // fresh csid, type 3 has no state to reuse
	writeAsync(t, client, []byte{basicHeader3})

	_, err := demux.ReadMessage()
	if err == nil {
		t.Fatal("expected an error for a Type 3 chunk opening a new CSID")
	}
	if errorKindOf(err) != ErrKindProtocol {
		t.Errorf("expected ErrKindProtocol, got %v", errorKindOf(err))
	}
}

func TestChunkExtendedTimestampSentinel(t *testing.T) {
	demux, client := chunkTestPipe(t)

	payload := []byte("x")
	basicHeader := byte(0<<6 | 3)
	header := []byte{basicHeader,
		0xFF, 0xFF, 0xFF, // sentinel -> extended timestamp follows
		0x00, 0x00, 0x01,
		8, // audio
		0x01, 0x00, 0x00, 0x00,
		0x01, 0x02, 0x03, 0x04, // extended timestamp
	}
	writeAsync(t, client, append(header, payload...))

	msg, err := demux.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}
	want := uint32(0x01020304)
	if msg.Timestamp != want {
		t.Errorf("timestamp mismatch: want %d got %d", want, msg.Timestamp)
	}
}

func TestChunkFreshCSIDRequiresType0(t *testing.T) {
	demux, client := chunkTestPipe(t)

	basicHeader1 := byte(1<<6 | 7)
	writeAsync(t, client, []byte{basicHeader1})

	done := make(chan error, 1)
	go func() {
		_, err := demux.ReadMessage()
		done <- err
	}()

	select {
	case err := <-done:
		if errorKindOf(err) != ErrKindProtocol {
			t.Errorf("expected ErrKindProtocol, got %v", errorKindOf(err))
		}
		if demux.InvalidFreshHeaders != 1 {
			t.Errorf("expected InvalidFreshHeaders to be 1, got %d", demux.InvalidFreshHeaders)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ReadMessage")
	}
}
