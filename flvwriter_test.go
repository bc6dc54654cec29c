package main

import (
	"bytes"
	"testing"
)

func TestRunFlvWriterProducesWellFormedStream(t *testing.T) {
	q := NewFlvQueue()
	q.Push(&FlvTag{TagType: FlvTagVideo, TimestampMs: 0, Payload: []byte{0x17, 0x01, 0, 0, 0}, VideoKeyframe: true})
	q.Push(&FlvTag{TagType: FlvTagAudio, TimestampMs: 10, Payload: []byte{0xAF, 0x01, 0x02}})
	q.End()

	var buf bytes.Buffer
	if err := RunFlvWriter(q, &buf); err != nil {
		t.Fatalf("RunFlvWriter failed: %v", err)
	}

	out := buf.Bytes()
	if len(out) < 13 || string(out[0:3]) != "FLV" {
		t.Fatalf("missing FLV signature: %v", out[:min(len(out), 13)])
	}
	if out[3] != 0x01 {
		t.Errorf("expected version 1, got %d", out[3])
	}

	pos := 13
	// first tag: video, 5-byte payload
	if out[pos] != FlvTagVideo {
		t.Fatalf("expected first tag type video, got %d", out[pos])
	}
	size1 := uint32(out[pos+1])<<16 | uint32(out[pos+2])<<8 | uint32(out[pos+3])
	if size1 != 5 {
		t.Fatalf("expected first tag size 5, got %d", size1)
	}
	pos += 11 + int(size1)
	trailer1 := uint32(out[pos])<<24 | uint32(out[pos+1])<<16 | uint32(out[pos+2])<<8 | uint32(out[pos+3])
	if trailer1 != 11+size1 {
		t.Fatalf("expected previous-tag-size %d, got %d", 11+size1, trailer1)
	}
	pos += 4

	// second tag: audio, 3-byte payload
	if out[pos] != FlvTagAudio {
		t.Fatalf("expected second tag type audio, got %d", out[pos])
	}
	size2 := uint32(out[pos+1])<<16 | uint32(out[pos+2])<<8 | uint32(out[pos+3])
	if size2 != 3 {
		t.Fatalf("expected second tag size 3, got %d", size2)
	}
	pos += 11 + int(size2) + 4

	if pos != len(out) {
		t.Fatalf("trailing garbage after last tag: consumed %d of %d bytes", pos, len(out))
	}
}



func TestRunFlvWriterEmitsFreshHeaderAfterReset(t *testing.T) {
	q := NewFlvQueue()
	q.Push(&FlvTag{TagType: FlvTagVideo, Payload: []byte{0x17}, VideoKeyframe: true})
	q.Reset()
	q.Push(&FlvTag{TagType: FlvTagVideo, Payload: []byte{0x17}, VideoKeyframe: true})
	q.End()

	var buf bytes.Buffer
	if err := RunFlvWriter(q, &buf); err != nil {
		t.Fatalf("RunFlvWriter failed: %v", err)
	}

	headerCount := bytes.Count(buf.Bytes(), []byte("FLV"))
	if headerCount != 2 {
		t.Fatalf("expected 2 FLV headers (one per stream segment), got %d", headerCount)
	}
}
