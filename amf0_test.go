package main

import (
	"math"
	"testing"
)

func TestAMF0RoundTripScalars(t *testing.T) {
	cases := []*AMF0Value{
		NewAMF0Number(3.5),
		NewAMF0Number(-1),
		NewAMF0Number(0),
		NewAMF0Bool(true),
		NewAMF0Bool(false),
		NewAMF0String("live"),
		NewAMF0Null(),
		NewAMF0Undefined(),
	}

	for _, want := range cases {
		encoded := amf0Encode(want)
		s := newAMFDecodeStream(encoded)
		got, err := s.decodeOne()
		if err != nil {
			t.Fatalf("decode of type %d failed: %v", want.Type, err)
		}
		if !s.atEnd() {
			t.Fatalf("type %d left %d trailing bytes", want.Type, s.remaining())
		}
		if got.Type != want.Type {
			t.Fatalf("type mismatch: want %d got %d", want.Type, got.Type)
		}
		switch want.Type {
		case AMF0TypeNumber:
			if got.Number != want.Number {
				t.Errorf("number mismatch: want %v got %v", want.Number, got.Number)
			}
		case AMF0TypeBool:
			if got.Bool != want.Bool {
				t.Errorf("bool mismatch: want %v got %v", want.Bool, got.Bool)
			}
		case AMF0TypeString:
			if got.Str != want.Str {
				t.Errorf("string mismatch: want %q got %q", want.Str, got.Str)
			}
		}
	}
}

func TestAMF0RoundTripObject(t *testing.T) {
	want := NewAMF0Object(map[string]*AMF0Value{
		"app":    NewAMF0String("live"),
		"flashVer": NewAMF0String("FMLE/3.0"),
		"capsEx": NewAMF0Number(3),
	})

	encoded := amf0Encode(want)
	s := newAMFDecodeStream(encoded)
	got, err := s.decodeOne()
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !s.atEnd() {
		t.Fatalf("left %d trailing bytes", s.remaining())
	}
	if len(got.Object) != len(want.Object) {
		t.Fatalf("object length mismatch: want %d got %d", len(want.Object), len(got.Object))
	}
	for k, v := range want.Object {
		gv, ok := got.Object[k]
		if !ok {
			t.Fatalf("missing key %q", k)
		}
		if gv.GetString() != v.GetString() || gv.GetNumber() != v.GetNumber() {
			t.Errorf("value mismatch for key %q", k)
		}
	}
}

func TestAMF0DecodeCommandSequence(t *testing.T) {
	var buf []byte
	buf = append(buf, amf0Encode(NewAMF0String("connect"))...)
	buf = append(buf, amf0Encode(NewAMF0Number(1))...)
	buf = append(buf, amf0Encode(NewAMF0Object(map[string]*AMF0Value{
		"app": NewAMF0String("live"),
	}))...)

	values, err := decodeAMF0Sequence(buf)
	if err != nil {
		t.Fatalf("decodeAMF0Sequence failed: %v", err)
	}
	if len(values) != 3 {
		t.Fatalf("expected 3 values, got %d", len(values))
	}
	if values[0].GetString() != "connect" {
		t.Errorf("expected command name 'connect', got %q", values[0].GetString())
	}
	if values[1].GetNumber() != 1 {
		t.Errorf("expected txn id 1, got %v", values[1].GetNumber())
	}
	if values[2].GetProperty("app").GetString() != "live" {
		t.Errorf("expected app 'live', got %q", values[2].GetProperty("app").GetString())
	}
}

func TestAMF0TruncatedInputReturnsProtocolError(t *testing.T) {
	// A string marker promising 10 bytes but providing none.
	buf := []byte{AMF0TypeString, 0x00, 0x0A}
	s := newAMFDecodeStream(buf)
	_, err := s.decodeOne()
	if err == nil {
		t.Fatal("expected an error for truncated string")
	}
	if errorKindOf(err) != ErrKindProtocol {
		t.Errorf("expected ErrKindProtocol, got %v", errorKindOf(err))
	}
}

func TestAMF0RejectsReferenceType(t *testing.T) {
	buf := []byte{AMF0TypeRef, 0x00, 0x01}
	s := newAMFDecodeStream(buf)
	_, err := s.decodeOne()
	if errorKindOf(err) != ErrKindUnsupported {
		t.Errorf("expected ErrKindUnsupported, got %v", errorKindOf(err))
	}
}

func TestAMF0EncodeNumberIsBigEndianIEEE754(t *testing.T) {
	encoded := amf0EncodeNumber(1.0)
	if len(encoded) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(encoded))
	}
	var bits uint64
	for _, b := range encoded {
		bits = bits<<8 | uint64(b)
	}
	if math.Float64frombits(bits) != 1.0 {
		t.Errorf("expected round-trip to 1.0, got %v", math.Float64frombits(bits))
	}
}
