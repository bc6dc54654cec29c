package main

import "testing"

func TestAMF3RoundTripInteger(t *testing.T) {
	cases := []float64{0, 1, 127, 128, 16383, 16384, -1, -5}
	for _, n := range cases {
		encoded := amf3Encode(&AMF3Value{Type: AMF3TypeInteger, Number: n})
		s := newAMFDecodeStream(encoded)
		got, err := s.decodeAMF3()
		if err != nil {
			t.Fatalf("decode of %v failed: %v", n, err)
		}
		if got.Number != n {
			t.Errorf("integer round trip: want %v got %v", n, got.Number)
		}
	}
}

func TestAMF3RoundTripDouble(t *testing.T) {
	want := 3.14159
	encoded := amf3Encode(&AMF3Value{Type: AMF3TypeDouble, Number: want})
	s := newAMFDecodeStream(encoded)
	got, err := s.decodeAMF3()
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Number != want {
		t.Errorf("double round trip: want %v got %v", want, got.Number)
	}
}

func TestAMF3RoundTripString(t *testing.T) {
	want := "hvc1"
	encoded := amf3Encode(&AMF3Value{Type: AMF3TypeString, Str: want})
	s := newAMFDecodeStream(encoded)
	got, err := s.decodeAMF3()
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Str != want {
		t.Errorf("string round trip: want %q got %q", want, got.Str)
	}
}

func TestAMF3StringReferenceRejected(t *testing.T) {
	// U29 header with inline flag (low bit) clear names a table reference.
	buf := []byte{AMF3TypeString, 0x02} // header = 2 (index 1), inline bit clear
	s := newAMFDecodeStream(buf)
	_, err := s.decodeAMF3()
	if errorKindOf(err) != ErrKindUnsupported {
		t.Errorf("expected ErrKindUnsupported, got %v", errorKindOf(err))
	}
}

func TestAMF3SwitchFromAMF0(t *testing.T) {
	amf3Val := &AMF3Value{Type: AMF3TypeTrue}
	outer := &AMF0Value{Type: AMF0TypeSwitchAMF3, AMF3: amf3Val}

	encoded := amf0Encode(outer)
	s := newAMFDecodeStream(encoded)
	got, err := s.decodeOne()
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !got.IsAMF3() {
		t.Fatal("expected IsAMF3() to be true")
	}
	if !got.GetBool() {
		t.Error("expected GetBool() to be true")
	}
}
