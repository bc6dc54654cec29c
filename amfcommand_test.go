package main

import "testing"

func TestDecodeCommandAMF0(t *testing.T) {
	payload := encodeCommandAMF0("publish", 3, NewAMF0String("streamkey"), NewAMF0String("live"))
	msg := &RTMPMessage{TypeID: rtmpTypeCommandAMF0, Payload: payload}

	cmd, err := decodeCommand(msg)
	if err != nil {
		t.Fatalf("decodeCommand failed: %v", err)
	}
	if cmd.Name != "publish" {
		t.Errorf("expected name 'publish', got %q", cmd.Name)
	}
	if cmd.TxnID != 3 {
		t.Errorf("expected txn id 3, got %v", cmd.TxnID)
	}
	if len(cmd.Args) != 2 || cmd.Args[0].GetString() != "streamkey" {
		t.Fatalf("unexpected args: %+v", cmd.Args)
	}
	if cmd.IsAMF3 {
		t.Error("expected IsAMF3 to be false")
	}
}

func TestDecodeCommandAMF3StripsLeadingSwitchByte(t *testing.T) {
	inner := encodeCommandAMF0("createStream", 2)
	payload := append([]byte{0x00}, inner...)
	msg := &RTMPMessage{TypeID: rtmpTypeCommandAMF3, Payload: payload}

	cmd, err := decodeCommand(msg)
	if err != nil {
		t.Fatalf("decodeCommand failed: %v", err)
	}
	if cmd.Name != "createStream" {
		t.Errorf("expected name 'createStream', got %q", cmd.Name)
	}
	if !cmd.IsAMF3 {
		t.Error("expected IsAMF3 to be true")
	}
}

func TestEncodeCommandAMF3PrefixesSwitchByte(t *testing.T) {
	payload := encodeCommandAMF3("onStatus", 0, NewAMF0Null())
	if payload[0] != 0x00 {
		t.Fatalf("expected leading 0x00 switch byte, got %#x", payload[0])
	}

	msg := &RTMPMessage{TypeID: rtmpTypeCommandAMF3, Payload: payload}
	cmd, err := decodeCommand(msg)
	if err != nil {
		t.Fatalf("decodeCommand failed: %v", err)
	}
	if cmd.Name != "onStatus" || !cmd.IsAMF3 {
		t.Fatalf("unexpected round trip: %+v", cmd)
	}
}

func TestDecodeCommandRejectsMissingTxnID(t *testing.T) {
	payload := amf0Encode(NewAMF0String("connect"))
	msg := &RTMPMessage{TypeID: rtmpTypeCommandAMF0, Payload: payload}

	_, err := decodeCommand(msg)
	if errorKindOf(err) != ErrKindProtocol {
		t.Fatalf("expected ErrKindProtocol, got %v", err)
	}
}
