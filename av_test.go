package main

import "testing"

func TestDeriveVideoTagInfoParsesH264SequenceHeaderProfile(t *testing.T) {
	payload := []byte{
		0x17,             // frameType=1 (key), codecID=7 (H264)
		0x00,             // AVCPacketType = sequence header
		0x00, 0x00, 0x00, // composition time
		0x01, // configurationVersion
		66,   // AVCProfileIndication
		0x00, // profile compatibility
		30,   // level
		0xFF, // NALU length size field
		0x00, // numOfSequenceParameterSets = 0
	}

	info := deriveVideoTagInfo(payload)
	if info.Codec != "H264" {
		t.Fatalf("expected codec H264, got %q", info.Codec)
	}
	if !info.Keyframe {
		t.Fatal("expected keyframe")
	}
	if info.Profile != "Baseline" {
		t.Fatalf("expected profile Baseline, got %q", info.Profile)
	}
	if info.Level != 30 {
		t.Fatalf("expected level 30, got %v", info.Level)
	}
}

func TestDeriveVideoTagInfoSkipsProfileOnNonSequenceHeader(t *testing.T) {
	payload := []byte{0x27, 0x01, 0x00, 0x00, 0x00, 0xAA, 0xBB}
	info := deriveVideoTagInfo(payload)
	if info.Codec != "H264" {
		t.Fatalf("expected codec H264, got %q", info.Codec)
	}
	if info.Profile != "" {
		t.Fatalf("expected no profile on a NALU packet, got %q", info.Profile)
	}
}

func TestDeriveVideoTagInfoEnhancedHEVCSequenceStartDoesNotPanic(t *testing.T) {
	payload := append([]byte{0x90}, []byte(fourCCHEVC)...)
	payload = append(payload, make([]byte, 23)...)
	payload[5] = 1 // configurationVersion

	info := deriveVideoTagInfo(payload)
	if info.Codec != "H265" {
		t.Fatalf("expected codec H265, got %q", info.Codec)
	}
	if !info.IsEnhanced {
		t.Fatal("expected IsEnhanced")
	}
}

func TestDeriveAudioTagInfoParsesAACProfile(t *testing.T) {
	payload := []byte{
		0xAF,       // soundFormat=AAC(10), rate/size/type bits
		0x00,       // AACPacketType = sequence header
		0x12, 0x10, // object_type=2(LC), sampling_index=4(44100), chan_config=2(stereo)
	}

	info := deriveAudioTagInfo(payload)
	if info.Codec != "AAC" {
		t.Fatalf("expected codec AAC, got %q", info.Codec)
	}
	if info.Profile != "LC" {
		t.Fatalf("expected profile LC, got %q", info.Profile)
	}
	if info.SampleRate != 44100 {
		t.Fatalf("expected sample rate 44100, got %v", info.SampleRate)
	}
	if info.Channels != 2 {
		t.Fatalf("expected 2 channels, got %v", info.Channels)
	}
}
