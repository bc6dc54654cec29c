package main

import (
	"net"
	"testing"
	"time"
)

func TestPerformHandshakeEchoesC1IntoS2(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	c1 := make([]byte, 1536)
	c1[0] = 0xAB // arbitrary C1 timestamp byte
	for i := 8; i < len(c1); i++ {
		c1[i] = byte(i)
	}

	done := make(chan error, 1)
	go func() { done <- PerformHandshake(server) }()

	if _, err := client.Write(append([]byte{rtmpVersion}, c1...)); err != nil {
		t.Fatalf("client write C0C1 failed: %v", err)
	}

	s0s1s2 := make([]byte, 1+1536+1536)
	if err := readFull(client, s0s1s2); err != nil {
		t.Fatalf("client read S0S1S2 failed: %v", err)
	}
	if s0s1s2[0] != rtmpVersion {
		t.Fatalf("expected S0 version %d, got %d", rtmpVersion, s0s1s2[0])
	}

	s2 := s0s1s2[1537:]
	if s2[4] != c1[0] {
		t.Errorf("S2 timestamp echo mismatch: want %d got %d", c1[0], s2[4])
	}
	for i := 8; i < len(c1); i++ {
		if s2[i] != c1[i] {
			t.Fatalf("S2 random echo mismatch at byte %d: want %d got %d", i, c1[i], s2[i])
		}
	}

	if _, err := client.Write(make([]byte, 1536)); err != nil {
		t.Fatalf("client write C2 failed: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("PerformHandshake returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for PerformHandshake")
	}
}

func TestPerformHandshakeRejectsBadVersion(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	done := make(chan error, 1)
	go func() { done <- PerformHandshake(server) }()

	go client.Write(append([]byte{0x06}, make([]byte, 1536)...))

	select {
	case err := <-done:
		if errorKindOf(err) != ErrKindProtocol {
			t.Errorf("expected ErrKindProtocol, got %v", errorKindOf(err))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for PerformHandshake")
	}
}
