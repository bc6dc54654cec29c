package main

import "testing"

func TestServerTryActivateEnforcesSingleActiveSession(t *testing.T) {
	server := NewServer(&Config{Application: "live"})

	a := &Session{server: server}
	b := &Session{server: server}

	if !server.tryActivate(a) {
		t.Fatal("expected the first session to claim the active slot")
	}
	if server.tryActivate(b) {
		t.Fatal("expected the second session to be rejected while the first is active")
	}

	server.unregister(a)

	if !server.tryActivate(b) {
		t.Fatal("expected the slot to be available after the first session unregisters")
	}
}

func TestServerUnregisterOnlyVacatesIfCurrentlyActive(t *testing.T) {
	server := NewServer(&Config{Application: "live"})

	a := &Session{server: server}
	b := &Session{server: server}

	server.register(a)
	server.tryActivate(a)
	server.register(b) // negotiating, never became active

	server.unregister(b)

	server.mu.Lock()
	active := server.activeSession
	server.mu.Unlock()
	if active != a {
		t.Fatal("unregistering a non-active session must not vacate the active slot")
	}
}

func TestServerShutdownIsIdempotent(t *testing.T) {
	server := NewServer(&Config{Application: "live", Port: 0})

	server.Shutdown()
	server.Shutdown() // must not panic
}
