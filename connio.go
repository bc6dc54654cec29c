// lockedConn serializes writes to a net.Conn shared between a session's
// main read/dispatch loop and its periodic keep-alive ping goroutine.
// Reads are never wrapped: spec 5 requires exactly one reader owner per
// session, so only the main loop ever calls Read.

package main

import (
	"net"
	"sync"
)

type lockedConn struct {
	net.Conn
	mu sync.Mutex
}

func newLockedConn(conn net.Conn) *lockedConn {
	return &lockedConn{Conn: conn}
}

func (c *lockedConn) Write(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.Write(b)
}
