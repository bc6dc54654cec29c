// Server acceptor (C8), grounded on the teacher's rtmp_server.go
// (RTMPServer, AcceptConnections, HandleConnection, AddIP/RemoveIP/
// isIPExempted), trimmed to the single active_session slot spec.md §3/§8
// invariant 9 requires instead of the teacher's multi-channel/player
// registry.

package main

import (
	"crypto/tls"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/netdata/go.d.plugin/pkg/iprange"
)

// Server is the process-wide singleton: the listener, the registry of
// live sessions, and the at-most-one active publisher slot.
type Server struct {
	Config *Config

	listener net.Listener
	tlsConf  *tls.Config

	mu            sync.Mutex
	clients       map[uint64]*Session
	activeSession *Session
	nextSessionID uint64

	ipCounts     map[string]int
	exemptRanges iprange.Pool

	shutdownOnce sync.Once
	shuttingDown atomic.Bool

	coordinator *Coordinator
	redisCtl    *RedisControl
}

func NewServer(cfg *Config) *Server {
	s := &Server{
		Config:   cfg,
		clients:  make(map[uint64]*Session),
		ipCounts: make(map[string]int),
	}

	if cfg.ExemptIPRanges != "" {
		if pool, err := iprange.ParseRanges(cfg.ExemptIPRanges); err == nil {
			s.exemptRanges = pool
		} else {
			LogWarning("failed to parse RTMP_EXEMPT_IPS: " + err.Error())
		}
	}

	return s
}

// Start binds the listener (optionally TLS-wrapped) and begins accepting
// connections. It blocks until the listener is closed.
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.Config.Host, strconv.Itoa(int(s.Config.Port)))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return wrapErr(ErrKindIo, "failed to bind listener", err)
	}
	s.listener = ln

	if s.Config.TLS {
		tlsConf, err := newTLSConfig(s.Config.Certificate, s.Config.PrivateKey)
		if err != nil {
			return err
		}
		s.tlsConf = tlsConf
	}

	if s.Config.CoordinatorURL != "" {
		s.coordinator = NewCoordinator(s)
		go s.coordinator.Run()
	}
	if s.Config.RedisURL != "" {
		s.redisCtl = NewRedisControl(s)
		go s.redisCtl.Run()
	}

	LogInfo("RTMP server listening on " + addr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.shuttingDown.Load() {
				return nil
			}
			return wrapErr(ErrKindIo, "accept failed", err)
		}

		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	if tcp, ok := conn.(*net.TCPConn); ok {
		tcp.SetNoDelay(true)
	}

	host, _, _ := net.SplitHostPort(conn.RemoteAddr().String())
	if !s.admitIP(host) {
		LogDebug("rejected connection from " + host + ": per-IP connection limit")
		conn.Close()
		return
	}
	defer s.releaseIP(host)

	if s.tlsConf != nil {
		tlsConn := tls.Server(conn, s.tlsConf)
		if err := tlsConn.Handshake(); err != nil {
			LogDebug("TLS handshake failed from " + host + ": " + err.Error())
			conn.Close()
			return
		}
		conn = tlsConn
	}

	session := NewSession(s.nextID(), conn, s)
	s.register(session)

	session.Run()
}

func (s *Server) nextID() uint64 {
	return atomic.AddUint64(&s.nextSessionID, 1)
}

func (s *Server) admitIP(host string) bool {
	if s.exemptRanges != nil {
		if ip := net.ParseIP(host); ip != nil && s.exemptRanges.Contains(ip) {
			return true
		}
	}
	if s.Config.MaxConnectionsPerIP <= 0 {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ipCounts[host] >= s.Config.MaxConnectionsPerIP {
		return false
	}
	s.ipCounts[host]++
	return true
}

func (s *Server) releaseIP(host string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ipCounts[host] > 0 {
		s.ipCounts[host]--
	}
}

// register adds session to the client registry and, if the active_session
// slot is vacant, assigns it as the active candidate (it becomes the
// actual publisher once it reaches Publishing).
func (s *Server) register(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[session.ID] = session
	if s.activeSession == nil {
		s.activeSession = session
	} else if session != s.activeSession {
		// A second connection is negotiating while a publisher is active.
		// It is allowed to complete connect/createStream, but publish
		// will be rejected once it tries to claim the active slot (see
		// Server.tryActivate), preserving the single active_session
		// invariant without dropping the TCP connection prematurely.
	}
}

// tryActivate is called by publish.go before a session is allowed to
// transition into Publishing. It returns false if another session already
// occupies the active_session slot.
func (s *Server) tryActivate(session *Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeSession == nil || s.activeSession == session {
		s.activeSession = session
		return true
	}
	return false
}

// unregister removes session from the registry and, if it held the
// active_session slot, vacates it. When loop=true the egress queue gets a
// reset signal so the next publisher starts a fresh FLV output.
func (s *Server) unregister(session *Session) {
	s.mu.Lock()
	wasActive := s.activeSession == session
	delete(s.clients, session.ID)
	if wasActive {
		s.activeSession = nil
	}
	s.mu.Unlock()

	if wasActive && session.PublishReceived && s.Config.Loop {
		session.Queue.Reset()
	}
}

// Shutdown closes the listener and signals every live session. Calling it
// more than once is a no-op after the first call (spec 8 property 7).
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.shuttingDown.Store(true)
		if s.listener != nil {
			s.listener.Close()
		}

		s.mu.Lock()
		sessions := make([]*Session, 0, len(s.clients))
		for _, c := range s.clients {
			sessions = append(sessions, c)
		}
		s.mu.Unlock()

		for _, c := range sessions {
			c.conn.Close()
		}
	})
}
