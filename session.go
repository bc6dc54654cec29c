// Session state machine (C7): owns C1-C6 for one connection and produces
// FlvTags onto its queue. Grounded in the teacher's rtmp_session.go
// HandleSession loop, trimmed of the player/GOP-cache/multi-viewer
// surface this spec places out of scope (see DESIGN.md).

package main

import (
	"net"
	"strconv"
	"sync/atomic"
	"time"
)

type SessionState int

const (
	SessionNew SessionState = iota
	SessionHandshake
	SessionConnecting
	SessionConnected
	SessionPublishing
	SessionDisconnected
	SessionError
)

const sessionPingInterval = 60 * time.Second

// Session is one publisher connection end to end. Only one goroutine
// ever reads from conn (the Run loop); the ping goroutine only writes,
// through the lockedConn wrapper, so no second reader ever races it.
type Session struct {
	ID         uint64
	server     *Server
	conn       *lockedConn
	RemoteAddr string

	State           SessionState
	Application     string
	TcURL           string
	FlashVer        string
	StreamKey       string
	StreamID        uint32
	PublishReceived bool
	Caps            EnhancedCapabilities

	CoordinatorStreamID string

	Queue *FlvQueue

	lastActivity atomic.Int64 // unix nanos
	stopPing     chan struct{}
	bitRate      *bitRateCache
}

func NewSession(id uint64, conn net.Conn, server *Server) *Session {
	s := &Session{
		ID:         id,
		server:     server,
		conn:       newLockedConn(conn),
		RemoteAddr: conn.RemoteAddr().String(),
		State:      SessionNew,
		Queue:      NewFlvQueue(),
		stopPing:   make(chan struct{}),
		bitRate:    newBitRateCache(),
	}
	s.touch()
	return s
}

func (s *Session) touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

func (s *Session) idleFor() time.Duration {
	last := time.Unix(0, s.lastActivity.Load())
	return time.Since(last)
}

// Run drives the session to completion: handshake, connect/publish
// negotiation, then the media relay loop. It always returns once the
// session reaches Disconnected or Error, after releasing the queue.
func (s *Session) Run() {
	defer s.finish()

	if err := PerformHandshake(s.conn); err != nil {
		LogDebugSession(s.ID, s.RemoteAddr, "handshake failed: "+err.Error())
		s.State = SessionError
		return
	}
	s.State = SessionConnecting
	s.touch()

	byteReader := NewByteReader(s.conn)
	demux := NewChunkDemuxer(byteReader)
	ctrl := NewControlHandler(s.conn, demux, s)

	go s.runPingLoop(ctrl)

	for {
		timeout := s.server.Config.IdleTimeout
		s.conn.SetReadDeadline(time.Now().Add(timeout))

		msg, err := demux.ReadMessage()
		if err != nil {
			switch errorKindOf(err) {
			case ErrKindIo:
				LogDebugSession(s.ID, s.RemoteAddr, "session closed: "+err.Error())
				s.State = SessionDisconnected
			case ErrKindTimeout:
				LogDebugSession(s.ID, s.RemoteAddr, "idle timeout")
				s.State = SessionDisconnected
			default:
				LogDebugSession(s.ID, s.RemoteAddr, "protocol error: "+err.Error())
				s.State = SessionError
			}
			s.logMetrics(demux)
			return
		}
		s.touch()

		if err := ctrl.OnBytesReceived(uint32(len(msg.Payload))); err != nil {
			s.State = SessionError
			return
		}
		s.trackBitRate(uint32(len(msg.Payload)))

		if err := s.handleMessage(ctrl, demux, msg); err != nil {
			if errorKindOf(err) == ErrKindAuthorization {
				LogDebugSession(s.ID, s.RemoteAddr, "rejected: "+err.Error())
			} else {
				LogDebugSession(s.ID, s.RemoteAddr, "error: "+err.Error())
			}
			s.State = SessionError
			s.logMetrics(demux)
			return
		}

		if s.State == SessionDisconnected {
			return
		}
	}
}

func (s *Session) handleMessage(ctrl *ControlHandler, demux *ChunkDemuxer, msg *RTMPMessage) error {
	switch msg.TypeID {
	case rtmpTypeSetChunkSize, rtmpTypeAbort, rtmpTypeAck, rtmpTypeWindowAckSize, rtmpTypeSetPeerBW, rtmpTypeUserControl:
		return ctrl.Handle(msg)

	case rtmpTypeCommandAMF0, rtmpTypeCommandAMF3:
		cmd, err := decodeCommand(msg)
		if err != nil {
			return err
		}
		return dispatchCommand(s.conn, ctrl, demux, s, msg, cmd)

	case rtmpTypeAudio, rtmpTypeVideo, rtmpTypeDataAMF0, rtmpTypeDataAMF3:
		if s.State != SessionPublishing || msg.MessageStreamID != s.StreamID {
			return nil
		}
		tag := newFlvTag(msg)
		if tag.VideoProfile != "" {
			LogDebugSession(s.ID, s.RemoteAddr, "video sequence header: codec="+tag.VideoCodec+
				" profile="+tag.VideoProfile+" level="+strconv.FormatFloat(float64(tag.VideoLevel), 'f', 1, 32))
		}
		if tag.AudioProfile != "" {
			LogDebugSession(s.ID, s.RemoteAddr, "audio sequence header: codec="+tag.AudioCodec+" profile="+tag.AudioProfile)
		}
		s.Queue.Push(tag)
		return nil

	default:
		LogDebugSession(s.ID, s.RemoteAddr, "unhandled message type")
		return nil
	}
}

// runPingLoop sends a periodic UserControl(PingRequest) to keep
// NAT/load-balancer idle connections open. It never touches the
// idle-timeout clock, which is driven only by bytes received.
func (s *Session) runPingLoop(ctrl *ControlHandler) {
	ticker := time.NewTicker(sessionPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := ctrl.SendPingRequest(uint32(time.Now().UnixMilli())); err != nil {
				return
			}
		case <-s.stopPing:
			return
		}
	}
}

// finish releases the session's resources: queue end-of-stream (only if
// publishing was ever reached, per spec 4.11's end-of-stream rule),
// registry removal, transport close.
func (s *Session) finish() {
	close(s.stopPing)

	if s.PublishReceived {
		time.Sleep(100 * time.Millisecond) // grace period for lagging chunks
		sendPublishCallback(s, "stop")
		s.Queue.End()
	}

	s.server.unregister(s)
	s.conn.Close()
}
