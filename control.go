// Control-message handler (C5).
//
// Grounded in the teacher's handling of control message types in
// rtmp_session.go's main dispatch switch, generalized into its own type
// with explicit send helpers instead of inlined byte-slice construction
// at each call site.

package main

import (
	"encoding/binary"
	"net"
)

const (
	rtmpTypeSetChunkSize    = 1
	rtmpTypeAbort           = 2
	rtmpTypeAck             = 3
	rtmpTypeUserControl     = 4
	rtmpTypeWindowAckSize   = 5
	rtmpTypeSetPeerBW       = 6
	rtmpTypeAudio           = 8
	rtmpTypeVideo           = 9
	rtmpTypeDataAMF3        = 15
	rtmpTypeSharedObjAMF3   = 16
	rtmpTypeCommandAMF3     = 17
	rtmpTypeDataAMF0        = 18
	rtmpTypeSharedObjAMF0   = 19
	rtmpTypeCommandAMF0     = 20
)

const (
	csidControl = 2
	csidCommand = 3
	csidVideo   = 6
	csidAudio   = 4
	csidStream  = 5
)

const userControlStreamBegin = 0
const userControlPingRequest = 6
const userControlPingResponse = 7

const defaultServerWindowAckSize = 2500000
const defaultServerChunkSize = 4096

const (
	peerBandwidthHard    = 0
	peerBandwidthSoft    = 1
	peerBandwidthDynamic = 2
)

// ControlHandler applies inbound control messages to a ChunkDemuxer's
// state and emits the matching server-initiated replies.
type ControlHandler struct {
	conn    net.Conn
	demux   *ChunkDemuxer
	session *Session

	peerWindowAckSize uint32
	bytesReceived     uint32
	lastAckedAt       uint32
}

func NewControlHandler(conn net.Conn, demux *ChunkDemuxer, session *Session) *ControlHandler {
	return &ControlHandler{conn: conn, demux: demux, session: session}
}

// Handle dispatches one control-type RTMP message. Callers should only
// pass messages whose TypeID is one of the control types (1-6); other
// types are routed elsewhere by the session driver.
func (c *ControlHandler) Handle(msg *RTMPMessage) error {
	switch msg.TypeID {
	case rtmpTypeSetChunkSize:
		if len(msg.Payload) < 4 {
			return newErr(ErrKindProtocol, "truncated Set Chunk Size message")
		}
		size := binary.BigEndian.Uint32(msg.Payload)
		if size < 1 || size > 16777215 {
			return newErr(ErrKindProtocol, "Set Chunk Size value out of range")
		}
		c.demux.SetPeerChunkSize(size)
	case rtmpTypeAbort:
		if len(msg.Payload) < 4 {
			return newErr(ErrKindProtocol, "truncated Abort message")
		}
		csid := binary.BigEndian.Uint32(msg.Payload)
		c.demux.AbortChunkStream(csid)
	case rtmpTypeAck:
		// informational only
	case rtmpTypeWindowAckSize:
		if len(msg.Payload) < 4 {
			return newErr(ErrKindProtocol, "truncated Window Ack Size message")
		}
		c.peerWindowAckSize = binary.BigEndian.Uint32(msg.Payload)
	case rtmpTypeSetPeerBW:
		if len(msg.Payload) < 5 {
			return newErr(ErrKindProtocol, "truncated Set Peer Bandwidth message")
		}
		return c.SendWindowAckSize(defaultServerWindowAckSize)
	case rtmpTypeUserControl:
		// The server only emits User Control events in this design; it
		// does not need to act on client-sent ones (Ping responses are
		// informational keepalive echoes).
	}
	return nil
}

// OnBytesReceived advances the received-bytes counter and, once it has
// advanced past the peer's requested window, emits an Acknowledgement.
func (c *ControlHandler) OnBytesReceived(n uint32) error {
	c.bytesReceived += n
	if c.peerWindowAckSize == 0 {
		return nil
	}
	if c.bytesReceived-c.lastAckedAt >= c.peerWindowAckSize {
		c.lastAckedAt = c.bytesReceived
		return c.SendAck(c.bytesReceived)
	}
	return nil
}

func (c *ControlHandler) SendAck(bytesReceived uint32) error {
	payload := make([]byte, 4)
	binary.BigEndian.PutUint32(payload, bytesReceived)
	return writeChunkType0(c.conn, csidControl, 0, rtmpTypeAck, 0, payload)
}

func (c *ControlHandler) SendWindowAckSize(size uint32) error {
	payload := make([]byte, 4)
	binary.BigEndian.PutUint32(payload, size)
	return writeChunkType0(c.conn, csidControl, 0, rtmpTypeWindowAckSize, 0, payload)
}

func (c *ControlHandler) SendSetPeerBandwidth(bandwidth uint32, limitType byte) error {
	payload := make([]byte, 5)
	binary.BigEndian.PutUint32(payload[0:4], bandwidth)
	payload[4] = limitType
	return writeChunkType0(c.conn, csidControl, 0, rtmpTypeSetPeerBW, 0, payload)
}

func (c *ControlHandler) SendSetChunkSize(size uint32) error {
	payload := make([]byte, 4)
	binary.BigEndian.PutUint32(payload, size)
	return writeChunkType0(c.conn, csidControl, 0, rtmpTypeSetChunkSize, 0, payload)
}

func (c *ControlHandler) SendUserControl(event uint16, value uint32) error {
	payload := make([]byte, 6)
	binary.BigEndian.PutUint16(payload[0:2], event)
	binary.BigEndian.PutUint32(payload[2:6], value)
	return writeChunkType0(c.conn, csidControl, 0, rtmpTypeUserControl, 0, payload)
}

// SendStreamBegin emits UserControl(StreamBegin, streamID).
func (c *ControlHandler) SendStreamBegin(streamID uint32) error {
	return c.SendUserControl(userControlStreamBegin, streamID)
}

// SendPingRequest emits the periodic keep-alive UserControl event used to
// keep NAT/load-balancer idle connections open; it does not touch the
// idle-timeout clock, which is driven only by bytes received.
func (c *ControlHandler) SendPingRequest(timestamp uint32) error {
	return c.SendUserControl(userControlPingRequest, timestamp)
}
