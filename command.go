// Command dispatcher (C6): decodes AMF command messages and drives the
// session state machine via a (msid, name) lookup table, per spec 4.6.
// Unknown commands are logged and otherwise ignored; they never abort the
// session (design notes: unknown variants log and continue, never panic).

package main

import "net"

// dispatchCommand routes a decoded command message to its handler based
// on (message_stream_id, name), replying inline as each handler requires.
func dispatchCommand(conn net.Conn, ctrl *ControlHandler, demux *ChunkDemuxer, session *Session, msg *RTMPMessage, cmd *RTMPCommand) error {
	switch {
	case msg.MessageStreamID == 0 && cmd.Name == "connect":
		return handleConnect(conn, ctrl, session, cmd)

	case msg.MessageStreamID == 0 && cmd.Name == "releaseStream":
		return writeCommand(conn, csidCommand, 0, session.Caps.ObjectEncoding == 3, "_result", cmd.TxnID, NewAMF0Null(), NewAMF0Bool(true))

	case msg.MessageStreamID == 0 && cmd.Name == "FCPublish":
		// Required clients do not block on a reply; acknowledged silently.
		return nil

	case msg.MessageStreamID == 0 && cmd.Name == "createStream":
		session.StreamID = 1
		return writeCommand(conn, csidCommand, 0, session.Caps.ObjectEncoding == 3, "_result", cmd.TxnID, NewAMF0Null(), NewAMF0Number(1))

	case msg.MessageStreamID == 0 && (cmd.Name == "_checkbw" || cmd.Name == "checkbw"):
		return writeCommand(conn, csidCommand, 0, session.Caps.ObjectEncoding == 3, "_result", cmd.TxnID, NewAMF0Null(), NewAMF0Number(0))

	case msg.MessageStreamID == session.StreamID && cmd.Name == "publish":
		return handlePublish(conn, ctrl, session, cmd)

	case msg.MessageStreamID == session.StreamID && cmd.Name == "deleteStream":
		session.State = SessionDisconnected
		return nil

	default:
		LogDebugSession(session.ID, session.RemoteAddr, "unhandled command: "+cmd.Name)
		return nil
	}
}
