// publish command handling (spec 4.8).

package main

import "net"

// handlePublish parses a publish command (stream name + type, type is
// always treated as "live") and, if authorized, starts the session
// publishing: StreamBegin followed by onStatus(Publish.Start).
func handlePublish(conn net.Conn, ctrl *ControlHandler, session *Session, cmd *RTMPCommand) error {
	if len(cmd.Args) < 2 {
		return newErr(ErrKindProtocol, "publish command missing stream name or type")
	}

	streamKey := cmd.Args[1].GetString()
	session.StreamKey = streamKey

	useAMF3 := session.Caps.ObjectEncoding == 3

	configuredKey := session.server.Config.StreamKey
	if configuredKey != "" && streamKey != configuredKey {
		if err := writeCommand(conn, csidStream, session.StreamID, useAMF3, "onStatus", cmd.TxnID,
			NewAMF0Null(),
			NewAMF0Object(map[string]*AMF0Value{
				"level":       NewAMF0String("error"),
				"code":        NewAMF0String("NetStream.Publish.BadName"),
				"description": NewAMF0String("Stream key rejected."),
			})); err != nil {
			return err
		}
		return newErr(ErrKindAuthorization, "publish rejected: stream key mismatch")
	}

	if session.server.coordinator != nil {
		host, _, _ := net.SplitHostPort(session.RemoteAddr)
		accepted, streamID := session.server.coordinator.RequestPublish(session.Application, streamKey, host)
		if !accepted {
			if err := writeCommand(conn, csidStream, session.StreamID, useAMF3, "onStatus", cmd.TxnID,
				NewAMF0Null(),
				NewAMF0Object(map[string]*AMF0Value{
					"level":       NewAMF0String("error"),
					"code":        NewAMF0String("NetStream.Publish.BadName"),
					"description": NewAMF0String("Publish rejected by coordinator."),
				})); err != nil {
				return err
			}
			return newErr(ErrKindAuthorization, "publish rejected: coordinator denied")
		}
		session.CoordinatorStreamID = streamID
	}

	if !session.server.tryActivate(session) {
		if err := writeCommand(conn, csidStream, session.StreamID, useAMF3, "onStatus", cmd.TxnID,
			NewAMF0Null(),
			NewAMF0Object(map[string]*AMF0Value{
				"level":       NewAMF0String("error"),
				"code":        NewAMF0String("NetStream.Publish.BadName"),
				"description": NewAMF0String("Another publisher is already active."),
			})); err != nil {
			return err
		}
		return newErr(ErrKindAuthorization, "publish rejected: another session already holds the active slot")
	}

	if !sendPublishCallback(session, "start") {
		if err := writeCommand(conn, csidStream, session.StreamID, useAMF3, "onStatus", cmd.TxnID,
			NewAMF0Null(),
			NewAMF0Object(map[string]*AMF0Value{
				"level":       NewAMF0String("error"),
				"code":        NewAMF0String("NetStream.Publish.BadName"),
				"description": NewAMF0String("Publish rejected by callback."),
			})); err != nil {
			return err
		}
		return newErr(ErrKindAuthorization, "publish rejected: start callback refused")
	}

	if err := ctrl.SendStreamBegin(session.StreamID); err != nil {
		return err
	}
	if err := writeCommand(conn, csidStream, session.StreamID, useAMF3, "onStatus", cmd.TxnID,
		NewAMF0Null(),
		NewAMF0Object(map[string]*AMF0Value{
			"level":       NewAMF0String("status"),
			"code":        NewAMF0String("NetStream.Publish.Start"),
			"description": NewAMF0String("Publishing started."),
		})); err != nil {
		return err
	}

	session.State = SessionPublishing
	session.PublishReceived = true
	return nil
}
