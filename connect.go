// connect command handling (spec 4.7).

package main

import "net"

const rtmpFmsVersion = "FMS/3,0,1,123"
const rtmpCapabilities = 31

// handleConnect parses a connect command and, if the advertised app name
// matches the server's configured application, sends the full reply
// batch as one atomic sequence before any further inbound message is
// processed.
func handleConnect(conn net.Conn, ctrl *ControlHandler, session *Session, cmd *RTMPCommand) error {
	if len(cmd.Args) < 1 || cmd.Args[0].Object == nil {
		return newErr(ErrKindProtocol, "connect command missing command object")
	}
	cmdObj := cmd.Args[0]

	app := cmdObj.GetProperty("app").GetString()
	tcURL := cmdObj.GetProperty("tcUrl").GetString()
	flashVer := cmdObj.GetProperty("flashVer").GetString()

	session.Application = app
	session.TcURL = tcURL
	session.FlashVer = flashVer

	if cmdObj.GetProperty("objectEncoding").GetNumber() == 3 {
		session.Caps.ObjectEncoding = 3
	}

	var userArgs *AMF0Value
	if len(cmd.Args) >= 2 {
		userArgs = cmd.Args[1]
	}
	if userArgs != nil {
		session.Caps.CapsEx = uint8(userArgs.GetProperty("capsEx").GetNumber())
		fourCcMap := userArgs.GetProperty("videoFourCcInfoMap")
		hevc, vp9, av1 := parseVideoFourCcInfoMap(fourCcMap)
		session.Caps.SupportsHEVC = hevc
		session.Caps.SupportsVP9 = vp9
		session.Caps.SupportsAV1 = av1
	}

	if app != session.server.Config.Application {
		if err := writeCommand(conn, csidCommand, 0, session.Caps.ObjectEncoding == 3, "_error", cmd.TxnID,
			NewAMF0Null(),
			NewAMF0Object(map[string]*AMF0Value{
				"level":       NewAMF0String("error"),
				"code":        NewAMF0String("NetConnection.Connect.Rejected"),
				"description": NewAMF0String("Unknown application name: " + app),
			})); err != nil {
			return err
		}
		return newErr(ErrKindAuthorization, "connect rejected: application name mismatch")
	}

	if err := ctrl.SendWindowAckSize(defaultServerWindowAckSize); err != nil {
		return err
	}
	if err := ctrl.SendSetPeerBandwidth(defaultServerWindowAckSize, peerBandwidthDynamic); err != nil {
		return err
	}
	if err := ctrl.SendSetChunkSize(defaultServerChunkSize); err != nil {
		return err
	}

	objectEncoding := float64(0)
	if session.Caps.ObjectEncoding == 3 {
		objectEncoding = 3
	}

	properties := map[string]*AMF0Value{
		"fmsVer":         NewAMF0String(rtmpFmsVersion),
		"capabilities":   NewAMF0Number(rtmpCapabilities),
		"objectEncoding": NewAMF0Number(objectEncoding),
	}
	if echoed := echoedFourCcInfoMap(&session.Caps); len(echoed) > 0 {
		properties["videoFourCcInfoMap"] = NewAMF0Object(echoed)
	}

	info := NewAMF0Object(map[string]*AMF0Value{
		"level":          NewAMF0String("status"),
		"code":           NewAMF0String("NetConnection.Connect.Success"),
		"description":    NewAMF0String("Connection succeeded."),
		"objectEncoding": NewAMF0Number(objectEncoding),
	})

	useAMF3 := session.Caps.ObjectEncoding == 3
	if err := writeCommand(conn, csidCommand, 0, useAMF3, "_result", cmd.TxnID, NewAMF0Object(properties), info); err != nil {
		return err
	}
	if err := writeCommand(conn, csidCommand, 0, useAMF3, "onBWDone", 0, NewAMF0Null(), NewAMF0Number(0)); err != nil {
		return err
	}
	if err := ctrl.SendStreamBegin(0); err != nil {
		return err
	}

	session.State = SessionConnected
	return nil
}
