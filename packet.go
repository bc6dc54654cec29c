// Outbound chunk/message framing.
//
// Writers never fragment responses across multiple chunks: every
// server-initiated message in this design fits in a single chunk payload,
// so each Write call below emits one Type 0 chunk header followed by the
// whole message body. This mirrors the teacher's WriteMessageFormat0 but
// drops its Type 3 continuation path for outbound traffic, which this
// server never needs (commands and control messages are small).

package main

import (
	"encoding/binary"
	"net"
)

// writeChunkType0 writes one Type 0 chunk carrying the entirety of
// payload as a single RTMP message on the given chunk stream.
func writeChunkType0(conn net.Conn, csid uint32, timestamp uint32, typeID byte, msid uint32, payload []byte) error {
	var header []byte

	header = append(header, encodeBasicHeader(0, csid)...)

	tsField := timestamp
	extended := timestamp >= 0xFFFFFF
	if extended {
		tsField = 0xFFFFFF
	}

	hdr := make([]byte, 11)
	putU24BE(hdr[0:3], tsField)
	putU24BE(hdr[3:6], uint32(len(payload)))
	hdr[6] = typeID
	binary.LittleEndian.PutUint32(hdr[7:11], msid)
	header = append(header, hdr...)

	if extended {
		ext := make([]byte, 4)
		putU32BE(ext, timestamp)
		header = append(header, ext...)
	}

	if _, err := conn.Write(header); err != nil {
		return wrapErr(ErrKindIo, "failed to write chunk header", err)
	}
	if len(payload) > 0 {
		if _, err := conn.Write(payload); err != nil {
			return wrapErr(ErrKindIo, "failed to write chunk payload", err)
		}
	}

	return nil
}

// encodeBasicHeader encodes the fmt/CSID basic header, choosing the
// 1/2/3-byte form based on CSID magnitude exactly as the decoder expects.
func encodeBasicHeader(fmtType byte, csid uint32) []byte {
	switch {
	case csid < 64:
		return []byte{fmtType<<6 | byte(csid)}
	case csid < 320:
		return []byte{fmtType << 6, byte(csid - 64)}
	default:
		rel := csid - 64
		return []byte{fmtType<<6 | 0x01, byte(rel & 0xFF), byte(rel >> 8)}
	}
}

func putU24BE(b []byte, v uint32) {
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}
