// FLV egress writer: drains an FlvQueue into a muxed FLV byte stream per
// the Adobe FLV & F4V Specification v10.1 (spec 4.11).

package main

import (
	"io"
)

const flvHeaderAudioFlag = 0x04
const flvHeaderVideoFlag = 0x01

// RunFlvWriter drains queue into w until End() is reached, writing the
// 13-byte FLV file header once per "stream" (once at start, and again
// after every Reset sentinel in loop mode) followed by framed tags and
// their previous-tag-size trailers. It returns nil on a clean
// end-of-stream, or the first write error encountered.
func RunFlvWriter(queue *FlvQueue, w io.Writer) error {
	needsHeader := true

	for {
		entry, ok := queue.pop()
		if !ok {
			return nil
		}

		if entry.end {
			return nil
		}

		if entry.reset {
			needsHeader = true
			continue
		}

		if needsHeader {
			if err := writeFlvFileHeader(w); err != nil {
				return err
			}
			needsHeader = false
		}

		if err := writeFlvTag(w, entry.tag); err != nil {
			return err
		}
	}
}

func writeFlvFileHeader(w io.Writer) error {
	header := []byte{
		'F', 'L', 'V',
		0x01,
		flvHeaderAudioFlag | flvHeaderVideoFlag,
		0, 0, 0, 9, // data offset
		0, 0, 0, 0, // first previous-tag-size (always 0)
	}
	_, err := w.Write(header)
	return err
}

func writeFlvTag(w io.Writer, tag *FlvTag) error {
	header := make([]byte, 11)
	header[0] = tag.TagType
	putU24BE(header[1:4], uint32(len(tag.Payload)))
	putU24BE(header[4:7], tag.TimestampMs&0xFFFFFF)
	header[7] = byte(tag.TimestampMs >> 24)
	putU24BE(header[8:11], 0) // stream id, always 0

	if _, err := w.Write(header); err != nil {
		return err
	}
	if len(tag.Payload) > 0 {
		if _, err := w.Write(tag.Payload); err != nil {
			return err
		}
	}

	trailer := make([]byte, 4)
	putU32BE(trailer, uint32(11+len(tag.Payload)))
	_, err := w.Write(trailer)
	return err
}
