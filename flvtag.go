// FLV tag data model (C9), grounded in github.com/ossrs/go-oryx-lib's
// flv package tag-type enumeration and header layout.

package main

const (
	FlvTagAudio  = 8
	FlvTagVideo  = 9
	FlvTagScript = 18
)

// FlvTag is the egress unit C9 carries from session to writer: the exact
// RTMP message payload (codec-info byte preserved as payload[0]) plus
// the derived fields spec 3 calls for.
type FlvTag struct {
	TagType     byte
	TimestampMs uint32
	Payload     []byte

	VideoCodec     string
	VideoKeyframe  bool
	VideoProfile   string
	VideoLevel     float32
	AudioCodec     string
	AudioChannels  uint32
	AudioSampleHz  uint32
	AudioSampleBit uint32
	AudioProfile   string
}

// newFlvTag builds an FlvTag from a completed Audio/Video/Data RTMP
// message, populating derived fields from av.go's bitstream readers.
func newFlvTag(msg *RTMPMessage) *FlvTag {
	tag := &FlvTag{
		TimestampMs: msg.Timestamp,
		Payload:     msg.Payload,
	}

	switch msg.TypeID {
	case rtmpTypeVideo:
		tag.TagType = FlvTagVideo
		info := deriveVideoTagInfo(msg.Payload)
		tag.VideoCodec = info.Codec
		tag.VideoKeyframe = info.Keyframe
		tag.VideoProfile = info.Profile
		tag.VideoLevel = info.Level
	case rtmpTypeAudio:
		tag.TagType = FlvTagAudio
		info := deriveAudioTagInfo(msg.Payload)
		tag.AudioCodec = info.Codec
		tag.AudioChannels = info.Channels
		tag.AudioSampleHz = info.SampleRate
		tag.AudioSampleBit = info.SampleSize
		tag.AudioProfile = info.Profile
	case rtmpTypeDataAMF0, rtmpTypeDataAMF3:
		tag.TagType = FlvTagScript
	}

	return tag
}

// isKeyframe reports whether dropping this tag under backpressure would
// lose a video keyframe (spec 8, property 8: no keyframe loss).
func (t *FlvTag) isKeyframe() bool {
	return t.TagType == FlvTagVideo && t.VideoKeyframe
}
