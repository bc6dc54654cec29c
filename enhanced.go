// Enhanced RTMP capability negotiation: capsEx flags and the video FourCC
// map, grounded in original_source/gst/rtmp2enhanced.c and .h for the flag
// bit layout and FourCC set.

package main

const (
	capsExReconnect           = 0x01
	capsExMultitrack          = 0x02
	capsExTimestampNanoOffset = 0x08
)

const (
	fourCCHEVC = "hvc1"
	fourCCVP9  = "vp09"
	fourCCAV1  = "av01"
)

// EnhancedCapabilities is the single capability record the spec's design
// notes call for: one touchpoint so adding a codec only changes this
// struct and the two places that read videoFourCcInfoMap.
type EnhancedCapabilities struct {
	CapsEx         uint8
	SupportsHEVC   bool
	SupportsVP9    bool
	SupportsAV1    bool
	ObjectEncoding int
}

// serverSupportedFourCCs is the set this server itself understands when
// deriving video_codec for a tag (av.go); it doubles as the set echoed
// back in a connect reply's videoFourCcInfoMap.
var serverSupportedFourCCs = map[string]bool{
	fourCCHEVC: true,
	fourCCVP9:  true,
	fourCCAV1:  true,
}

// parseVideoFourCcInfoMap reads the client's advertised FourCC map from a
// connect command's user-arguments object and records which ones the
// client supports.
func parseVideoFourCcInfoMap(obj *AMF0Value) (hevc, vp9, av1 bool) {
	if obj == nil || obj.Object == nil {
		return false, false, false
	}
	_, hevc = obj.Object[fourCCHEVC]
	_, vp9 = obj.Object[fourCCVP9]
	_, av1 = obj.Object[fourCCAV1]
	return
}

// echoedFourCcInfoMap builds the subset of the client's advertised FourCCs
// that the server also supports, for echoing back in the connect reply's
// properties.videoFourCcInfoMap.
func echoedFourCcInfoMap(caps *EnhancedCapabilities) map[string]*AMF0Value {
	out := make(map[string]*AMF0Value)
	if caps.SupportsHEVC && serverSupportedFourCCs[fourCCHEVC] {
		out[fourCCHEVC] = NewAMF0Object(map[string]*AMF0Value{})
	}
	if caps.SupportsVP9 && serverSupportedFourCCs[fourCCVP9] {
		out[fourCCVP9] = NewAMF0Object(map[string]*AMF0Value{})
	}
	if caps.SupportsAV1 && serverSupportedFourCCs[fourCCAV1] {
		out[fourCCAV1] = NewAMF0Object(map[string]*AMF0Value{})
	}
	return out
}
