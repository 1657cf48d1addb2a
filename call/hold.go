package call

import (
	"github.com/pion/sdp/v2"
)

// remoteHoldSignaled inspects the raw SDP carried by a freshly-applied
// remote description for the wire signal that the peer has put the call on
// hold: every audio/video media section reports a direction of recvonly or
// inactive (§4.5: the peer "disables its send direction on a
// transceiver"). A remote description with no audio/video media section at
// all is not a hold signal either way.
func remoteHoldSignaled(raw string) bool {
	var desc sdp.SessionDescription
	if err := desc.Unmarshal(raw); err != nil {
		return false
	}

	sawMedia := false
	for _, md := range desc.MediaDescriptions {
		switch md.MediaName.Media {
		case "audio", "video":
		default:
			continue
		}
		sawMedia = true

		if _, ok := md.Attribute("recvonly"); ok {
			continue
		}
		if _, ok := md.Attribute("inactive"); ok {
			continue
		}
		return false
	}
	return sawMedia
}
