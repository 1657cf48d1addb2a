package webrtcx

// PeerConnection is the abstract capability boundary onto the WebRTC stack
// (§2 "PeerConnection (abstract)"). The call signaling engine drives
// negotiation exclusively through this interface; webrtcx/pion.go is the
// concrete adapter onto github.com/pion/webrtc/v2.
type PeerConnection interface {
	CreateOffer() (SessionDescription, error)
	CreateAnswer() (SessionDescription, error)
	SetLocalDescription(desc SessionDescription) error
	SetRemoteDescription(desc SessionDescription) error
	LocalDescription() *SessionDescription

	SignalingState() SignalingState
	ICEGatheringState() ICEGatheringState

	AddICECandidate(c ICECandidateInit) error

	AddLocalTrack(t LocalTrack) error

	// OnNegotiationNeeded fires whenever the peer connection needs a fresh
	// offer (track added, initial setup, etc).
	OnNegotiationNeeded(f func())

	// OnICECandidate fires once per locally-gathered candidate, and once
	// more with a nil candidate when gathering completes.
	OnICECandidate(f func(c *ICECandidateInit))

	OnICEConnectionStateChange(f func(s ICEConnectionState))

	// OnTrack fires when the remote side adds a track; the call adopts the
	// first surfaced RemoteStream as its remote_stream (§4.5).
	OnTrack(f func(track RemoteTrack, streamID string))

	Close() error
}

// PeerConnectionFactory constructs PeerConnections, parameterized by ICE
// servers resolved from configuration (§3 Lifecycle, §6 fallback ICE
// server).
type PeerConnectionFactory interface {
	NewPeerConnection(cfg Configuration) (PeerConnection, error)
}
