package webrtcx

import (
	"fmt"
	"sync"

	"github.com/pion/logging"
	webrtc "github.com/pion/webrtc/v2"
	"github.com/sirupsen/logrus"
)

// pionFactory builds PeerConnections using pion/webrtc/v2, the same library
// babble drives directly in src/net/webrtc_stream_layer.go.
type pionFactory struct {
	logger *logrus.Entry
}

// NewPionFactory returns a PeerConnectionFactory backed by pion/webrtc/v2.
func NewPionFactory(logger *logrus.Entry) PeerConnectionFactory {
	return &pionFactory{logger: logger}
}

func (f *pionFactory) NewPeerConnection(cfg Configuration) (PeerConnection, error) {
	settingEngine := webrtc.SettingEngine{}
	settingEngine.LoggerFactory = NewLoggerFactory(f.logger)

	api := webrtc.NewAPI(webrtc.WithSettingEngine(settingEngine))

	iceServers := make([]webrtc.ICEServer, 0, len(cfg.ICEServers))
	for _, s := range cfg.ICEServers {
		iceServers = append(iceServers, webrtc.ICEServer{
			URLs:       s.URLs,
			Username:   s.Username,
			Credential: s.Credential,
		})
	}

	pc, err := api.NewPeerConnection(webrtc.Configuration{ICEServers: iceServers})
	if err != nil {
		return nil, err
	}

	return &pionPeerConnection{pc: pc, logger: f.logger}, nil
}

type pionPeerConnection struct {
	mu     sync.Mutex
	pc     *webrtc.PeerConnection
	logger *logrus.Entry
}

func (p *pionPeerConnection) CreateOffer() (SessionDescription, error) {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return SessionDescription{}, err
	}
	return fromPionSDP(offer), nil
}

func (p *pionPeerConnection) CreateAnswer() (SessionDescription, error) {
	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return SessionDescription{}, err
	}
	return fromPionSDP(answer), nil
}

func (p *pionPeerConnection) SetLocalDescription(desc SessionDescription) error {
	return p.pc.SetLocalDescription(toPionSDP(desc))
}

func (p *pionPeerConnection) SetRemoteDescription(desc SessionDescription) error {
	return p.pc.SetRemoteDescription(toPionSDP(desc))
}

func (p *pionPeerConnection) LocalDescription() *SessionDescription {
	desc := p.pc.LocalDescription()
	if desc == nil {
		return nil
	}
	sd := fromPionSDP(*desc)
	return &sd
}

func (p *pionPeerConnection) SignalingState() SignalingState {
	switch p.pc.SignalingState() {
	case webrtc.SignalingStateStable:
		return SignalingStateStable
	case webrtc.SignalingStateHaveLocalOffer:
		return SignalingStateHaveLocalOffer
	case webrtc.SignalingStateHaveRemoteOffer:
		return SignalingStateHaveRemoteOffer
	case webrtc.SignalingStateHaveLocalPranswer:
		return SignalingStateHaveLocalPranswer
	case webrtc.SignalingStateHaveRemotePranswer:
		return SignalingStateHaveRemotePranswer
	case webrtc.SignalingStateClosed:
		return SignalingStateClosed
	default:
		return SignalingStateStable
	}
}

func (p *pionPeerConnection) ICEGatheringState() ICEGatheringState {
	switch p.pc.ICEGatheringState() {
	case webrtc.ICEGatheringStateNew:
		return ICEGatheringStateNew
	case webrtc.ICEGatheringStateGathering:
		return ICEGatheringStateGathering
	case webrtc.ICEGatheringStateComplete:
		return ICEGatheringStateComplete
	default:
		return ICEGatheringStateNew
	}
}

func (p *pionPeerConnection) AddICECandidate(c ICECandidateInit) error {
	return p.pc.AddICECandidate(webrtc.ICECandidateInit{
		Candidate:     c.Candidate,
		SDPMid:        c.SDPMid,
		SDPMLineIndex: c.SDPMLineIndex,
	})
}

func (p *pionPeerConnection) AddLocalTrack(t LocalTrack) error {
	pt, ok := t.(*pionLocalTrack)
	if !ok {
		return fmt.Errorf("webrtcx: local track was not created by this factory")
	}
	_, err := p.pc.AddTrack(pt.track)
	return err
}

func (p *pionPeerConnection) OnNegotiationNeeded(f func()) {
	p.pc.OnNegotiationNeeded(f)
}

func (p *pionPeerConnection) OnICECandidate(f func(c *ICECandidateInit)) {
	p.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			f(nil)
			return
		}
		init := c.ToJSON()
		f(&ICECandidateInit{
			Candidate:     init.Candidate,
			SDPMid:        init.SDPMid,
			SDPMLineIndex: init.SDPMLineIndex,
		})
	})
}

func (p *pionPeerConnection) OnICEConnectionStateChange(f func(s ICEConnectionState)) {
	p.pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		f(fromPionICEState(s))
	})
}

func (p *pionPeerConnection) OnTrack(f func(track RemoteTrack, streamID string)) {
	p.pc.OnTrack(func(remote *webrtc.Track, _ *webrtc.RTPReceiver) {
		kind := TrackKindAudio
		if remote.Kind() == webrtc.RTPCodecTypeVideo {
			kind = TrackKindVideo
		}
		f(&pionRemoteTrack{id: remote.ID(), streamID: remote.Label(), kind: kind}, remote.Label())
	})
}

func (p *pionPeerConnection) Close() error {
	return p.pc.Close()
}

func fromPionSDP(d webrtc.SessionDescription) SessionDescription {
	return SessionDescription{Type: SDPType(d.Type.String()), SDP: d.SDP}
}

func toPionSDP(d SessionDescription) webrtc.SessionDescription {
	var t webrtc.SDPType
	switch d.Type {
	case SDPTypeOffer:
		t = webrtc.SDPTypeOffer
	case SDPTypeAnswer:
		t = webrtc.SDPTypeAnswer
	case SDPTypePranswer:
		t = webrtc.SDPTypePranswer
	case SDPTypeRollback:
		t = webrtc.SDPTypeRollback
	}
	return webrtc.SessionDescription{Type: t, SDP: d.SDP}
}

func fromPionICEState(s webrtc.ICEConnectionState) ICEConnectionState {
	switch s {
	case webrtc.ICEConnectionStateNew:
		return ICEConnectionStateNew
	case webrtc.ICEConnectionStateChecking:
		return ICEConnectionStateChecking
	case webrtc.ICEConnectionStateConnected:
		return ICEConnectionStateConnected
	case webrtc.ICEConnectionStateCompleted:
		return ICEConnectionStateCompleted
	case webrtc.ICEConnectionStateFailed:
		return ICEConnectionStateFailed
	case webrtc.ICEConnectionStateDisconnected:
		return ICEConnectionStateDisconnected
	case webrtc.ICEConnectionStateClosed:
		return ICEConnectionStateClosed
	default:
		return ICEConnectionStateNew
	}
}

// pionLocalTrack wraps a *webrtc.Track created through NewPionLocalTrack.
type pionLocalTrack struct {
	mu      sync.Mutex
	track   *webrtc.Track
	kind    TrackKind
	enabled bool
	stopped bool
}

// NewPionLocalTrack wraps a pion-created local track so it can be attached
// to a PeerConnection through this package's abstraction. Track capture
// (the samples written to it) is supplied by the caller; this boundary
// never touches a camera or microphone (§1 out-of-scope).
func NewPionLocalTrack(track *webrtc.Track, kind TrackKind) LocalTrack {
	return &pionLocalTrack{track: track, kind: kind, enabled: true}
}

func (t *pionLocalTrack) Kind() TrackKind   { return t.kind }
func (t *pionLocalTrack) ID() string        { return t.track.ID() }
func (t *pionLocalTrack) StreamID() string  { return t.track.Label() }

func (t *pionLocalTrack) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
}

func (t *pionLocalTrack) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

func (t *pionLocalTrack) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	t.enabled = false
}

type pionRemoteTrack struct {
	id       string
	streamID string
	kind     TrackKind
}

func (t *pionRemoteTrack) Kind() TrackKind  { return t.kind }
func (t *pionRemoteTrack) ID() string       { return t.id }
func (t *pionRemoteTrack) StreamID() string { return t.streamID }

// Stop is a no-op: pion/webrtc/v2 has no explicit remote-track teardown
// call, it stops delivering samples once the peer connection closes.
func (t *pionRemoteTrack) Stop() {}

var _ logging.LoggerFactory = (*logrusFactory)(nil)
