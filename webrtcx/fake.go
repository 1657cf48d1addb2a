package webrtcx

import "sync"

// FakePeerConnection is an in-memory stand-in for PeerConnection used by this
// module's tests, in the same spirit as babble's file-based TestSignal
// (src/net/webrtc_signal.go) — a hand-written fake rather than a mocking
// framework, driven synchronously by the test.
type FakePeerConnection struct {
	mu sync.Mutex

	signalingState SignalingState
	gatheringState ICEGatheringState
	localDesc      *SessionDescription

	offerCounter  int
	answerCounter int

	CreateOfferErr           error
	CreateAnswerErr          error
	SetLocalDescriptionErr   error
	SetRemoteDescriptionErr  error
	AddICECandidateErr       error

	LocalTracks []LocalTrack

	negotiationNeeded func()
	onICECandidate    func(*ICECandidateInit)
	onICEStateChange  func(ICEConnectionState)
	onTrack           func(RemoteTrack, string)

	closed bool
}

// NewFakePeerConnection returns a stable-state fake peer connection.
func NewFakePeerConnection() *FakePeerConnection {
	return &FakePeerConnection{signalingState: SignalingStateStable, gatheringState: ICEGatheringStateNew}
}

func (f *FakePeerConnection) CreateOffer() (SessionDescription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateOfferErr != nil {
		return SessionDescription{}, f.CreateOfferErr
	}
	f.offerCounter++
	return SessionDescription{Type: SDPTypeOffer, SDP: "offer-sdp"}, nil
}

func (f *FakePeerConnection) CreateAnswer() (SessionDescription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateAnswerErr != nil {
		return SessionDescription{}, f.CreateAnswerErr
	}
	f.answerCounter++
	return SessionDescription{Type: SDPTypeAnswer, SDP: "answer-sdp"}, nil
}

func (f *FakePeerConnection) SetLocalDescription(desc SessionDescription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetLocalDescriptionErr != nil {
		return f.SetLocalDescriptionErr
	}
	f.localDesc = &desc
	switch desc.Type {
	case SDPTypeOffer:
		f.signalingState = SignalingStateHaveLocalOffer
	case SDPTypeAnswer:
		f.signalingState = SignalingStateStable
	}
	return nil
}

func (f *FakePeerConnection) SetRemoteDescription(desc SessionDescription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetRemoteDescriptionErr != nil {
		return f.SetRemoteDescriptionErr
	}
	switch desc.Type {
	case SDPTypeOffer:
		f.signalingState = SignalingStateHaveRemoteOffer
	case SDPTypeAnswer:
		f.signalingState = SignalingStateStable
	}
	return nil
}

func (f *FakePeerConnection) LocalDescription() *SessionDescription {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.localDesc
}

func (f *FakePeerConnection) SignalingState() SignalingState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signalingState
}

func (f *FakePeerConnection) ICEGatheringState() ICEGatheringState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gatheringState
}

// SetICEGatheringState lets a test simulate an in-progress or completed
// gather.
func (f *FakePeerConnection) SetICEGatheringState(s ICEGatheringState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gatheringState = s
}

func (f *FakePeerConnection) AddICECandidate(c ICECandidateInit) error {
	return f.AddICECandidateErr
}

func (f *FakePeerConnection) AddLocalTrack(t LocalTrack) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LocalTracks = append(f.LocalTracks, t)
	return nil
}

func (f *FakePeerConnection) OnNegotiationNeeded(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.negotiationNeeded = fn
}

func (f *FakePeerConnection) OnICECandidate(fn func(*ICECandidateInit)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onICECandidate = fn
}

func (f *FakePeerConnection) OnICEConnectionStateChange(fn func(ICEConnectionState)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onICEStateChange = fn
}

func (f *FakePeerConnection) OnTrack(fn func(RemoteTrack, string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onTrack = fn
}

func (f *FakePeerConnection) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.signalingState = SignalingStateClosed
	return nil
}

// Closed reports whether Close has been called.
func (f *FakePeerConnection) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// FireNegotiationNeeded invokes the registered OnNegotiationNeeded handler,
// for a test to simulate pion's negotiationneeded event.
func (f *FakePeerConnection) FireNegotiationNeeded() {
	f.mu.Lock()
	fn := f.negotiationNeeded
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// FireICECandidate invokes the registered OnICECandidate handler.
func (f *FakePeerConnection) FireICECandidate(c *ICECandidateInit) {
	f.mu.Lock()
	fn := f.onICECandidate
	f.mu.Unlock()
	if fn != nil {
		fn(c)
	}
}

// FireICEConnectionStateChange invokes the registered state-change handler.
func (f *FakePeerConnection) FireICEConnectionStateChange(s ICEConnectionState) {
	f.mu.Lock()
	fn := f.onICEStateChange
	f.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

// FireTrack invokes the registered OnTrack handler.
func (f *FakePeerConnection) FireTrack(track RemoteTrack, streamID string) {
	f.mu.Lock()
	fn := f.onTrack
	f.mu.Unlock()
	if fn != nil {
		fn(track, streamID)
	}
}

// FakeLocalTrack is a trivial LocalTrack for tests.
type FakeLocalTrack struct {
	mu       sync.Mutex
	kind     TrackKind
	id       string
	streamID string
	enabled  bool
	stopped  bool
}

// NewFakeLocalTrack returns an enabled fake local track.
func NewFakeLocalTrack(kind TrackKind, id, streamID string) *FakeLocalTrack {
	return &FakeLocalTrack{kind: kind, id: id, streamID: streamID, enabled: true}
}

func (t *FakeLocalTrack) Kind() TrackKind  { return t.kind }
func (t *FakeLocalTrack) ID() string       { return t.id }
func (t *FakeLocalTrack) StreamID() string { return t.streamID }

func (t *FakeLocalTrack) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
}

func (t *FakeLocalTrack) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

func (t *FakeLocalTrack) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	t.enabled = false
}

// Stopped reports whether Stop has been called.
func (t *FakeLocalTrack) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// FakeRemoteTrack is a trivial RemoteTrack for tests.
type FakeRemoteTrack struct {
	mu       sync.Mutex
	kind     TrackKind
	id       string
	streamID string
	stopped  bool
}

// NewFakeRemoteTrack returns a fake remote track.
func NewFakeRemoteTrack(kind TrackKind, id, streamID string) *FakeRemoteTrack {
	return &FakeRemoteTrack{kind: kind, id: id, streamID: streamID}
}

func (t *FakeRemoteTrack) Kind() TrackKind  { return t.kind }
func (t *FakeRemoteTrack) ID() string       { return t.id }
func (t *FakeRemoteTrack) StreamID() string { return t.streamID }

func (t *FakeRemoteTrack) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

// Stopped reports whether Stop has been called.
func (t *FakeRemoteTrack) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// FakePeerConnectionFactory hands out a fresh FakePeerConnection per call,
// recording the Configuration each was built with.
type FakePeerConnectionFactory struct {
	mu sync.Mutex

	Created []*FakePeerConnection
	Configs []Configuration

	// NewErr, if set, is returned by the next NewPeerConnection call instead
	// of constructing a fake.
	NewErr error
}

func (f *FakePeerConnectionFactory) NewPeerConnection(cfg Configuration) (PeerConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.NewErr != nil {
		return nil, f.NewErr
	}

	pc := NewFakePeerConnection()
	f.Created = append(f.Created, pc)
	f.Configs = append(f.Configs, cfg)
	return pc, nil
}

// Last returns the most recently created fake peer connection, or nil if
// none has been created yet.
func (f *FakePeerConnectionFactory) Last() *FakePeerConnection {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Created) == 0 {
		return nil
	}
	return f.Created[len(f.Created)-1]
}

var _ PeerConnection = (*FakePeerConnection)(nil)
var _ PeerConnectionFactory = (*FakePeerConnectionFactory)(nil)
var _ LocalTrack = (*FakeLocalTrack)(nil)
var _ RemoteTrack = (*FakeRemoteTrack)(nil)
