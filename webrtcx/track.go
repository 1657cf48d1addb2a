package webrtcx

// LocalTrack is a locally-captured audio or video track attached to a
// PeerConnection. Capture itself (camera/microphone acquisition) is outside
// this boundary; the engine only ever mutes/unmutes and stops tracks it was
// handed by a media.Acquirer.
type LocalTrack interface {
	Kind() TrackKind
	ID() string
	StreamID() string

	// SetEnabled gates whether the track carries media. The engine calls
	// this on every mute/hold change; it never tears down the underlying
	// capture device.
	SetEnabled(enabled bool)
	Enabled() bool

	// Stop releases the underlying capture resource. Idempotent.
	Stop()
}

// RemoteTrack is a track surfaced by the peer connection once the remote
// description is applied and media starts flowing.
type RemoteTrack interface {
	Kind() TrackKind
	ID() string
	StreamID() string

	// Stop releases any local resources tied to rendering/consuming this
	// track (the call owns the remote stream just as it owns the local
	// one, per §3). It does not signal anything to the remote peer.
	Stop()
}

// Stream groups tracks that share a single MediaStream id, mirroring the
// browser's notion that a call has "the" local stream and "the" remote
// stream (§3 local_stream/remote_stream).
type Stream struct {
	ID          string
	LocalTracks []LocalTrack
}

// StopAll stops every local track in the stream. Safe to call more than
// once; LocalTrack.Stop is required to be idempotent.
func (s *Stream) StopAll() {
	if s == nil {
		return
	}
	for _, t := range s.LocalTracks {
		t.Stop()
	}
}

// SetAudioEnabled applies enabled to every audio track in the stream.
func (s *Stream) SetAudioEnabled(enabled bool) {
	if s == nil {
		return
	}
	for _, t := range s.LocalTracks {
		if t.Kind() == TrackKindAudio {
			t.SetEnabled(enabled)
		}
	}
}

// SetVideoEnabled applies enabled to every video track in the stream.
func (s *Stream) SetVideoEnabled(enabled bool) {
	if s == nil {
		return
	}
	for _, t := range s.LocalTracks {
		if t.Kind() == TrackKindVideo {
			t.SetEnabled(enabled)
		}
	}
}

// RemoteStream is the read-only counterpart surfaced via OnTrack.
type RemoteStream struct {
	ID     string
	Tracks []RemoteTrack
}

// StopAll stops every track in the remote stream. Safe to call on a nil
// receiver or more than once.
func (s *RemoteStream) StopAll() {
	if s == nil {
		return
	}
	for _, t := range s.Tracks {
		t.Stop()
	}
}
