// Package media implements the MediaOrchestrator (§4.5): lazy local
// media acquisition, track gating for mute/hold, remote stream adoption,
// and teardown. Device enumeration and the actual capture UI are out of
// scope (§1) — Acquirer is the narrow interface the orchestrator
// drives instead.
package media

import (
	"context"
	"errors"

	"github.com/matrix-org/callsig/device"
	"github.com/matrix-org/callsig/webrtcx"
)

// CallType selects which kinds of track a call needs.
type CallType int

const (
	// Voice calls acquire audio only.
	Voice CallType = iota
	// Video calls acquire both audio and video. The source this spec is
	// modeled on requests {audio:false, video:false} for video calls,
	// which cannot be correct (see §9 open questions); Constraints
	// below returns the corrected {audio:true, video:true}.
	Video
)

// Constraints describes which track kinds to request from the Acquirer, and
// which device the Acquirer should prefer for each — the process-wide
// defaults from the device package (§6: "Read when acquiring local
// media"), carried through so an embedder's Acquirer can honor them.
type Constraints struct {
	Audio bool
	Video bool

	AudioInputID  string
	VideoInputID  string
	AudioOutputID string
}

// Constraints returns the acquisition constraints for a CallType, stamped
// with the device package's current defaults at the moment of acquisition.
func (t CallType) Constraints() Constraints {
	d := device.Current()
	c := Constraints{AudioInputID: d.AudioInputID, AudioOutputID: d.AudioOutputID}
	switch t {
	case Video:
		c.Audio, c.Video = true, true
		c.VideoInputID = d.VideoInputID
	default:
		c.Audio = true
	}
	return c
}

// Acquirer captures local media. It is the external collaborator for
// device enumeration and camera/microphone permission UI (§1
// Out-of-scope); the orchestrator only ever calls Acquire once per call.
type Acquirer interface {
	Acquire(ctx context.Context, constraints Constraints) (*webrtcx.Stream, error)
}

// ErrNoRemoteStream is the protocol error raised when a remote description
// has been set but the peer connection has surfaced no remote stream
// (§4.5: "this is a protocol error").
var ErrNoRemoteStream = errors.New("media: no remote stream surfaced after remote description")

// Orchestrator gates local media acquisition against call state, applies
// mute/hold to outbound tracks, and adopts the first remote stream the
// peer connection surfaces. Not safe for concurrent use; owned exclusively
// by the call's single executor.
type Orchestrator struct {
	acquirer Acquirer
	pc       webrtcx.PeerConnection

	acquired bool
	local    *webrtcx.Stream
	remote   *webrtcx.RemoteStream

	micMuted     bool
	vidMuted     bool
	remoteOnHold bool
}

// New returns an Orchestrator bound to the given Acquirer and peer
// connection. It wires the peer connection's OnTrack handler immediately, at
// construction, so no remote track surfaced after New returns is missed.
func New(acquirer Acquirer, pc webrtcx.PeerConnection) *Orchestrator {
	o := &Orchestrator{acquirer: acquirer, pc: pc}
	pc.OnTrack(o.onTrack)
	return o
}

// Acquire captures local media exactly once per call and attaches every
// resulting track to the peer connection. Later calls return the
// already-acquired stream without re-invoking the Acquirer.
func (o *Orchestrator) Acquire(ctx context.Context, t CallType) (*webrtcx.Stream, error) {
	if o.acquired {
		return o.local, nil
	}

	stream, err := o.AcquireStream(ctx, t.Constraints())
	if err != nil {
		return nil, err
	}

	if err := o.Attach(stream); err != nil {
		return nil, err
	}
	return o.local, nil
}

// AcquireStream runs only the Acquirer's capture step, with no Orchestrator
// state mutation. The call package uses this to run the blocking capture
// call on a throwaway goroutine — media acquisition is a named suspension
// point (§5) — and feed the result back through Attach on the call's
// own executor, so the Orchestrator is still only ever mutated from one
// goroutine.
func (o *Orchestrator) AcquireStream(ctx context.Context, constraints Constraints) (*webrtcx.Stream, error) {
	return o.acquirer.Acquire(ctx, constraints)
}

// Attach records an already-captured stream as this call's local stream and
// wires its tracks into the peer connection. A no-op if a stream has already
// been attached — used both for the call's own acquisition result and for
// adopting a stream handed off from a superseded call (§4.6).
func (o *Orchestrator) Attach(stream *webrtcx.Stream) error {
	if o.acquired {
		return nil
	}

	for _, track := range stream.LocalTracks {
		if err := o.pc.AddLocalTrack(track); err != nil {
			return err
		}
	}

	o.acquired = true
	o.local = stream
	o.applyGating()
	return nil
}

// LocalStream returns the acquired local stream, or nil before Acquire
// succeeds.
func (o *Orchestrator) LocalStream() *webrtcx.Stream {
	return o.local
}

// RemoteStream returns the adopted remote stream, or nil if none has been
// surfaced yet.
func (o *Orchestrator) RemoteStream() *webrtcx.RemoteStream {
	return o.remote
}

// RequireRemoteStream returns ErrNoRemoteStream if no remote stream has
// been adopted — called right after setting a remote description, per the
// spec's protocol-error rule.
func (o *Orchestrator) RequireRemoteStream() error {
	if o.remote == nil {
		return ErrNoRemoteStream
	}
	return nil
}

func (o *Orchestrator) onTrack(track webrtcx.RemoteTrack, streamID string) {
	if o.remote == nil {
		o.remote = &webrtcx.RemoteStream{ID: streamID}
	}
	if streamID != o.remote.ID {
		// A second remote stream id would mean multi-stream, which is out
		// of scope (spec Non-goals: no multi-party conferencing); only
		// the first stream surfaced is adopted.
		return
	}
	o.remote.Tracks = append(o.remote.Tracks, track)
}

// SetMicMuted records the user's mic-mute request and re-applies gating.
func (o *Orchestrator) SetMicMuted(muted bool) {
	o.micMuted = muted
	o.applyGating()
}

// SetVidMuted records the user's video-mute request and re-applies gating.
func (o *Orchestrator) SetVidMuted(muted bool) {
	o.vidMuted = muted
	o.applyGating()
}

// SetRemoteOnHold records whether the remote party has put the call on
// hold and re-applies gating: holding mutes outbound audio and video same
// as a local mute would.
func (o *Orchestrator) SetRemoteOnHold(onHold bool) {
	o.remoteOnHold = onHold
	o.applyGating()
}

func (o *Orchestrator) applyGating() {
	if o.local == nil {
		return
	}
	o.local.SetAudioEnabled(!(o.micMuted || o.remoteOnHold))
	o.local.SetVideoEnabled(!(o.vidMuted || o.remoteOnHold))
}

// Teardown stops every track in both the local and remote streams. Safe to
// call more than once and before Acquire has ever run.
func (o *Orchestrator) Teardown() {
	o.local.StopAll()
	o.remote.StopAll()
}
