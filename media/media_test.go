package media

import (
	"context"
	"testing"

	"github.com/matrix-org/callsig/device"
	"github.com/matrix-org/callsig/webrtcx"
)

type fakeAcquirer struct {
	constraints Constraints
	stream      *webrtcx.Stream
	err         error
}

func (a *fakeAcquirer) Acquire(ctx context.Context, c Constraints) (*webrtcx.Stream, error) {
	a.constraints = c
	if a.err != nil {
		return nil, a.err
	}
	return a.stream, nil
}

func newStreamWithTracks() *webrtcx.Stream {
	audio := webrtcx.NewFakeLocalTrack(webrtcx.TrackKindAudio, "a1", "s1")
	video := webrtcx.NewFakeLocalTrack(webrtcx.TrackKindVideo, "v1", "s1")
	return &webrtcx.Stream{ID: "s1", LocalTracks: []webrtcx.LocalTrack{audio, video}}
}

func TestVideoConstraintsRequestBothAudioAndVideo(t *testing.T) {
	acquirer := &fakeAcquirer{stream: newStreamWithTracks()}
	pc := webrtcx.NewFakePeerConnection()
	o := New(acquirer, pc)

	if _, err := o.Acquire(context.Background(), Video); err != nil {
		t.Fatal(err)
	}

	if !acquirer.constraints.Audio || !acquirer.constraints.Video {
		t.Fatalf("expected both audio and video requested for a video call, got %+v", acquirer.constraints)
	}
}

func TestVoiceConstraintsRequestAudioOnly(t *testing.T) {
	acquirer := &fakeAcquirer{stream: newStreamWithTracks()}
	pc := webrtcx.NewFakePeerConnection()
	o := New(acquirer, pc)

	if _, err := o.Acquire(context.Background(), Voice); err != nil {
		t.Fatal(err)
	}

	if !acquirer.constraints.Audio || acquirer.constraints.Video {
		t.Fatalf("expected audio-only for a voice call, got %+v", acquirer.constraints)
	}
}

func TestConstraintsCarryConfiguredDeviceDefaults(t *testing.T) {
	device.SetAudioInput("mic-2")
	device.SetAudioOutput("speaker-1")
	device.SetVideoInput("cam-3")
	defer func() {
		device.SetAudioInput("")
		device.SetAudioOutput("")
		device.SetVideoInput("")
	}()

	voice := Voice.Constraints()
	if voice.AudioInputID != "mic-2" || voice.AudioOutputID != "speaker-1" {
		t.Fatalf("expected voice constraints to carry configured audio device ids, got %+v", voice)
	}
	if voice.VideoInputID != "" {
		t.Fatalf("expected voice constraints to omit a video device id, got %+v", voice)
	}

	video := Video.Constraints()
	if video.VideoInputID != "cam-3" {
		t.Fatalf("expected video constraints to carry the configured video device id, got %+v", video)
	}
}

func TestAcquireIsLazyAndOnlyRunsOnce(t *testing.T) {
	acquirer := &fakeAcquirer{stream: newStreamWithTracks()}
	pc := webrtcx.NewFakePeerConnection()
	o := New(acquirer, pc)

	stream1, err := o.Acquire(context.Background(), Voice)
	if err != nil {
		t.Fatal(err)
	}
	stream2, err := o.Acquire(context.Background(), Video)
	if err != nil {
		t.Fatal(err)
	}
	if stream1 != stream2 {
		t.Fatal("expected the same stream returned without re-acquiring")
	}
	if len(pc.LocalTracks) != 2 {
		t.Fatalf("expected tracks attached exactly once, got %d", len(pc.LocalTracks))
	}
}

func TestTrackGatingRespectsMuteAndHold(t *testing.T) {
	acquirer := &fakeAcquirer{stream: newStreamWithTracks()}
	pc := webrtcx.NewFakePeerConnection()
	o := New(acquirer, pc)
	o.Acquire(context.Background(), Video)

	audio := o.LocalStream().LocalTracks[0]
	video := o.LocalStream().LocalTracks[1]

	if !audio.Enabled() || !video.Enabled() {
		t.Fatal("expected tracks enabled by default")
	}

	o.SetMicMuted(true)
	if audio.Enabled() {
		t.Fatal("expected audio disabled after mic mute")
	}
	if !video.Enabled() {
		t.Fatal("expected video unaffected by mic mute")
	}

	o.SetMicMuted(false)
	o.SetRemoteOnHold(true)
	if audio.Enabled() || video.Enabled() {
		t.Fatal("expected both tracks disabled while remote on hold")
	}

	o.SetRemoteOnHold(false)
	if !audio.Enabled() || !video.Enabled() {
		t.Fatal("expected tracks re-enabled once unmuted and off hold")
	}
}

func TestRemoteStreamAdoptsFirstStreamOnly(t *testing.T) {
	pc := webrtcx.NewFakePeerConnection()
	o := New(&fakeAcquirer{stream: newStreamWithTracks()}, pc)

	if err := o.RequireRemoteStream(); err == nil {
		t.Fatal("expected an error before any remote track arrives")
	}

	track1 := webrtcx.NewFakeRemoteTrack(webrtcx.TrackKindAudio, "r1", "remote-1")
	pc.FireTrack(track1, "remote-1")

	if err := o.RequireRemoteStream(); err != nil {
		t.Fatalf("expected a remote stream to be adopted, got %v", err)
	}

	track2 := webrtcx.NewFakeRemoteTrack(webrtcx.TrackKindVideo, "r2", "remote-2")
	pc.FireTrack(track2, "remote-2")

	if len(o.RemoteStream().Tracks) != 1 {
		t.Fatalf("expected a second stream id to be ignored, got %d tracks", len(o.RemoteStream().Tracks))
	}
}

func TestTeardownStopsLocalAndRemoteTracks(t *testing.T) {
	pc := webrtcx.NewFakePeerConnection()
	o := New(&fakeAcquirer{stream: newStreamWithTracks()}, pc)
	o.Acquire(context.Background(), Video)

	remoteTrack := webrtcx.NewFakeRemoteTrack(webrtcx.TrackKindAudio, "r1", "remote-1")
	pc.FireTrack(remoteTrack, "remote-1")

	o.Teardown()

	for _, track := range o.LocalStream().LocalTracks {
		if fake, ok := track.(*webrtcx.FakeLocalTrack); ok && !fake.Stopped() {
			t.Fatal("expected local track stopped after teardown")
		}
	}
	if !remoteTrack.Stopped() {
		t.Fatal("expected remote track stopped after teardown")
	}
}

func TestTeardownBeforeAcquireIsANoOp(t *testing.T) {
	pc := webrtcx.NewFakePeerConnection()
	o := New(&fakeAcquirer{stream: newStreamWithTracks()}, pc)
	o.Teardown()
}
