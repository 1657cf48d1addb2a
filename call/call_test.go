package call

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/matrix-org/callsig/common"
	"github.com/matrix-org/callsig/media"
	"github.com/matrix-org/callsig/signaling"
	"github.com/matrix-org/callsig/webrtcx"
)

var errTestSend = errors.New("test: send failed")

type fakeAcquirer struct {
	stream *webrtcx.Stream
	err    error
}

func (f *fakeAcquirer) Acquire(ctx context.Context, c media.Constraints) (*webrtcx.Stream, error) {
	return f.stream, f.err
}

func audioStream(id string) *webrtcx.Stream {
	return &webrtcx.Stream{
		ID:          id,
		LocalTracks: []webrtcx.LocalTrack{webrtcx.NewFakeLocalTrack(webrtcx.TrackKindAudio, id+"-audio", id)},
	}
}

type stateTransition struct{ from, to State }

// recorder collects every listener callback a test cares about, guarded by
// the call's own single-executor discipline (listeners run on the call's
// goroutine, so appends here are never concurrent with each other).
type recorder struct {
	states   []stateTransition
	errs     []Error
	hangups  []*Call
	holds    []bool
	replaced []*Call
}

func (r *recorder) listeners() Listeners {
	return Listeners{
		OnState:      func(newState, oldState State) { r.states = append(r.states, stateTransition{oldState, newState}) },
		OnHoldUnhold: func(h bool) { r.holds = append(r.holds, h) },
		OnError:      func(err Error) { r.errs = append(r.errs, err) },
		OnHangup:     func(c *Call) { r.hangups = append(r.hangups, c) },
		OnReplaced:   func(nc *Call) { r.replaced = append(r.replaced, nc) },
	}
}

func testLogger(t *testing.T) *logrus.Entry {
	return logrus.NewEntry(common.NewTestLogger(t))
}

func newOutboundTestCall(t *testing.T, acquirer media.Acquirer, rec *recorder) (*Call, *signaling.FakeTransport, *webrtcx.FakePeerConnectionFactory) {
	t.Helper()
	transport := signaling.NewFakeTransport()
	factory := &webrtcx.FakePeerConnectionFactory{}
	c, err := New(Params{
		RoomID:     "!r",
		OurPartyID: "D1",
		Direction:  Outbound,
		Transport:  transport,
		PCFactory:  factory,
		Acquirer:   acquirer,
		Logger:     testLogger(t),
		Listeners:  rec.listeners(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, transport, factory
}

func newInboundTestCall(t *testing.T, ourPartyID string, acquirer media.Acquirer, rec *recorder) (*Call, *signaling.FakeTransport, *webrtcx.FakePeerConnectionFactory) {
	t.Helper()
	transport := signaling.NewFakeTransport()
	factory := &webrtcx.FakePeerConnectionFactory{}
	c, err := New(Params{
		RoomID:     "!r",
		OurPartyID: ourPartyID,
		Direction:  Inbound,
		Transport:  transport,
		PCFactory:  factory,
		Acquirer:   acquirer,
		Logger:     testLogger(t),
		Listeners:  rec.listeners(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, transport, factory
}

func waitForState(t *testing.T, c *Call, want State, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		if c.State() == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for state %s, last seen %s", want, c.State())
		}
		time.Sleep(time.Millisecond)
	}
}

// drain blocks until every action dispatched before this call has run, or
// until the call's executor has stopped (after which no action runs),
// giving a synchronous barrier for assertions after a call into the
// package's public, asynchronous API.
func drain(c *Call) {
	done := make(chan struct{})
	c.dispatch(func() { close(done) })
	select {
	case <-done:
	case <-c.stopCh:
	}
}

func answerMessage(callID, partyID string) signaling.InboundMessage {
	return signaling.InboundMessage{
		Type:     signaling.EventAnswer,
		CallID:   callID,
		PartyID:  partyID,
		HasParty: true,
		Answer: &signaling.AnswerPayload{
			Envelope: signaling.Envelope{Version: signaling.ProtocolVersion, CallID: callID, PartyID: partyID, Type: signaling.EventAnswer},
			Answer:   signaling.SDP{Type: "answer", SDP: "answer-sdp"},
		},
	}
}

// S1 — happy outbound voice call.
func TestHappyOutboundVoiceCall(t *testing.T) {
	rec := &recorder{}
	c, transport, factory := newOutboundTestCall(t, &fakeAcquirer{stream: audioStream("local1")}, rec)

	c.PlaceVoiceCall(context.Background())
	waitForState(t, c, CreateOffer, time.Second)

	pc := factory.Last()
	pc.FireNegotiationNeeded()
	waitForState(t, c, InviteSent, time.Second)

	invites := transport.SentOfType(signaling.EventInvite)
	if len(invites) != 1 {
		t.Fatalf("want exactly one invite sent, got %d", len(invites))
	}
	inv := invites[0].Payload.(signaling.InvitePayload)
	if inv.CallID != c.CallID() || inv.Version != signaling.ProtocolVersion || inv.PartyID != "D1" || inv.Lifetime != 60000 {
		t.Fatalf("unexpected invite payload: %+v", inv)
	}

	pc.FireTrack(webrtcx.NewFakeRemoteTrack(webrtcx.TrackKindAudio, "r1", "remote1"), "remote1")
	c.HandleInbound(answerMessage(c.CallID(), "D2"))
	waitForState(t, c, Connecting, time.Second)

	pc.FireICEConnectionStateChange(webrtcx.ICEConnectionStateConnected)
	waitForState(t, c, Connected, time.Second)

	drain(c)
	if len(rec.errs) != 0 {
		t.Fatalf("expected no errors, got %+v", rec.errs)
	}
}

// S2 — invite timeout.
func TestInviteTimeoutHangsUpWithReason(t *testing.T) {
	rec := &recorder{}
	c, transport, factory := newOutboundTestCall(t, &fakeAcquirer{stream: audioStream("local1")}, rec)

	c.PlaceVoiceCall(context.Background())
	waitForState(t, c, CreateOffer, time.Second)
	factory.Last().FireNegotiationNeeded()
	waitForState(t, c, InviteSent, time.Second)

	// Simulate the 60s invite timeout firing without waiting wall-clock
	// time: dispatch the same handler the real timer would dispatch.
	c.dispatch(c.onInviteTimeout)
	waitForState(t, c, Ended, time.Second)

	drain(c)
	if c.hangupReason != InviteTimeout || c.hangupParty != PartyLocal {
		t.Fatalf("want reason=InviteTimeout party=Local, got reason=%s party=%s", c.hangupReason, c.hangupParty)
	}
	if got := transport.SentOfType(signaling.EventHangup); len(got) != 1 {
		t.Fatalf("want one outbound hangup, got %d", len(got))
	}
	if len(rec.errs) != 0 {
		t.Fatalf("InviteTimeout must not surface as an error event, got %+v", rec.errs)
	}
}

// S3 — glare, impolite side ignores a colliding offer.
func TestGlareImpoliteIgnoresCollidingOffer(t *testing.T) {
	rec := &recorder{}
	c, transport, _ := newOutboundTestCall(t, &fakeAcquirer{stream: audioStream("local1")}, rec)

	c.PlaceVoiceCall(context.Background())
	waitForState(t, c, CreateOffer, time.Second)

	// Force making_offer = true, simulating the window between BeginOffer
	// and release during our own CreateOffer (spec S3).
	release := c.neg.BeginOffer()
	defer release()

	c.HandleInbound(signaling.InboundMessage{
		Type:   signaling.EventNegotiate,
		CallID: c.CallID(),
		Negotiate: &signaling.NegotiatePayload{
			Envelope:    signaling.Envelope{Version: signaling.ProtocolVersion, CallID: c.CallID(), Type: signaling.EventNegotiate},
			Description: signaling.SDP{Type: "offer", SDP: "colliding-offer-sdp"},
		},
	})
	drain(c)

	if c.State() != CreateOffer {
		t.Fatalf("colliding offer must not move the impolite side off CreateOffer, got %s", c.State())
	}
	if got := transport.SentOfType(signaling.EventNegotiate); len(got) != 0 {
		t.Fatalf("impolite side must not answer a colliding offer, got %d negotiate sends", len(got))
	}
	if !c.neg.IgnoreOffer() {
		t.Fatal("want ignore_offer = true after the collision")
	}
}

// making_offer must stay true across the whole gotLocalOffer/sendLocalOffer
// sequence, not just across CreateOffer itself — a colliding offer that
// lands during the ICE-gather grace wait (which suspends the call's
// executor between dispatched actions) must still be detected as a real
// collision on the impolite side.
func TestMakingOfferStaysTrueAcrossGatherGraceWait(t *testing.T) {
	rec := &recorder{}
	c, transport, factory := newOutboundTestCall(t, &fakeAcquirer{stream: audioStream("local1")}, rec)

	c.PlaceVoiceCall(context.Background())
	waitForState(t, c, CreateOffer, time.Second)

	pc := factory.Last()
	pc.SetICEGatheringState(webrtcx.ICEGatheringStateGathering)
	pc.FireNegotiationNeeded()

	// The negotiationneeded handler has now parked in the gather-grace
	// wait without releasing making_offer; a colliding offer delivered
	// right now must be seen as a real collision.
	c.HandleInbound(signaling.InboundMessage{
		Type:   signaling.EventNegotiate,
		CallID: c.CallID(),
		Negotiate: &signaling.NegotiatePayload{
			Envelope:    signaling.Envelope{Version: signaling.ProtocolVersion, CallID: c.CallID(), Type: signaling.EventNegotiate},
			Description: signaling.SDP{Type: "offer", SDP: "colliding-offer-sdp"},
		},
	})
	drain(c)

	if !c.neg.IgnoreOffer() {
		t.Fatal("want ignore_offer = true for an offer colliding with an in-flight local offer still in its gather-grace wait")
	}
	if c.State() != CreateOffer {
		t.Fatalf("colliding offer must not move the impolite side off CreateOffer, got %s", c.State())
	}

	waitForState(t, c, InviteSent, time.Second)
	if got := transport.SentOfType(signaling.EventInvite); len(got) != 1 {
		t.Fatalf("want the original offer still sent as an invite once the grace wait elapses, got %d", len(got))
	}
}

// S4 — a legacy hangup (no party id, no prior answer) terminates as a
// remote-initiated UserHangup.
func TestLegacyHangupBeforeAnswerTerminatesAsRemote(t *testing.T) {
	rec := &recorder{}
	c, _, factory := newOutboundTestCall(t, &fakeAcquirer{stream: audioStream("local1")}, rec)

	c.PlaceVoiceCall(context.Background())
	waitForState(t, c, CreateOffer, time.Second)
	factory.Last().FireNegotiationNeeded()
	waitForState(t, c, InviteSent, time.Second)

	c.HandleInbound(signaling.InboundMessage{
		Type:     signaling.EventHangup,
		CallID:   c.CallID(),
		HasParty: false,
		Hangup:   &signaling.HangupPayload{Envelope: signaling.Envelope{Version: signaling.ProtocolVersion, CallID: c.CallID(), Type: signaling.EventHangup}},
	})
	waitForState(t, c, Ended, time.Second)

	drain(c)
	if c.hangupParty != PartyRemote || c.hangupReason != UserHangup {
		t.Fatalf("want party=Remote reason=UserHangup, got party=%s reason=%s", c.hangupParty, c.hangupReason)
	}
}

// S5 — an inbound call rejects a select_answer naming a different party id.
func TestSelectAnswerMismatchTerminatesAnsweredElsewhere(t *testing.T) {
	rec := &recorder{}
	c, transport, factory := newInboundTestCall(t, "D1", &fakeAcquirer{stream: audioStream("local1")}, rec)

	pc := factory.Last()
	pc.FireTrack(webrtcx.NewFakeRemoteTrack(webrtcx.TrackKindAudio, "r1", "remote1"), "remote1")

	c.InitWithInvite(&signaling.InvitePayload{
		Envelope: signaling.Envelope{Version: signaling.ProtocolVersion, CallID: c.CallID(), Type: signaling.EventInvite},
		Offer:    signaling.SDP{Type: "offer", SDP: "offer-sdp"},
		Lifetime: 60000,
	}, 0)
	waitForState(t, c, Ringing, time.Second)

	c.Answer(context.Background())
	waitForState(t, c, Connecting, time.Second)

	if got := transport.SentOfType(signaling.EventAnswer); len(got) != 1 {
		t.Fatalf("want one outbound answer, got %d", len(got))
	}

	c.HandleInbound(signaling.InboundMessage{
		Type:         signaling.EventSelectAnswer,
		CallID:       c.CallID(),
		SelectAnswer: &signaling.SelectAnswerPayload{Envelope: signaling.Envelope{Version: signaling.ProtocolVersion, CallID: c.CallID(), Type: signaling.EventSelectAnswer}, SelectedPartyID: "D9"},
	})
	waitForState(t, c, Ended, time.Second)

	drain(c)
	if c.hangupReason != AnsweredElsewhere || c.hangupParty != PartyRemote {
		t.Fatalf("want reason=AnsweredElsewhere party=Remote, got reason=%s party=%s", c.hangupReason, c.hangupParty)
	}
	if len(rec.errs) != 0 {
		t.Fatalf("AnsweredElsewhere must not surface as an error event, got %+v", rec.errs)
	}
}

// A failed answer send must classify as SendAnswer, not the
// SignallingFailed catch-all.
func TestFailedAnswerSendTerminatesWithSendAnswer(t *testing.T) {
	rec := &recorder{}
	c, transport, factory := newInboundTestCall(t, "D1", &fakeAcquirer{stream: audioStream("local1")}, rec)

	pc := factory.Last()
	pc.FireTrack(webrtcx.NewFakeRemoteTrack(webrtcx.TrackKindAudio, "r1", "remote1"), "remote1")

	c.InitWithInvite(&signaling.InvitePayload{
		Envelope: signaling.Envelope{Version: signaling.ProtocolVersion, CallID: c.CallID(), Type: signaling.EventInvite},
		Offer:    signaling.SDP{Type: "offer", SDP: "offer-sdp"},
		Lifetime: 60000,
	}, 0)
	waitForState(t, c, Ringing, time.Second)

	transport.FailNext = errTestSend
	c.Answer(context.Background())
	waitForState(t, c, Ended, time.Second)

	drain(c)
	if c.hangupReason != SendAnswer {
		t.Fatalf("want reason=SendAnswer, got %s", c.hangupReason)
	}
}

const sdpWithRecvonlyAudio = "v=0\r\no=- 0 0 IN IP4 127.0.0.1\r\ns=-\r\nt=0 0\r\n" +
	"m=audio 9 RTP/AVP 0\r\na=recvonly\r\n"

const sdpWithSendrecvAudio = "v=0\r\no=- 0 0 IN IP4 127.0.0.1\r\ns=-\r\nt=0 0\r\n" +
	"m=audio 9 RTP/AVP 0\r\na=sendrecv\r\n"

func negotiateMessage(callID, partyID, sdpType, sdp string) signaling.InboundMessage {
	return signaling.InboundMessage{
		Type:     signaling.EventNegotiate,
		CallID:   callID,
		PartyID:  partyID,
		HasParty: true,
		Negotiate: &signaling.NegotiatePayload{
			Envelope:    signaling.Envelope{Version: signaling.ProtocolVersion, CallID: callID, PartyID: partyID, Type: signaling.EventNegotiate},
			Description: signaling.SDP{Type: sdpType, SDP: sdp},
		},
	}
}

// A renegotiation whose remote SDP reports recvonly on every audio section
// must be detected as the remote party signaling hold, and reverting to
// sendrecv must be detected as unhold.
func TestRenegotiationDetectsRemoteHold(t *testing.T) {
	rec := &recorder{}
	c, transport, factory := newOutboundTestCall(t, &fakeAcquirer{stream: audioStream("local1")}, rec)

	c.PlaceVoiceCall(context.Background())
	waitForState(t, c, CreateOffer, time.Second)
	pc := factory.Last()
	pc.FireNegotiationNeeded()
	waitForState(t, c, InviteSent, time.Second)

	pc.FireTrack(webrtcx.NewFakeRemoteTrack(webrtcx.TrackKindAudio, "r1", "remote1"), "remote1")
	c.HandleInbound(answerMessage(c.CallID(), "D2"))
	waitForState(t, c, Connecting, time.Second)
	pc.FireICEConnectionStateChange(webrtcx.ICEConnectionStateConnected)
	waitForState(t, c, Connected, time.Second)

	c.HandleInbound(negotiateMessage(c.CallID(), "D2", "answer", sdpWithRecvonlyAudio))
	drain(c)
	if len(rec.holds) != 1 || rec.holds[0] != true {
		t.Fatalf("want one hold event with true, got %+v", rec.holds)
	}

	c.HandleInbound(negotiateMessage(c.CallID(), "D2", "answer", sdpWithSendrecvAudio))
	drain(c)
	if len(rec.holds) != 2 || rec.holds[1] != false {
		t.Fatalf("want a second hold event with false, got %+v", rec.holds)
	}

	_ = transport
}

// Invariant 4: once opponent_party_id is committed, a message from a
// different party id causes no state change.
func TestCommittedOpponentFiltersLaterAnswerFromOtherParty(t *testing.T) {
	rec := &recorder{}
	c, _, factory := newOutboundTestCall(t, &fakeAcquirer{stream: audioStream("local1")}, rec)

	c.PlaceVoiceCall(context.Background())
	waitForState(t, c, CreateOffer, time.Second)
	pc := factory.Last()
	pc.FireNegotiationNeeded()
	waitForState(t, c, InviteSent, time.Second)

	pc.FireTrack(webrtcx.NewFakeRemoteTrack(webrtcx.TrackKindAudio, "r1", "remote1"), "remote1")
	c.HandleInbound(answerMessage(c.CallID(), "D2"))
	waitForState(t, c, Connecting, time.Second)

	c.HandleInbound(answerMessage(c.CallID(), "D3"))
	drain(c)

	if c.State() != Connecting {
		t.Fatalf("a later answer from an uncommitted party must not change state, got %s", c.State())
	}
	if c.opponent.PartyID != "D2" {
		t.Fatalf("opponent party id must stay D2, got %q", c.opponent.PartyID)
	}
}

// Invariant 6: Hangup is idempotent.
func TestHangupIsIdempotent(t *testing.T) {
	rec := &recorder{}
	c, _, _ := newOutboundTestCall(t, &fakeAcquirer{stream: audioStream("local1")}, rec)

	c.PlaceVoiceCall(context.Background())
	waitForState(t, c, CreateOffer, time.Second)

	c.Hangup()
	waitForState(t, c, Ended, time.Second)
	c.Hangup()
	drain(c)

	if len(rec.hangups) != 1 {
		t.Fatalf("want exactly one hangup event, got %d", len(rec.hangups))
	}
}

// A local user hangup on an established call must notify the remote party
// on the wire — the remote has no other way to learn the call ended.
func TestHangupSendsWireHangupToRemote(t *testing.T) {
	rec := &recorder{}
	c, transport, factory := newOutboundTestCall(t, &fakeAcquirer{stream: audioStream("local1")}, rec)

	c.PlaceVoiceCall(context.Background())
	waitForState(t, c, CreateOffer, time.Second)
	pc := factory.Last()
	pc.FireNegotiationNeeded()
	waitForState(t, c, InviteSent, time.Second)

	pc.FireTrack(webrtcx.NewFakeRemoteTrack(webrtcx.TrackKindAudio, "r1", "remote1"), "remote1")
	c.HandleInbound(answerMessage(c.CallID(), "D2"))
	waitForState(t, c, Connecting, time.Second)
	pc.FireICEConnectionStateChange(webrtcx.ICEConnectionStateConnected)
	waitForState(t, c, Connected, time.Second)

	c.Hangup()
	waitForState(t, c, Ended, time.Second)

	drain(c)
	sent := transport.SentOfType(signaling.EventHangup)
	if len(sent) != 1 {
		t.Fatalf("want exactly one wire hangup sent, got %d", len(sent))
	}
	if got := sent[0].Payload.(signaling.HangupPayload).Reason; got != UserHangup.String() {
		t.Fatalf("want hangup reason %q, got %q", UserHangup.String(), got)
	}
}

// A peer-initiated hangup must not be echoed back on the wire — the remote
// already knows, since it's the one that sent it.
func TestRemoteHangupIsNotEchoedBackOnWire(t *testing.T) {
	rec := &recorder{}
	c, transport, factory := newOutboundTestCall(t, &fakeAcquirer{stream: audioStream("local1")}, rec)

	c.PlaceVoiceCall(context.Background())
	waitForState(t, c, CreateOffer, time.Second)
	factory.Last().FireNegotiationNeeded()
	waitForState(t, c, InviteSent, time.Second)

	c.HandleInbound(signaling.InboundMessage{
		Type:     signaling.EventHangup,
		CallID:   c.CallID(),
		HasParty: false,
		Hangup:   &signaling.HangupPayload{Envelope: signaling.Envelope{Version: signaling.ProtocolVersion, CallID: c.CallID(), Type: signaling.EventHangup}},
	})
	waitForState(t, c, Ended, time.Second)

	drain(c)
	if got := transport.SentOfType(signaling.EventHangup); len(got) != 0 {
		t.Fatalf("want no wire hangup echoed back for a remote-initiated hangup, got %d", len(got))
	}
}

// Invariant 1: Ended implies the peer connection is closed and every owned
// track is stopped.
func TestEndedClosesPeerConnectionAndStopsTracks(t *testing.T) {
	rec := &recorder{}
	stream := audioStream("local1")
	c, _, factory := newOutboundTestCall(t, &fakeAcquirer{stream: stream}, rec)

	c.PlaceVoiceCall(context.Background())
	waitForState(t, c, CreateOffer, time.Second)

	c.Hangup()
	waitForState(t, c, Ended, time.Second)
	drain(c)

	if !factory.Last().Closed() {
		t.Fatal("want peer connection closed on Ended")
	}
	track := stream.LocalTracks[0].(*webrtcx.FakeLocalTrack)
	if !track.Stopped() {
		t.Fatal("want every local track stopped on Ended")
	}
}

// Invariant 2: no candidates message is sent before an invite or answer.
func TestCandidatesWithheldUntilInviteSent(t *testing.T) {
	rec := &recorder{}
	c, transport, factory := newOutboundTestCall(t, &fakeAcquirer{stream: audioStream("local1")}, rec)

	c.PlaceVoiceCall(context.Background())
	waitForState(t, c, CreateOffer, time.Second)

	pc := factory.Last()
	pc.FireICECandidate(&webrtcx.ICECandidateInit{Candidate: "candidate:1"})
	drain(c)

	if got := transport.SentOfType(signaling.EventCandidates); len(got) != 0 {
		t.Fatalf("want no candidates sent before the invite, got %d", len(got))
	}

	pc.FireNegotiationNeeded()
	waitForState(t, c, InviteSent, time.Second)

	// The candidate queue was discarded when the invite's local description
	// was sent (it travels embedded in the SDP); a fresh candidate posted
	// after is free to flush on its own.
	pc.FireICECandidate(&webrtcx.ICECandidateInit{Candidate: "candidate:2"})
	waitForCandidatesSent(t, transport, 1, 3*time.Second)

	invites := transport.SentOfType(signaling.EventInvite)
	if len(invites) != 1 {
		t.Fatalf("want exactly one invite, got %d", len(invites))
	}
}

func waitForCandidatesSent(t *testing.T, transport *signaling.FakeTransport, want int, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		if len(transport.SentOfType(signaling.EventCandidates)) >= want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d candidates batches", want)
		}
		time.Sleep(time.Millisecond)
	}
}

// Invariant 5 (narrow): the call package's wire<->webrtcx SDP conversion
// round-trips.
func TestSDPConversionRoundTrip(t *testing.T) {
	d := webrtcx.SessionDescription{Type: webrtcx.SDPTypeOffer, SDP: "v=0\r\n"}
	got := fromSignalingSDP(toSignalingSDP(d))
	if got != d {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, d)
	}
}

// Glare/replacement: a predecessor already holding local media in
// CreateOffer hands that stream straight to its successor's answer path.
func TestGlareHandoffFromCreateOfferAdoptsStream(t *testing.T) {
	recA := &recorder{}
	stream := audioStream("local1")
	predecessor, _, _ := newOutboundTestCall(t, &fakeAcquirer{stream: stream}, recA)
	predecessor.PlaceVoiceCall(context.Background())
	waitForState(t, predecessor, CreateOffer, time.Second)

	recB := &recorder{}
	successor, transport, successorFactory := newInboundTestCall(t, "D1", &fakeAcquirer{err: nil}, recB)
	successorFactory.Last().FireTrack(webrtcx.NewFakeRemoteTrack(webrtcx.TrackKindAudio, "r1", "remote1"), "remote1")
	successor.InitWithInvite(&signaling.InvitePayload{
		Envelope: signaling.Envelope{Version: signaling.ProtocolVersion, CallID: successor.CallID(), Type: signaling.EventInvite},
		Offer:    signaling.SDP{Type: "offer", SDP: "offer-sdp"},
		Lifetime: 60000,
	}, 0)
	waitForState(t, successor, Ringing, time.Second)

	statesBeforeReplace := len(recA.states)
	predecessor.Replace(successor)
	waitForState(t, predecessor, Ended, time.Second)
	drain(predecessor)

	if predecessor.hangupReason != Replaced {
		t.Fatalf("want predecessor reason=Replaced, got %s", predecessor.hangupReason)
	}
	if len(recA.hangups) != 0 {
		t.Fatalf("predecessor's own hangup event must be suppressed after being replaced, got %d", len(recA.hangups))
	}
	if len(recA.states) != statesBeforeReplace {
		t.Fatalf("predecessor's Ended transition must not emit a state event once replaced, got %d new events", len(recA.states)-statesBeforeReplace)
	}
	if len(recA.replaced) != 1 || recA.replaced[0] != successor {
		t.Fatalf("want one replaced event naming the successor")
	}

	successor.Answer(context.Background())
	waitForState(t, successor, Connecting, time.Second)

	if got := transport.SentOfType(signaling.EventAnswer); len(got) != 1 {
		t.Fatalf("want one outbound answer from the successor, got %d", len(got))
	}
}
