package negotiate

import (
	"testing"

	"github.com/matrix-org/callsig/webrtcx"
)

func TestImpoliteIgnoresCollidingOffer(t *testing.T) {
	c := New(false) // outbound: impolite

	release := c.BeginOffer()
	defer release()

	ignore := c.OnRemoteDescription(true, webrtcx.SignalingStateStable)
	if !ignore {
		t.Fatal("expected impolite side to ignore a colliding offer")
	}
}

func TestPoliteAcceptsCollidingOffer(t *testing.T) {
	c := New(true) // inbound: polite

	release := c.BeginOffer()
	defer release()

	ignore := c.OnRemoteDescription(true, webrtcx.SignalingStateStable)
	if ignore {
		t.Fatal("expected polite side to accept a colliding offer, not ignore it")
	}
}

func TestNoCollisionWhenNotMakingOfferAndStable(t *testing.T) {
	c := New(false)

	ignore := c.OnRemoteDescription(true, webrtcx.SignalingStateStable)
	if ignore {
		t.Fatal("expected no collision absent a concurrent local offer")
	}
}

func TestBeginOfferReleaseClearsFlag(t *testing.T) {
	c := New(false)

	release := c.BeginOffer()
	if !c.MakingOffer() {
		t.Fatal("expected making_offer to be true while in flight")
	}
	release()
	if c.MakingOffer() {
		t.Fatal("expected making_offer to be cleared after release")
	}
}

func TestAnswerIsNeverACollision(t *testing.T) {
	c := New(false)

	release := c.BeginOffer()
	defer release()

	ignore := c.OnRemoteDescription(false, webrtcx.SignalingStateHaveLocalOffer)
	if ignore {
		t.Fatal("an answer should never trigger offer_collision")
	}
}
