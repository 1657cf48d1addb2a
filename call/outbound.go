package call

import (
	"context"
	"errors"
	"time"

	"github.com/matrix-org/callsig/media"
	"github.com/matrix-org/callsig/signaling"
	"github.com/matrix-org/callsig/timers"
	"github.com/matrix-org/callsig/webrtcx"
)

// PlaceVoiceCall starts an outbound voice call: Fledgling -> WaitLocalMedia
// -> (media acquired) -> CreateOffer, at which point negotiationneeded
// drives the rest.
func (c *Call) PlaceVoiceCall(ctx context.Context) {
	c.placeCall(ctx, media.Voice)
}

// PlaceVideoCall is PlaceVoiceCall's video counterpart.
func (c *Call) PlaceVideoCall(ctx context.Context) {
	c.placeCall(ctx, media.Video)
}

func (c *Call) placeCall(ctx context.Context, t media.CallType) {
	if c.Ended() {
		return
	}
	c.dispatch(func() { c.doPlaceCall(ctx, t) })
}

func (c *Call) doPlaceCall(ctx context.Context, t media.CallType) {
	if !c.transition(triggerPlaceCall) {
		return
	}
	c.callType = t
	c.acquireAndOffer(ctx)
}

// acquireAndOffer runs media capture on its own goroutine — the call is in
// WaitLocalMedia for the duration, which is the window glare resolution
// targets (§4.6: "if we are in WaitLocalMedia, signal new_call to also
// wait") — and feeds the result back onto the call's executor via
// gotUserMediaForInvite/getUserMediaFailed.
func (c *Call) acquireAndOffer(ctx context.Context) {
	go func() {
		stream, err := c.mediaOrch.AcquireStream(ctx, c.callType.Constraints())
		c.dispatch(func() {
			if err != nil {
				c.getUserMediaFailed(err)
				return
			}
			c.gotUserMediaForInvite(stream)
		})
	}()
}

// gotUserMediaForInvite attaches the captured stream and advances the state
// machine, unless this call has since been superseded, in which case the
// stream is handed to the successor instead (§4.6).
func (c *Call) gotUserMediaForInvite(stream *webrtcx.Stream) {
	if c.Ended() {
		return
	}
	if c.successor != nil {
		c.successor.adoptHandedOffStream(stream)
		return
	}
	if err := c.mediaOrch.Attach(stream); err != nil {
		c.terminate(NoUserMedia, PartyLocal, err)
		return
	}
	c.transition(triggerMediaAcquiredOutbound)
	// Negotiation from here on is driven entirely by the peer connection's
	// negotiationneeded callback (§4.5: "do not eagerly create the
	// offer").
}

func (c *Call) getUserMediaFailed(err error) {
	if c.Ended() {
		return
	}
	if c.successor != nil {
		c.successor.dispatch(func() { c.successor.terminate(NoUserMedia, PartyLocal, err) })
		return
	}
	c.terminate(NoUserMedia, PartyLocal, err)
}

// onNegotiationNeeded fires whenever the peer connection needs a fresh
// offer: once for the initial outbound offer, and again on renegotiation
// for any mid-call track change.
func (c *Call) onNegotiationNeeded() {
	if c.Ended() {
		return
	}
	if c.State() != CreateOffer && c.opponentVersion == 0 {
		c.logger.Debug("Ignoring negotiationneeded: legacy peer cannot renegotiate")
		return
	}

	release := c.neg.BeginOffer()
	offer, err := c.pc.CreateOffer()
	if err != nil {
		release()
		c.terminate(LocalOfferFailed, PartyLocal, err)
		return
	}
	c.gotLocalOffer(offer, release)
}

// gotLocalOffer and sendLocalOffer carry release, the negotiate
// Controller's making_offer flag release, through to whichever exit path
// actually terminates the sequence CreateOffer started — SetLocalDescription,
// the 200ms ICE-gather grace wait, and the transport send all still lie
// ahead of it here, and making_offer must stay true for the whole span so a
// colliding remote offer that lands during it is seen as a real collision
// (§4.2).
func (c *Call) gotLocalOffer(offer webrtcx.SessionDescription, release func()) {
	if c.Ended() {
		release()
		return
	}

	if err := c.pc.SetLocalDescription(offer); err != nil {
		release()
		c.terminate(SetLocalDescription, PartyLocal, err)
		return
	}

	if c.pc.ICEGatheringState() == webrtcx.ICEGatheringStateGathering {
		c.waitThenDispatch(timers.GatherGraceTimer(), func() { c.sendLocalOffer(offer, release) })
		return
	}
	c.sendLocalOffer(offer, release)
}

func (c *Call) sendLocalOffer(offer webrtcx.SessionDescription, release func()) {
	defer release()
	if c.Ended() {
		return
	}

	c.candQ.Discard()

	isInvite := c.State() == CreateOffer
	var err error
	if isInvite {
		payload := signaling.InvitePayload{
			Envelope: signaling.Envelope{
				Version: signaling.ProtocolVersion,
				CallID:  c.callID,
				PartyID: c.ourPartyID,
				Type:    signaling.EventInvite,
			},
			Offer:    toSignalingSDP(offer),
			Lifetime: int64(timers.InviteTimeout / time.Millisecond),
		}
		err = c.transport.Send(context.Background(), c.roomID, payload)
		if err == nil {
			c.inviteOrAnswerSent = true
			c.transition(triggerOfferSent)
		}
	} else {
		payload := signaling.NegotiatePayload{
			Envelope: signaling.Envelope{
				Version: signaling.ProtocolVersion,
				CallID:  c.callID,
				PartyID: c.ourPartyID,
				Type:    signaling.EventNegotiate,
			},
			Description: toSignalingSDP(offer),
		}
		err = c.transport.Send(context.Background(), c.roomID, payload)
	}

	if err != nil {
		kind := sendKindNegotiate
		if isInvite {
			kind = sendKindInvite
		}
		c.classifySendFailure(err, kind)
		return
	}

	if schedule, delay := c.candQ.Kick(c.queueReady()); schedule {
		c.waitThenDispatch(time.After(delay), c.flushCandidates)
	}
}

// sendKind distinguishes which outbound signaling message a failed Send
// was carrying, so classifySendFailure can terminate with the right §6/§7
// wire-visible code instead of folding every non-invite send into the
// SignallingFailed catch-all.
type sendKind int

const (
	sendKindInvite sendKind = iota
	sendKindAnswer
	sendKindNegotiate
)

func (c *Call) classifySendFailure(err error, kind sendKind) {
	if errors.Is(err, signaling.ErrUnknownDevices) {
		c.terminate(UnknownDevices, PartyLocal, err)
		return
	}
	switch kind {
	case sendKindInvite:
		c.terminate(SendInvite, PartyLocal, err)
	case sendKindAnswer:
		c.terminate(SendAnswer, PartyLocal, err)
	default:
		c.terminate(SignallingFailed, PartyLocal, err)
	}
}

func toSignalingSDP(d webrtcx.SessionDescription) signaling.SDP {
	return signaling.SDP{SDP: d.SDP, Type: string(d.Type)}
}

func fromSignalingSDP(d signaling.SDP) webrtcx.SessionDescription {
	return webrtcx.SessionDescription{SDP: d.SDP, Type: webrtcx.SDPType(d.Type)}
}
