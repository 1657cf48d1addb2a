package call

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/matrix-org/callsig/router"
	"github.com/matrix-org/callsig/signaling"
	"github.com/matrix-org/callsig/timers"
	"github.com/matrix-org/callsig/webrtcx"
)

// InitWithInvite constructs the call's initial remote description from an
// incoming invite. localAge and the invite's Lifetime decide whether
// the invite is already stale.
func (c *Call) InitWithInvite(msg *signaling.InvitePayload, localAge int64) {
	if c.Ended() {
		return
	}
	c.dispatch(func() { c.doInitWithInvite(msg, localAge) })
}

func (c *Call) doInitWithInvite(msg *signaling.InvitePayload, localAge int64) {
	c.opponentVersion = msg.Version

	if err := c.pc.SetRemoteDescription(fromSignalingSDP(msg.Offer)); err != nil {
		c.terminate(SetRemoteDescription, PartyLocal, err)
		return
	}

	if !c.transition(triggerInboundInvite) {
		return
	}

	d, stale := timers.RingLifetime(msg.Lifetime, localAge)
	if stale {
		c.terminate(UserHangup, PartyLocal, nil)
		return
	}
	c.waitThenDispatch(c.timersMgr.ArmRingLifetime(d), c.onRingLifetimeExpired)
}

func (c *Call) onRingLifetimeExpired() {
	if c.State() != Ringing {
		return
	}
	c.terminate(UserHangup, PartyRemote, nil)
}

// Answer is the user-initiated accept entry point for an inbound call. If
// local media was already handed off from a superseded call (§4.6
// glare handoff), the call skips straight to CreateAnswer; otherwise it
// goes through WaitLocalMedia to acquire its own media first.
func (c *Call) Answer(ctx context.Context) {
	if c.Ended() {
		return
	}
	c.dispatch(func() { c.doAnswer(ctx) })
}

func (c *Call) doAnswer(ctx context.Context) {
	if c.State() != Ringing {
		return
	}
	if c.mediaOrch.LocalStream() != nil {
		c.transition(triggerUserAnswersToAnswer)
		c.createAndSendAnswer()
		return
	}
	if c.awaitingHandoff {
		// Glare handoff (§4.6): our predecessor's media acquisition
		// hasn't landed yet. Remember the answer and let
		// adoptHandedOffStream finish it once the stream arrives.
		c.answerRequested = true
		return
	}
	c.transition(triggerUserAnswersToMedia)
	c.acquireAndAnswer(ctx)
}

func (c *Call) acquireAndAnswer(ctx context.Context) {
	go func() {
		stream, err := c.mediaOrch.AcquireStream(ctx, c.callType.Constraints())
		c.dispatch(func() { c.gotUserMediaForAnswer(stream, err) })
	}()
}

func (c *Call) gotUserMediaForAnswer(stream *webrtcx.Stream, err error) {
	if c.Ended() {
		return
	}
	if err != nil {
		c.terminate(NoUserMedia, PartyLocal, err)
		return
	}
	if err := c.mediaOrch.Attach(stream); err != nil {
		c.terminate(NoUserMedia, PartyLocal, err)
		return
	}
	c.transition(triggerMediaAcquiredInbound)
	c.createAndSendAnswer()
}

func (c *Call) createAndSendAnswer() {
	if c.Ended() {
		return
	}

	answer, err := c.pc.CreateAnswer()
	if err != nil {
		c.terminate(CreateAnswer, PartyLocal, err)
		return
	}
	if err := c.pc.SetLocalDescription(answer); err != nil {
		c.terminate(SetLocalDescription, PartyLocal, err)
		return
	}

	if c.pc.ICEGatheringState() == webrtcx.ICEGatheringStateGathering {
		c.waitThenDispatch(timers.GatherGraceTimer(), func() { c.sendAnswer(answer) })
		return
	}
	c.sendAnswer(answer)
}

func (c *Call) sendAnswer(answer webrtcx.SessionDescription) {
	if c.Ended() {
		return
	}

	c.candQ.Discard()

	payload := signaling.AnswerPayload{
		Envelope: signaling.Envelope{
			Version: signaling.ProtocolVersion,
			CallID:  c.callID,
			PartyID: c.ourPartyID,
			Type:    signaling.EventAnswer,
		},
		Answer: toSignalingSDP(answer),
	}

	if err := c.transport.Send(context.Background(), c.roomID, payload); err != nil {
		c.classifySendFailure(err, sendKindAnswer)
		return
	}

	c.inviteOrAnswerSent = true
	c.transition(triggerAnswerSent)

	if err := c.mediaOrch.RequireRemoteStream(); err != nil {
		c.terminate(SetRemoteDescription, PartyLocal, err)
		return
	}

	if schedule, delay := c.candQ.Kick(c.queueReady()); schedule {
		c.waitThenDispatch(time.After(delay), c.flushCandidates)
	}
}

// Reject declines an inbound call without answering.
func (c *Call) Reject() {
	if c.Ended() {
		return
	}
	c.dispatch(func() {
		if c.State() != Ringing {
			return
		}
		payload := signaling.RejectPayload{
			Envelope: signaling.Envelope{
				Version: signaling.ProtocolVersion,
				CallID:  c.callID,
				PartyID: c.ourPartyID,
				Type:    signaling.EventReject,
			},
		}
		_ = c.transport.Send(context.Background(), c.roomID, payload)
		c.terminate(UserHangup, PartyLocal, nil)
	})
}

// HandleInbound dispatches a routed signaling message onto the call's
// executor. Party-id filtering happens here before anything else touches
// call state (§4.4).
func (c *Call) HandleInbound(msg signaling.InboundMessage) {
	if c.Ended() {
		return
	}
	c.dispatch(func() { c.doHandleInbound(msg) })
}

func (c *Call) doHandleInbound(msg signaling.InboundMessage) {
	if !router.Accept(msg.HasParty, msg.PartyID, c.opponent) {
		c.logger.WithFields(logrus.Fields{"type": msg.Type, "party_id": msg.PartyID}).Debug("Dropping inbound message: party id mismatch")
		return
	}

	switch msg.Type {
	case signaling.EventAnswer:
		c.onAnswer(msg)
	case signaling.EventCandidates:
		c.onCandidates(msg)
	case signaling.EventNegotiate:
		c.onNegotiate(msg)
	case signaling.EventSelectAnswer:
		c.onSelectAnswer(msg)
	case signaling.EventReject:
		c.onReject()
	case signaling.EventHangup:
		c.onHangup(msg)
	}
}

// onAnswer commits the first answer to arrive; later answers from other
// devices are ignored because opponent_party_id is already committed and
// Accept will have already filtered them before this is reached for any
// differing party id — this handles the very first answer, where opponent
// is still Unchosen.
func (c *Call) onAnswer(msg signaling.InboundMessage) {
	if c.opponent.Committed() {
		return
	}
	ap := msg.Answer
	if ap == nil {
		return
	}

	c.opponent = router.Commit(msg.HasParty, msg.PartyID)
	c.opponentVersion = ap.Version

	if !c.transition(triggerAnswerReceived) {
		return
	}

	if err := c.pc.SetRemoteDescription(fromSignalingSDP(ap.Answer)); err != nil {
		c.terminate(SetRemoteDescription, PartyLocal, err)
		return
	}

	if c.opponent.State == router.StringChosen {
		payload := signaling.SelectAnswerPayload{
			Envelope: signaling.Envelope{
				Version: signaling.ProtocolVersion,
				CallID:  c.callID,
				PartyID: c.ourPartyID,
				Type:    signaling.EventSelectAnswer,
			},
			SelectedPartyID: c.opponent.PartyID,
		}
		// A select_answer send failure is non-fatal (§4.2).
		_ = c.transport.Send(context.Background(), c.roomID, payload)
	}

	if err := c.mediaOrch.RequireRemoteStream(); err != nil {
		c.terminate(SetRemoteDescription, PartyLocal, err)
	}
}

func (c *Call) onNegotiate(msg signaling.InboundMessage) {
	np := msg.Negotiate
	if np == nil {
		return
	}
	c.onRemoteDescription(fromSignalingSDP(np.Description), np.Description.Type == string(webrtcx.SDPTypeOffer))
}

func (c *Call) onRemoteDescription(desc webrtcx.SessionDescription, isOffer bool) {
	if c.neg.OnRemoteDescription(isOffer, c.pc.SignalingState()) {
		c.logger.Debug("Ignoring colliding remote offer (impolite side)")
		return
	}

	if err := c.pc.SetRemoteDescription(desc); err != nil {
		c.terminate(SetRemoteDescription, PartyLocal, err)
		return
	}

	c.setRemoteOnHold(remoteHoldSignaled(desc.SDP))

	if isOffer {
		answer, err := c.pc.CreateAnswer()
		if err != nil {
			c.terminate(CreateAnswer, PartyLocal, err)
			return
		}
		if err := c.pc.SetLocalDescription(answer); err != nil {
			c.terminate(SetLocalDescription, PartyLocal, err)
			return
		}
		payload := signaling.NegotiatePayload{
			Envelope: signaling.Envelope{
				Version: signaling.ProtocolVersion,
				CallID:  c.callID,
				PartyID: c.ourPartyID,
				Type:    signaling.EventNegotiate,
			},
			Description: toSignalingSDP(answer),
		}
		if err := c.transport.Send(context.Background(), c.roomID, payload); err != nil {
			c.classifySendFailure(err, sendKindNegotiate)
			return
		}
	}
}

func (c *Call) onCandidates(msg signaling.InboundMessage) {
	cp := msg.Candidates
	if cp == nil {
		return
	}
	for _, cand := range cp.Candidates {
		if !router.CandidateIsAddressable(cand) {
			continue
		}
		err := c.pc.AddICECandidate(webrtcx.ICECandidateInit{
			Candidate:     cand.Candidate,
			SDPMid:        cand.SDPMid,
			SDPMLineIndex: cand.SDPMLineIndex,
		})
		if err != nil {
			if router.SwallowCandidateError(c.neg.IgnoreOffer()) {
				continue
			}
			c.logger.WithError(err).Warn("Failed to add remote ICE candidate")
		}
	}
}

func (c *Call) onSelectAnswer(msg signaling.InboundMessage) {
	if c.direction != Inbound {
		return
	}
	sp := msg.SelectAnswer
	if sp == nil {
		return
	}
	if !router.SelectAnswerAccepted(c.ourPartyID, sp.SelectedPartyID) {
		c.terminate(AnsweredElsewhere, PartyRemote, nil)
	}
}

func (c *Call) onReject() {
	if c.State() != InviteSent {
		return
	}
	c.terminate(UserHangup, PartyRemote, nil)
}

// onHangup also covers the v0 carve-out (spec S4): a hangup delivered
// before any opponent_party_id has committed doubles as a reject, and
// router.Accept already let it through for that reason.
func (c *Call) onHangup(msg signaling.InboundMessage) {
	c.terminate(UserHangup, PartyRemote, nil)
}
