// Package call implements the Call aggregate (§3-§5): the per-call
// state machine, perfect-negotiation collision handling, ICE-candidate
// batching and retry, the glare/replacement protocol, and media-lifecycle
// coordination. It is the only package that ties webrtcx, signaling,
// queue, negotiate, timers, media, and router together.
//
// A Call is single-threaded cooperative: every mutation runs on the one
// goroutine started by New, dispatched through a channel of closures —
// the same discipline node.Run/doBackgroundWork's select loop in babble
// uses for its RPC/submit/shutdown channels, generalized here to the wider
// variety of event sources a call has (user actions, transport messages,
// peer-connection callbacks, timers).
package call

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/matrix-org/callsig/media"
	"github.com/matrix-org/callsig/negotiate"
	"github.com/matrix-org/callsig/queue"
	"github.com/matrix-org/callsig/router"
	"github.com/matrix-org/callsig/signaling"
	"github.com/matrix-org/callsig/timers"
	"github.com/matrix-org/callsig/webrtcx"
)

// Call is the sole aggregate described by §3.
type Call struct {
	callID     string
	roomID     string
	ourPartyID string
	direction  Direction
	callType   media.CallType

	transport signaling.Transport
	pc        webrtcx.PeerConnection
	mediaOrch *media.Orchestrator
	neg       *negotiate.Controller
	candQ     *queue.Queue
	timersMgr *timers.Manager

	logger    *logrus.Entry
	listeners Listeners

	stateVal atomic.Value // State

	opponent        router.Opponent
	opponentVersion int

	hangupParty  Party
	hangupReason Code

	inviteOrAnswerSent bool
	suppressEvents     bool
	remoteOnHold       bool

	successor *Call

	// awaitingHandoff is set on an inbound call that is replacing an
	// outbound one still in WaitLocalMedia: the predecessor's eventual
	// gotUserMediaForInvite/getUserMediaFailed will adopt media for us
	// instead of us acquiring our own (§4.6). answerRequested records
	// that the user already pressed Answer while we were still waiting.
	awaitingHandoff bool
	answerRequested bool

	// offerMu is not locked by any code path. The making_offer span (§5)
	// is serialized by the single executor together with the release
	// function returned by the negotiation controller.
	offerMu sync.Mutex

	actions chan func()
	stopCh  chan struct{}
	stopped sync.Once
}

func newCall(callID string, p Params, pc webrtcx.PeerConnection, logger *logrus.Entry) *Call {
	c := &Call{
		callID:     callID,
		roomID:     p.RoomID,
		ourPartyID: p.OurPartyID,
		direction:  p.Direction,
		callType:   p.Type,
		transport:  p.Transport,
		pc:         pc,
		timersMgr:  timers.NewManager(),
		logger:     logger,
		listeners:  p.Listeners,
		opponent:   router.Unset(),
		actions:    make(chan func(), 32),
		stopCh:     make(chan struct{}),
	}
	c.stateVal.Store(Fledgling)
	c.neg = negotiate.New(p.Direction == Inbound)

	initialDelay := queue.OutboundDelay
	if p.Direction == Inbound {
		initialDelay = queue.InboundDelay
	}
	c.candQ = queue.New(initialDelay)

	c.mediaOrch = media.New(p.Acquirer, pc)

	pc.OnNegotiationNeeded(func() {
		c.dispatch(c.onNegotiationNeeded)
	})
	pc.OnICECandidate(func(cand *webrtcx.ICECandidateInit) {
		c.dispatch(func() { c.onLocalICECandidate(cand) })
	})
	pc.OnICEConnectionStateChange(func(s webrtcx.ICEConnectionState) {
		c.dispatch(func() { c.onICEConnectionStateChange(s) })
	})

	go c.run()
	return c
}

// CallID returns the opaque unique identifier generated at construction.
func (c *Call) CallID() string { return c.callID }

// RoomID returns the routing key supplied by the signaling transport.
func (c *Call) RoomID() string { return c.roomID }

// OurPartyID returns this device's stable identifier.
func (c *Call) OurPartyID() string { return c.ourPartyID }

// Direction returns whether this call was placed or received.
func (c *Call) Direction() Direction { return c.direction }

// State returns the current state. Safe for concurrent use — state is
// stored in an atomic.Value exactly as babble's node/state.go does for
// its own State, so readers never need to hop onto the call's own
// goroutine.
func (c *Call) State() State {
	return c.stateVal.Load().(State)
}

// Ended reports whether the call has reached its terminal state.
func (c *Call) Ended() bool {
	return c.State() == Ended
}

// dispatch hands f to the call's single executor. It never blocks forever:
// once the call has stopped, the stopCh case fires immediately and f is
// dropped, which is safe because every public entry point also checks
// Ended() up front for idempotence.
func (c *Call) dispatch(f func()) {
	select {
	case c.actions <- f:
	case <-c.stopCh:
	}
}

func (c *Call) run() {
	for {
		select {
		case f := <-c.actions:
			f()
		case <-c.stopCh:
			return
		}
	}
}

func (c *Call) stop() {
	c.stopped.Do(func() { close(c.stopCh) })
}

// waitThenDispatch parks a goroutine on a timer channel and funnels its
// fire back onto the call's executor, preserving the single-owner
// mutation discipline even though the timer itself runs on its own
// goroutine (same shape as signaling/peer-connection callbacks above).
func (c *Call) waitThenDispatch(ch <-chan time.Time, fn func()) {
	go func() {
		select {
		case <-ch:
			c.dispatch(fn)
		case <-c.stopCh:
		}
	}()
}

// transition applies the state machine edge for t, logging and ignoring a
// request that has no such edge (programmer error, per §4.3).
func (c *Call) transition(t trigger) bool {
	from := c.State()
	to, ok := next(from, t)
	if !ok {
		c.logger.WithFields(logrus.Fields{"from": from, "trigger": int(t)}).Warn("Ignoring illegal call state transition")
		return false
	}
	c.setState(to)
	return true
}

func (c *Call) setState(s State) {
	old := c.State()
	if old == s {
		return
	}
	c.stateVal.Store(s)
	c.logger.WithFields(logrus.Fields{"from": old, "to": s}).Debug("Call state transition")

	if old == InviteSent {
		c.timersMgr.DisarmInviteTimeout()
	}
	if s == InviteSent {
		c.waitThenDispatch(c.timersMgr.ArmInviteTimeout(), c.onInviteTimeout)
	}
	if old == Ringing {
		c.timersMgr.DisarmRingLifetime()
	}

	if !c.suppressEvents && c.listeners.OnState != nil {
		c.listeners.OnState(s, old)
	}

	if s == Ended {
		c.onEnterEnded()
	}
}

func (c *Call) onInviteTimeout() {
	if c.State() != InviteSent {
		return
	}
	c.terminate(InviteTimeout, PartyLocal, nil)
}

// terminate drives the call to Ended with the given reason, attributing
// the hangup to who caused it, and applies the error-handling policy of
// §7: whether to emit an error event, send a wire hangup, and ask the
// transport to cancel a pending send.
func (c *Call) terminate(reason Code, party Party, cause error) {
	if c.Ended() {
		return
	}

	c.hangupReason = reason
	c.hangupParty = party

	if reason.cancelsPendingSend() {
		c.transport.CancelPendingEvent(c.callID, signaling.EventInvite)
		c.transport.CancelPendingEvent(c.callID, signaling.EventAnswer)
		c.transport.CancelPendingEvent(c.callID, signaling.EventNegotiate)
	}

	if c.listeners.OnError != nil && party == PartyLocal && errorWorthy(reason) {
		c.listeners.OnError(NewError(c.callID, reason, cause))
	}

	if !reason.suppressesHangupEvent() && reason.sendsHangupOnWire(party) && !c.suppressEvents && party == PartyLocal {
		hangupReason := ""
		if reason != InviteTimeout {
			hangupReason = reason.String()
		}
		payload := signaling.HangupPayload{
			Envelope: signaling.Envelope{
				Version: signaling.ProtocolVersion,
				CallID:  c.callID,
				PartyID: c.ourPartyID,
				Type:    signaling.EventHangup,
			},
			Reason: hangupReason,
		}
		// Best-effort: a failed hangup send doesn't re-enter termination.
		_ = c.transport.Send(context.Background(), c.roomID, payload)
	}

	c.transition(triggerTerminate)
}

// errorWorthy excludes the codes that are normal, silent outcomes
// rather than genuine errors (§7): protocol timeouts and
// peer-initiated termination never populate the error channel.
func errorWorthy(reason Code) bool {
	switch reason {
	case InviteTimeout, UserHangup, Replaced, AnsweredElsewhere:
		return false
	}
	return true
}

func (c *Call) onEnterEnded() {
	c.mediaOrch.Teardown()
	if c.pc.SignalingState() != webrtcx.SignalingStateClosed {
		c.pc.Close()
	}
	if !c.suppressEvents && c.listeners.OnHangup != nil {
		c.listeners.OnHangup(c)
	}
	c.stop()
}

// Hangup is the user-initiated termination entry point. Idempotent: a
// second call has no effect (invariant 6).
func (c *Call) Hangup() {
	if c.Ended() {
		return
	}
	c.dispatch(func() { c.terminate(UserHangup, PartyLocal, nil) })
}

// SetMicMuted gates outbound audio tracks.
func (c *Call) SetMicMuted(muted bool) {
	c.dispatch(func() { c.mediaOrch.SetMicMuted(muted) })
}

// SetVidMuted gates outbound video tracks.
func (c *Call) SetVidMuted(muted bool) {
	c.dispatch(func() { c.mediaOrch.SetVidMuted(muted) })
}

// isLocalOnHold decides the corrected semantics flagged as an open question
// in §9: the placeholder source returns an unconditional true whenever
// Connected. True semantics: only Connected, and only when the remote side
// has actually signaled hold by disabling its send direction on a
// transceiver — a purely local mute never puts the call "on hold" from the
// remote's perspective.
func (c *Call) isLocalOnHold() bool {
	if c.State() != Connected {
		return false
	}
	remote := c.mediaOrch.RemoteStream()
	if remote == nil || len(remote.Tracks) == 0 {
		return false
	}
	return c.remoteOnHold
}

// remoteOnHold tracks whether the peer has told us (via a negotiate
// changing track directions) that it is holding. Applied to our own
// outbound gating too, per §4.5's mute/hold rule.
func (c *Call) setRemoteOnHold(onHold bool) {
	if c.remoteOnHold == onHold {
		return
	}
	c.remoteOnHold = onHold
	c.mediaOrch.SetRemoteOnHold(onHold)
	if !c.suppressEvents && c.listeners.OnHoldUnhold != nil {
		c.listeners.OnHoldUnhold(c.isLocalOnHold())
	}
}
