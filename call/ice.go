package call

import (
	"context"
	"time"

	"github.com/matrix-org/callsig/signaling"
	"github.com/matrix-org/callsig/webrtcx"
)

// queueReady implements the CandidateQueue gating rule (§4.1): held
// while Ringing or before the local description has been sent.
func (c *Call) queueReady() bool {
	return c.State() != Ringing && c.inviteOrAnswerSent
}

func (c *Call) onLocalICECandidate(cand *webrtcx.ICECandidateInit) {
	if c.Ended() {
		return
	}
	if cand == nil {
		// Gathering complete: translate to the wire's end-of-candidates
		// sentinel, an empty candidate string (§4.1 invariant 4).
		c.enqueueCandidate(signaling.Candidate{})
		return
	}
	c.enqueueCandidate(signaling.Candidate{
		Candidate:     cand.Candidate,
		SDPMid:        cand.SDPMid,
		SDPMLineIndex: cand.SDPMLineIndex,
	})
}

func (c *Call) enqueueCandidate(cand signaling.Candidate) {
	schedule, delay := c.candQ.Enqueue(cand, c.queueReady())
	if schedule {
		c.waitThenDispatch(time.After(delay), c.flushCandidates)
	}
}

func (c *Call) flushCandidates() {
	if c.Ended() {
		return
	}
	batch, ok := c.candQ.BeginFlush()
	if !ok {
		return
	}
	c.sendCandidateBatch(batch)
}

func (c *Call) sendCandidateBatch(batch []signaling.Candidate) {
	payload := signaling.CandidatesPayload{
		Envelope: signaling.Envelope{
			Version: signaling.ProtocolVersion,
			CallID:  c.callID,
			PartyID: c.ourPartyID,
			Type:    signaling.EventCandidates,
		},
		Candidates: batch,
	}

	if err := c.transport.Send(context.Background(), c.roomID, payload); err != nil {
		// Transient candidate send failures are retried with backoff and
		// never terminate the call (§7).
		delay, retry := c.candQ.OnSendFailure(batch)
		if retry {
			c.waitThenDispatch(time.After(delay), c.flushCandidates)
		}
		return
	}

	if next, hasNext := c.candQ.OnSendSuccess(); hasNext {
		c.sendCandidateBatch(next)
	}
}

// onICEConnectionStateChange drives the Connecting -> Connected edge and
// the any-non-terminal -> Ended(IceFailed) edge.
func (c *Call) onICEConnectionStateChange(s webrtcx.ICEConnectionState) {
	if c.Ended() {
		return
	}
	switch s {
	case webrtcx.ICEConnectionStateConnected, webrtcx.ICEConnectionStateCompleted:
		c.transition(triggerICEConnected)
	case webrtcx.ICEConnectionStateFailed:
		c.terminate(IceFailed, PartyLocal, nil)
	}
}
