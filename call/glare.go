package call

import (
	"github.com/matrix-org/callsig/webrtcx"
)

// Replace marks this call as superseded by newCall: the owner has decided
// the two calls are the same glare collision and picked newCall as the
// survivor (§4.6). Typically this happens because an inbound invite
// from the same counterparty arrived while this call was still placing an
// outbound invite, and this call's party id lost the tiebreak.
func (c *Call) Replace(newCall *Call) {
	if c.Ended() {
		return
	}
	c.dispatch(func() { c.doReplace(newCall) })
}

func (c *Call) doReplace(newCall *Call) {
	switch c.State() {
	case WaitLocalMedia:
		// Our own acquisition is still in flight; tell newCall to wait for
		// it instead of starting a second one. gotUserMediaForInvite and
		// getUserMediaFailed check c.successor and route their result to
		// newCall once it lands.
		newCall.dispatch(func() { newCall.awaitingHandoff = true })
	case CreateOffer:
		// Media is already in hand; hand it off immediately so newCall's
		// answer path can skip straight past acquisition.
		if stream := c.mediaOrch.LocalStream(); stream != nil {
			newCall.adoptHandedOffStream(stream)
		}
	}

	c.successor = newCall

	if !c.suppressEvents && c.listeners.OnReplaced != nil {
		c.listeners.OnReplaced(newCall)
	}
	// Suppress our own state/error/hangup events from here on: the
	// replacement call is the one the owner now cares about, and a second
	// round of hangup signaling on the wire would be redundant (§4.6).
	c.suppressEvents = true
	c.terminate(Replaced, PartyLocal, nil)
}

// adoptHandedOffStream attaches a stream handed off from a superseded
// predecessor call. Runs on newCall's own executor regardless of which
// goroutine calls it.
func (c *Call) adoptHandedOffStream(stream *webrtcx.Stream) {
	c.dispatch(func() {
		if c.Ended() {
			return
		}
		c.awaitingHandoff = false

		if err := c.mediaOrch.Attach(stream); err != nil {
			c.terminate(NoUserMedia, PartyLocal, err)
			return
		}

		if c.answerRequested {
			c.answerRequested = false
			c.transition(triggerUserAnswersToAnswer)
			c.createAndSendAnswer()
		}
	})
}
