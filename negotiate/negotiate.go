// Package negotiate implements the perfect-negotiation collision logic
// (W3C perfect negotiation pattern): which side yields when both ends
// produce an offer at once. It holds only the two flags the pattern needs —
// making_offer and ignore_offer — and leaves driving the peer connection
// itself to the call, which is the only thing that knows how to sequence
// CreateOffer/SetLocalDescription/transport sends around them.
package negotiate

import "github.com/matrix-org/callsig/webrtcx"

// Controller tracks the perfect-negotiation flags for one call. Not safe
// for concurrent use; owned exclusively by the call's single executor.
type Controller struct {
	// polite is fixed for the call's life: the inbound-direction call is
	// polite (yields on collision), the outbound is impolite (proceeds).
	polite bool

	makingOffer bool
	ignoreOffer bool
}

// New returns a Controller for a call of the given direction. polite should
// be true for inbound calls, false for outbound.
func New(polite bool) *Controller {
	return &Controller{polite: polite}
}

// Polite reports this call's fixed politeness.
func (c *Controller) Polite() bool {
	return c.polite
}

// MakingOffer reports whether an offer is currently being created.
func (c *Controller) MakingOffer() bool {
	return c.makingOffer
}

// IgnoreOffer reports whether the most recent onRemoteDescription call
// decided to ignore the remote offer.
func (c *Controller) IgnoreOffer() bool {
	return c.ignoreOffer
}

// BeginOffer marks an offer as in flight and returns a release function
// that must run exactly once, on whichever exit path the caller's
// CreateOffer/SetLocalDescription/send sequence actually terminates on —
// success or failure — so making_offer stays true for the whole sequence
// and can never be left stuck true by an early return.
func (c *Controller) BeginOffer() (release func()) {
	c.makingOffer = true
	return func() { c.makingOffer = false }
}

// OnRemoteDescription computes and records the collision outcome for an
// incoming remote description, per the perfect-negotiation pattern:
//
//	offer_collision = isOffer && (making_offer || signalingState != stable)
//	ignore_offer     = !polite && offer_collision
//
// It returns the resulting ignore_offer value; the call must not set the
// remote description (or proceed to create an answer) when this is true.
func (c *Controller) OnRemoteDescription(isOffer bool, signalingState webrtcx.SignalingState) bool {
	collision := isOffer && (c.makingOffer || signalingState != webrtcx.SignalingStateStable)
	c.ignoreOffer = !c.polite && collision
	return c.ignoreOffer
}
