package signaling

import (
	"context"
	"errors"
)

// ErrUnknownDevices is the sentinel a Transport returns from Send when the
// room has no devices capable of receiving the call (§6, §7
// UnknownDevices). Transports report this precisely — it drives a distinct
// hangup reason, not a generic send failure.
var ErrUnknownDevices = errors.New("signaling: unknown devices")

// Transport is the abstract signaling substrate the core drives (§2
// "SignalingTransport (abstract)"). Concrete implementations live in
// signaling/wamp (a WAMP realm, grounded on babble's
// src/net/signal/wamp) and signaling/room (a plain websocket framing).
type Transport interface {
	// Send delivers payload (one of the *Payload structs in types.go) to
	// roomID. Returns ErrUnknownDevices, wrapped or not, when the room has
	// no eligible recipients.
	Send(ctx context.Context, roomID string, payload interface{}) error

	// CancelPendingEvent asks the transport to withdraw a send of the given
	// type for callID that may not have completed, so a retried send can be
	// deduplicated downstream (§7).
	CancelPendingEvent(callID string, eventType EventType)

	// Events delivers inbound signaling messages as they arrive, across
	// every room this transport is joined to. The core routes them by
	// call_id itself.
	Events() <-chan InboundMessage

	// AllowsFallbackICEServer reports whether the transport permits the
	// core to append the well-known fallback STUN server when the caller
	// supplied no ICE servers of its own (§6).
	AllowsFallbackICEServer() bool
}
