package call

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/matrix-org/callsig/media"
	"github.com/matrix-org/callsig/signaling"
	"github.com/matrix-org/callsig/webrtcx"
)

// FallbackICEServerURL is the well-known STUN server appended to an empty
// caller-supplied ICE server list when the transport permits it (§6).
const FallbackICEServerURL = "stun:turn.matrix.org"

// ResolveICEServers implements the fallback rule: the well-known STUN
// server is used only when the caller supplied no servers of its own and
// the transport allows it.
func ResolveICEServers(userSupplied []webrtcx.ICEServer, transport signaling.Transport) []webrtcx.ICEServer {
	if len(userSupplied) == 0 && transport.AllowsFallbackICEServer() {
		return []webrtcx.ICEServer{{URLs: []string{FallbackICEServerURL}}}
	}
	return userSupplied
}

// Listeners are the events the owner must supply to observe a call (spec
// §6 "Events emitted to the owner"). OnError is mandatory: placing or
// accepting a call without one is a programmer error that fails fast
// before any side effect (§7 prerequisite guard).
type Listeners struct {
	OnState      func(newState, oldState State)
	OnHoldUnhold func(nowOnHold bool)
	OnError      func(err Error)
	OnHangup     func(c *Call)
	OnReplaced   func(newCall *Call)
}

// Params bundles everything a factory needs to construct a Call.
type Params struct {
	// CallID overrides the generated call identifier. Used by Manager to
	// seed an inbound call with the call_id carried on its invite, so later
	// messages for the same call_id route to it. Left empty, New generates
	// a fresh one (the outbound case).
	CallID     string
	RoomID     string
	OurPartyID string
	Direction  Direction
	Type       media.CallType
	Transport  signaling.Transport
	PCFactory  webrtcx.PeerConnectionFactory
	Acquirer   media.Acquirer
	ICEServers []webrtcx.ICEServer
	Logger     *logrus.Entry
	Listeners  Listeners
}

// New constructs a Call in the Fledgling state, wired to its peer
// connection and media orchestrator, but performs no negotiation yet.
func New(p Params) (*Call, error) {
	if p.Listeners.OnError == nil {
		panic("call: placing or accepting a call without an error listener is a programmer error")
	}

	servers := ResolveICEServers(p.ICEServers, p.Transport)

	pc, err := p.PCFactory.NewPeerConnection(webrtcx.Configuration{ICEServers: servers})
	if err != nil {
		return nil, err
	}

	callID := p.CallID
	if callID == "" {
		callID = uuid.New().String()
	}
	logger := p.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	logger = logger.WithFields(logrus.Fields{"call_id": callID, "direction": p.Direction})

	c := newCall(callID, p, pc, logger)
	return c, nil
}
