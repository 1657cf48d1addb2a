package call

// State is the canonical per-call state (§4.3). Ended is terminal and
// absorbing: no transition out of it is ever valid.
type State int

const (
	Fledgling State = iota
	WaitLocalMedia
	CreateOffer
	InviteSent
	Ringing
	CreateAnswer
	Connecting
	Connected
	Ended
)

func (s State) String() string {
	switch s {
	case Fledgling:
		return "Fledgling"
	case WaitLocalMedia:
		return "WaitLocalMedia"
	case CreateOffer:
		return "CreateOffer"
	case InviteSent:
		return "InviteSent"
	case Ringing:
		return "Ringing"
	case CreateAnswer:
		return "CreateAnswer"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Ended:
		return "Ended"
	default:
		return "Unknown"
	}
}

// Direction is fixed for a call's entire life (§3).
type Direction int

const (
	Outbound Direction = iota
	Inbound
)

func (d Direction) String() string {
	if d == Inbound {
		return "Inbound"
	}
	return "Outbound"
}

// Party identifies who ended a call, for hangup_party (§3).
type Party int

const (
	// PartyNone is the zero value before termination.
	PartyNone Party = iota
	PartyLocal
	PartyRemote
)

func (p Party) String() string {
	switch p {
	case PartyLocal:
		return "Local"
	case PartyRemote:
		return "Remote"
	default:
		return "None"
	}
}

// transitions enumerates every legal (from, trigger) -> to edge from
// §4.3's table. Anything not listed here is a programmer error: the
// caller should log and ignore rather than mutate state. Ended has no
// outgoing edges — it is absorbing by construction, since no trigger maps
// to a "from" of Ended below.
type trigger int

const (
	triggerPlaceCall trigger = iota
	triggerInboundInvite
	triggerMediaAcquiredOutbound
	triggerMediaAcquiredInbound
	triggerOfferSent
	triggerAnswerReceived
	triggerInviteTimeout
	triggerUserAnswersToMedia
	triggerUserAnswersToAnswer
	triggerRingLifetimeExpired
	triggerAnswerSent
	triggerICEConnected
	triggerICEFailed
	triggerTerminate // local hangup / remote hangup / reject
)

var transitions = map[State]map[trigger]State{
	Fledgling: {
		triggerPlaceCall:      WaitLocalMedia,
		triggerInboundInvite:  Ringing,
		triggerTerminate:      Ended,
	},
	WaitLocalMedia: {
		triggerMediaAcquiredOutbound: CreateOffer,
		triggerMediaAcquiredInbound:  CreateAnswer,
		triggerICEFailed:             Ended,
		triggerTerminate:             Ended,
	},
	CreateOffer: {
		triggerOfferSent: InviteSent,
		triggerICEFailed: Ended,
		triggerTerminate: Ended,
	},
	InviteSent: {
		triggerAnswerReceived: Connecting,
		triggerInviteTimeout:  Ended,
		triggerICEFailed:      Ended,
		triggerTerminate:      Ended,
	},
	Ringing: {
		triggerUserAnswersToMedia:  WaitLocalMedia,
		triggerUserAnswersToAnswer: CreateAnswer,
		triggerRingLifetimeExpired: Ended,
		triggerICEFailed:           Ended,
		triggerTerminate:           Ended,
	},
	CreateAnswer: {
		triggerAnswerSent:  Connecting,
		triggerICEConnected: Connected,
		triggerICEFailed:   Ended,
		triggerTerminate:   Ended,
	},
	Connecting: {
		triggerICEConnected: Connected,
		triggerICEFailed:    Ended,
		triggerTerminate:    Ended,
	},
	Connected: {
		triggerICEFailed: Ended,
		triggerTerminate: Ended,
	},
}

// next looks up the destination state for (from, t). ok is false for any
// undefined edge, including anything attempted from Ended.
func next(from State, t trigger) (State, bool) {
	edges, ok := transitions[from]
	if !ok {
		return from, false
	}
	to, ok := edges[t]
	return to, ok
}
