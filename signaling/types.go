// Package signaling defines the wire-level message types exchanged between
// call participants over the room-based messaging substrate (§6), and
// the abstract Transport interface the core drives them through. Concrete
// transports live in signaling/wamp and signaling/room.
package signaling

// ProtocolVersion is the version this implementation emits on every
// outbound message. 0 means legacy: no renegotiate/reject/select_answer.
const ProtocolVersion = 0

// EventType identifies the kind of signaling message, carried in Envelope.Type.
type EventType string

const (
	EventInvite       EventType = "invite"
	EventAnswer       EventType = "answer"
	EventCandidates   EventType = "candidates"
	EventNegotiate    EventType = "negotiate"
	EventHangup       EventType = "hangup"
	EventReject       EventType = "reject"
	EventSelectAnswer EventType = "select_answer"
)

// SDP is the session description payload embedded in invite/answer/negotiate.
type SDP struct {
	SDP  string `json:"sdp"`
	Type string `json:"type"`
}

// Candidate is a single ICE candidate line; an empty Candidate string is the
// end-of-candidates sentinel (§4.1 invariant 4).
type Candidate struct {
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`
}

// Envelope is the common header every outbound payload is extended with
// (§6).
type Envelope struct {
	Version  int       `json:"version"`
	CallID   string    `json:"call_id"`
	PartyID  string    `json:"party_id,omitempty"`
	RoomID   string    `json:"room_id,omitempty"`
	Type     EventType `json:"type"`
}

// InvitePayload is the body of an "invite" message.
type InvitePayload struct {
	Envelope
	Offer    SDP   `json:"offer"`
	Lifetime int64 `json:"lifetime"`
}

// AnswerPayload is the body of an "answer" message.
type AnswerPayload struct {
	Envelope
	Answer SDP `json:"answer"`
}

// CandidatesPayload is the body of a "candidates" message.
type CandidatesPayload struct {
	Envelope
	Candidates []Candidate `json:"candidates"`
}

// NegotiatePayload is the body of a "negotiate" message.
type NegotiatePayload struct {
	Envelope
	Description SDP `json:"description"`
}

// SelectAnswerPayload is the body of a "select_answer" message.
type SelectAnswerPayload struct {
	Envelope
	SelectedPartyID string `json:"selected_party_id"`
}

// HangupPayload is the body of a "hangup" message.
type HangupPayload struct {
	Envelope
	Reason string `json:"reason,omitempty"`
}

// RejectPayload is the body of a "reject" message; it carries no fields
// beyond the envelope.
type RejectPayload struct {
	Envelope
}

// InboundMessage is a typed signaling message as received from a Transport,
// along with the transport-reported age of the underlying room event
// (needed to compute invite staleness, §4.3).
type InboundMessage struct {
	Type     EventType
	CallID   string
	PartyID  string // empty means the remote sent no party id (null-chosen)
	HasParty bool

	Invite       *InvitePayload
	Answer       *AnswerPayload
	Candidates   *CandidatesPayload
	Negotiate    *NegotiatePayload
	SelectAnswer *SelectAnswerPayload
	Hangup       *HangupPayload

	// LocalAge is how long ago (ms) the transport believes this event was
	// sent, used to compute ring lifetime staleness.
	LocalAge int64
}
