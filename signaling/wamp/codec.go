package wamp

import (
	"bytes"
	"fmt"

	"github.com/ugorji/go/codec"

	"github.com/matrix-org/callsig/signaling"
)

// decode unmarshals a CBOR-encoded payload of the given event type into an
// InboundMessage. The decoder always uses this package's shared CBOR handle
// so wire encoding matches what encode() produced.
func decode(eventType signaling.EventType, raw []byte) (signaling.InboundMessage, error) {
	dec := codec.NewDecoder(bytes.NewReader(raw), cborHandle)

	msg := signaling.InboundMessage{Type: eventType}

	switch eventType {
	case signaling.EventInvite:
		var p signaling.InvitePayload
		if err := dec.Decode(&p); err != nil {
			return msg, err
		}
		msg.Invite = &p
		msg.CallID, msg.PartyID, msg.HasParty = p.CallID, p.PartyID, p.PartyID != ""

	case signaling.EventAnswer:
		var p signaling.AnswerPayload
		if err := dec.Decode(&p); err != nil {
			return msg, err
		}
		msg.Answer = &p
		msg.CallID, msg.PartyID, msg.HasParty = p.CallID, p.PartyID, p.PartyID != ""

	case signaling.EventCandidates:
		var p signaling.CandidatesPayload
		if err := dec.Decode(&p); err != nil {
			return msg, err
		}
		msg.Candidates = &p
		msg.CallID, msg.PartyID, msg.HasParty = p.CallID, p.PartyID, p.PartyID != ""

	case signaling.EventNegotiate:
		var p signaling.NegotiatePayload
		if err := dec.Decode(&p); err != nil {
			return msg, err
		}
		msg.Negotiate = &p
		msg.CallID, msg.PartyID, msg.HasParty = p.CallID, p.PartyID, p.PartyID != ""

	case signaling.EventSelectAnswer:
		var p signaling.SelectAnswerPayload
		if err := dec.Decode(&p); err != nil {
			return msg, err
		}
		msg.SelectAnswer = &p
		msg.CallID, msg.PartyID, msg.HasParty = p.CallID, p.PartyID, p.PartyID != ""

	case signaling.EventHangup:
		var p signaling.HangupPayload
		if err := dec.Decode(&p); err != nil {
			return msg, err
		}
		msg.Hangup = &p
		msg.CallID, msg.PartyID, msg.HasParty = p.CallID, p.PartyID, p.PartyID != ""

	case signaling.EventReject:
		var p signaling.RejectPayload
		if err := dec.Decode(&p); err != nil {
			return msg, err
		}
		msg.CallID, msg.PartyID, msg.HasParty = p.CallID, p.PartyID, p.PartyID != ""

	default:
		return msg, fmt.Errorf("wamp: unrecognized event type %q", eventType)
	}

	return msg, nil
}
