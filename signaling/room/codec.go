package room

import (
	"encoding/json"
	"fmt"

	"github.com/matrix-org/callsig/signaling"
)

func encodeFrame(payload interface{}) (signaling.EventType, json.RawMessage, error) {
	var eventType signaling.EventType

	switch p := payload.(type) {
	case signaling.InvitePayload:
		eventType = p.Type
	case signaling.AnswerPayload:
		eventType = p.Type
	case signaling.CandidatesPayload:
		eventType = p.Type
	case signaling.NegotiatePayload:
		eventType = p.Type
	case signaling.SelectAnswerPayload:
		eventType = p.Type
	case signaling.HangupPayload:
		eventType = p.Type
	case signaling.RejectPayload:
		eventType = p.Type
	default:
		return "", nil, fmt.Errorf("room: unrecognized payload type %T", payload)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", nil, err
	}

	return eventType, raw, nil
}

func decodeFrame(f frame) (signaling.InboundMessage, error) {
	msg := signaling.InboundMessage{Type: f.Type}

	switch f.Type {
	case signaling.EventInvite:
		var p signaling.InvitePayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			return msg, err
		}
		msg.Invite = &p
		msg.CallID, msg.PartyID, msg.HasParty = p.CallID, p.PartyID, p.PartyID != ""

	case signaling.EventAnswer:
		var p signaling.AnswerPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			return msg, err
		}
		msg.Answer = &p
		msg.CallID, msg.PartyID, msg.HasParty = p.CallID, p.PartyID, p.PartyID != ""

	case signaling.EventCandidates:
		var p signaling.CandidatesPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			return msg, err
		}
		msg.Candidates = &p
		msg.CallID, msg.PartyID, msg.HasParty = p.CallID, p.PartyID, p.PartyID != ""

	case signaling.EventNegotiate:
		var p signaling.NegotiatePayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			return msg, err
		}
		msg.Negotiate = &p
		msg.CallID, msg.PartyID, msg.HasParty = p.CallID, p.PartyID, p.PartyID != ""

	case signaling.EventSelectAnswer:
		var p signaling.SelectAnswerPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			return msg, err
		}
		msg.SelectAnswer = &p
		msg.CallID, msg.PartyID, msg.HasParty = p.CallID, p.PartyID, p.PartyID != ""

	case signaling.EventHangup:
		var p signaling.HangupPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			return msg, err
		}
		msg.Hangup = &p
		msg.CallID, msg.PartyID, msg.HasParty = p.CallID, p.PartyID, p.PartyID != ""

	case signaling.EventReject:
		var p signaling.RejectPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			return msg, err
		}
		msg.CallID, msg.PartyID, msg.HasParty = p.CallID, p.PartyID, p.PartyID != ""

	default:
		return msg, fmt.Errorf("room: unrecognized event type %q", f.Type)
	}

	return msg, nil
}
