package signaling

import (
	"context"
	"sync"
)

// SentMessage records one Send call, for assertions in tests.
type SentMessage struct {
	RoomID  string
	Payload interface{}
}

// FakeTransport is an in-memory Transport used by this module's tests, in
// the spirit of babble's file-based TestSignal
// (src/net/webrtc_signal.go): a hand-written fake driven synchronously by
// the test, not a mock framework.
type FakeTransport struct {
	mu sync.Mutex

	Sent []SentMessage

	// FailNext, if set, is returned (and cleared) by the next Send call.
	FailNext error

	// UnknownDevicesNext, if true, makes the next Send return
	// ErrUnknownDevices instead of FailNext.
	UnknownDevicesNext bool

	Cancelled []struct {
		CallID string
		Type   EventType
	}

	AllowFallback bool

	events chan InboundMessage
}

// NewFakeTransport returns a FakeTransport with fallback ICE servers
// permitted by default.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{
		events:        make(chan InboundMessage, 64),
		AllowFallback: true,
	}
}

func (f *FakeTransport) Send(ctx context.Context, roomID string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.UnknownDevicesNext {
		f.UnknownDevicesNext = false
		return ErrUnknownDevices
	}
	if f.FailNext != nil {
		err := f.FailNext
		f.FailNext = nil
		return err
	}

	f.Sent = append(f.Sent, SentMessage{RoomID: roomID, Payload: payload})
	return nil
}

func (f *FakeTransport) CancelPendingEvent(callID string, eventType EventType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Cancelled = append(f.Cancelled, struct {
		CallID string
		Type   EventType
	}{callID, eventType})
}

func (f *FakeTransport) Events() <-chan InboundMessage {
	return f.events
}

func (f *FakeTransport) AllowsFallbackICEServer() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.AllowFallback
}

// Deliver pushes an inbound message onto the Events channel, simulating a
// room event arriving from the remote party.
func (f *FakeTransport) Deliver(msg InboundMessage) {
	f.events <- msg
}

// SentOfType returns every sent message whose payload envelope matches
// eventType, preserving send order.
func (f *FakeTransport) SentOfType(eventType EventType) []SentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []SentMessage
	for _, m := range f.Sent {
		if envelopeType(m.Payload) == eventType {
			out = append(out, m)
		}
	}
	return out
}

func envelopeType(payload interface{}) EventType {
	switch p := payload.(type) {
	case InvitePayload:
		return p.Type
	case AnswerPayload:
		return p.Type
	case CandidatesPayload:
		return p.Type
	case NegotiatePayload:
		return p.Type
	case SelectAnswerPayload:
		return p.Type
	case HangupPayload:
		return p.Type
	case RejectPayload:
		return p.Type
	default:
		return ""
	}
}

var _ Transport = (*FakeTransport)(nil)
