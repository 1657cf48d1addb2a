package wamp

import (
	"context"
	"testing"
	"time"

	"github.com/matrix-org/callsig/common"
	"github.com/matrix-org/callsig/signaling"
)

func TestClientPublishIsDeliveredToSubscriber(t *testing.T) {
	url := "localhost:18080"

	logger := common.NewTestLogger(t).WithField("test", "wamp")

	server, err := NewInsecureServer(url, "office", logger)
	if err != nil {
		t.Fatal(err)
	}
	go server.Run()
	defer server.Shutdown()

	time.Sleep(50 * time.Millisecond)

	callee, err := NewClient(url, "office", "callee", true, 2*time.Second, true, nil, logger)
	if err != nil {
		t.Fatal(err)
	}
	defer callee.Close()

	if err := callee.Join("!room:example.org"); err != nil {
		t.Fatal(err)
	}

	caller, err := NewClient(url, "office", "caller", true, 2*time.Second, true, nil, logger)
	if err != nil {
		t.Fatal(err)
	}
	defer caller.Close()

	payload := signaling.InvitePayload{
		Envelope: signaling.Envelope{
			Version: signaling.ProtocolVersion,
			CallID:  "call1",
			PartyID: "caller",
			Type:    signaling.EventInvite,
		},
		Offer:    signaling.SDP{SDP: "v=0", Type: "offer"},
		Lifetime: 60000,
	}

	if err := caller.Send(context.Background(), "!room:example.org", payload); err != nil {
		t.Fatal(err)
	}

	select {
	case msg := <-callee.Events():
		if msg.Type != signaling.EventInvite || msg.CallID != "call1" || msg.PartyID != "caller" {
			t.Fatalf("unexpected inbound message: %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for invite to be delivered")
	}
}

func TestClientSendReportsUnknownDevices(t *testing.T) {
	url := "localhost:18081"
	logger := common.NewTestLogger(t).WithField("test", "wamp")

	server, err := NewInsecureServer(url, "office", logger)
	if err != nil {
		t.Fatal(err)
	}
	go server.Run()
	defer server.Shutdown()

	time.Sleep(50 * time.Millisecond)

	directory := emptyDirectory{}

	caller, err := NewClient(url, "office", "caller", true, 2*time.Second, true, directory, logger)
	if err != nil {
		t.Fatal(err)
	}
	defer caller.Close()

	payload := signaling.RejectPayload{
		Envelope: signaling.Envelope{CallID: "call1", PartyID: "caller", Type: signaling.EventReject},
	}

	err = caller.Send(context.Background(), "!empty:example.org", payload)
	if err != signaling.ErrUnknownDevices {
		t.Fatalf("expected ErrUnknownDevices, got %v", err)
	}
}

type emptyDirectory struct{}

func (emptyDirectory) HasDevices(roomID string) bool { return false }
