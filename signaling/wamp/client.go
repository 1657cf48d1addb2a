// Package wamp implements signaling.Transport over a WAMP realm, grounded
// on babble's src/net/signal/wamp/client.go — a WebRTC SDP exchange
// over github.com/gammazero/nexus/v3 — generalized here from a single
// Offer(target, sdp) RPC into a room-broadcast publish/subscribe model so
// every device joined to a room observes every signaling event, the way a
// room-based messaging substrate actually delivers events (§6).
package wamp

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/gammazero/nexus/v3/client"
	"github.com/gammazero/nexus/v3/wamp"
	"github.com/sirupsen/logrus"
	"github.com/ugorji/go/codec"

	"github.com/matrix-org/callsig/signaling"
)

var cborHandle = new(codec.CborHandle)

// DeviceDirectory answers whether roomID currently has any device able to
// receive a call, the external collaborator behind the "unknown devices"
// sentinel (§6). Device enumeration itself is out of scope (§1);
// this is a narrow interface onto whatever maintains room membership.
type DeviceDirectory interface {
	HasDevices(roomID string) bool
}

// Client implements signaling.Transport by publishing signaling envelopes
// to a per-room WAMP topic and subscribing to the same topic for inbound
// events.
type Client struct {
	mu sync.Mutex

	ourPartyID string
	routerURL  string
	config     client.Config
	client     *client.Client
	logger     *logrus.Entry
	directory  DeviceDirectory

	events         chan signaling.InboundMessage
	allowFallback  bool
	subscribedRoom map[string]bool
}

// NewClient connects to a WAMP router at server (host:port) within realm.
// ourPartyID identifies this device on outbound envelopes so we can filter
// our own publishes back out of Events(). insecureSkipVerify should only be
// used for testing. directory may be nil, in which case Send never reports
// ErrUnknownDevices.
func NewClient(server, realm, ourPartyID string, insecureSkipVerify bool, responseTimeout time.Duration, allowFallback bool, directory DeviceDirectory, logger *logrus.Entry) (*Client, error) {
	cfg := client.Config{
		Realm:           realm,
		ResponseTimeout: responseTimeout,
		Logger:          logger,
		TlsCfg:          &tls.Config{InsecureSkipVerify: insecureSkipVerify},
	}

	c := &Client{
		ourPartyID:     ourPartyID,
		routerURL:      fmt.Sprintf("wss://%s", server),
		config:         cfg,
		logger:         logger,
		directory:      directory,
		events:         make(chan signaling.InboundMessage, 64),
		allowFallback:  allowFallback,
		subscribedRoom: make(map[string]bool),
	}

	if err := c.connect(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Client) connect() error {
	if c.client != nil && c.client.Connected() {
		return nil
	}

	cli, err := client.ConnectNet(context.Background(), c.routerURL, c.config)
	if err != nil {
		return err
	}

	c.client = cli
	return nil
}

func roomTopic(roomID string) string {
	return fmt.Sprintf("io.callsig.room.%s", roomID)
}

// Join subscribes this client to roomID's signaling topic, so every
// published event in the room is forwarded to Events().
func (c *Client) Join(roomID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.subscribedRoom[roomID] {
		return nil
	}

	if err := c.client.Subscribe(roomTopic(roomID), c.onEvent, nil); err != nil {
		c.logger.WithError(err).WithField("room_id", roomID).Error("Failed to subscribe to signaling topic")
		return err
	}

	c.subscribedRoom[roomID] = true
	return nil
}

// Send implements signaling.Transport.
func (c *Client) Send(ctx context.Context, roomID string, payload interface{}) error {
	if c.directory != nil && !c.directory.HasDevices(roomID) {
		return signaling.ErrUnknownDevices
	}

	eventType := envelopeType(payload)
	if eventType == "" {
		return fmt.Errorf("wamp: unrecognized payload type %T", payload)
	}

	raw, err := encode(payload)
	if err != nil {
		return err
	}

	return c.client.Publish(roomTopic(roomID), nil, wamp.List{string(eventType), raw}, nil)
}

// CancelPendingEvent implements signaling.Transport. Publish/subscribe has
// no durable outbox to withdraw from; this only logs so the owner can
// correlate a subsequent retry.
func (c *Client) CancelPendingEvent(callID string, eventType signaling.EventType) {
	c.logger.WithFields(logrus.Fields{"call_id": callID, "type": eventType}).Debug("Cancel pending signaling event")
}

// Events implements signaling.Transport.
func (c *Client) Events() <-chan signaling.InboundMessage {
	return c.events
}

// AllowsFallbackICEServer implements signaling.Transport.
func (c *Client) AllowsFallbackICEServer() bool {
	return c.allowFallback
}

// Close disconnects from the WAMP router.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for room := range c.subscribedRoom {
		c.client.Unsubscribe(roomTopic(room))
	}
	return c.client.Close()
}

func (c *Client) onEvent(evt *wamp.Event) {
	if len(evt.Arguments) != 2 {
		c.logger.Warn("Signaling event with unexpected argument count")
		return
	}

	typeStr, ok := wamp.AsString(evt.Arguments[0])
	if !ok {
		c.logger.Warn("Signaling event type was not a string")
		return
	}

	raw, ok := evt.Arguments[1].([]byte)
	if !ok {
		c.logger.Warn("Signaling event payload was not bytes")
		return
	}

	msg, err := decode(signaling.EventType(typeStr), raw)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to decode signaling event")
		return
	}

	if msg.PartyID == c.ourPartyID && msg.HasParty {
		return // echo of our own publish
	}

	c.events <- msg
}

func encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := codec.NewEncoder(&buf, cborHandle)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func envelopeType(payload interface{}) signaling.EventType {
	switch p := payload.(type) {
	case signaling.InvitePayload:
		return p.Type
	case signaling.AnswerPayload:
		return p.Type
	case signaling.CandidatesPayload:
		return p.Type
	case signaling.NegotiatePayload:
		return p.Type
	case signaling.SelectAnswerPayload:
		return p.Type
	case signaling.HangupPayload:
		return p.Type
	case signaling.RejectPayload:
		return p.Type
	default:
		return ""
	}
}

var _ signaling.Transport = (*Client)(nil)
