// Package room implements signaling.Transport as a single persistent
// gorilla/websocket connection carrying JSON-framed room events — the
// lighter-weight signaling idiom found across the pack (the Mercury
// websocket plugin in tejzpr-webex-go-sdk, the SFU signaling socket in
// PufferBlow-media-sfu) as an alternative to the WAMP realm in
// signaling/wamp.
package room

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/matrix-org/callsig/signaling"
)

// frame is the JSON envelope written to and read from the socket. Room is
// the routing key; everything else rides in Payload, keyed by Type.
type frame struct {
	Room    string          `json:"room_id"`
	Type    signaling.EventType `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Transport implements signaling.Transport over a single websocket
// connection to a room-event relay.
type Transport struct {
	mu   sync.Mutex
	conn *websocket.Conn

	allowFallback bool
	logger        *logrus.Entry

	events chan signaling.InboundMessage
	done   chan struct{}
}

// Dial opens a websocket connection to serverURL (e.g. "wss://host/rooms")
// and starts the read loop.
func Dial(serverURL string, allowFallback bool, logger *logrus.Entry) (*Transport, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("room: dial %s: %w", serverURL, err)
	}

	t := &Transport{
		conn:          conn,
		allowFallback: allowFallback,
		logger:        logger,
		events:        make(chan signaling.InboundMessage, 64),
		done:          make(chan struct{}),
	}

	go t.listen()

	return t, nil
}

// NewFromConn wraps an already-established websocket connection (e.g. the
// server side of an http.Upgrade), for tests and for server-side use.
func NewFromConn(conn *websocket.Conn, allowFallback bool, logger *logrus.Entry) *Transport {
	t := &Transport{
		conn:          conn,
		allowFallback: allowFallback,
		logger:        logger,
		events:        make(chan signaling.InboundMessage, 64),
		done:          make(chan struct{}),
	}
	go t.listen()
	return t
}

func (t *Transport) listen() {
	defer close(t.done)

	for {
		var f frame
		if err := t.conn.ReadJSON(&f); err != nil {
			t.logger.WithError(err).Debug("room transport read loop exiting")
			return
		}

		msg, err := decodeFrame(f)
		if err != nil {
			t.logger.WithError(err).Warn("Failed to decode room event")
			continue
		}

		t.events <- msg
	}
}

// Send implements signaling.Transport.
func (t *Transport) Send(ctx context.Context, roomID string, payload interface{}) error {
	eventType, raw, err := encodeFrame(payload)
	if err != nil {
		return err
	}

	f := frame{Room: roomID, Type: eventType, Payload: raw}

	deadline, ok := ctx.Deadline()
	t.mu.Lock()
	defer t.mu.Unlock()
	if ok {
		t.conn.SetWriteDeadline(deadline)
	} else {
		t.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	}

	if err := t.conn.WriteJSON(f); err != nil {
		return err
	}
	return nil
}

// CancelPendingEvent implements signaling.Transport. This transport has no
// outbox; a cancel is only logged.
func (t *Transport) CancelPendingEvent(callID string, eventType signaling.EventType) {
	t.logger.WithFields(logrus.Fields{"call_id": callID, "type": eventType}).Debug("Cancel pending signaling event")
}

// Events implements signaling.Transport.
func (t *Transport) Events() <-chan signaling.InboundMessage {
	return t.events
}

// AllowsFallbackICEServer implements signaling.Transport.
func (t *Transport) AllowsFallbackICEServer() bool {
	return t.allowFallback
}

// Close closes the underlying websocket connection.
func (t *Transport) Close() error {
	return t.conn.Close()
}

var _ signaling.Transport = (*Transport)(nil)
