package call

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/matrix-org/callsig/media"
	"github.com/matrix-org/callsig/signaling"
	"github.com/matrix-org/callsig/webrtcx"
)

// ManagerParams configures a Manager.
type ManagerParams struct {
	Transport  signaling.Transport
	PCFactory  webrtcx.PeerConnectionFactory
	Acquirer   media.Acquirer
	ICEServers []webrtcx.ICEServer
	OurPartyID string
	Logger     *logrus.Entry

	// NewIncomingCallListeners builds the Listeners set for a freshly
	// invited call, before InitWithInvite runs. May be nil, in which case
	// the call only gets the Manager's own bookkeeping listener.
	NewIncomingCallListeners func(callID string) Listeners

	// OnIncomingCall is handed the call right after the invite has been
	// dispatched to it; the call may not have reached Ringing yet, since
	// InitWithInvite runs asynchronously. The owner decides whether to ring,
	// auto-reject, or fold it into glare resolution (§4.6).
	OnIncomingCall func(c *Call)
}

// Manager is the call_id -> *Call registry that owns reading
// Transport.Events() and routing each inbound message to the matching call,
// constructing new inbound Calls from invite events as they arrive.
//
// Per the design notes (§9): the transport holds no strong reference
// to any Call, and a Call's lifetime is anchored entirely on the Manager —
// a call is registered at construction and deregistered the moment its
// OnHangup listener fires, whichever caused the hangup.
type Manager struct {
	transport signaling.Transport
	p         ManagerParams
	logger    *logrus.Entry

	mu    sync.Mutex
	calls map[string]*Call

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewManager constructs a Manager and starts its event-routing goroutine.
func NewManager(p ManagerParams) *Manager {
	logger := p.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	m := &Manager{
		transport: p.Transport,
		p:         p,
		logger:    logger,
		calls:     make(map[string]*Call),
		stopCh:    make(chan struct{}),
	}
	go m.run()
	return m
}

// Stop ends the event-routing goroutine. It does not hang up any calls
// still in the registry.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// Lookup returns the registered call for callID, if any.
func (m *Manager) Lookup(callID string) (*Call, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.calls[callID]
	return c, ok
}

// Calls returns a snapshot of every call currently registered.
func (m *Manager) Calls() []*Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Call, 0, len(m.calls))
	for _, c := range m.calls {
		out = append(out, c)
	}
	return out
}

func (m *Manager) register(c *Call) {
	m.mu.Lock()
	m.calls[c.CallID()] = c
	m.mu.Unlock()
}

func (m *Manager) remove(callID string) {
	m.mu.Lock()
	delete(m.calls, callID)
	m.mu.Unlock()
}

// wrapListeners ensures every call's OnHangup, regardless of what the
// caller supplies, also deregisters the call from the Manager, and that
// every call gets at least a logging OnError so a caller who forgets one
// doesn't trip New's programmer-error panic.
func (m *Manager) wrapListeners(callID string, l Listeners) Listeners {
	userHangup := l.OnHangup
	l.OnHangup = func(c *Call) {
		m.remove(callID)
		if userHangup != nil {
			userHangup(c)
		}
	}
	if l.OnError == nil {
		l.OnError = func(err Error) {
			m.logger.WithError(err).WithField("call_id", callID).Warn("Unhandled call error")
		}
	}
	return l
}

// NewOutboundCall constructs and registers a fresh outbound call, ready for
// PlaceVoiceCall/PlaceVideoCall.
func (m *Manager) NewOutboundCall(roomID string, listeners Listeners) (*Call, error) {
	callID := uuid.New().String()
	c, err := New(Params{
		CallID:     callID,
		RoomID:     roomID,
		OurPartyID: m.p.OurPartyID,
		Direction:  Outbound,
		Transport:  m.transport,
		PCFactory:  m.p.PCFactory,
		Acquirer:   m.p.Acquirer,
		ICEServers: m.p.ICEServers,
		Logger:     m.logger,
		Listeners:  m.wrapListeners(callID, listeners),
	})
	if err != nil {
		return nil, err
	}
	m.register(c)
	return c, nil
}

func (m *Manager) run() {
	for {
		select {
		case msg, ok := <-m.transport.Events():
			if !ok {
				return
			}
			m.route(msg)
		case <-m.stopCh:
			return
		}
	}
}

func (m *Manager) route(msg signaling.InboundMessage) {
	if msg.Type == signaling.EventInvite {
		if _, exists := m.Lookup(msg.CallID); exists {
			// Duplicate/retried invite for a call already under way; it is
			// dropped here and never reaches the existing call.
			return
		}
		m.handleInvite(msg)
		return
	}

	c, ok := m.Lookup(msg.CallID)
	if !ok {
		m.logger.WithFields(logrus.Fields{"call_id": msg.CallID, "type": msg.Type}).
			Debug("Dropping inbound message for unknown call")
		return
	}
	c.HandleInbound(msg)
}

func (m *Manager) handleInvite(msg signaling.InboundMessage) {
	inv := msg.Invite
	if inv == nil {
		return
	}

	var listeners Listeners
	if m.p.NewIncomingCallListeners != nil {
		listeners = m.p.NewIncomingCallListeners(msg.CallID)
	}

	c, err := New(Params{
		CallID:     msg.CallID,
		RoomID:     inv.RoomID,
		OurPartyID: m.p.OurPartyID,
		Direction:  Inbound,
		Transport:  m.transport,
		PCFactory:  m.p.PCFactory,
		Acquirer:   m.p.Acquirer,
		ICEServers: m.p.ICEServers,
		Logger:     m.logger,
		Listeners:  m.wrapListeners(msg.CallID, listeners),
	})
	if err != nil {
		m.logger.WithError(err).Warn("Failed to construct inbound call")
		return
	}
	m.register(c)

	c.InitWithInvite(inv, msg.LocalAge)

	if m.p.OnIncomingCall != nil {
		m.p.OnIncomingCall(c)
	}
}
