package call

import "fmt"

// Code is the wire-visible error taxonomy of §6/§7.
type Code uint32

const (
	UserHangup Code = iota
	LocalOfferFailed
	NoUserMedia
	UnknownDevices
	SendInvite
	CreateAnswer
	SendAnswer
	SetRemoteDescription
	SetLocalDescription
	AnsweredElsewhere
	IceFailed
	InviteTimeout
	Replaced
	SignallingFailed
)

func (c Code) String() string {
	switch c {
	case UserHangup:
		return "UserHangup"
	case LocalOfferFailed:
		return "LocalOfferFailed"
	case NoUserMedia:
		return "NoUserMedia"
	case UnknownDevices:
		return "UnknownDevices"
	case SendInvite:
		return "SendInvite"
	case CreateAnswer:
		return "CreateAnswer"
	case SendAnswer:
		return "SendAnswer"
	case SetRemoteDescription:
		return "SetRemoteDescription"
	case SetLocalDescription:
		return "SetLocalDescription"
	case AnsweredElsewhere:
		return "AnsweredElsewhere"
	case IceFailed:
		return "IceFailed"
	case InviteTimeout:
		return "InviteTimeout"
	case Replaced:
		return "Replaced"
	case SignallingFailed:
		return "SignallingFailed"
	default:
		return "Unknown"
	}
}

// Error is the call package's typed error: a Code plus the call it came
// from and, where relevant, the underlying cause.
type Error struct {
	CallID string
	code   Code
	cause  error
}

// NewError constructs an Error for callID with the given code, optionally
// wrapping cause (nil is fine — not every code has an underlying error,
// e.g. InviteTimeout).
func NewError(callID string, code Code, cause error) Error {
	return Error{CallID: callID, code: code, cause: cause}
}

// Code reports the error's taxonomy code.
func (e Error) Code() Code {
	return e.code
}

// Unwrap exposes the underlying cause to errors.Is/errors.As.
func (e Error) Unwrap() error {
	return e.cause
}

func (e Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("call %s: %s: %v", e.CallID, e.code, e.cause)
	}
	return fmt.Sprintf("call %s: %s", e.CallID, e.code)
}

// IsCode checks that err is a call.Error carrying the given code.
func IsCode(err error, code Code) bool {
	callErr, ok := err.(Error)
	return ok && callErr.code == code
}

// suppressesHangupEvent reports whether a code's propagation policy is "local setup
// failure": emitted, terminated immediately, with the outbound hangup event
// suppressed since the call never established (§7).
func (c Code) suppressesHangupEvent() bool {
	switch c {
	case LocalOfferFailed, CreateAnswer, SetLocalDescription, SetRemoteDescription, NoUserMedia:
		return true
	}
	return false
}

// sendsHangupOnWire reports whether terminating with this code and party
// should push an outbound hangup message (§7: signaling failures and ICE
// failure do; protocol timeouts do, as a normal courtesy hangup; local
// setup failures don't, since the call never established to begin with).
// UserHangup is peer-initiated-or-not depending on party: when the remote
// sent us the hangup/reject (party == PartyRemote) it already knows and
// silence is correct, but when the user hung up locally (party ==
// PartyLocal) the remote has not been told anything yet, so the wire
// message must go out. Replaced and AnsweredElsewhere are always silent —
// in both cases the remote is the one who caused the termination and
// already knows.
func (c Code) sendsHangupOnWire(party Party) bool {
	switch c {
	case SendInvite, SendAnswer, SignallingFailed, UnknownDevices, IceFailed, InviteTimeout:
		return true
	case UserHangup:
		return party == PartyLocal
	}
	return false
}

// cancelsPendingSend reports whether terminating with this code should ask
// the transport to cancel any pending send for this call, to allow
// deduplication (§7 signaling send failures).
func (c Code) cancelsPendingSend() bool {
	switch c {
	case SendInvite, SendAnswer, SignallingFailed, UnknownDevices:
		return true
	}
	return false
}
