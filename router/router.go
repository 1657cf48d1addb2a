// Package router implements the inbound-event dispatch rules of §4.4:
// party-id filtering once an opponent has been committed, select_answer
// confirmation, and ICE candidate admissibility. It holds no call state of
// its own — Opponent is an immutable value the call carries and passes in —
// so every decision here is a pure function, easy to test in isolation from
// the rest of the call machinery.
package router

import "github.com/matrix-org/callsig/signaling"

// OpponentState is the three-valued opponent_party_id described in §3.
type OpponentState int

const (
	// Unchosen: no partner has committed to this call yet.
	Unchosen OpponentState = iota
	// NullChosen: a partner committed but reported no party id (legacy peer).
	NullChosen
	// StringChosen: a partner committed and reported a party id.
	StringChosen
)

// Opponent is the call's current view of who, if anyone, it is talking to.
type Opponent struct {
	State   OpponentState
	PartyID string // meaningful only when State == StringChosen
}

// Unset is the initial Opponent value for a freshly constructed call.
func Unset() Opponent {
	return Opponent{State: Unchosen}
}

// Committed reports whether a partner has been locked in. Invariant 5: once
// true, it stays true for the life of the call.
func (o Opponent) Committed() bool {
	return o.State != Unchosen
}

// Commit returns the Opponent value recording a newly-chosen partner, from
// the party id carried on the message that won the race to answer (or, for
// a legacy peer, the absence of one).
func Commit(hasParty bool, partyID string) Opponent {
	if !hasParty || partyID == "" {
		return Opponent{State: NullChosen}
	}
	return Opponent{State: StringChosen, PartyID: partyID}
}

// Accept implements the party-id filter. Before an opponent is committed,
// everything passes — including the v0 carve-out where an early hangup
// doubles as a reject (spec S4). After commit, only messages whose party id
// matches (missing treated as null) pass; everything else is dropped.
func Accept(hasParty bool, partyID string, opponent Opponent) bool {
	if !opponent.Committed() {
		return true
	}
	if opponent.State == NullChosen {
		return !hasParty || partyID == ""
	}
	return hasParty && partyID == opponent.PartyID
}

// SelectAnswerAccepted reports whether a select_answer naming selectedPartyID
// confirms this device's own answer. Meaningful only for inbound-direction
// calls; the call should not invoke this for an outbound call.
func SelectAnswerAccepted(ourPartyID, selectedPartyID string) bool {
	return selectedPartyID == ourPartyID
}

// CandidateIsAddressable reports whether a candidate carries enough routing
// information to hand to the peer connection. Candidates missing both
// sdpMid and sdpMLineIndex are dropped rather than forwarded.
func CandidateIsAddressable(c signaling.Candidate) bool {
	return c.SDPMid != nil || c.SDPMLineIndex != nil
}

// SwallowCandidateError reports whether a failed AddICECandidate call should
// be silenced outright (true, when the call has already signaled it is
// ignoring this negotiation pass) rather than merely treated as non-fatal
// and logged.
func SwallowCandidateError(ignoreOffer bool) bool {
	return ignoreOffer
}
