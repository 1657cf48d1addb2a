package router

import (
	"testing"

	"github.com/matrix-org/callsig/signaling"
)

func TestAcceptEverythingBeforeCommit(t *testing.T) {
	o := Unset()
	if !Accept(false, "", o) {
		t.Fatal("expected acceptance before commit (v0 hangup/reject carve-out)")
	}
	if !Accept(true, "D9", o) {
		t.Fatal("expected acceptance before commit regardless of party id")
	}
}

func TestAcceptFiltersAfterStringCommit(t *testing.T) {
	o := Commit(true, "D2")
	if !o.Committed() || o.State != StringChosen {
		t.Fatalf("expected StringChosen, got %+v", o)
	}

	if !Accept(true, "D2", o) {
		t.Fatal("expected matching party id to be accepted")
	}
	if Accept(true, "D9", o) {
		t.Fatal("expected non-matching party id to be dropped")
	}
	if Accept(false, "", o) {
		t.Fatal("expected missing party id to be dropped once a string is committed")
	}
}

func TestAcceptFiltersAfterNullCommit(t *testing.T) {
	o := Commit(false, "")
	if o.State != NullChosen {
		t.Fatalf("expected NullChosen, got %+v", o)
	}

	if !Accept(false, "", o) {
		t.Fatal("expected missing party id to match a null-chosen opponent")
	}
	if Accept(true, "D2", o) {
		t.Fatal("expected a named party id to be dropped against a null-chosen opponent")
	}
}

func TestSelectAnswerAccepted(t *testing.T) {
	if !SelectAnswerAccepted("D1", "D1") {
		t.Fatal("expected matching select_answer to be accepted")
	}
	if SelectAnswerAccepted("D1", "D9") {
		t.Fatal("expected mismatched select_answer to be rejected")
	}
}

func TestCandidateIsAddressable(t *testing.T) {
	mid := "0"
	withMid := signaling.Candidate{Candidate: "candidate:1 1 UDP 1 1.2.3.4 5 typ host", SDPMid: &mid}
	if !CandidateIsAddressable(withMid) {
		t.Fatal("expected candidate with sdpMid to be addressable")
	}

	bare := signaling.Candidate{Candidate: "candidate:1 1 UDP 1 1.2.3.4 5 typ host"}
	if CandidateIsAddressable(bare) {
		t.Fatal("expected candidate missing both fields to be unaddressable")
	}
}
