package queue

import (
	"testing"
	"time"

	"github.com/matrix-org/callsig/signaling"
)

func candidate(s string) signaling.Candidate {
	return signaling.Candidate{Candidate: s}
}

func TestEnqueueHoldsUntilReady(t *testing.T) {
	q := New(OutboundDelay)

	schedule, _ := q.Enqueue(candidate("a"), false)
	if schedule {
		t.Fatal("expected no schedule while not ready")
	}
	if q.State() != Idle {
		t.Fatalf("expected Idle, got %v", q.State())
	}

	schedule, delay := q.Enqueue(candidate("b"), true)
	if !schedule || delay != OutboundDelay {
		t.Fatalf("expected schedule with outbound delay, got schedule=%v delay=%v", schedule, delay)
	}
	if q.State() != Scheduled {
		t.Fatalf("expected Scheduled, got %v", q.State())
	}

	batch, ok := q.BeginFlush()
	if !ok || len(batch) != 2 {
		t.Fatalf("expected both candidates in the batch, got %v", batch)
	}
}

func TestEndOfCandidatesSentinelOnlyOnce(t *testing.T) {
	q := New(InboundDelay)

	q.Enqueue(candidate(""), true)
	q.Enqueue(candidate(""), true)

	batch, ok := q.BeginFlush()
	if !ok || len(batch) != 1 {
		t.Fatalf("expected exactly one end-of-candidates entry, got %v", batch)
	}
}

func TestRetryBackoffAndAbandonment(t *testing.T) {
	q := New(InboundDelay)

	batch, ok := q.BeginFlush()
	if ok {
		t.Fatalf("expected nothing to flush from an empty queue, got %v", batch)
	}

	q.Enqueue(candidate("a"), true)
	batch, ok = q.BeginFlush()
	if !ok || len(batch) != 1 {
		t.Fatalf("expected one candidate, got %v", batch)
	}
	if q.Tries() != 1 {
		t.Fatalf("expected 1 try, got %d", q.Tries())
	}

	delay, retry := q.OnSendFailure(batch)
	if !retry || delay != 500*time.Millisecond {
		t.Fatalf("expected retry after 500ms, got retry=%v delay=%v", retry, delay)
	}

	for i := 0; i < 5; i++ {
		batch, ok = q.Retry()
		if !ok {
			t.Fatalf("expected a batch to retry on attempt %d", i)
		}
		delay, retry = q.OnSendFailure(batch)
		if i < 4 {
			if !retry {
				t.Fatalf("expected retry to continue on attempt %d", i)
			}
			want := time.Duration(500*(1<<uint(q.Tries()-1))) * time.Millisecond
			if delay != want {
				t.Fatalf("attempt %d: expected backoff %v, got %v", i, want, delay)
			}
		}
	}

	if retry {
		t.Fatal("expected abandonment after more than five tries")
	}
	if q.State() != Idle || q.Tries() != 0 {
		t.Fatalf("expected reset to Idle/0 tries after abandonment, got state=%v tries=%d", q.State(), q.Tries())
	}
}

func TestSendSuccessFlushesArrivalsDuringFlight(t *testing.T) {
	q := New(InboundDelay)

	q.Enqueue(candidate("a"), true)
	batch, _ := q.BeginFlush()
	if len(batch) != 1 {
		t.Fatalf("expected 1 candidate in flight, got %v", batch)
	}

	// A second candidate arrives while the first batch is InFlight.
	q.Enqueue(candidate("b"), true)

	next, hasNext := q.OnSendSuccess()
	if !hasNext || len(next) != 1 || next[0].Candidate != "b" {
		t.Fatalf("expected the arrival during flight to flush next, got %v hasNext=%v", next, hasNext)
	}
	if q.Tries() != 1 {
		t.Fatalf("expected try counter to reflect the new in-flight batch, got %d", q.Tries())
	}
}

func TestDiscardClearsPendingCandidates(t *testing.T) {
	q := New(InboundDelay)
	q.Enqueue(candidate("a"), false)
	q.Discard()

	batch, ok := q.BeginFlush()
	if ok || batch != nil {
		t.Fatalf("expected nothing left after discard, got %v", batch)
	}
	if q.State() != Idle {
		t.Fatalf("expected Idle after discard, got %v", q.State())
	}
}

func TestThreeCandidatesSurviveTwoFailuresInOriginalOrder(t *testing.T) {
	// Mirrors scenario S6: enqueue three candidates, fail twice, succeed on
	// the third try, and the final batch must preserve original order.
	q := New(OutboundDelay)

	q.Enqueue(candidate("1"), true)
	q.Enqueue(candidate("2"), true)
	q.Enqueue(candidate("3"), true)

	batch, ok := q.BeginFlush()
	if !ok || len(batch) != 3 {
		t.Fatalf("expected all three candidates batched together, got %v", batch)
	}

	_, retry := q.OnSendFailure(batch)
	if !retry {
		t.Fatal("expected retry to be scheduled")
	}

	batch, ok = q.Retry()
	if !ok {
		t.Fatal("expected a retriable batch")
	}
	_, retry = q.OnSendFailure(batch)
	if !retry {
		t.Fatal("expected a second retry to be scheduled")
	}

	batch, ok = q.Retry()
	if !ok {
		t.Fatal("expected a third attempt")
	}
	if len(batch) != 3 {
		t.Fatalf("expected all three candidates still present, got %v", batch)
	}
	for i, want := range []string{"1", "2", "3"} {
		if batch[i].Candidate != want {
			t.Fatalf("candidate order not preserved: got %v", batch)
		}
	}

	next, hasNext := q.OnSendSuccess()
	if hasNext {
		t.Fatalf("expected nothing further to flush, got %v", next)
	}
	if q.Tries() != 0 {
		t.Fatalf("expected try counter reset to 0, got %d", q.Tries())
	}
}
