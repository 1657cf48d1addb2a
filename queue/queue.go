// Package queue implements the per-call local ICE candidate buffer: batching
// bursts of candidates into a single signaling message, retrying failed
// sends with exponential backoff, and abandoning after too many tries.
//
// Queue holds no goroutines and starts no timers itself — per the
// single-threaded cooperative model the call owns, a Queue only tracks state
// and tells its caller what to do (schedule a flush after a delay, retry
// after a backoff); the caller's own event loop drives the actual waits.
package queue

import (
	"time"

	"github.com/matrix-org/callsig/signaling"
)

// State is the queue's current disposition, as recommended in the design
// notes: auditable transitions instead of independent booleans and counters.
type State int

const (
	// Idle: nothing buffered, no flush scheduled.
	Idle State = iota
	// Scheduled: a flush has been requested after a delay but has not fired.
	Scheduled
	// InFlight: a batch has been handed to the caller for sending.
	InFlight
	// CoolingDown: the last send failed and a retry is scheduled.
	CoolingDown
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Scheduled:
		return "Scheduled"
	case InFlight:
		return "InFlight"
	case CoolingDown:
		return "CoolingDown"
	default:
		return "Unknown"
	}
}

// maxTries is the 5-try abandonment rule: more than this many total attempts
// at the same batch and the queue gives up until a fresh enqueue starts over.
const maxTries = 5

// Queue buffers local ICE candidates for one call. Not safe for concurrent
// use — it is owned exclusively by the call's single executor.
type Queue struct {
	buffer []signaling.Candidate
	state  State
	tries  int

	initialDelay        time.Duration
	sentEndOfCandidates bool
}

// New returns an empty queue. initialDelay is the amalgamation window
// applied to the first candidate of a burst: 500ms for inbound calls,
// 2000ms for outbound (the callee is still deciding).
func New(initialDelay time.Duration) *Queue {
	return &Queue{state: Idle, initialDelay: initialDelay}
}

// InboundDelay and OutboundDelay are the two initial delays named in the
// spec; callers pick the one matching the call's direction when building a
// Queue.
const (
	InboundDelay  = 500 * time.Millisecond
	OutboundDelay = 2000 * time.Millisecond
)

// State reports the current disposition, for inspection and tests.
func (q *Queue) State() State {
	return q.state
}

// Tries reports the number of send attempts made against the current batch.
func (q *Queue) Tries() int {
	return q.tries
}

// Enqueue appends a candidate to the buffer. An empty Candidate string is
// the end-of-candidates sentinel and is accepted at most once; subsequent
// ones are silently dropped (invariant: sent_end_of_candidates becomes true
// at most once).
//
// ready reports whether the call is currently allowed to flush — false
// while the call is Ringing or hasn't yet sent its invite/answer. When not
// ready, the candidate stays buffered for the call's local description to
// carry, and no flush is scheduled.
//
// Enqueue returns whether the caller should now schedule a flush, and after
// how long.
func (q *Queue) Enqueue(c signaling.Candidate, ready bool) (schedule bool, delay time.Duration) {
	if c.Candidate == "" {
		if q.sentEndOfCandidates {
			return false, 0
		}
		q.sentEndOfCandidates = true
	}

	q.buffer = append(q.buffer, c)
	return q.scheduleIfReady(ready)
}

// Kick re-checks whether a currently-buffered, unscheduled batch should now
// be scheduled — used when readiness changes (e.g. invite_or_answer_sent
// flips true) without a new candidate arriving.
func (q *Queue) Kick(ready bool) (schedule bool, delay time.Duration) {
	return q.scheduleIfReady(ready)
}

func (q *Queue) scheduleIfReady(ready bool) (bool, time.Duration) {
	if !ready || q.state != Idle || len(q.buffer) == 0 {
		return false, 0
	}

	q.state = Scheduled
	return true, q.initialDelay
}

// BeginFlush takes the entire buffer for sending. It returns false if there
// is nothing to send (the scheduled flush raced with a Discard, say).
func (q *Queue) BeginFlush() ([]signaling.Candidate, bool) {
	if len(q.buffer) == 0 {
		q.state = Idle
		return nil, false
	}

	batch := q.buffer
	q.buffer = nil
	q.tries++
	q.state = InFlight
	return batch, true
}

// OnSendSuccess records a successful send and, per the batching contract,
// immediately starts flushing anything that arrived while the batch was in
// flight. hasNext reports whether such a follow-up batch was started.
func (q *Queue) OnSendSuccess() (next []signaling.Candidate, hasNext bool) {
	q.tries = 0
	if len(q.buffer) == 0 {
		q.state = Idle
		return nil, false
	}

	batch := q.buffer
	q.buffer = nil
	q.tries++
	q.state = InFlight
	return batch, true
}

// OnSendFailure re-prepends the failed batch, preserving candidate order,
// and reports the backoff delay before the next retry. shouldRetry is false
// once more than five total tries have been made; the queue then abandons
// the batch's delivery (resetting the try counter) but keeps the candidates
// buffered so a later, ready enqueue can try again from scratch.
func (q *Queue) OnSendFailure(batch []signaling.Candidate) (retryDelay time.Duration, shouldRetry bool) {
	q.buffer = append(batch, q.buffer...)

	if q.tries > maxTries {
		q.tries = 0
		q.state = Idle
		return 0, false
	}

	delay := time.Duration(500*(1<<uint(q.tries-1))) * time.Millisecond
	q.state = CoolingDown
	return delay, true
}

// Retry re-takes the buffer after a backoff delay fires. Semantically
// identical to BeginFlush; kept as a distinct name at call sites for
// readability.
func (q *Queue) Retry() ([]signaling.Candidate, bool) {
	return q.BeginFlush()
}

// Discard drops all buffered candidates and resets to Idle. Called when the
// call is about to send a local description that will carry these
// candidates inline, so the queued copies are no longer needed.
func (q *Queue) Discard() {
	q.buffer = nil
	q.tries = 0
	q.state = Idle
}
