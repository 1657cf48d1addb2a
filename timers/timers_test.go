package timers

import (
	"testing"
	"time"
)

func TestRingLifetimeStaleWhenAlreadyExpired(t *testing.T) {
	d, stale := RingLifetime(1000, 1000)
	if !stale || d != 0 {
		t.Fatalf("expected stale with zero duration, got stale=%v d=%v", stale, d)
	}

	d, stale = RingLifetime(1000, 1500)
	if !stale {
		t.Fatalf("expected stale when age exceeds lifetime, got d=%v", d)
	}
}

func TestRingLifetimeRemaining(t *testing.T) {
	d, stale := RingLifetime(60000, 10000)
	if stale || d != 50*time.Second {
		t.Fatalf("expected 50s remaining, got stale=%v d=%v", stale, d)
	}
}

func TestManagerInviteTimeoutCanBeDisarmed(t *testing.T) {
	m := NewManager()

	ch := m.ArmInviteTimeout()
	m.DisarmInviteTimeout()

	select {
	case <-ch:
		t.Fatal("disarmed timer should not fire")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestOneShotRearmCancelsPrevious(t *testing.T) {
	var o oneShot

	first := o.Arm(10 * time.Millisecond)
	second := o.Arm(20 * time.Millisecond)

	select {
	case <-first:
		t.Fatal("replaced timer should not fire")
	case <-time.After(15 * time.Millisecond):
	}

	select {
	case <-second:
	case <-time.After(50 * time.Millisecond):
		t.Fatal("replacement timer never fired")
	}
}
