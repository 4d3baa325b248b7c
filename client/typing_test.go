package client

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// fakeClock fires timers only when Advance moves past their deadline.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.at <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
}

func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type signals struct {
	mu  sync.Mutex
	log []string
}

func (s *signals) add(name string) func() {
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.log = append(s.log, name)
	}
}

func (s *signals) get() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.log...)
}

func newNotifier() (*TypingNotifier, *fakeClock, *signals) {
	clock := &fakeClock{}
	sig := &signals{}
	return NewTypingNotifier(clock, DefaultTypingTimeout, sig.add("start"), sig.add("stop")), clock, sig
}

func TestTypingNotifier_SingleKeystroke(t *testing.T) {
	n, clock, sig := newNotifier()

	n.Keystroke()
	assert.Equal(t, []string{"start"}, sig.get())
	assert.True(t, n.Typing())

	clock.Advance(1499 * time.Millisecond)
	assert.Equal(t, []string{"start"}, sig.get())

	clock.Advance(time.Millisecond)
	assert.Equal(t, []string{"start", "stop"}, sig.get())
	assert.False(t, n.Typing())
}

func TestTypingNotifier_BurstDebounces(t *testing.T) {
	n, clock, sig := newNotifier()

	// Keystrokes every 500ms for 3 seconds.
	for i := 0; i < 6; i++ {
		n.Keystroke()
		assert.Equal(t, 1, clock.pending(), "exactly one outstanding timer")
		clock.Advance(500 * time.Millisecond)
	}
	assert.Equal(t, []string{"start"}, sig.get(), "no stop while keystrokes keep re-arming")

	clock.Advance(999 * time.Millisecond)
	assert.Equal(t, []string{"start"}, sig.get())
	clock.Advance(time.Millisecond)
	assert.Equal(t, []string{"start", "stop"}, sig.get(), "stop fires 1500ms after the last keystroke")
}

func TestTypingNotifier_NewBurstAfterStop(t *testing.T) {
	n, clock, sig := newNotifier()

	n.Keystroke()
	clock.Advance(DefaultTypingTimeout)
	n.Keystroke()
	clock.Advance(DefaultTypingTimeout)

	assert.Equal(t, []string{"start", "stop", "start", "stop"}, sig.get())
}

func TestTypingNotifier_FlushEmitsStop(t *testing.T) {
	n, clock, sig := newNotifier()

	n.Keystroke()
	n.Flush()
	assert.Equal(t, []string{"start", "stop"}, sig.get())
	assert.Equal(t, 0, clock.pending())

	clock.Advance(time.Hour)
	assert.Equal(t, []string{"start", "stop"}, sig.get(), "cancelled timer must not fire")

	n.Flush()
	assert.Equal(t, []string{"start", "stop"}, sig.get(), "flush when idle is a no-op")
}

func TestTypingNotifier_StopIsSilent(t *testing.T) {
	n, clock, sig := newNotifier()

	n.Keystroke()
	n.Stop()
	clock.Advance(time.Hour)

	assert.Equal(t, []string{"start"}, sig.get())
	assert.False(t, n.Typing())
}

func TestTypingNotifier_StaleTimerIgnored(t *testing.T) {
	n, clock, sig := newNotifier()

	n.Keystroke()
	clock.mu.Lock()
	stale := clock.timers[0]
	clock.mu.Unlock()

	n.Keystroke()
	// Simulate the first timer firing after it was replaced.
	stale.f()
	assert.Equal(t, []string{"start"}, sig.get())

	clock.Advance(DefaultTypingTimeout)
	assert.Equal(t, []string{"start", "stop"}, sig.get())
}

func TestNewTypingNotifier_Defaults(t *testing.T) {
	n := NewTypingNotifier(nil, 0, nil, nil)
	require.NotNil(t, n)
	assert.Equal(t, DefaultTypingTimeout, n.timeout)
	assert.IsType(t, realClock{}, n.clock)

	// Nil callbacks are allowed.
	n.Keystroke()
	n.Flush()
}
