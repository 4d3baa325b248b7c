package client

import (
	"sync"
	"time"
)

// DefaultTypingTimeout is how long after the last keystroke typing-stop fires.
const DefaultTypingTimeout = 1500 * time.Millisecond

// Timer is a cancellable one-shot timer.
type Timer interface {
	Stop() bool
}

// Clock schedules one-shot callbacks.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// TypingNotifier debounces keystrokes into typing-start and typing-stop
// signals for one conversation. Start fires on the first keystroke of a
// burst; stop fires once no keystroke arrived for the timeout. At most one
// timer is outstanding.
type TypingNotifier struct {
	clock   Clock
	timeout time.Duration
	onStart func()
	onStop  func()

	mu     sync.Mutex
	typing bool
	timer  Timer
	gen    uint64
}

// NewTypingNotifier creates a TypingNotifier. A nil clock uses wall time and
// a non-positive timeout uses DefaultTypingTimeout.
func NewTypingNotifier(clock Clock, timeout time.Duration, onStart, onStop func()) *TypingNotifier {
	if clock == nil {
		clock = realClock{}
	}
	if timeout <= 0 {
		timeout = DefaultTypingTimeout
	}
	return &TypingNotifier{
		clock:   clock,
		timeout: timeout,
		onStart: onStart,
		onStop:  onStop,
	}
}

// Keystroke records local typing activity and re-arms the stop timer.
func (n *TypingNotifier) Keystroke() {
	n.mu.Lock()
	leading := !n.typing
	n.typing = true
	if n.timer != nil {
		n.timer.Stop()
	}
	n.gen++
	gen := n.gen
	n.timer = n.clock.AfterFunc(n.timeout, func() { n.expire(gen) })
	n.mu.Unlock()

	if leading && n.onStart != nil {
		n.onStart()
	}
}

// Flush ends the current burst now, emitting typing-stop if one was started.
// Call it when the message is sent.
func (n *TypingNotifier) Flush() {
	if n.cancel() && n.onStop != nil {
		n.onStop()
	}
}

// Stop cancels the pending timer without emitting anything, e.g. when the
// user switches to another conversation.
func (n *TypingNotifier) Stop() {
	n.cancel()
}

// Typing reports whether a burst is in progress.
func (n *TypingNotifier) Typing() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.typing
}

func (n *TypingNotifier) cancel() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.gen++
	was := n.typing
	n.typing = false
	return was
}

func (n *TypingNotifier) expire(gen uint64) {
	n.mu.Lock()
	// A stale timer lost the race with Keystroke or cancel.
	if gen != n.gen || !n.typing {
		n.mu.Unlock()
		return
	}
	n.typing = false
	n.timer = nil
	n.mu.Unlock()

	if n.onStop != nil {
		n.onStop()
	}
}
