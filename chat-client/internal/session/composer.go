package session

import (
	"context"
	"sync"
	"time"
)

// DefaultTypingIdle is how long after the last keystroke typing stops.
const DefaultTypingIdle = 3 * time.Second

// Timer is a pending AfterFunc call.
type Timer interface {
	Stop() bool
}

// Clock schedules functions. Tests substitute a simulated clock.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock returns a Clock backed by the time package.
func SystemClock() Clock {
	return systemClock{}
}

// ComposerTarget is what a Composer drives, normally a *Manager.
type ComposerTarget interface {
	SetTyping(ctx context.Context, typing bool)
	Send(ctx context.Context, text string) (*SendReceipt, error)
}

// Composer holds the input field and debounces typing signals: the first
// keystroke starts typing, idleness or clearing the field stops it.
type Composer struct {
	target ComposerTarget
	clock  Clock
	idle   time.Duration

	mu     sync.Mutex
	text   string
	typing bool
	timer  Timer
	// seq invalidates idle timers that fire after being replaced.
	seq uint64
}

// NewComposer creates a composer. A nil clock uses SystemClock.
func NewComposer(target ComposerTarget, clock Clock, idle time.Duration) *Composer {
	if clock == nil {
		clock = SystemClock()
	}
	if idle <= 0 {
		idle = DefaultTypingIdle
	}
	return &Composer{target: target, clock: clock, idle: idle}
}

// Text returns the current input.
func (c *Composer) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

// SetText records a keystroke that left the field holding text.
func (c *Composer) SetText(ctx context.Context, text string) {
	c.mu.Lock()
	c.text = text

	if text == "" {
		c.stopTimerLocked()
		wasTyping := c.typing
		c.typing = false
		c.mu.Unlock()

		if wasTyping {
			c.target.SetTyping(ctx, false)
		}
		return
	}

	start := !c.typing
	c.typing = true
	c.stopTimerLocked()
	seq := c.seq
	c.timer = c.clock.AfterFunc(c.idle, func() { c.expire(seq) })
	c.mu.Unlock()

	if start {
		c.target.SetTyping(ctx, true)
	}
}

// Submit sends the input. Typing stops first. The field is cleared only when
// the message went out live, even if it was not persisted.
func (c *Composer) Submit(ctx context.Context) (*SendReceipt, error) {
	c.mu.Lock()
	text := c.text
	c.stopTimerLocked()
	wasTyping := c.typing
	c.typing = false
	c.mu.Unlock()

	if wasTyping {
		c.target.SetTyping(ctx, false)
	}

	receipt, err := c.target.Send(ctx, text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.text == text {
		c.text = ""
	}
	c.mu.Unlock()
	return receipt, nil
}

func (c *Composer) expire(seq uint64) {
	c.mu.Lock()
	if seq != c.seq || !c.typing {
		c.mu.Unlock()
		return
	}
	c.typing = false
	c.timer = nil
	c.mu.Unlock()

	c.target.SetTyping(context.Background(), false)
}

// stopTimerLocked cancels the idle timer and invalidates it should it be
// firing already.
func (c *Composer) stopTimerLocked() {
	c.seq++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
