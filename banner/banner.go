// Package banner is the transient status surface shared by every view.
package banner

import (
	"sync"
	"time"
)

const defaultTTL = 5 * time.Second

// Banner holds at most one message at a time. Setting a message starts
// (or restarts) the expiry timer; a second message during display
// simply overwrites the first. There are no severity levels, history,
// or queueing.
type Banner struct {
	mu       sync.Mutex
	ttl      time.Duration
	msg      string
	timer    *time.Timer
	onChange func()
}

func New() *Banner {
	return &Banner{ttl: defaultTTL}
}

// NewWithTTL creates a banner with a custom expiry, used in tests.
func NewWithTTL(ttl time.Duration) *Banner {
	return &Banner{ttl: ttl}
}

// OnChange installs a callback fired after the message changes,
// including expiry. At most one callback is supported.
func (b *Banner) OnChange(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = fn
}

// Set replaces the current message and restarts the expiry timer.
// Setting an empty message clears the slot immediately.
func (b *Banner) Set(msg string) {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.msg = msg
	if msg != "" {
		b.timer = time.AfterFunc(b.ttl, b.expire)
	}
	fn := b.onChange
	b.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Message returns the currently displayed message, empty if none.
func (b *Banner) Message() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.msg
}

func (b *Banner) expire() {
	b.mu.Lock()
	b.msg = ""
	b.timer = nil
	fn := b.onChange
	b.mu.Unlock()

	if fn != nil {
		fn()
	}
}
