// Package notify implements the single-slot toast bus shared by the engine
// components. At most one message is visible at a time; posting replaces the
// current message. Subscribers (the UI event stream) receive every post.
package notify

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultDuration is how long a toast stays visible before auto-clearing.
const DefaultDuration = 3 * time.Second

// subscriberBuffer is the channel depth for each subscriber. A slow reader
// drops posts rather than blocking the engine.
const subscriberBuffer = 16

// Bus is a single-slot toast message holder with timed auto-clear.
//
// Every post schedules its own independent clear timer; a previous pending
// timer is not cancelled when a new message is posted, so an earlier timer
// can clear a newer message before its full duration elapses. This matches
// the shipped behavior and the UI tolerates the early clear.
type Bus struct {
	mu       sync.Mutex
	current  string
	duration time.Duration
	subs     map[int]chan string
	nextSub  int
	logger   *slog.Logger

	// afterFunc schedules the auto-clear. Tests override it to control time.
	afterFunc func(d time.Duration, f func()) *time.Timer
}

// New creates a Bus with the given toast duration. Pass DefaultDuration
// outside tests.
func New(logger *slog.Logger, duration time.Duration) *Bus {
	if logger == nil {
		logger = slog.Default()
	}

	return &Bus{
		duration:  duration,
		subs:      make(map[int]chan string),
		logger:    logger,
		afterFunc: time.AfterFunc,
	}
}

// Post replaces the current message and schedules its auto-clear.
func (b *Bus) Post(msg string) {
	b.mu.Lock()
	b.current = msg

	for _, ch := range b.subs {
		select {
		case ch <- msg:
		default:
			// Subscriber is not keeping up; drop rather than block.
		}
	}
	b.mu.Unlock()

	b.logger.Debug("toast posted", slog.String("message", msg))

	b.afterFunc(b.duration, b.clear)
}

// clear empties the slot unconditionally, whichever message is showing.
func (b *Bus) clear() {
	b.mu.Lock()
	b.current = ""
	b.mu.Unlock()
}

// Current returns the message currently in the slot, or "" if none.
func (b *Bus) Current() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.current
}

// Subscribe registers a channel that receives every posted message. The
// returned cancel function removes the subscription and closes the channel.
func (b *Bus) Subscribe() (<-chan string, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextSub
	b.nextSub++

	ch := make(chan string, subscriberBuffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}

	return ch, cancel
}
