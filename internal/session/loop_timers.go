package session

import (
	"sync"
	"time"
)

// LoopTimers implements speech.Timers by handing expired callbacks to the
// Manager loop, so intro timers run serialized with ticks and commands.
type LoopTimers struct {
	fire      chan func()
	done      chan struct{}
	closeOnce sync.Once
}

func NewLoopTimers() *LoopTimers {
	return &LoopTimers{
		fire: make(chan func()),
		done: make(chan struct{}),
	}
}

func (lt *LoopTimers) AfterFunc(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, func() {
		select {
		case lt.fire <- fn:
		case <-lt.done:
		}
	})
	return func() { t.Stop() }
}

// C delivers expired callbacks. Only the Manager loop reads it.
func (lt *LoopTimers) C() <-chan func() { return lt.fire }

// Close releases callbacks that are waiting for the loop.
func (lt *LoopTimers) Close() {
	lt.closeOnce.Do(func() { close(lt.done) })
}
