// Package speechtest provides deterministic timers and a recording
// announcer for tests of code that talks.
package speechtest

import (
	"sync"
	"time"

	"github.com/lowaak/smart-trainer/coach-app/internal/speech"
)

type timer struct {
	delay     time.Duration
	fn        func()
	cancelled bool
}

// Timers queues callbacks until Fire is called.
type Timers struct {
	mu      sync.Mutex
	pending []*timer
}

func (t *Timers) AfterFunc(d time.Duration, fn func()) func() {
	entry := &timer{delay: d, fn: fn}
	t.mu.Lock()
	t.pending = append(t.pending, entry)
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		entry.cancelled = true
		t.mu.Unlock()
	}
}

// Pending counts callbacks that were neither fired nor cancelled.
func (t *Timers) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, e := range t.pending {
		if !e.cancelled {
			n++
		}
	}
	return n
}

// LastDelay is the delay of the most recently scheduled live callback.
func (t *Timers) LastDelay() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.pending) - 1; i >= 0; i-- {
		if !t.pending[i].cancelled {
			return t.pending[i].delay
		}
	}
	return 0
}

// Fire runs every live callback queued so far. Callbacks scheduled while
// firing wait for the next call.
func (t *Timers) Fire() int {
	t.mu.Lock()
	batch := t.pending
	t.pending = nil
	t.mu.Unlock()

	n := 0
	for _, e := range batch {
		t.mu.Lock()
		cancelled := e.cancelled
		t.mu.Unlock()
		if cancelled {
			continue
		}
		e.fn()
		n++
	}
	return n
}

// Announcer records what would have been spoken.
type Announcer struct {
	mu      sync.Mutex
	texts   []string
	voices  []speech.Voice
	cancels int
	Err     error
}

func (a *Announcer) Announce(text string, voice speech.Voice) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.texts = append(a.texts, text)
	a.voices = append(a.voices, voice)
	return a.Err
}

func (a *Announcer) CancelAll() {
	a.mu.Lock()
	a.cancels++
	a.mu.Unlock()
}

func (a *Announcer) Texts() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.texts...)
}

func (a *Announcer) Voices() []speech.Voice {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]speech.Voice(nil), a.voices...)
}

func (a *Announcer) Cancels() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cancels
}

func (a *Announcer) Reset() {
	a.mu.Lock()
	a.texts, a.voices, a.cancels = nil, nil, 0
	a.mu.Unlock()
}
