package events

import (
	"sync"
)

// Feed fans values out to subscribed channels.
// Sends never block: a subscriber whose buffer is full misses that value.
type Feed[T any] struct {
	mu          sync.RWMutex
	subscribers map[uint64]chan<- T
	nextID      uint64
	sticky      bool
	last        T
	hasLast     bool
}

// NewFeed creates a feed. A sticky feed replays the most recent value to
// each new subscriber.
func NewFeed[T any](sticky bool) *Feed[T] {
	return &Feed[T]{
		subscribers: make(map[uint64]chan<- T),
		sticky:      sticky,
	}
}

// Subscribe registers ch and returns the function that removes it.
func (f *Feed[T]) Subscribe(ch chan<- T) func() {
	if ch == nil {
		panic("events.Feed: channel cannot be nil")
	}

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subscribers[id] = ch
	replay, hasReplay := f.last, f.sticky && f.hasLast
	f.mu.Unlock()

	if hasReplay {
		select {
		case ch <- replay:
		default:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subscribers, id)
			f.mu.Unlock()
		})
	}
}

// Publish delivers value to every subscriber.
func (f *Feed[T]) Publish(value T) {
	f.mu.Lock()
	f.last = value
	f.hasLast = true
	targets := make([]chan<- T, 0, len(f.subscribers))
	for _, ch := range f.subscribers {
		targets = append(targets, ch)
	}
	f.mu.Unlock()

	for _, ch := range targets {
		select {
		case ch <- value:
		default:
		}
	}
}

// Last returns the most recently published value.
func (f *Feed[T]) Last() (T, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.last, f.hasLast
}

func (f *Feed[T]) SubscriberCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribers)
}
