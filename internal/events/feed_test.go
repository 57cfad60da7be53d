package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFeed(t *testing.T) {
	feed := NewFeed[string](false)
	require.NotNil(t, feed)
	assert.Equal(t, 0, feed.SubscriberCount())

	_, ok := feed.Last()
	assert.False(t, ok)
}

func TestFeed_SubscribePublish(t *testing.T) {
	feed := NewFeed[string](false)

	ch := make(chan string, 10)
	unsubscribe := feed.Subscribe(ch)
	assert.Equal(t, 1, feed.SubscriberCount())

	feed.Publish("rep")
	feed.Publish("pause")

	assert.Equal(t, "rep", receive(t, ch))
	assert.Equal(t, "pause", receive(t, ch))

	unsubscribe()
	assert.Equal(t, 0, feed.SubscriberCount())

	feed.Publish("stop")
	select {
	case v := <-ch:
		t.Errorf("unexpected value after unsubscribe: %s", v)
	default:
	}
}

func TestFeed_UnsubscribeTwiceIsSafe(t *testing.T) {
	feed := NewFeed[int](false)
	unsub1 := feed.Subscribe(make(chan int, 1))
	feed.Subscribe(make(chan int, 1))

	unsub1()
	unsub1()
	assert.Equal(t, 1, feed.SubscriberCount())
}

func TestFeed_MultipleSubscribers(t *testing.T) {
	feed := NewFeed[int](false)
	ch1 := make(chan int, 4)
	ch2 := make(chan int, 4)
	defer feed.Subscribe(ch1)()
	defer feed.Subscribe(ch2)()

	feed.Publish(1800)

	assert.Equal(t, 1800, receive(t, ch1))
	assert.Equal(t, 1800, receive(t, ch2))
}

func TestFeed_StickyReplaysLast(t *testing.T) {
	feed := NewFeed[string](true)

	early := make(chan string, 1)
	defer feed.Subscribe(early)()
	select {
	case v := <-early:
		t.Fatalf("nothing published yet, got %s", v)
	default:
	}

	feed.Publish("first")
	feed.Publish("second")
	<-early

	late := make(chan string, 1)
	defer feed.Subscribe(late)()
	assert.Equal(t, "second", receive(t, late))

	last, ok := feed.Last()
	assert.True(t, ok)
	assert.Equal(t, "second", last)
}

func TestFeed_NonStickyDoesNotReplay(t *testing.T) {
	feed := NewFeed[string](false)
	feed.Publish("missed")

	ch := make(chan string, 1)
	defer feed.Subscribe(ch)()

	select {
	case v := <-ch:
		t.Fatalf("non-sticky feed replayed %s", v)
	case <-time.After(20 * time.Millisecond):
	}

	last, ok := feed.Last()
	assert.True(t, ok)
	assert.Equal(t, "missed", last)
}

func TestFeed_FullChannelDoesNotBlock(t *testing.T) {
	feed := NewFeed[int](false)
	ch := make(chan int) // unbuffered, nobody reading
	defer feed.Subscribe(ch)()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			feed.Publish(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
}

func TestFeed_NilChannelPanics(t *testing.T) {
	feed := NewFeed[int](false)
	assert.Panics(t, func() { feed.Subscribe(nil) })
}

func TestFeed_ConcurrentUse(t *testing.T) {
	feed := NewFeed[int](true)
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ch := make(chan int, 16)
			unsub := feed.Subscribe(ch)
			time.Sleep(time.Millisecond)
			unsub()
		}()
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				feed.Publish(n*100 + j)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, feed.SubscriberCount())
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for value")
	}
	var zero T
	return zero
}
