package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestBus_DeliversToSubscribers(t *testing.T) {
	b := NewWithConfig(2, 10)

	var mu sync.Mutex
	var got []any
	var wg sync.WaitGroup
	wg.Add(2)
	handler := func(e Event) {
		mu.Lock()
		got = append(got, e.Payload)
		mu.Unlock()
		wg.Done()
	}
	b.Subscribe(EventTypeLightChanged, handler)
	b.Subscribe(EventTypeLightChanged, handler)

	if n := b.Publish(Event{Type: EventTypeLightChanged, Payload: "x"}); n != 2 {
		t.Errorf("queued = %d, want 2", n)
	}
	if n := b.Publish(Event{Type: EventTypeScriptLoaded}); n != 0 {
		t.Errorf("queued without subscribers = %d, want 0", n)
	}

	wg.Wait()
	b.Close(context.Background())

	if len(got) != 2 || got[0] != "x" || got[1] != "x" {
		t.Errorf("payloads = %v", got)
	}
}

func TestBus_DropsWhenFull(t *testing.T) {
	b := NewWithConfig(1, 1)
	block := make(chan struct{})
	started := make(chan struct{}, 1)
	b.Subscribe(EventTypeLightChanged, func(Event) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
	})

	b.Publish(Event{Type: EventTypeLightChanged})
	// worker busy
	<-started
	b.Publish(Event{Type: EventTypeLightChanged}) // fills queue
	if n := b.Publish(Event{Type: EventTypeLightChanged}); n != 0 {
		t.Errorf("queued = %d, want 0 when full", n)
	}

	close(block)
	b.Close(context.Background())
}

func TestBus_PanickingHandlerDoesNotKillWorker(t *testing.T) {
	b := NewWithConfig(1, 10)
	done := make(chan struct{})
	b.Subscribe(EventTypeLightChanged, func(e Event) {
		if e.Payload == "boom" {
			panic("boom")
		}
		close(done)
	})

	b.Publish(Event{Type: EventTypeLightChanged, Payload: "boom"})
	b.Publish(Event{Type: EventTypeLightChanged, Payload: "ok"})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker stopped after panic")
	}
	b.Close(context.Background())
}

func TestBus_PublishAfterClose(t *testing.T) {
	b := New()
	b.Subscribe(EventTypeLightChanged, func(Event) {})
	b.Close(context.Background())
	b.Close(context.Background())

	if n := b.Publish(Event{Type: EventTypeLightChanged}); n != 0 {
		t.Errorf("queued after close = %d, want 0", n)
	}
}

func TestBus_PublishWaitNeverDrops(t *testing.T) {
	b := NewWithConfig(1, 1)

	var mu sync.Mutex
	var got []int
	b.Subscribe(EventTypeLightChanged, func(e Event) {
		time.Sleep(time.Millisecond)
		mu.Lock()
		got = append(got, e.Payload.(int))
		mu.Unlock()
	})

	const n = 50
	for i := 0; i < n; i++ {
		if q := b.PublishWait(Event{Type: EventTypeLightChanged, Payload: i}); q != 1 {
			t.Fatalf("queued = %d, want 1", q)
		}
	}
	b.Close(context.Background())

	if len(got) != n {
		t.Fatalf("delivered = %d, want %d", len(got), n)
	}
	// A single worker preserves publish order.
	for i, v := range got {
		if v != i {
			t.Fatalf("got[%d] = %d", i, v)
		}
	}
}

func TestBus_PublishWaitUnblocksOnClose(t *testing.T) {
	b := NewWithConfig(1, 1)
	block := make(chan struct{})
	started := make(chan struct{}, 1)
	b.Subscribe(EventTypeLightChanged, func(Event) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
	})

	b.Publish(Event{Type: EventTypeLightChanged})
	<-started
	b.Publish(Event{Type: EventTypeLightChanged}) // fills queue

	result := make(chan int)
	go func() {
		result <- b.PublishWait(Event{Type: EventTypeLightChanged})
	}()

	closed := make(chan struct{})
	go func() {
		b.Close(context.Background())
		close(closed)
	}()

	select {
	case n := <-result:
		if n != 0 {
			t.Errorf("queued = %d, want 0 after close", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("PublishWait still blocked after Close")
	}

	close(block)
	<-closed

	if n := b.PublishWait(Event{Type: EventTypeLightChanged}); n != 0 {
		t.Errorf("queued after close = %d, want 0", n)
	}
}
