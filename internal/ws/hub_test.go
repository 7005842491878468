package ws

import (
	"testing"
	"time"
)

func waitCount(h *Hub, want int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if h.SubscriberCount() == want {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return h.SubscriberCount() == want
}

func TestHubPublishFanout(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	c1 := NewClient(hub, nil)
	c2 := NewClient(hub, nil)
	hub.Register(c1)
	hub.Register(c2)
	if !waitCount(hub, 2, time.Second) {
		t.Fatal("subscribers never registered")
	}

	hub.Publish(WsEvent{Event: EventDispatchStarted, Data: "payload"})

	for i, c := range []*Client{c1, c2} {
		select {
		case evt := <-c.send:
			if evt.Event != EventDispatchStarted {
				t.Errorf("client %d got event %q", i, evt.Event)
			}
			if evt.Timestamp.IsZero() {
				t.Errorf("client %d event missing timestamp", i)
			}
		case <-time.After(time.Second):
			t.Fatalf("client %d never received the event", i)
		}
	}
}

func TestHubQueueDeliversToSingleClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	c1 := NewClient(hub, nil)
	c2 := NewClient(hub, nil)
	hub.Register(c1)
	hub.Register(c2)
	if !waitCount(hub, 2, time.Second) {
		t.Fatal("subscribers never registered")
	}

	if !c1.Queue(WsEvent{Event: EventConnectionStatusChanged}) {
		t.Fatal("queue rejected initial event")
	}

	select {
	case evt := <-c1.send:
		if evt.Event != EventConnectionStatusChanged {
			t.Errorf("got event %q", evt.Event)
		}
	case <-time.After(time.Second):
		t.Fatal("queued event never delivered")
	}

	select {
	case evt := <-c2.send:
		t.Errorf("queue leaked to other subscriber: %q", evt.Event)
	default:
	}
}

func TestHubEvictsBrokenSubscriber(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	// Subscriber tanpa reader: buffer send bakal penuh
	c := NewClient(hub, nil)
	hub.Register(c)
	if !waitCount(hub, 1, time.Second) {
		t.Fatal("subscriber never registered")
	}

	for i := 0; i < 300; i++ {
		hub.Publish(WsEvent{Event: EventDispatchStarted})
	}

	if !waitCount(hub, 0, 2*time.Second) {
		t.Error("broken subscriber was not evicted")
	}
}

func TestHubUnregisterIdempotent(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	c := NewClient(hub, nil)
	hub.Register(c)
	if !waitCount(hub, 1, time.Second) {
		t.Fatal("subscriber never registered")
	}

	hub.Unregister(c)
	hub.Unregister(c)
	if !waitCount(hub, 0, time.Second) {
		t.Error("subscriber still registered after unregister")
	}
}
