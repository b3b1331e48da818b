package api

import (
	"testing"
	"time"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	pid := "pl_1"
	ch := b.Subscribe(pid)

	evt := SSEEvent{Type: "plan.completed", Data: map[string]any{"containers": 2}}
	b.Publish(pid, evt)

	select {
	case got := <-ch:
		if got.Type != evt.Type {
			t.Fatalf("got type %s, want %s", got.Type, evt.Type)
		}
		if got.Data["containers"].(int) != 2 {
			t.Fatalf("bad payload: %+v", got.Data)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}

	b.Unsubscribe(pid, ch)
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("channel should be closed after unsubscribe")
		}
	case <-time.After(50 * time.Millisecond):
		// acceptable if already drained and closed
	}
}

func TestBrokerIsolatesPlans(t *testing.T) {
	b := NewBroker()
	chA := b.Subscribe("pl_a")
	chB := b.Subscribe("pl_b")
	defer b.Unsubscribe("pl_a", chA)
	defer b.Unsubscribe("pl_b", chB)

	b.Publish("pl_a", SSEEvent{Type: "plan.completed"})

	select {
	case <-chA:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("subscriber for pl_a missed event")
	}
	select {
	case evt := <-chB:
		t.Fatalf("subscriber for pl_b received foreign event %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}
