package tradingtransport

import (
	"encoding/json"
	"testing"
	"time"
)

func TestPendingTable_RegisterDeliver(t *testing.T) {
	pt := newPendingTable()
	ch := pt.register("req-1", "place-order")

	payload := json.RawMessage(`{"orderId":"1"}`)
	if !pt.deliver("req-1", payload) {
		t.Fatal("expected deliver to find the registered id")
	}

	select {
	case got := <-ch:
		if string(got) != string(payload) {
			t.Errorf("got %s; want %s", got, payload)
		}
	default:
		t.Fatal("expected a delivered result")
	}
}

func TestPendingTable_DeliverUnknownID(t *testing.T) {
	pt := newPendingTable()
	if pt.deliver("nonexistent", json.RawMessage(`{}`)) {
		t.Error("expected deliver to report false for unknown id")
	}
}

func TestPendingTable_Sweep(t *testing.T) {
	pt := newPendingTable()
	ch := pt.register("req-1", "place-order")

	time.Sleep(10 * time.Millisecond)
	pt.sweep(5 * time.Millisecond)

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected swept channel to be closed, not delivered")
		}
	default:
		t.Fatal("expected sweep to close the channel")
	}

	if pt.deliver("req-1", json.RawMessage(`{}`)) {
		t.Error("expected swept id to no longer be deliverable")
	}
}

func TestPendingTable_CloseAll(t *testing.T) {
	pt := newPendingTable()
	ch1 := pt.register("a", "m")
	ch2 := pt.register("b", "m")

	pt.closeAll()

	for _, ch := range []<-chan json.RawMessage{ch1, ch2} {
		select {
		case _, ok := <-ch:
			if ok {
				t.Error("expected channel to be closed")
			}
		default:
			t.Fatal("expected closeAll to close pending channels")
		}
	}
}
