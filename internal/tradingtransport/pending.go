package tradingtransport

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// pendingRequest is a one-shot slot waiting for the response matching an
// id sent over the trading stream. Deliver and Close are each safe to
// call at most once per request by construction — the table removes the
// entry before calling either, so "single-producer/single-consumer"
// holds without extra synchronization inside pendingRequest itself.
type pendingRequest struct {
	method string
	sentAt time.Time
	result chan json.RawMessage
}

// pendingTable correlates outbound JSON-RPC requests with their
// responses by request id, with a sweep that times out anything left
// waiting past its deadline (e.g. after a reconnect drops in-flight
// state).
type pendingTable struct {
	mu      sync.Mutex
	entries map[string]*pendingRequest
}

func newPendingTable() *pendingTable {
	return &pendingTable{entries: make(map[string]*pendingRequest)}
}

// register creates a slot for id and returns the channel the caller
// should receive on.
func (t *pendingTable) register(id, method string) <-chan json.RawMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	req := &pendingRequest{method: method, sentAt: time.Now(), result: make(chan json.RawMessage, 1)}
	t.entries[id] = req
	return req.result
}

// deliver completes the pending request for id, if any is still
// outstanding. Returns false if id is unknown (late, duplicate, or
// already swept).
func (t *pendingTable) deliver(id string, payload json.RawMessage) bool {
	t.mu.Lock()
	req, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	req.result <- payload
	return true
}

// sweep closes out every entry older than maxAge by closing its result
// channel, so waiters unblock with a timeout error instead of hanging
// forever across a reconnect.
func (t *pendingTable) sweep(maxAge time.Duration) {
	now := time.Now()
	t.mu.Lock()
	var expired []*pendingRequest
	for id, req := range t.entries {
		if now.Sub(req.sentAt) > maxAge {
			expired = append(expired, req)
			delete(t.entries, id)
		}
	}
	t.mu.Unlock()
	for _, req := range expired {
		close(req.result)
	}
}

// closeAll forcibly closes every outstanding slot, used on transport
// shutdown so no caller blocks forever.
func (t *pendingTable) closeAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, req := range t.entries {
		close(req.result)
		delete(t.entries, id)
	}
}

// newRequestID returns a fresh correlation id for one outbound request.
func newRequestID() string {
	return uuid.NewString()
}
