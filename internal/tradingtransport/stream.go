// Package tradingtransport implements the signed order-entry surface:
// either a persistent JSON-RPC stream or signed HTTP, both satisfying
// the same Transport interface so the manager never cares which one a
// given venue adapter wires up.
package tradingtransport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"marketmaker/internal/domain"

	"marketmaker/internal/circuit"
	"marketmaker/internal/ratelimit"
	"marketmaker/internal/transport"
)

// DefaultRequestTimeout is how long Place/Cancel wait for a correlated
// response before giving up.
const DefaultRequestTimeout = 5 * time.Second

// StreamTransport issues order operations as JSON-RPC requests over a
// persistent WebSocket connection. Every request carries its own
// apiKey/timestamp/signature in params — there is no separate login
// handshake — and responses are correlated back to the waiting caller by
// request id.
type StreamTransport struct {
	worker    *transport.Worker
	workerURL string
	pending   *pendingTable
	signer    *Signer
	limits    *ratelimit.Buckets
	breaker   *circuit.Breaker
	log       *slog.Logger

	sweepWg sync.WaitGroup
	stop    chan struct{}
}

// NewStreamTransport builds a StreamTransport dialing url with the given
// reconnect policy. Call Start to begin connecting.
func NewStreamTransport(url string, signer *Signer, limits *ratelimit.Buckets, breaker *circuit.Breaker, workerCfg transport.Config, log *slog.Logger) *StreamTransport {
	if log == nil {
		log = slog.Default()
	}
	st := &StreamTransport{
		pending: newPendingTable(),
		signer:  signer,
		limits:  limits,
		breaker: breaker,
		log:     log,
		stop:    make(chan struct{}),
	}
	st.workerURL = url
	st.worker = transport.New(st, workerCfg, log)
	return st
}

func (s *StreamTransport) Start(ctx context.Context) {
	s.worker.Start(ctx)
	s.sweepWg.Add(1)
	go s.sweepLoop()
}

func (s *StreamTransport) Stop() {
	close(s.stop)
	s.worker.Stop()
	s.pending.closeAll()
	s.sweepWg.Wait()
}

func (s *StreamTransport) sweepLoop() {
	defer s.sweepWg.Done()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.pending.sweep(DefaultRequestTimeout)
		}
	}
}

// transport.Handler implementation.

func (s *StreamTransport) URL() string { return s.workerURL }
func (s *StreamTransport) ID() string  { return "trading-stream" }

// OnConnect does nothing: this protocol has no separate login/handshake
// call, since every request authenticates itself via its own embedded
// apiKey/timestamp/signature params.
func (s *StreamTransport) OnConnect(ctx context.Context, conn *websocket.Conn) error {
	return nil
}

func (s *StreamTransport) OnMessage(ctx context.Context, msg []byte) {
	var env rpcEnvelope
	if err := json.Unmarshal(msg, &env); err != nil {
		s.log.Debug("trading stream: undecodable frame", "err", err)
		return
	}
	if env.ID == "" {
		return
	}
	if env.Error != nil {
		s.pending.deliver(env.ID, nil)
		return
	}
	s.pending.deliver(env.ID, env.Result)
}

func (s *StreamTransport) OnPing(ctx context.Context, conn *websocket.Conn) error {
	return conn.WriteMessage(websocket.PingMessage, nil)
}

func (s *StreamTransport) Connected() bool { return s.worker.Connected() }

func (s *StreamTransport) nextID() string {
	return newRequestID()
}

// signedParamsJSON signs params (business fields only) with the caller's
// API key, a fresh timestamp, and a signature, returning the JSON object
// the venue expects as the request's params member.
func (s *StreamTransport) signedParamsJSON(params []Param) (json.RawMessage, error) {
	ts := time.Now().UnixMilli()
	full := append([]Param{{Key: "apiKey", Value: s.signer.APIKey()}}, params...)
	signed := s.signer.SignedParams(full, ts)
	obj := make(map[string]string, len(signed))
	for _, p := range signed {
		obj[p.Key] = p.Value
	}
	return json.Marshal(obj)
}

// call signs params, sends method/params over the stream, and waits for
// the correlated response or timeout, gated by the circuit breaker.
func (s *StreamTransport) call(ctx context.Context, method string, params []Param) (json.RawMessage, error) {
	if s.breaker != nil && !s.breaker.Allow() {
		return nil, &domain.VenueError{Code: "circuit_open", Message: "trading stream circuit is open", Retriable: true}
	}

	paramBytes, err := s.signedParamsJSON(params)
	if err != nil {
		return nil, err
	}
	id := s.nextID()
	ch := s.pending.register(id, method)

	env := rpcEnvelope{ID: id, Method: method, Params: paramBytes}
	b, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	if err := s.worker.Write(websocket.TextMessage, b); err != nil {
		s.recordFailure()
		return nil, domain.NewNetworkError("trading_stream_write", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result, ok := <-ch:
		if !ok || result == nil {
			s.recordFailure()
			return nil, &domain.TimeoutError{Op: method}
		}
		s.recordSuccess()
		return result, nil
	}
}

func (s *StreamTransport) recordSuccess() {
	if s.breaker != nil {
		s.breaker.RecordSuccess()
	}
}

func (s *StreamTransport) recordFailure() {
	if s.breaker != nil {
		s.breaker.RecordFailure()
	}
}

// Place issues a rate-limited order.place call over the stream.
func (s *StreamTransport) Place(ctx context.Context, req PlaceRequest) (PlaceResponse, error) {
	if s.limits != nil {
		s.limits.Place.Wait()
	}
	result, err := s.call(ctx, "order.place", []Param{
		{Key: "symbol", Value: req.Symbol},
		{Key: "side", Value: req.Side.String()},
		{Key: "price", Value: req.Price},
		{Key: "quantity", Value: req.Quantity},
		{Key: "clientOrderId", Value: req.ClientOrderID},
	})
	if err != nil {
		return PlaceResponse{}, err
	}

	var resp struct {
		OrderID       string `json:"orderId"`
		ClientOrderID string `json:"clientOrderId"`
	}
	if err := json.Unmarshal(result, &resp); err != nil {
		return PlaceResponse{}, fmt.Errorf("tradingtransport: decode place response: %w", err)
	}
	return PlaceResponse{OrderID: resp.OrderID, ClientOrderID: resp.ClientOrderID, Status: domain.StatusNew}, nil
}

// Cancel issues a rate-limited order.cancel call over the stream.
func (s *StreamTransport) Cancel(ctx context.Context, req CancelRequest) (CancelResponse, error) {
	if s.limits != nil {
		s.limits.Cancel.Wait()
	}
	result, err := s.call(ctx, "order.cancel", []Param{
		{Key: "symbol", Value: req.Symbol},
		{Key: "side", Value: req.Side.String()},
		{Key: "orderId", Value: req.OrderID},
		{Key: "clientOrderId", Value: req.ClientOrderID},
	})
	if err != nil {
		return CancelResponse{}, err
	}

	var resp struct {
		OrderID string `json:"orderId"`
	}
	if err := json.Unmarshal(result, &resp); err != nil {
		return CancelResponse{}, fmt.Errorf("tradingtransport: decode cancel response: %w", err)
	}
	return CancelResponse{OrderID: resp.OrderID, Status: domain.StatusCanceled}, nil
}

// CancelAll issues openOrders.cancelAll for symbol.
func (s *StreamTransport) CancelAll(ctx context.Context, req CancelAllRequest) (CancelAllResponse, error) {
	if s.limits != nil {
		s.limits.Cancel.Wait()
	}
	result, err := s.call(ctx, "openOrders.cancelAll", []Param{
		{Key: "symbol", Value: req.Symbol},
	})
	if err != nil {
		return CancelAllResponse{}, err
	}

	var resp struct {
		CanceledOrderIDs []string `json:"canceledOrderIds"`
	}
	if err := json.Unmarshal(result, &resp); err != nil {
		return CancelAllResponse{}, fmt.Errorf("tradingtransport: decode cancel-all response: %w", err)
	}
	return CancelAllResponse{CanceledOrderIDs: resp.CanceledOrderIDs}, nil
}

// Modify cancels the existing order and places a replacement. This is
// NOT atomic: the two legs run concurrently to minimize elapsed time, and
// a successful place with a failed cancel still counts as a modify
// success (the stale order is left for the venue/next cycle to resolve),
// logged as a warning rather than returned as an error.
func (s *StreamTransport) Modify(ctx context.Context, req ModifyRequest) (ModifyResponse, error) {
	var wg sync.WaitGroup
	var placeResp PlaceResponse
	var placeErr error
	var cancelFailed bool

	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := s.Cancel(ctx, CancelRequest{Symbol: req.Symbol, Side: req.Side, OrderID: req.OrderID})
		if err != nil {
			cancelFailed = true
			s.log.Warn("tradingtransport: modify cancel leg failed", "orderId", req.OrderID, "err", err)
		}
	}()
	go func() {
		defer wg.Done()
		placeResp, placeErr = s.Place(ctx, PlaceRequest{
			Symbol:        req.Symbol,
			Side:          req.Side,
			Price:         req.NewPrice,
			Quantity:      req.NewQty,
			ClientOrderID: req.NewClientOrderID,
		})
	}()
	wg.Wait()

	if placeErr != nil {
		return ModifyResponse{}, placeErr
	}
	return ModifyResponse{NewOrder: placeResp, CancelFailed: cancelFailed}, nil
}

// Query issues order.status for one order.
func (s *StreamTransport) Query(ctx context.Context, req QueryRequest) (domain.Order, error) {
	result, err := s.call(ctx, "order.status", []Param{
		{Key: "symbol", Value: req.Symbol},
		{Key: "orderId", Value: req.OrderID},
		{Key: "clientOrderId", Value: req.ClientOrderID},
	})
	if err != nil {
		return domain.Order{}, err
	}
	return decodeOrder(result)
}

// OpenOrders issues openOrders.status for a symbol's resting orders.
func (s *StreamTransport) OpenOrders(ctx context.Context, req OpenOrdersRequest) ([]domain.Order, error) {
	result, err := s.call(ctx, "openOrders.status", []Param{
		{Key: "symbol", Value: req.Symbol},
	})
	if err != nil {
		return nil, err
	}
	return decodeOrderList(result)
}
