package tradingtransport

import (
	"context"
	"encoding/json"
	"fmt"

	"marketmaker/internal/quant"

	"marketmaker/internal/domain"
)

// PlaceRequest is everything needed to place one order.
type PlaceRequest struct {
	Symbol        string
	Side          domain.Side
	Price         string
	Quantity      string
	ClientOrderID string
}

// PlaceResponse is the venue's acknowledgement of a place request.
type PlaceResponse struct {
	OrderID       string
	ClientOrderID string
	Status        domain.OrderStatus
}

// CancelRequest identifies the order to cancel. Side is mandatory: the
// manager always knows which leg it is canceling, and a transport must
// never guess a default side for an ambiguous cancel.
type CancelRequest struct {
	Symbol        string
	Side          domain.Side
	OrderID       string
	ClientOrderID string
}

// CancelResponse is the venue's acknowledgement of a cancel request.
type CancelResponse struct {
	OrderID string
	Status  domain.OrderStatus
}

// CancelAllRequest cancels every open order on one symbol.
type CancelAllRequest struct {
	Symbol string
}

// CancelAllResponse reports how many orders the venue canceled.
type CancelAllResponse struct {
	CanceledOrderIDs []string
}

// ModifyRequest replaces one resting order with a fresh one at a new
// price/quantity. Modify is NOT atomic: the transport runs the cancel of
// the old order and the place of the new one concurrently, and a place
// success with a cancel failure is still a modify success from the
// caller's point of view (the stale order is left for the venue to
// resolve), reported through ModifyResponse.CancelFailed. The stream
// transport also logs it as a warning; the HTTP transport does not log.
type ModifyRequest struct {
	Symbol           string
	Side             domain.Side
	OrderID          string
	NewPrice         string
	NewQty           string
	NewClientOrderID string
}

// ModifyResponse is the outcome of a modify's place half; CancelFailed
// reports whether the cancel half failed (a warning condition, not an
// overall failure).
type ModifyResponse struct {
	NewOrder     PlaceResponse
	CancelFailed bool
}

// QueryRequest looks up one order's current state.
type QueryRequest struct {
	Symbol        string
	OrderID       string
	ClientOrderID string
}

// OpenOrdersRequest lists every resting order on one symbol.
type OpenOrdersRequest struct {
	Symbol string
}

// Transport is the signed trading surface the manager issues order
// operations through, implemented by both the streaming (JSON-RPC) and
// HTTP (signed REST) transports: place, cancel, cancel-all, modify
// (cancel-then-place), query, and open-orders.
type Transport interface {
	Place(ctx context.Context, req PlaceRequest) (PlaceResponse, error)
	Cancel(ctx context.Context, req CancelRequest) (CancelResponse, error)
	CancelAll(ctx context.Context, req CancelAllRequest) (CancelAllResponse, error)
	Modify(ctx context.Context, req ModifyRequest) (ModifyResponse, error)
	Query(ctx context.Context, req QueryRequest) (domain.Order, error)
	OpenOrders(ctx context.Context, req OpenOrdersRequest) ([]domain.Order, error)
	Connected() bool
}

// rpcEnvelope is the JSON-RPC-shaped frame exchanged over a streaming
// trading connection.
type rpcEnvelope struct {
	ID     string          `json:"id"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// wireOrder is the venue's JSON shape for one order, shared by both
// transports' query/open-orders decoding.
type wireOrder struct {
	OrderID          string `json:"orderId"`
	ClientOrderID    string `json:"clientOrderId"`
	Symbol           string `json:"symbol"`
	Side             string `json:"side"`
	Price            string `json:"price"`
	Quantity         string `json:"quantity"`
	ExecutedQuantity string `json:"executedQty"`
	Status           string `json:"status"`
}

func decodeOrder(raw json.RawMessage) (domain.Order, error) {
	var w wireOrder
	if err := json.Unmarshal(raw, &w); err != nil {
		return domain.Order{}, fmt.Errorf("tradingtransport: decode order: %w", err)
	}
	return wireToOrder(w)
}

func decodeOrderList(raw json.RawMessage) ([]domain.Order, error) {
	var ws []wireOrder
	if err := json.Unmarshal(raw, &ws); err != nil {
		return nil, fmt.Errorf("tradingtransport: decode order list: %w", err)
	}
	orders := make([]domain.Order, 0, len(ws))
	for _, w := range ws {
		o, err := wireToOrder(w)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func wireToOrder(w wireOrder) (domain.Order, error) {
	side, err := domain.ParseSide(w.Side)
	if err != nil {
		return domain.Order{}, err
	}
	status := domain.ParseOrderStatus(w.Status)
	price, err := quant.ParseAmountAuto(w.Price)
	if err != nil {
		return domain.Order{}, fmt.Errorf("tradingtransport: decode order price: %w", err)
	}
	qty, err := quant.ParseAmountAuto(w.Quantity)
	if err != nil {
		return domain.Order{}, fmt.Errorf("tradingtransport: decode order quantity: %w", err)
	}
	var executed quant.Amount
	if w.ExecutedQuantity != "" {
		executed, err = quant.ParseAmount(w.ExecutedQuantity, qty.Precision)
		if err != nil {
			return domain.Order{}, fmt.Errorf("tradingtransport: decode order executed quantity: %w", err)
		}
	} else {
		executed = quant.Amount{Precision: qty.Precision}
	}
	return domain.Order{
		OrderID:          w.OrderID,
		ClientOrderID:    w.ClientOrderID,
		Symbol:           w.Symbol,
		Side:             side,
		Price:            price,
		Quantity:         qty,
		ExecutedQuantity: executed,
		Status:           status,
	}, nil
}
