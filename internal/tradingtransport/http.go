package tradingtransport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"marketmaker/internal/circuit"
	"marketmaker/internal/domain"
	"marketmaker/internal/ratelimit"
)

// HTTPTransport issues order operations as signed REST requests against
// Binance-shaped endpoints, for venues or deployments that don't use a
// streaming order-entry channel. Every call's query string carries its
// own apiKey (via header), timestamp, and signature per §4.D; there is
// no session-level auth step.
type HTTPTransport struct {
	baseURL string
	signer  *Signer
	client  *http.Client
	limits  *ratelimit.Buckets
	breaker *circuit.Breaker
}

// NewHTTPTransport builds an HTTPTransport against baseURL with a
// connection-pooled client tuned for the low concurrency a single
// market-maker issues (a handful of in-flight place/cancel calls at a
// time).
func NewHTTPTransport(baseURL string, signer *Signer, limits *ratelimit.Buckets, breaker *circuit.Breaker) *HTTPTransport {
	return &HTTPTransport{
		baseURL: baseURL,
		signer:  signer,
		limits:  limits,
		breaker: breaker,
		client: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

func (h *HTTPTransport) Connected() bool { return true }

// do signs params into the canonical query string, issues method against
// path with no request body (params live entirely in the query string,
// per §6), and returns the decoded response body.
func (h *HTTPTransport) do(ctx context.Context, method, path string, params []Param) (json.RawMessage, error) {
	if h.breaker != nil && !h.breaker.Allow() {
		return nil, &domain.VenueError{Code: "circuit_open", Message: "trading http circuit is open", Retriable: true}
	}

	ts := time.Now().UnixMilli()
	queryString := h.signer.SignParams(params, ts)

	fullURL := h.baseURL + path + "?" + queryString
	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-MBX-APIKEY", h.signer.APIKey())
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		h.recordFailure()
		return nil, domain.NewNetworkError("trading_http_"+method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		h.recordFailure()
		return nil, domain.NewNetworkError("trading_http_read", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		h.recordFailure()
		return nil, &domain.VenueError{
			Code:      fmt.Sprintf("http_%d", resp.StatusCode),
			Message:   string(respBody),
			Retriable: resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
		}
	}

	h.recordSuccess()
	return respBody, nil
}

func (h *HTTPTransport) recordSuccess() {
	if h.breaker != nil {
		h.breaker.RecordSuccess()
	}
}

func (h *HTTPTransport) recordFailure() {
	if h.breaker != nil {
		h.breaker.RecordFailure()
	}
}

// Place submits an order via a signed POST /api/v3/order.
func (h *HTTPTransport) Place(ctx context.Context, req PlaceRequest) (PlaceResponse, error) {
	if h.limits != nil {
		h.limits.Place.Wait()
	}
	respBytes, err := h.do(ctx, http.MethodPost, "/api/v3/order", []Param{
		{Key: "symbol", Value: req.Symbol},
		{Key: "side", Value: req.Side.String()},
		{Key: "price", Value: req.Price},
		{Key: "quantity", Value: req.Quantity},
		{Key: "newClientOrderId", Value: req.ClientOrderID},
	})
	if err != nil {
		return PlaceResponse{}, err
	}

	var resp struct {
		OrderID       string `json:"orderId"`
		ClientOrderID string `json:"clientOrderId"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return PlaceResponse{}, fmt.Errorf("tradingtransport: decode place response: %w", err)
	}
	return PlaceResponse{OrderID: resp.OrderID, ClientOrderID: resp.ClientOrderID, Status: domain.StatusNew}, nil
}

// Cancel cancels an order via a signed DELETE /api/v3/order.
func (h *HTTPTransport) Cancel(ctx context.Context, req CancelRequest) (CancelResponse, error) {
	if h.limits != nil {
		h.limits.Cancel.Wait()
	}
	respBytes, err := h.do(ctx, http.MethodDelete, "/api/v3/order", []Param{
		{Key: "symbol", Value: req.Symbol},
		{Key: "orderId", Value: req.OrderID},
		{Key: "origClientOrderId", Value: req.ClientOrderID},
	})
	if err != nil {
		return CancelResponse{}, err
	}

	var resp struct {
		OrderID string `json:"orderId"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return CancelResponse{}, fmt.Errorf("tradingtransport: decode cancel response: %w", err)
	}
	return CancelResponse{OrderID: resp.OrderID, Status: domain.StatusCanceled}, nil
}

// CancelAll cancels every open order on a symbol via a signed DELETE
// /api/v3/openOrders.
func (h *HTTPTransport) CancelAll(ctx context.Context, req CancelAllRequest) (CancelAllResponse, error) {
	if h.limits != nil {
		h.limits.Cancel.Wait()
	}
	respBytes, err := h.do(ctx, http.MethodDelete, "/api/v3/openOrders", []Param{
		{Key: "symbol", Value: req.Symbol},
	})
	if err != nil {
		return CancelAllResponse{}, err
	}

	var resp []struct {
		OrderID string `json:"orderId"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return CancelAllResponse{}, fmt.Errorf("tradingtransport: decode cancel-all response: %w", err)
	}
	ids := make([]string, len(resp))
	for i, r := range resp {
		ids[i] = r.OrderID
	}
	return CancelAllResponse{CanceledOrderIDs: ids}, nil
}

// Modify cancels the existing order and places a replacement concurrently.
// See ModifyRequest's doc comment for the non-atomicity contract.
func (h *HTTPTransport) Modify(ctx context.Context, req ModifyRequest) (ModifyResponse, error) {
	var wg sync.WaitGroup
	var placeResp PlaceResponse
	var placeErr error
	var cancelFailed bool

	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := h.Cancel(ctx, CancelRequest{Symbol: req.Symbol, Side: req.Side, OrderID: req.OrderID})
		if err != nil {
			cancelFailed = true
		}
	}()
	go func() {
		defer wg.Done()
		placeResp, placeErr = h.Place(ctx, PlaceRequest{
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

// Query looks up one order via a signed GET /api/v3/order.
func (h *HTTPTransport) Query(ctx context.Context, req QueryRequest) (domain.Order, error) {
	respBytes, err := h.do(ctx, http.MethodGet, "/api/v3/order", []Param{
		{Key: "symbol", Value: req.Symbol},
		{Key: "orderId", Value: req.OrderID},
		{Key: "origClientOrderId", Value: req.ClientOrderID},
	})
	if err != nil {
		return domain.Order{}, err
	}
	return decodeOrder(respBytes)
}

// OpenOrders lists a symbol's resting orders via a signed GET
// /api/v3/openOrders.
func (h *HTTPTransport) OpenOrders(ctx context.Context, req OpenOrdersRequest) ([]domain.Order, error) {
	respBytes, err := h.do(ctx, http.MethodGet, "/api/v3/openOrders", []Param{
		{Key: "symbol", Value: req.Symbol},
	})
	if err != nil {
		return nil, err
	}
	return decodeOrderList(respBytes)
}
