package tradingtransport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"marketmaker/internal/domain"
)

func TestHTTPTransport_Place(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-MBX-APIKEY") != "key" {
			t.Errorf("missing X-MBX-APIKEY header")
		}
		q := r.URL.RawQuery
		if !strings.Contains(q, "signature=") || !strings.Contains(q, "timestamp=") {
			t.Errorf("query string missing signature/timestamp: %s", q)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"orderId": "123", "clientOrderId": "MM_BID_1_abcdef"})
	}))
	defer server.Close()

	tr := NewHTTPTransport(server.URL, NewSigner("key", "secret"), nil, nil)

	resp, err := tr.Place(context.Background(), PlaceRequest{
		Symbol: "BTCUSDT", Side: domain.Bid, Price: "49000.00", Quantity: "0.001", ClientOrderID: "MM_BID_1_abcdef",
	})
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if resp.OrderID != "123" {
		t.Errorf("OrderID = %s; want 123", resp.OrderID)
	}
	if resp.Status != domain.StatusNew {
		t.Errorf("Status = %s; want NEW", resp.Status)
	}
}

func TestHTTPTransport_Place_VenueRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid price"}`))
	}))
	defer server.Close()

	tr := NewHTTPTransport(server.URL, NewSigner("key", "secret"), nil, nil)

	_, err := tr.Place(context.Background(), PlaceRequest{Symbol: "BTCUSDT", Side: domain.Bid, Price: "0", Quantity: "0.001"})
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	venueErr, ok := err.(*domain.VenueError)
	if !ok {
		t.Fatalf("expected *domain.VenueError, got %T", err)
	}
	if venueErr.Retriable {
		t.Error("expected 400 to be non-retriable")
	}
}

func TestHTTPTransport_Cancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("expected DELETE, got %s", r.Method)
		}
		json.NewEncoder(w).Encode(map[string]string{"orderId": "123"})
	}))
	defer server.Close()

	tr := NewHTTPTransport(server.URL, NewSigner("key", "secret"), nil, nil)

	resp, err := tr.Cancel(context.Background(), CancelRequest{Symbol: "BTCUSDT", Side: domain.Bid, OrderID: "123"})
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if resp.Status != domain.StatusCanceled {
		t.Errorf("Status = %s; want CANCELED", resp.Status)
	}
}

func TestHTTPTransport_CancelAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/openOrders") {
			t.Errorf("expected /openOrders path, got %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]map[string]string{{"orderId": "1"}, {"orderId": "2"}})
	}))
	defer server.Close()

	tr := NewHTTPTransport(server.URL, NewSigner("key", "secret"), nil, nil)
	resp, err := tr.CancelAll(context.Background(), CancelAllRequest{Symbol: "BTCUSDT"})
	if err != nil {
		t.Fatalf("CancelAll: %v", err)
	}
	if len(resp.CanceledOrderIDs) != 2 {
		t.Errorf("CanceledOrderIDs = %v; want 2 entries", resp.CanceledOrderIDs)
	}
}

func TestHTTPTransport_Query(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"orderId": "123", "clientOrderId": "MM_BID_1_abcdef", "symbol": "BTCUSDT",
			"side": "BUY", "price": "49000.00", "quantity": "0.001", "executedQty": "0.000", "status": "NEW",
		})
	}))
	defer server.Close()

	tr := NewHTTPTransport(server.URL, NewSigner("key", "secret"), nil, nil)
	order, err := tr.Query(context.Background(), QueryRequest{Symbol: "BTCUSDT", OrderID: "123"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if order.OrderID != "123" || order.Side != domain.Bid || order.Status != domain.StatusNew {
		t.Errorf("decoded order = %+v", order)
	}
}

func TestHTTPTransport_OpenOrders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]string{
			{"orderId": "1", "symbol": "BTCUSDT", "side": "BUY", "price": "49000.00", "quantity": "0.001", "status": "NEW"},
			{"orderId": "2", "symbol": "BTCUSDT", "side": "SELL", "price": "49100.00", "quantity": "0.001", "status": "NEW"},
		})
	}))
	defer server.Close()

	tr := NewHTTPTransport(server.URL, NewSigner("key", "secret"), nil, nil)
	orders, err := tr.OpenOrders(context.Background(), OpenOrdersRequest{Symbol: "BTCUSDT"})
	if err != nil {
		t.Fatalf("OpenOrders: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}
}

func TestHTTPTransport_Modify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodDelete:
			json.NewEncoder(w).Encode(map[string]string{"orderId": "123"})
		default:
			json.NewEncoder(w).Encode(map[string]string{"orderId": "124", "clientOrderId": "MM_BID_2_abcdef"})
		}
	}))
	defer server.Close()

	tr := NewHTTPTransport(server.URL, NewSigner("key", "secret"), nil, nil)
	resp, err := tr.Modify(context.Background(), ModifyRequest{
		Symbol: "BTCUSDT", Side: domain.Bid, OrderID: "123",
		NewPrice: "49050.00", NewQty: "0.001", NewClientOrderID: "MM_BID_2_abcdef",
	})
	if err != nil {
		t.Fatalf("Modify: %v", err)
	}
	if resp.NewOrder.OrderID != "124" {
		t.Errorf("NewOrder.OrderID = %s; want 124", resp.NewOrder.OrderID)
	}
	if resp.CancelFailed {
		t.Error("expected cancel leg to succeed")
	}
}

func TestHTTPTransport_RetriableOn5xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	tr := NewHTTPTransport(server.URL, NewSigner("key", "secret"), nil, nil)
	_, err := tr.Place(context.Background(), PlaceRequest{Symbol: "BTCUSDT", Side: domain.Bid, Price: "1", Quantity: "1"})

	venueErr, ok := err.(*domain.VenueError)
	if !ok {
		t.Fatalf("expected *domain.VenueError, got %T", err)
	}
	if !venueErr.Retriable {
		t.Error("expected 503 to be retriable")
	}
}
