// Package transport wraps gorilla/websocket with the reconnect, idle
// timeout, and keepalive-ping policy shared by both the market-data feed
// and the streaming trading connection.
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"marketmaker/internal/backoff"
)

// Handler defines the connection-specific behavior a Worker drives:
// building the dial URL, reacting to a fresh connection (including
// replaying subscriptions after a reconnect), consuming frames, and
// keeping the link alive.
type Handler interface {
	URL() string
	OnConnect(ctx context.Context, conn *websocket.Conn) error
	OnMessage(ctx context.Context, msg []byte)
	OnPing(ctx context.Context, conn *websocket.Conn) error
	ID() string
}

// Config tunes a Worker's timing and limits.
type Config struct {
	ReadTimeout     time.Duration // idle read deadline (T_idle)
	PingInterval    time.Duration // proactive keepalive period (T_ping)
	HandshakeTimeout time.Duration
	MaxReadBytes    int64 // payload cap; the original has none, this does
	MaxReconnects   int   // 0 means unlimited
	UserAgent       string
	Backoff         backoff.Policy
}

// DefaultConfig mirrors the teacher's BaseWSWorker defaults plus the
// frame-size cap and bounded-reconnect count the original implementation
// lacked.
func DefaultConfig() Config {
	return Config{
		ReadTimeout:      60 * time.Second,
		PingInterval:     30 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		MaxReadBytes:     1 << 20, // 1MiB
		MaxReconnects:    0,
		UserAgent:        "marketmaker/1.0",
		Backoff:          backoff.Default(),
	}
}

// Worker manages the lifecycle of one WebSocket connection: dial,
// reconnect with backoff, idle-deadline enforcement, and keepalive pings.
// Safe for concurrent Write calls from multiple goroutines.
type Worker struct {
	handler Handler
	cfg     Config
	log     *slog.Logger

	mu      sync.RWMutex
	conn    *websocket.Conn
	writeMu sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a Worker for the given handler.
func New(handler Handler, cfg Config, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}
	return &Worker{handler: handler, cfg: cfg, log: log}
}

// Start begins the connect/read loop in the background.
func (w *Worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.runLoop(ctx)
}

// Stop terminates the worker and waits for its goroutines to exit.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.close()
	w.wg.Wait()
}

func (w *Worker) runLoop(ctx context.Context) {
	defer w.wg.Done()
	retry := 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if w.cfg.MaxReconnects > 0 && retry > w.cfg.MaxReconnects {
			w.log.Error("ws giving up after max reconnect attempts", "id", w.handler.ID(), "attempts", retry)
			return
		}

		if err := w.connect(ctx); err != nil {
			w.log.Warn("ws connect failed", "id", w.handler.ID(), "err", err, "retry", retry)
			delay := w.cfg.Backoff.Delay(retry)
			retry++

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		}

		retry = 0
		w.process(ctx)
	}
}

func (w *Worker) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: w.cfg.HandshakeTimeout}
	header := make(http.Header)
	header.Set("User-Agent", w.cfg.UserAgent)

	conn, _, err := dialer.DialContext(ctx, w.handler.URL(), header)
	if err != nil {
		return err
	}
	if w.cfg.MaxReadBytes > 0 {
		conn.SetReadLimit(w.cfg.MaxReadBytes)
	}

	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()

	if err := w.handler.OnConnect(ctx, conn); err != nil {
		w.close()
		return fmt.Errorf("on-connect: %w", err)
	}

	if w.cfg.PingInterval > 0 {
		go w.pingLoop(ctx)
	}

	w.log.Info("ws connected", "id", w.handler.ID())
	return nil
}

func (w *Worker) process(ctx context.Context) {
	for {
		w.mu.RLock()
		c := w.conn
		w.mu.RUnlock()
		if c == nil {
			return
		}

		if w.cfg.ReadTimeout > 0 {
			c.SetReadDeadline(time.Now().Add(w.cfg.ReadTimeout))
		}
		_, msg, err := c.ReadMessage()
		if err != nil {
			w.log.Warn("ws read error", "id", w.handler.ID(), "err", err)
			w.close()
			return
		}

		w.handler.OnMessage(ctx, msg)
	}
}

func (w *Worker) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.mu.RLock()
			c := w.conn
			w.mu.RUnlock()
			if c == nil {
				return
			}
			if err := w.handler.OnPing(ctx, c); err != nil {
				w.log.Warn("ws ping error", "id", w.handler.ID(), "err", err)
				w.close()
				return
			}
		}
	}
}

// Write sends a frame, serialized against concurrent writers.
func (w *Worker) Write(msgType int, data []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	w.mu.RLock()
	c := w.conn
	w.mu.RUnlock()

	if c == nil {
		return fmt.Errorf("transport: not connected")
	}
	return c.WriteMessage(msgType, data)
}

// Connected reports whether the worker currently holds a live connection.
func (w *Worker) Connected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.conn != nil
}

func (w *Worker) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
}
