// Package feed streams live trade prices from an exchange websocket and
// keeps the connection alive across drops.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/hammamikhairi/gridvoice/internal/domain"
	"github.com/hammamikhairi/gridvoice/internal/logger"
)

// DefaultBase is the public Binance stream endpoint.
const DefaultBase = "wss://stream.binance.com:9443"

const (
	defaultReconnectDelay = 5 * time.Second
	defaultStopTimeout    = time.Second
	defaultPingInterval   = 60 * time.Second
	pongWait              = 10 * time.Second
	writeWait             = 10 * time.Second
)

// URL builds the raw trade stream URL for a symbol.
func URL(base, symbol string) string {
	if base == "" {
		base = DefaultBase
	}
	return strings.TrimRight(base, "/") + "/ws/" + strings.ToLower(symbol) + "@trade"
}

// Option configures the StreamClient.
type Option func(*StreamClient)

// WithReconnectDelay sets the wait between a dropped connection and the
// next attempt.
func WithReconnectDelay(d time.Duration) Option {
	return func(c *StreamClient) {
		c.reconnectDelay = d
	}
}

// WithStopTimeout bounds how long Stop waits for the loop to exit.
func WithStopTimeout(d time.Duration) Option {
	return func(c *StreamClient) {
		c.stopTimeout = d
	}
}

// WithPingInterval sets how often a keepalive ping is written.
func WithPingInterval(d time.Duration) Option {
	return func(c *StreamClient) {
		c.pingInterval = d
	}
}

// WithDialer replaces the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *StreamClient) {
		c.dialer = d
	}
}

// WithBufferSize sets the price channel capacity.
func WithBufferSize(n int) Option {
	return func(c *StreamClient) {
		c.bufferSize = n
	}
}

// StreamClient keeps one websocket open to a trade stream and publishes
// every trade price in arrival order. Connection state is published on a
// separate latest-value channel. A dropped or failed connection is retried
// after a fixed delay, forever, until Stop.
type StreamClient struct {
	url            string
	log            *logger.Logger
	dialer         *websocket.Dialer
	reconnectDelay time.Duration
	stopTimeout    time.Duration
	pingInterval   time.Duration
	bufferSize     int

	prices chan float64
	status chan bool

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	conn    *websocket.Conn
}

// New creates a stream client for url. Nothing is dialed until Start.
func New(url string, log *logger.Logger, opts ...Option) *StreamClient {
	c := &StreamClient{
		url:            url,
		log:            log,
		dialer:         websocket.DefaultDialer,
		reconnectDelay: defaultReconnectDelay,
		stopTimeout:    defaultStopTimeout,
		pingInterval:   defaultPingInterval,
		bufferSize:     256,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.prices = make(chan float64, c.bufferSize)
	c.status = make(chan bool, 1)
	return c
}

// Prices delivers trade prices in the order they arrived.
func (c *StreamClient) Prices() <-chan float64 { return c.prices }

// Status delivers connection state changes. Only the latest value is
// kept when the reader falls behind.
func (c *StreamClient) Status() <-chan bool { return c.status }

// Start launches the connect loop. Non-blocking.
func (c *StreamClient) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return domain.ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.running = true

	go c.connectLoop(ctx, c.done)

	c.log.Info("feed started (%s, reconnect=%s)", c.url, c.reconnectDelay)
	return nil
}

// Stop closes the active connection, interrupts any reconnect wait and
// waits up to the stop timeout for the loop to exit.
func (c *StreamClient) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return domain.ErrNotRunning
	}
	c.running = false
	c.cancel()
	if c.conn != nil {
		c.conn.Close()
	}
	done := c.done
	c.mu.Unlock()

	select {
	case <-done:
		c.log.Info("feed stopped")
		return nil
	case <-time.After(c.stopTimeout):
		c.log.Warn("feed: loop did not exit within %s", c.stopTimeout)
		return fmt.Errorf("feed: stop timed out after %s", c.stopTimeout)
	}
}

// connectLoop dials, reads until the connection drops, waits and retries.
func (c *StreamClient) connectLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			return
		}

		c.publishStatus(false)
		err := c.runConnection(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			c.log.Warn("feed: connection attempt %d: %v", attempt, err)
		}
		c.log.Info("feed: reconnecting in %s", c.reconnectDelay)

		select {
		case <-time.After(c.reconnectDelay):
		case <-ctx.Done():
			return
		}
	}
}

// runConnection holds one websocket session open and pumps its messages.
func (c *StreamClient) runConnection(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		conn.Close()
		return nil
	}
	c.conn = conn
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()
		c.publishStatus(false)
	}()

	readTimeout := c.pingInterval + pongWait
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	c.log.Info("feed: connected to %s", c.url)
	c.publishStatus(true)

	pingStop := make(chan struct{})
	defer close(pingStop)
	go c.pingLoop(conn, pingStop)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		price, ok := c.parseTrade(msg)
		if !ok {
			continue
		}
		select {
		case c.prices <- price:
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *StreamClient) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.log.Debug("feed: ping failed: %v", err)
				return
			}
		case <-stop:
			return
		}
	}
}

// trade is the part of a trade message we read. Binance sends the price
// as a decimal string; decimal accepts bare numbers too.
type trade struct {
	Price json.RawMessage `json:"p"`
}

// parseTrade extracts the price from a message. Anything that is not a
// trade is dropped: malformed messages are logged, control frames such as
// subscription acks are skipped silently.
func (c *StreamClient) parseTrade(msg []byte) (float64, bool) {
	var t trade
	if err := json.Unmarshal(msg, &t); err != nil {
		c.log.Warn("feed: bad message %q: %v", truncate(msg, 80), err)
		return 0, false
	}
	if len(t.Price) == 0 || bytes.Equal(t.Price, []byte("null")) {
		return 0, false
	}

	var d decimal.Decimal
	if err := d.UnmarshalJSON(t.Price); err != nil {
		c.log.Warn("feed: bad price %s: %v", t.Price, err)
		return 0, false
	}
	price, _ := d.Float64()
	return price, true
}

// publishStatus replaces any unread status with v.
func (c *StreamClient) publishStatus(v bool) {
	for {
		select {
		case c.status <- v:
			return
		default:
		}
		select {
		case <-c.status:
		default:
		}
	}
}

// truncate shortens a raw message to at most n runes for log lines.
func truncate(b []byte, n int) string {
	r := []rune(string(b))
	if len(r) <= n {
		return string(b)
	}
	return string(r[:n]) + "..."
}
