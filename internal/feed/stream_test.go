package feed

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hammamikhairi/gridvoice/internal/domain"
	"github.com/hammamikhairi/gridvoice/internal/logger"
)

var upgrader = websocket.Upgrader{}

// fakeExchange serves the given messages on every connection. When
// hangUp is set the server closes each connection after sending.
type fakeExchange struct {
	messages []string
	hangUp   bool

	conns  atomic.Int32
	mu     sync.Mutex
	live   []*websocket.Conn
	opened []time.Time
}

func (f *fakeExchange) openTimes() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.opened...)
}

func (f *fakeExchange) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	f.conns.Add(1)
	f.mu.Lock()
	f.live = append(f.live, conn)
	f.opened = append(f.opened, time.Now())
	f.mu.Unlock()

	for _, m := range f.messages {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(m)); err != nil {
			return
		}
	}
	if f.hangUp {
		conn.Close()
		return
	}
	// Hold the connection until the client goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func nextPrice(t *testing.T, c *StreamClient) float64 {
	t.Helper()
	select {
	case p := <-c.Prices():
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a price")
		return 0
	}
}

func waitStatus(t *testing.T, c *StreamClient, want bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-c.Status():
			if s == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for status %v", want)
		}
	}
}

func TestURL(t *testing.T) {
	tests := []struct {
		base, symbol, want string
	}{
		{"", "BTCUSDT", "wss://stream.binance.com:9443/ws/btcusdt@trade"},
		{"ws://localhost:1234/", "EthUsdt", "ws://localhost:1234/ws/ethusdt@trade"},
	}
	for _, tt := range tests {
		if got := URL(tt.base, tt.symbol); got != tt.want {
			t.Errorf("URL(%q, %q) = %q, want %q", tt.base, tt.symbol, got, tt.want)
		}
	}
}

func TestStreamDeliversTradesInOrder(t *testing.T) {
	ex := &fakeExchange{messages: []string{
		`{"e":"trade","s":"BTCUSDT","p":"95000.10","q":"0.01"}`,
		`not json at all`,
		`{"result":null,"id":1}`,
		`{"p":"abc"}`,
		`{"p":null}`,
		`{"e":"trade","p":"95001.00"}`,
		`{"p":95002.5}`,
	}}
	srv := httptest.NewServer(ex)
	defer srv.Close()

	c := New(wsURL(srv), logger.New(logger.LevelOff, nil))
	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer c.Stop()

	waitStatus(t, c, true)
	for _, want := range []float64{95000.10, 95001, 95002.5} {
		if got := nextPrice(t, c); got != want {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	select {
	case p := <-c.Prices():
		t.Fatalf("unexpected extra price %v", p)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStreamReconnectsAfterDrop(t *testing.T) {
	ex := &fakeExchange{messages: []string{`{"p":"1"}`}, hangUp: true}
	srv := httptest.NewServer(ex)
	defer srv.Close()

	const delay = 100 * time.Millisecond
	c := New(wsURL(srv), logger.New(logger.LevelOff, nil), WithReconnectDelay(delay))
	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer c.Stop()

	for i := 0; i < 3; i++ {
		if got := nextPrice(t, c); got != 1 {
			t.Fatalf("expected 1, got %v", got)
		}
	}
	if n := ex.conns.Load(); n < 3 {
		t.Fatalf("expected at least 3 connections, got %d", n)
	}

	opened := ex.openTimes()
	for i := 1; i < len(opened); i++ {
		if gap := opened[i].Sub(opened[i-1]); gap < delay {
			t.Fatalf("reconnect %d came after %s, want at least %s", i, gap, delay)
		}
	}
}

func TestStopInterruptsBackoff(t *testing.T) {
	var dials atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dials.Add(1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(wsURL(srv), logger.New(logger.LevelOff, nil), WithReconnectDelay(time.Hour))
	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for dials.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if dials.Load() == 0 {
		t.Fatal("client never dialed")
	}

	start := time.Now()
	if err := c.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("stop took %s while backing off", elapsed)
	}

	time.Sleep(50 * time.Millisecond)
	if n := dials.Load(); n != 1 {
		t.Fatalf("expected no dial after stop, got %d dials", n)
	}
}

func TestStopClosesLiveConnection(t *testing.T) {
	ex := &fakeExchange{}
	srv := httptest.NewServer(ex)
	defer srv.Close()

	c := New(wsURL(srv), logger.New(logger.LevelOff, nil), WithStopTimeout(time.Second))
	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitStatus(t, c, true)

	if err := c.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	waitStatus(t, c, false)
}

func TestStartStopStates(t *testing.T) {
	c := New("ws://127.0.0.1:1/ws/x@trade", logger.New(logger.LevelOff, nil), WithReconnectDelay(time.Hour))

	if err := c.Stop(); !errors.Is(err, domain.ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := c.Start(); !errors.Is(err, domain.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestStatusKeepsLatestValue(t *testing.T) {
	c := New("ws://unused", logger.New(logger.LevelOff, nil))
	c.publishStatus(false)
	c.publishStatus(true)
	c.publishStatus(false)
	c.publishStatus(true)

	if s := <-c.Status(); !s {
		t.Fatal("expected latest status true")
	}
	select {
	case s := <-c.Status():
		t.Fatalf("expected a single buffered status, got extra %v", s)
	default:
	}
}
