package ahadi

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

// ============================================================================
// Fake clock
// ============================================================================

type fakeClock struct {
	mu        sync.Mutex
	now       time.Time
	timers    []*fakeTimer
	scheduled []time.Duration
}

type fakeTimer struct {
	clock    *fakeClock
	deadline time.Time
	delay    time.Duration
	f        func()
	stopped  bool
	fired    bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, deadline: c.now.Add(d), delay: d, f: f}
	c.timers = append(c.timers, t)
	c.scheduled = append(c.scheduled, d)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// Advance moves time forward, firing due timers in deadline order. Timers
// armed by a firing callback fire too if they fall inside the window.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var due []*fakeTimer
		for _, t := range c.timers {
			if !t.stopped && !t.fired && !t.deadline.After(target) {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			c.now = target
			c.mu.Unlock()
			return
		}
		sort.SliceStable(due, func(i, j int) bool { return due[i].deadline.Before(due[j].deadline) })
		next := due[0]
		next.fired = true
		c.now = next.deadline
		c.mu.Unlock()
		next.f()
	}
}

// Pending returns the delays of timers that are armed and not yet fired.
func (c *fakeClock) Pending() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []time.Duration
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			out = append(out, t.delay)
		}
	}
	return out
}

// Scheduled returns every delay ever passed to AfterFunc.
func (c *fakeClock) Scheduled() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.scheduled...)
}

// ============================================================================
// Fake transport
// ============================================================================

type fakeConn struct {
	inbound chan []byte
	closes  chan error
	done    chan struct{}

	mu        sync.Mutex
	written   [][]byte
	closed    bool
	closeCode int
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan []byte, 128),
		closes:  make(chan error, 1),
		done:    make(chan struct{}),
	}
}

func (c *fakeConn) Read(ctx context.Context) ([]byte, error) {
	select {
	case data := <-c.inbound:
		return data, nil
	case err := <-c.closes:
		return nil, err
	case <-c.done:
		return nil, &CloseError{Code: CloseNormal}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *fakeConn) Write(_ context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("write on closed connection")
	}
	c.written = append(c.written, append([]byte(nil), data...))
	return nil
}

func (c *fakeConn) Close(code int, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		c.closeCode = code
		close(c.done)
	}
	return nil
}

// deliver queues a text frame from the server.
func (c *fakeConn) deliver(frame string) { c.inbound <- []byte(frame) }

// deliverJSON queues v as a JSON frame from the server.
func (c *fakeConn) deliverJSON(t *testing.T, v any) {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	c.inbound <- b
}

// serverClose simulates the server closing with code.
func (c *fakeConn) serverClose(code int) { c.closes <- &CloseError{Code: code} }

// fail simulates a transport failure without a close frame.
func (c *fakeConn) fail(err error) { c.closes <- err }

func (c *fakeConn) Written() []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.written))
	for _, w := range c.written {
		var m map[string]any
		_ = json.Unmarshal(w, &m)
		out = append(out, m)
	}
	return out
}

func (c *fakeConn) IsClosed() (bool, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed, c.closeCode
}

// ============================================================================
// Fake dialer
// ============================================================================

type fakeDialer struct {
	mu      sync.Mutex
	urls    []string
	conns   []*fakeConn
	dialErr error
}

func (d *fakeDialer) Dial(_ context.Context, url string) (Transport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.urls = append(d.urls, url)
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	c := newFakeConn()
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) failWith(err error) {
	d.mu.Lock()
	d.dialErr = err
	d.mu.Unlock()
}

func (d *fakeDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.urls)
}

func (d *fakeDialer) URL(i int) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.urls[i]
}

func (d *fakeDialer) Conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[i]
}

func (d *fakeDialer) Conns() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

// ============================================================================
// Helpers
// ============================================================================

const testWSBase = "ws://chat.test"

func newTestClient(token string, dialer *fakeDialer, clock *fakeClock) *Client {
	return NewClient(token,
		WithWebSocketBaseURL(testWSBase),
		WithDialer(dialer),
		WithClock(clock),
	)
}

func waitState(t *testing.T, state func() SocketState, want SocketState) {
	t.Helper()
	require.Eventually(t, func() bool { return state() == want }, waitFor, tick, "state never became %s", want)
}

// waitConn waits for the i-th dialed connection and returns it.
func waitConn(t *testing.T, d *fakeDialer, i int) *fakeConn {
	t.Helper()
	require.Eventually(t, func() bool { return d.Conns() > i }, waitFor, tick, "connection %d never dialed", i)
	return d.Conn(i)
}

// lastTimerFunc returns the callback of the most recently armed timer.
func (c *fakeClock) lastTimerFunc() func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timers[len(c.timers)-1].f
}

func newTestSocket(t *testing.T, cfg SocketConfig, tokens TokenSource) (*Socket, *fakeDialer, *fakeClock) {
	t.Helper()
	d := &fakeDialer{}
	clock := newFakeClock()
	s := newSocket(cfg, func() string { return testWSBase }, tokens, d, clock, nil)
	t.Cleanup(s.Close)
	return s, d, clock
}
