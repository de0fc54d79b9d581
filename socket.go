package ahadi

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"
)

// ============================================================================
// Configuration
// ============================================================================

// SocketConfig configures a Socket.
type SocketConfig struct {
	// Path is the fixed endpoint path, e.g. "ws/chat/dm/notifications/".
	Path string
	// PathFunc, when set, is consulted on every connect and wins over Path.
	// An empty or blank result means there is nothing to connect to.
	PathFunc             func() string
	AutoReconnect        bool
	MaxReconnectAttempts int
	ReconnectDelay       time.Duration
	WriteTimeout         time.Duration
}

func (c *SocketConfig) defaults() {
	if c.MaxReconnectAttempts == 0 {
		c.MaxReconnectAttempts = 5
	}
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = 1 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
}

// maxBackoffSteps caps the linear backoff multiplier.
const maxBackoffSteps = 5

// SocketState is the connection status of a Socket.
type SocketState string

const (
	StateClosed     SocketState = "closed"
	StateConnecting SocketState = "connecting"
	StateOpen       SocketState = "open"
	StateError      SocketState = "error"
)

// StateEvent is delivered to OnStateChange observers whenever the state or
// the error value changes.
type StateEvent struct {
	OldState SocketState
	NewState SocketState
	Err      error
}

// ============================================================================
// Mailbox events
// ============================================================================

type socketEvent interface{}

type (
	connectReq    struct{ done chan struct{} }
	disconnectReq struct{ done chan struct{} }
	sendReq       struct{ data []byte }

	openedEvent struct {
		gen uint64
		tr  Transport
	}
	closedEvent struct {
		gen    uint64
		code   int
		reason string
	}
	erroredEvent struct {
		gen uint64
		err error
	}
	receivedEvent struct {
		gen  uint64
		data []byte
	}
	reconnectFired struct{ seq uint64 }
)

// ============================================================================
// Socket
// ============================================================================

// Socket is one authenticated WebSocket endpoint with optional linear-backoff
// reconnection.
//
// All connection state is owned by a single goroutine; public methods post
// requests to it. Message and state callbacks run on that goroutine, in
// arrival order. Send never blocks and is safe to call from a callback.
// Callbacks must not call Connect, Disconnect, or Close synchronously; those
// wait for the goroutine that is running the callback.
type Socket struct {
	config  SocketConfig
	baseURL func() string
	tokens  TokenSource
	dialer  Dialer
	clock   Clock
	log     Logger

	events    chan socketEvent
	quit      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	mu    sync.RWMutex
	state SocketState
	err   error
	last  *Envelope

	handlerMu   sync.Mutex
	onMessage   func(Envelope)
	subscribers []*subscription[Envelope]
	observers   []*subscription[StateEvent]

	// owned by the run goroutine
	gen       uint64
	transport Transport
	connCtx   context.Context
	cancel    context.CancelFunc
	attempt   int
	timer     Timer
	timerSeq  uint64
}

type subscription[T any] struct {
	fn func(T)
}

// NewSocket builds a Socket that dials through the client's dialer, base URL,
// and token source. It does not connect.
func (r *RealtimeClient) NewSocket(config SocketConfig) *Socket {
	return newSocket(config, r.c.WebSocketBaseURL, TokenFunc(func() string { return r.c.tokenSource().AccessToken() }), r.c.dialer, r.c.clock, r.c.logger)
}

func newSocket(config SocketConfig, baseURL func() string, tokens TokenSource, dialer Dialer, clock Clock, log Logger) *Socket {
	config.defaults()
	if tokens == nil {
		tokens = StaticToken("")
	}
	if clock == nil {
		clock = SystemClock()
	}
	if log == nil {
		log = NopLogger()
	}
	s := &Socket{
		config:  config,
		baseURL: baseURL,
		tokens:  tokens,
		dialer:  dialer,
		clock:   clock,
		log:     log,
		events:  make(chan socketEvent, 64),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
		state:   StateClosed,
	}
	go s.run()
	return s
}

// State returns the current connection state.
func (s *Socket) State() SocketState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Err returns the last connection error, or nil. It is cleared by Connect.
func (s *Socket) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// LastMessage returns the most recent inbound frame.
func (s *Socket) LastMessage() (Envelope, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return Envelope{}, false
	}
	return *s.last, true
}

// OnMessage sets the message handler, replacing any previous one.
func (s *Socket) OnMessage(fn func(Envelope)) {
	s.handlerMu.Lock()
	s.onMessage = fn
	s.handlerMu.Unlock()
}

// Subscribe adds a message observer that runs after the OnMessage handler.
func (s *Socket) Subscribe(fn func(Envelope)) (unsubscribe func()) {
	sub := &subscription[Envelope]{fn: fn}
	s.handlerMu.Lock()
	s.subscribers = append(s.subscribers, sub)
	s.handlerMu.Unlock()
	return func() {
		s.handlerMu.Lock()
		s.subscribers = removeSubscription(s.subscribers, sub)
		s.handlerMu.Unlock()
	}
}

// OnStateChange adds a state observer.
func (s *Socket) OnStateChange(fn func(StateEvent)) (unsubscribe func()) {
	sub := &subscription[StateEvent]{fn: fn}
	s.handlerMu.Lock()
	s.observers = append(s.observers, sub)
	s.handlerMu.Unlock()
	return func() {
		s.handlerMu.Lock()
		s.observers = removeSubscription(s.observers, sub)
		s.handlerMu.Unlock()
	}
}

func removeSubscription[T any](subs []*subscription[T], target *subscription[T]) []*subscription[T] {
	out := subs[:0:0]
	for _, sub := range subs {
		if sub != target {
			out = append(out, sub)
		}
	}
	return out
}

// Connect tears down any existing connection and opens a new one. It
// returns once the request is processed; the dial itself is asynchronous.
// Configuration problems are reported through State and Err.
func (s *Socket) Connect() {
	s.request(connectReq{done: make(chan struct{})})
}

// Disconnect closes the connection with code 1000, cancels any pending
// reconnect, and leaves the socket closed. It is idempotent.
func (s *Socket) Disconnect() {
	s.request(disconnectReq{done: make(chan struct{})})
}

// Send marshals v as JSON and transmits it if the socket is open. It never
// blocks: frames sent while not open, or while the mailbox is full, are
// dropped.
func (s *Socket) Send(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.log.Warnf("ahadi: socket send: marshal: %v", err)
		return
	}
	select {
	case <-s.stopped:
		return
	default:
	}
	select {
	case s.events <- sendReq{data: data}:
	default:
		s.log.Debugf("ahadi: socket send: mailbox full, dropping %d bytes", len(data))
	}
}

// Close disconnects and stops the socket. A closed Socket ignores further
// requests.
func (s *Socket) Close() {
	s.closeOnce.Do(func() { close(s.quit) })
	<-s.stopped
}

func (s *Socket) request(ev socketEvent) {
	var done chan struct{}
	switch e := ev.(type) {
	case connectReq:
		done = e.done
	case disconnectReq:
		done = e.done
	}
	if !s.post(ev) {
		return
	}
	select {
	case <-done:
	case <-s.stopped:
	}
}

func (s *Socket) post(ev socketEvent) bool {
	select {
	case <-s.stopped:
		return false
	default:
	}
	select {
	case s.events <- ev:
		return true
	case <-s.stopped:
		return false
	}
}

// ============================================================================
// Event loop
// ============================================================================

func (s *Socket) run() {
	defer close(s.stopped)
	for {
		select {
		case <-s.quit:
			s.teardown()
			s.setState(StateClosed, s.Err())
			return
		case ev := <-s.events:
			s.handle(ev)
		}
	}
}

func (s *Socket) handle(ev socketEvent) {
	switch e := ev.(type) {
	case connectReq:
		s.connect()
		close(e.done)
	case disconnectReq:
		s.teardown()
		s.setState(StateClosed, s.Err())
		close(e.done)
	case sendReq:
		s.write(e.data)
	case openedEvent:
		s.opened(e)
	case erroredEvent:
		if e.gen != s.gen {
			return
		}
		s.log.Warnf("ahadi: socket error: %v", e.err)
		s.setState(StateError, &Error{Kind: ErrorTransport, Message: "WebSocket error", Wrapped: e.err})
	case closedEvent:
		if e.gen != s.gen {
			return
		}
		s.closed(e)
	case receivedEvent:
		if e.gen != s.gen {
			return
		}
		s.received(e.data)
	case reconnectFired:
		if s.timer == nil || e.seq != s.timerSeq {
			return
		}
		s.timer = nil
		s.connect()
	}
}

func (s *Socket) resolvePath() string {
	if s.config.PathFunc != nil {
		return s.config.PathFunc()
	}
	return s.config.Path
}

func (s *Socket) connect() {
	if s.dialer == nil {
		return
	}
	path := s.resolvePath()
	if strings.TrimSpace(path) == "" {
		s.setState(StateError, ErrPathNotConfigured)
		return
	}
	base := ""
	if s.baseURL != nil {
		base = s.baseURL()
	}
	if base == "" {
		s.setState(StateError, ErrURLNotConfigured)
		return
	}
	token := s.tokens.AccessToken()
	if token == "" {
		s.setState(StateError, ErrNotAuthenticated)
		return
	}

	s.teardown()
	s.setState(StateConnecting, nil)

	u := buildSocketURL(base, path, token)
	s.log.Debugf("ahadi: socket connecting to %s", buildSocketURL(base, path, maskToken(token)))

	ctx, cancel := context.WithCancel(context.Background())
	s.connCtx, s.cancel = ctx, cancel
	go s.dial(ctx, s.gen, u)
}

// teardown drops the current transport and pending reconnect. Events from
// the dropped generation are ignored from here on.
func (s *Socket) teardown() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerSeq++
	if s.transport != nil {
		_ = s.transport.Close(CloseNormal, "")
		s.transport = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.connCtx, s.cancel = nil, nil
	}
	s.gen++
}

func (s *Socket) dial(ctx context.Context, gen uint64, u string) {
	tr, err := s.dialer.Dial(ctx, u)
	if err != nil {
		if s.post(erroredEvent{gen: gen, err: err}) {
			s.post(closedEvent{gen: gen, code: CloseAbnormal})
		}
		return
	}
	if !s.post(openedEvent{gen: gen, tr: tr}) {
		_ = tr.Close(CloseNormal, "")
	}
}

func (s *Socket) opened(e openedEvent) {
	if e.gen != s.gen {
		_ = e.tr.Close(CloseNormal, "")
		return
	}
	s.transport = e.tr
	s.attempt = 0
	s.setState(StateOpen, nil)
	s.log.Infof("ahadi: socket open")

	go s.read(s.connCtx, e.gen, e.tr)
}

func (s *Socket) read(ctx context.Context, gen uint64, tr Transport) {
	for {
		data, err := tr.Read(ctx)
		if err != nil {
			var ce *CloseError
			if errors.As(err, &ce) {
				s.post(closedEvent{gen: gen, code: ce.Code, reason: ce.Reason})
				return
			}
			if s.post(erroredEvent{gen: gen, err: err}) {
				s.post(closedEvent{gen: gen, code: CloseAbnormal})
			}
			return
		}
		if !s.post(receivedEvent{gen: gen, data: data}) {
			return
		}
	}
}

func (s *Socket) closed(e closedEvent) {
	s.transport = nil
	if s.cancel != nil {
		s.cancel()
		s.connCtx, s.cancel = nil, nil
	}
	s.log.Infof("ahadi: socket closed: code=%d reason=%q", e.code, e.reason)

	if e.code == CloseUnauthorized || e.code == CloseForbidden {
		err := *ErrUnauthorized
		err.Code = e.code
		s.setState(StateError, &err)
		return
	}
	s.setState(StateClosed, s.Err())

	if e.code == CloseNormal || !s.config.AutoReconnect || s.attempt >= s.config.MaxReconnectAttempts {
		return
	}
	s.attempt++
	delay := s.config.ReconnectDelay * time.Duration(min(s.attempt, maxBackoffSteps))
	s.timerSeq++
	seq := s.timerSeq
	s.log.Infof("ahadi: socket reconnecting in %v (attempt %d/%d)", delay, s.attempt, s.config.MaxReconnectAttempts)
	s.timer = s.clock.AfterFunc(delay, func() { s.post(reconnectFired{seq: seq}) })
}

func (s *Socket) received(data []byte) {
	env := parseEnvelope(data)
	if env.Type == TypeUnknown {
		s.log.Debugf("ahadi: socket received non-JSON frame")
	}

	s.mu.Lock()
	s.last = &env
	s.mu.Unlock()

	s.handlerMu.Lock()
	handler := s.onMessage
	subs := append([]*subscription[Envelope]{}, s.subscribers...)
	s.handlerMu.Unlock()

	if handler != nil {
		handler(env)
	}
	for _, sub := range subs {
		sub.fn(env)
	}
}

func (s *Socket) write(data []byte) {
	if s.State() != StateOpen || s.transport == nil {
		s.log.Debugf("ahadi: socket not open, dropping frame")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.config.WriteTimeout)
	defer cancel()
	if err := s.transport.Write(ctx, data); err != nil {
		s.log.Warnf("ahadi: socket write: %v", err)
	}
}

func (s *Socket) setState(state SocketState, err error) {
	s.mu.Lock()
	old, oldErr := s.state, s.err
	s.state, s.err = state, err
	s.mu.Unlock()

	if old == state && oldErr == err {
		return
	}

	s.handlerMu.Lock()
	observers := append([]*subscription[StateEvent]{}, s.observers...)
	s.handlerMu.Unlock()

	ev := StateEvent{OldState: old, NewState: state, Err: err}
	for _, o := range observers {
		o.fn(ev)
	}
}

// buildSocketURL joins base and path and appends the token as a query
// parameter.
func buildSocketURL(base, path, token string) string {
	u := joinSocketPath(base, path)
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + "token=" + url.QueryEscape(token)
}

func joinSocketPath(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
