package ahadi

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	// KeepaliveInterval is how often notification feeds ping while open.
	KeepaliveInterval = 25 * time.Second
	// MaxStoredNotifications bounds the in-memory notification list.
	MaxStoredNotifications = 50

	notificationReconnectDelay    = 2 * time.Second
	notificationReconnectAttempts = 5
)

// DMNotification announces a new direct message.
type DMNotification struct {
	ID            int64  `json:"id"`
	SenderID      int64  `json:"sender_id"`
	SenderName    string `json:"sender_name"`
	RecipientID   int64  `json:"recipient_id"`
	RecipientName string `json:"recipient_name"`
	Content       string `json:"content"`
	Title         string `json:"title"`
	MessageType   string `json:"message_type"`
	CreatedAt     string `json:"created_at"`
	IsRead        bool   `json:"is_read"`
}

// GroupNotification announces a new event-chat message.
type GroupNotification struct {
	EventID    FlexID `json:"event_id"`
	MessageID  int64  `json:"message_id"`
	SenderID   int64  `json:"sender_id"`
	SenderName string `json:"sender_name"`
	Content    string `json:"content"`
	CreatedAt  string `json:"created_at"`
}

func validDMNotification(fields map[string]json.RawMessage) bool {
	return hasField(fields, "id") && hasField(fields, "sender_id")
}

func validGroupNotification(fields map[string]json.RawMessage) bool {
	return hasField(fields, "event_id") && hasField(fields, "message_id")
}

// ============================================================================
// Notification feed
// ============================================================================

// notificationFeed is a reconnecting socket that keeps the most recent
// notifications and pings while open.
type notificationFeed[N any] struct {
	sock  *Socket
	clock Clock
	valid func(map[string]json.RawMessage) bool

	mu        sync.Mutex
	items     *recentList[N]
	listeners []*subscription[N]
	pingTimer Timer
	pingSeq   uint64
	unwatch   func()
}

func newNotificationFeed[N any](r *RealtimeClient, path string, valid func(map[string]json.RawMessage) bool) *notificationFeed[N] {
	f := &notificationFeed[N]{
		clock: r.c.clock,
		valid: valid,
		items: newRecentList[N](MaxStoredNotifications),
	}
	f.sock = r.NewSocket(SocketConfig{
		Path:                 path,
		AutoReconnect:        true,
		MaxReconnectAttempts: notificationReconnectAttempts,
		ReconnectDelay:       notificationReconnectDelay,
	})
	f.sock.OnMessage(f.dispatch)
	f.unwatch = f.sock.OnStateChange(func(ev StateEvent) {
		if ev.NewState == StateOpen {
			f.startPing()
		} else {
			f.stopPing()
		}
	})
	f.sock.Connect()
	return f
}

func (f *notificationFeed[N]) dispatch(env Envelope) {
	switch env.Type {
	case frameNewMessage:
	case framePong:
		return // keepalive reply
	default:
		return
	}
	var fields map[string]json.RawMessage
	if env.Decode(&fields) != nil || !f.valid(fields) {
		return
	}
	var n N
	if env.Decode(&n) != nil {
		return
	}
	f.mu.Lock()
	f.items.push(n)
	listeners := append([]*subscription[N]{}, f.listeners...)
	f.mu.Unlock()
	for _, l := range listeners {
		l.fn(n)
	}
}

func (f *notificationFeed[N]) startPing() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopPingLocked()
	seq := f.pingSeq
	f.pingTimer = f.clock.AfterFunc(KeepaliveInterval, func() { f.tick(seq) })
}

func (f *notificationFeed[N]) stopPing() {
	f.mu.Lock()
	f.stopPingLocked()
	f.mu.Unlock()
}

func (f *notificationFeed[N]) stopPingLocked() {
	if f.pingTimer != nil {
		f.pingTimer.Stop()
		f.pingTimer = nil
	}
	f.pingSeq++
}

func (f *notificationFeed[N]) tick(seq uint64) {
	f.mu.Lock()
	if seq != f.pingSeq || f.pingTimer == nil {
		f.mu.Unlock()
		return
	}
	f.pingTimer = f.clock.AfterFunc(KeepaliveInterval, func() { f.tick(seq) })
	f.mu.Unlock()

	if f.sock.State() == StateOpen {
		f.sock.Send(bareCommand{Type: framePing})
	}
}

// Notifications returns stored notifications, newest first.
func (f *notificationFeed[N]) Notifications() []N {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items.snapshot()
}

// OnNotification registers fn for every accepted notification.
func (f *notificationFeed[N]) OnNotification(fn func(N)) (unsubscribe func()) {
	sub := &subscription[N]{fn: fn}
	f.mu.Lock()
	f.listeners = append(f.listeners, sub)
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.listeners = removeSubscription(f.listeners, sub)
		f.mu.Unlock()
	}
}

// Clear drops all stored notifications.
func (f *notificationFeed[N]) Clear() {
	f.mu.Lock()
	f.items.clear()
	f.mu.Unlock()
}

// State returns the feed's connection state.
func (f *notificationFeed[N]) State() SocketState { return f.sock.State() }

// Err returns the last connection error, if any.
func (f *notificationFeed[N]) Err() error { return f.sock.Err() }

// Connect opens the feed, replacing any live connection.
func (f *notificationFeed[N]) Connect() { f.sock.Connect() }

// Disconnect closes the feed and cancels any pending reconnect.
func (f *notificationFeed[N]) Disconnect() { f.sock.Disconnect() }

// Socket exposes the underlying connection for state observation.
func (f *notificationFeed[N]) Socket() *Socket { return f.sock }

// Close stops the keepalive and releases the socket.
func (f *notificationFeed[N]) Close() {
	f.stopPing()
	f.unwatch()
	f.sock.Close()
}

// DMNotifications is the feed of incoming direct messages.
type DMNotifications struct {
	*notificationFeed[DMNotification]
}

// GroupNotifications is the feed of incoming event-chat messages.
type GroupNotifications struct {
	*notificationFeed[GroupNotification]
}
