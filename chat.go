package ahadi

import (
	"encoding/json"
	"strconv"
	"sync"
)

// DefaultDMTitle is the title sent with direct messages when none is given.
const DefaultDMTitle = "Direct Message"

// DMChatMessage is a message delivered on a direct-message chat.
type DMChatMessage struct {
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

// EventChatMessage is a message delivered on an event chat.
type EventChatMessage struct {
	ID          int64  `json:"id"`
	Content     string `json:"content"`
	MessageType string `json:"message_type"`
	SenderID    int64  `json:"sender_id"`
	SenderName  string `json:"sender_name"`
	SenderPhone string `json:"sender_phone,omitempty"`
	CreatedAt   string `json:"created_at"`
	IsDeleted   bool   `json:"is_deleted"`
	IsRead      bool   `json:"is_read"`
}

// Typing identifies the peer currently typing.
type Typing struct {
	UserID   int64
	UserName string
}

// RosterEntry records a participant joining or leaving an event chat.
type RosterEntry struct {
	UserID   int64  `json:"user_id"`
	UserName string `json:"user_name"`
}

// ============================================================================
// Shared chat channel
// ============================================================================

// chatChannel is the id-watching chat adapter shared by DM and event chats.
type chatChannel[M any] struct {
	sock       *Socket
	pathPrefix string
	extend     func(Envelope)
	onReset    func() // called with mu held

	mu        sync.RWMutex
	started   bool
	targetID  int64
	messages  []M
	typing    *Typing
	listeners []*subscription[M]
}

func newChatChannel[M any](r *RealtimeClient, pathPrefix string) *chatChannel[M] {
	c := &chatChannel[M]{pathPrefix: pathPrefix}
	c.sock = r.NewSocket(SocketConfig{PathFunc: c.path})
	c.sock.OnMessage(c.dispatch)
	return c
}

func (c *chatChannel[M]) path() string {
	c.mu.RLock()
	id := c.targetID
	c.mu.RUnlock()
	if id <= 0 {
		return ""
	}
	return c.pathPrefix + strconv.FormatInt(id, 10) + "/"
}

// setTarget switches the chat to id. A positive id tears down the old
// connection, clears local state, and reconnects; anything else disconnects
// and clears the message log.
func (c *chatChannel[M]) setTarget(id int64) {
	c.mu.Lock()
	if c.started && c.targetID == id {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.targetID = id
	c.mu.Unlock()

	c.sock.Disconnect()
	if id <= 0 {
		c.mu.Lock()
		c.messages = nil
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	c.messages = nil
	c.typing = nil
	if c.onReset != nil {
		c.onReset()
	}
	c.mu.Unlock()
	c.sock.Connect()
}

func (c *chatChannel[M]) dispatch(env Envelope) {
	switch env.Type {
	case frameChatMessage:
		var body struct {
			Message json.RawMessage `json:"message"`
		}
		if env.Decode(&body) != nil || len(body.Message) == 0 {
			return
		}
		var fields map[string]json.RawMessage
		if json.Unmarshal(body.Message, &fields) != nil || !hasField(fields, "id") {
			return
		}
		var msg M
		if json.Unmarshal(body.Message, &msg) != nil {
			return
		}
		c.mu.Lock()
		c.messages = append(c.messages, msg)
		listeners := append([]*subscription[M]{}, c.listeners...)
		c.mu.Unlock()
		for _, l := range listeners {
			l.fn(msg)
		}

	case frameTyping:
		var t struct {
			UserID   *int64  `json:"user_id"`
			UserName *string `json:"user_name"`
			IsTyping bool    `json:"is_typing"`
		}
		if env.Decode(&t) != nil {
			return
		}
		c.mu.Lock()
		if t.IsTyping && t.UserID != nil {
			typing := &Typing{UserID: *t.UserID}
			if t.UserName != nil {
				typing.UserName = *t.UserName
			}
			c.typing = typing
		} else {
			c.typing = nil
		}
		c.mu.Unlock()

	default:
		if c.extend != nil {
			c.extend(env)
		}
	}
}

// Messages returns the chat log in arrival order.
func (c *chatChannel[M]) Messages() []M {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]M(nil), c.messages...)
}

// Typing returns the peer currently typing, if any.
func (c *chatChannel[M]) Typing() (Typing, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.typing == nil {
		return Typing{}, false
	}
	return *c.typing, true
}

// OnMessage registers fn for every chat message appended to the log.
func (c *chatChannel[M]) OnMessage(fn func(M)) (unsubscribe func()) {
	sub := &subscription[M]{fn: fn}
	c.mu.Lock()
	c.listeners = append(c.listeners, sub)
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		c.listeners = removeSubscription(c.listeners, sub)
		c.mu.Unlock()
	}
}

// SendTyping reports whether the local user is typing.
func (c *chatChannel[M]) SendTyping(isTyping bool) {
	c.sock.Send(typingCommand{Type: frameTyping, IsTyping: isTyping})
}

// SendReadReceipt marks the conversation as read. It is safe to call from
// a message handler.
func (c *chatChannel[M]) SendReadReceipt() {
	c.sock.Send(bareCommand{Type: frameReadReceipt})
}

// State returns the connection state.
func (c *chatChannel[M]) State() SocketState { return c.sock.State() }

// Err returns the last connection error, if any.
func (c *chatChannel[M]) Err() error { return c.sock.Err() }

// Connect reconnects to the current target.
func (c *chatChannel[M]) Connect() { c.sock.Connect() }

// Disconnect closes the connection without reconnecting.
func (c *chatChannel[M]) Disconnect() { c.sock.Disconnect() }

// Close disconnects and releases the underlying socket.
func (c *chatChannel[M]) Close() { c.sock.Close() }

// Socket exposes the underlying connection for state observation.
func (c *chatChannel[M]) Socket() *Socket { return c.sock }

// ============================================================================
// DMChat
// ============================================================================

// DMChat is a one-to-one chat with a single recipient.
type DMChat struct {
	*chatChannel[DMChatMessage]
}

// SetRecipient switches the chat to another user. Zero or less disconnects.
func (c *DMChat) SetRecipient(recipientID int64) { c.setTarget(recipientID) }

func (c *DMChat) RecipientID() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.targetID
}

// SendMessage sends content to the recipient. An empty title becomes
// DefaultDMTitle.
func (c *DMChat) SendMessage(content, title string) {
	if title == "" {
		title = DefaultDMTitle
	}
	c.sock.Send(chatMessageCommand{Type: frameChatMessage, Content: content, Title: title})
}

// ============================================================================
// EventChat
// ============================================================================

// EventChat is the group chat of one event. Besides messages and typing it
// tracks who joined and left, and the last chat error.
type EventChat struct {
	*chatChannel[EventChatMessage]

	joined      []RosterEntry
	left        []RosterEntry
	chatErr     string
	lastCoreErr string
}

// SetEvent switches the chat to another event. Zero or less disconnects.
func (c *EventChat) SetEvent(eventID int64) { c.setTarget(eventID) }

func (c *EventChat) EventID() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.targetID
}

// SendMessage posts content to the event chat.
func (c *EventChat) SendMessage(content string) {
	c.sock.Send(chatMessageCommand{Type: frameChatMessage, Content: content})
}

// Joined returns the join log in arrival order.
func (c *EventChat) Joined() []RosterEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]RosterEntry(nil), c.joined...)
}

// Left returns the leave log in arrival order.
func (c *EventChat) Left() []RosterEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]RosterEntry(nil), c.left...)
}

// ChatError returns the last error reported by the server or the
// connection, or "" when there is none.
func (c *EventChat) ChatError() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.chatErr
}

func (c *EventChat) dispatchRoster(env Envelope) {
	switch env.Type {
	case frameUserJoin, frameUserLeave:
		var p struct {
			UserID   *int64  `json:"user_id"`
			UserName *string `json:"user_name"`
		}
		if env.Decode(&p) != nil || p.UserID == nil {
			return
		}
		entry := RosterEntry{UserID: *p.UserID}
		if p.UserName != nil {
			entry.UserName = *p.UserName
		}
		c.mu.Lock()
		if env.Type == frameUserJoin {
			c.joined = append(c.joined, entry)
		} else {
			c.left = append(c.left, entry)
		}
		c.mu.Unlock()

	case frameError:
		var p struct {
			Message *string `json:"message"`
		}
		_ = env.Decode(&p)
		msg := "Chat error"
		if p.Message != nil {
			msg = *p.Message
		}
		c.mu.Lock()
		c.chatErr = msg
		c.mu.Unlock()
	}
}

func (c *EventChat) resetRoster() {
	c.joined = nil
	c.left = nil
	c.chatErr = ""
}

func (c *EventChat) mirrorError(ev StateEvent) {
	msg := ""
	if ev.Err != nil {
		msg = ev.Err.Error()
	}
	c.mu.Lock()
	if msg != c.lastCoreErr {
		c.lastCoreErr = msg
		c.chatErr = msg
	}
	c.mu.Unlock()
}
