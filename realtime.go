package ahadi

// ============================================================================
// Channel endpoints
// ============================================================================

const (
	dmChatPathPrefix       = "ws/chat/dm/"
	eventChatPathPrefix    = "ws/chat/event/"
	dmNotificationsPath    = "ws/chat/dm/notifications/"
	groupNotificationsPath = "ws/chat/group/notifications/"
)

// RealtimeClient builds sockets and channel adapters that share the
// client's base URL, token source, dialer, clock, and logger.
type RealtimeClient struct {
	c *Client
}

// URL returns the endpoint URL for path without credentials, for display.
func (r *RealtimeClient) URL(path string) string {
	base := r.c.WebSocketBaseURL()
	if base == "" {
		return ""
	}
	return joinSocketPath(base, path)
}

// DMChat opens a direct-message chat with recipientID. A recipientID of zero
// or less yields an idle chat until SetRecipient is called.
func (r *RealtimeClient) DMChat(recipientID int64) *DMChat {
	c := &DMChat{chatChannel: newChatChannel[DMChatMessage](r, dmChatPathPrefix)}
	c.SetRecipient(recipientID)
	return c
}

// EventChat opens the group chat of eventID.
func (r *RealtimeClient) EventChat(eventID int64) *EventChat {
	c := &EventChat{chatChannel: newChatChannel[EventChatMessage](r, eventChatPathPrefix)}
	c.chatChannel.extend = c.dispatchRoster
	c.chatChannel.onReset = c.resetRoster
	c.chatChannel.sock.OnStateChange(c.mirrorError)
	c.SetEvent(eventID)
	return c
}

// DMNotifications connects to the direct-message notification feed.
func (r *RealtimeClient) DMNotifications() *DMNotifications {
	return &DMNotifications{notificationFeed: newNotificationFeed[DMNotification](r, dmNotificationsPath, validDMNotification)}
}

// GroupNotifications connects to the event-chat notification feed.
func (r *RealtimeClient) GroupNotifications() *GroupNotifications {
	return &GroupNotifications{notificationFeed: newNotificationFeed[GroupNotification](r, groupNotificationsPath, validGroupNotification)}
}
