package ahadi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pings(conn *fakeConn) int {
	n := 0
	for _, w := range conn.Written() {
		if w["type"] == "ping" {
			n++
		}
	}
	return n
}

func TestDMNotificationsKeepsNewestFifty(t *testing.T) {
	d, clock := &fakeDialer{}, newFakeClock()
	feed := newTestClient("tok", d, clock).Realtime().DMNotifications()
	defer feed.Close()

	conn := waitConn(t, d, 0)
	assert.Equal(t, testWSBase+"/ws/chat/dm/notifications/?token=tok", d.URL(0))

	for i := 1; i <= 60; i++ {
		conn.deliverJSON(t, map[string]any{"type": "new_message", "id": i, "sender_id": 3, "content": "hi"})
	}
	require.Eventually(t, func() bool {
		n := feed.Notifications()
		return len(n) == MaxStoredNotifications && n[0].ID == 60
	}, waitFor, tick)

	n := feed.Notifications()
	assert.Equal(t, int64(60), n[0].ID)
	assert.Equal(t, int64(11), n[len(n)-1].ID)
	for i := 1; i < len(n); i++ {
		assert.Equal(t, n[i-1].ID-1, n[i].ID)
	}
}

func TestDMNotificationsReconnectUsesRefreshedToken(t *testing.T) {
	d, clock := &fakeDialer{}, newFakeClock()
	c := newTestClient("old-token", d, clock)
	feed := c.Realtime().DMNotifications()
	defer feed.Close()

	conn := waitConn(t, d, 0)
	waitState(t, feed.State, StateOpen)

	c.SetToken("refreshed-token")
	conn.serverClose(CloseAbnormal)
	require.Eventually(t, func() bool {
		p := clock.Pending()
		return len(p) == 1 && p[0] == 2*time.Second
	}, waitFor, tick)
	clock.Advance(2 * time.Second)

	waitConn(t, d, 1)
	assert.Equal(t, testWSBase+"/ws/chat/dm/notifications/?token=old-token", d.URL(0))
	assert.Equal(t, testWSBase+"/ws/chat/dm/notifications/?token=refreshed-token", d.URL(1))
}

func TestDMNotificationsValidation(t *testing.T) {
	d, clock := &fakeDialer{}, newFakeClock()
	feed := newTestClient("tok", d, clock).Realtime().DMNotifications()
	defer feed.Close()

	var seen []DMNotification
	feed.OnNotification(func(n DMNotification) { seen = append(seen, n) })

	conn := waitConn(t, d, 0)
	conn.deliver(`{"type":"new_message","sender_id":3}`)
	conn.deliver(`{"type":"new_message","id":1}`)
	conn.deliver(`{"type":"new_message","id":null,"sender_id":3}`)
	conn.deliver(`{"type":"pong"}`)
	conn.deliver(`{"type":"something_else","id":4,"sender_id":3}`)
	conn.deliver(`{"type":"new_message","id":2,"sender_id":3,"sender_name":"Neema","is_read":false}`)

	require.Eventually(t, func() bool { return len(feed.Notifications()) == 1 }, waitFor, tick)
	got := feed.Notifications()[0]
	assert.Equal(t, int64(2), got.ID)
	assert.Equal(t, "Neema", got.SenderName)

	feed.Disconnect()
	assert.Len(t, seen, 1)

	feed.Clear()
	assert.Empty(t, feed.Notifications())
}

func TestGroupNotifications(t *testing.T) {
	d, clock := &fakeDialer{}, newFakeClock()
	feed := newTestClient("tok", d, clock).Realtime().GroupNotifications()
	defer feed.Close()

	conn := waitConn(t, d, 0)
	assert.Equal(t, testWSBase+"/ws/chat/group/notifications/?token=tok", d.URL(0))

	conn.deliver(`{"type":"new_message","event_id":"12"}`)
	conn.deliver(`{"type":"new_message","message_id":4}`)
	conn.deliver(`{"type":"new_message","event_id":"12","message_id":5,"sender_name":"Baraka"}`)
	conn.deliver(`{"type":"new_message","event_id":13,"message_id":6}`)

	require.Eventually(t, func() bool { return len(feed.Notifications()) == 2 }, waitFor, tick)
	n := feed.Notifications()
	assert.Equal(t, FlexID("13"), n[0].EventID)
	assert.Equal(t, int64(6), n[0].MessageID)
	assert.Equal(t, FlexID("12"), n[1].EventID)
	assert.Equal(t, "Baraka", n[1].SenderName)

	id, err := n[1].EventID.Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)
}

func TestNotificationKeepalive(t *testing.T) {
	d, clock := &fakeDialer{}, newFakeClock()
	feed := newTestClient("tok", d, clock).Realtime().DMNotifications()
	defer feed.Close()

	conn := waitConn(t, d, 0)
	waitState(t, feed.State, StateOpen)
	require.Eventually(t, func() bool { return len(clock.Pending()) == 1 }, waitFor, tick)

	clock.Advance(KeepaliveInterval)
	require.Eventually(t, func() bool { return pings(conn) == 1 }, waitFor, tick)

	clock.Advance(KeepaliveInterval)
	require.Eventually(t, func() bool { return pings(conn) == 2 }, waitFor, tick)

	conn.serverClose(CloseNormal)
	waitState(t, feed.State, StateClosed)
	require.Eventually(t, func() bool { return len(clock.Pending()) == 0 }, waitFor, tick)

	clock.Advance(3 * KeepaliveInterval)
	feed.Disconnect()
	assert.Equal(t, 2, pings(conn))
}

func TestNotificationKeepaliveStopsOnUnexpectedClose(t *testing.T) {
	d, clock := &fakeDialer{}, newFakeClock()
	feed := newTestClient("tok", d, clock).Realtime().GroupNotifications()
	defer feed.Close()

	conn := waitConn(t, d, 0)
	waitState(t, feed.State, StateOpen)
	require.Eventually(t, func() bool { return len(clock.Pending()) == 1 }, waitFor, tick)

	conn.serverClose(CloseAbnormal)
	// only the reconnect timer remains
	require.Eventually(t, func() bool {
		p := clock.Pending()
		return len(p) == 1 && p[0] == 2*time.Second
	}, waitFor, tick)

	clock.Advance(2 * time.Second)
	second := waitConn(t, d, 1)
	waitState(t, feed.State, StateOpen)
	require.Eventually(t, func() bool { return len(clock.Pending()) == 1 }, waitFor, tick)

	clock.Advance(KeepaliveInterval)
	require.Eventually(t, func() bool { return pings(second) == 1 }, waitFor, tick)
	assert.Equal(t, 0, pings(conn))
}

func TestNotificationCloseStopsKeepalive(t *testing.T) {
	d, clock := &fakeDialer{}, newFakeClock()
	feed := newTestClient("tok", d, clock).Realtime().DMNotifications()

	conn := waitConn(t, d, 0)
	waitState(t, feed.State, StateOpen)
	require.Eventually(t, func() bool { return len(clock.Pending()) == 1 }, waitFor, tick)

	feed.Close()
	assert.Empty(t, clock.Pending())
	assert.Equal(t, StateClosed, feed.State())
	closed, code := conn.IsClosed()
	assert.True(t, closed)
	assert.Equal(t, CloseNormal, code)
}

func TestRecentList(t *testing.T) {
	l := newRecentList[int](3)
	for i := 1; i <= 5; i++ {
		l.push(i)
	}
	assert.Equal(t, []int{5, 4, 3}, l.snapshot())
	assert.Len(t, l.snapshot(), 3)

	snap := l.snapshot()
	snap[0] = 99
	assert.Equal(t, 5, l.snapshot()[0])

	l.clear()
	assert.Empty(t, l.snapshot())
}
