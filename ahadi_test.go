package ahadi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   map[string]any
}

type requestLog struct {
	mu   sync.Mutex
	reqs []recordedRequest
}

func (l *requestLog) add(r recordedRequest) {
	l.mu.Lock()
	l.reqs = append(l.reqs, r)
	l.mu.Unlock()
}

func (l *requestLog) all() []recordedRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]recordedRequest(nil), l.reqs...)
}

// newAPIServer serves canned responses keyed by "METHOD /path" and records
// every request it sees.
func newAPIServer(t *testing.T, routes map[string]string) (*httptest.Server, *requestLog) {
	t.Helper()
	seen := &requestLog{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Auth:   r.Header.Get("Authorization"),
		}
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			_ = json.Unmarshal(b, &rec.Body)
		}
		seen.add(rec)

		body, ok := routes[r.Method+" "+r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"Not found."}`))
			return
		}
		if body == "401" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Authentication credentials were not provided."}`))
			return
		}
		if body == "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, seen
}

func TestClientRequiresBaseURL(t *testing.T) {
	c := NewClient("tok")
	_, err := c.Get(context.Background(), "event-types/", nil)
	assert.Error(t, err)
}

func TestWebSocketBaseDerivedFromREST(t *testing.T) {
	tests := []struct {
		rest, ws string
	}{
		{"https://api.example.com/api/v1", "wss://api.example.com"},
		{"http://localhost:8000/api/v1/", "ws://localhost:8000"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ws, NewClient("", WithBaseURL(tt.rest)).WebSocketBaseURL(), tt.rest)
	}
	c := NewClient("", WithBaseURL("https://api.example.com"), WithWebSocketBaseURL("wss://rt.example.com/"))
	assert.Equal(t, "wss://rt.example.com", c.WebSocketBaseURL())
	assert.Equal(t, "wss://rt.example.com/ws/chat/dm/3/", c.Realtime().URL("ws/chat/dm/3/"))
}

func TestInboxClient(t *testing.T) {
	srv, seen := newAPIServer(t, map[string]string{
		"GET /api/v1/inbox/":                `{"count":1,"next":"http://x/?page=2","previous":null,"results":[{"id":7,"title":"Invite","is_read":false}]}`,
		"GET /api/v1/inbox/unread_count/":   `{"count":4}`,
		"POST /api/v1/inbox/7/mark_read/":   `{"id":7,"is_read":true}`,
		"GET /api/v1/inbox/conversations/":  `[{"other_user_id":9,"other_user_name":"Amina","unread_count":2}]`,
		"POST /api/v1/inbox/mark_all_read/": `{}`,
		"DELETE /api/v1/inbox/7/":           "",
	})
	c := NewClient("tok", WithBaseURL(srv.URL+"/api/v1/"))
	ctx := context.Background()

	page, err := c.Inbox.List(ctx, &ListOptions{Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Count)
	assert.True(t, page.HasNext())
	require.Len(t, page.Results, 1)
	assert.Equal(t, int64(7), page.Results[0].ID)

	count, err := c.Inbox.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	msg, err := c.Inbox.MarkRead(ctx, 7)
	require.NoError(t, err)
	assert.True(t, msg.IsRead)

	convs, err := c.Inbox.Conversations(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, int64(9), convs[0].PartnerUserID())
	assert.Equal(t, "Amina", convs[0].PartnerUserName())

	require.NoError(t, c.Inbox.MarkAllRead(ctx))
	require.NoError(t, c.Inbox.Delete(ctx, 7))

	reqs := seen.all()
	require.Len(t, reqs, 6)
	assert.Equal(t, "page=2", reqs[0].Query)
	for _, r := range reqs {
		assert.Equal(t, "Bearer tok", r.Auth, r.Path)
	}
}

func TestDirectMessagesClient(t *testing.T) {
	srv, seen := newAPIServer(t, map[string]string{
		"POST /direct-messages/":                     `{"id":1}`,
		"GET /direct-messages/conversation/9/":       `{"results":[{"id":1,"content":"hi"},{"id":2,"content":"there"}]}`,
		"POST /direct-messages/conversation/9/read/": `{}`,
	})
	c := NewClient("tok", WithBaseURL(srv.URL))
	ctx := context.Background()

	_, err := c.DirectMessages.Send(ctx, &SendDirectMessagePayload{RecipientID: 9, Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"recipient_id": float64(9), "title": "Direct Message", "content": "hi"}, seen.all()[0].Body)

	_, err = c.DirectMessages.Send(ctx, &SendDirectMessagePayload{RecipientID: 9, Content: "  "})
	assert.Error(t, err)

	msgs, err := c.DirectMessages.Conversation(ctx, 9)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "there", msgs[1].Content)

	require.NoError(t, c.DirectMessages.MarkConversationRead(ctx, 9))
	assert.Len(t, seen.all(), 3)
}

func TestPublicEndpointsSendNoCredentials(t *testing.T) {
	srv, seen := newAPIServer(t, map[string]string{
		"GET /events/public_events/":         `{"count":1,"results":[{"id":3,"title":"Harusi ya Juma"}]}`,
		"GET /event-types/":                  `{"count":1,"results":[{"id":1,"name":"Wedding","slug":"wedding"}]}`,
		"GET /admin/public/partners/":        `[{"id":1,"name":"Bank"}]`,
		"GET /admin/public/trusted-clients/": `[{"id":2,"name":"Neema","quote":"Great"}]`,
		"GET /public/config/":                `{"currency":"TZS"}`,
	})
	c := NewClient("tok", WithBaseURL(srv.URL))
	ctx := context.Background()

	events, err := c.Public.Events(ctx, &PublicEventsOptions{Page: 1, EventType: "wedding", Search: "juma"})
	require.NoError(t, err)
	assert.Equal(t, "Harusi ya Juma", events.Results[0].Title)

	types, err := c.Public.EventTypes(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "wedding", types.Results[0].Slug)

	partners, err := c.Public.Partners(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bank", partners[0].Name)

	clients, err := c.Public.TrustedClients(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Great", clients[0].Quote)

	cfg, err := c.Public.Config(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"currency":"TZS"}`, string(cfg))

	reqs := seen.all()
	assert.Equal(t, "event_type=wedding&page=1&search=juma", reqs[0].Query)
	assert.Empty(t, reqs[1].Query)
	for _, r := range reqs {
		assert.Empty(t, r.Auth, r.Path)
	}
}

func TestAnnouncementsAndInvitations(t *testing.T) {
	srv, seen := newAPIServer(t, map[string]string{
		"GET /announcements/":       `{"count":1,"results":[{"id":1,"event":12,"title":"Venue moved"}]}`,
		"POST /announcements/":      `{"id":2,"event":12,"title":"Dress code"}`,
		"PATCH /announcements/2/":   `{"id":2,"event":12,"title":"Dress code","is_pinned":true}`,
		"GET /invitations/":         `{"count":0,"results":[]}`,
		"POST /invitations/5/send/": `{"id":5,"status":"sent"}`,
	})
	c := NewClient("tok", WithBaseURL(srv.URL))
	ctx := context.Background()

	list, err := c.Announcements.List(ctx, &ListOptions{Event: 12})
	require.NoError(t, err)
	assert.Equal(t, "Venue moved", list.Results[0].Title)

	created, err := c.Announcements.Create(ctx, &AnnouncementPayload{Event: 12, Title: "Dress code", Content: "Kitenge"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), created.ID)

	pinned := true
	patched, err := c.Announcements.Patch(ctx, 2, &AnnouncementPayload{IsPinned: &pinned})
	require.NoError(t, err)
	assert.True(t, patched.IsPinned)

	invites, err := c.Invitations.List(ctx, &ListOptions{Page: 1, Event: 12})
	require.NoError(t, err)
	assert.Empty(t, invites.Results)

	sent, err := c.Invitations.Send(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "sent", sent.Status)

	reqs := seen.all()
	assert.Equal(t, "event=12", reqs[0].Query)
	assert.Equal(t, map[string]any{"is_pinned": true}, reqs[2].Body)
	assert.Equal(t, "event=12&page=1", reqs[3].Query)
}

func TestInvitationTemplatesClient(t *testing.T) {
	srv, seen := newAPIServer(t, map[string]string{
		"GET /invitation-templates/":                   `{"count":1,"next":null,"previous":null,"results":[{"id":3,"name":"Harusi Gold","category":"WEDDING","is_premium":true}]}`,
		"GET /invitation-templates/3/":                 `{"id":3,"name":"Harusi Gold","slug":"harusi-gold","primary_color":"#c9a227"}`,
		"GET /invitation-templates/categories/":        `["WEDDING",{"category":"SENDOFF","category_display":"Send-off"}]`,
		"GET /invitation-templates/by_category/":       `{"results":[{"id":3,"category":"WEDDING"}]}`,
		"GET /invitation-templates/free_templates/":    `[{"id":4,"name":"Simple","is_premium":false}]`,
		"GET /invitation-templates/premium_templates/": `{"count":1,"results":[{"id":3,"is_premium":true}]}`,
	})
	c := NewClient("tok", WithBaseURL(srv.URL))
	ctx := context.Background()

	page, err := c.InvitationTemplates.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "Harusi Gold", page.Results[0].Name)
	assert.True(t, page.Results[0].IsPremium)

	tpl, err := c.InvitationTemplates.Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "harusi-gold", tpl.Slug)
	assert.Equal(t, "#c9a227", tpl.PrimaryColor)

	cats, err := c.InvitationTemplates.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []TemplateCategory{
		{Category: "WEDDING", CategoryDisplay: "WEDDING"},
		{Category: "SENDOFF", CategoryDisplay: "Send-off"},
	}, cats)

	byCat, err := c.InvitationTemplates.ByCategory(ctx, "WEDDING")
	require.NoError(t, err)
	require.Len(t, byCat, 1)
	assert.Equal(t, int64(3), byCat[0].ID)

	free, err := c.InvitationTemplates.Free(ctx)
	require.NoError(t, err)
	require.Len(t, free, 1)
	assert.Equal(t, "Simple", free[0].Name)

	premium, err := c.InvitationTemplates.Premium(ctx)
	require.NoError(t, err)
	require.Len(t, premium, 1)
	assert.True(t, premium[0].IsPremium)

	reqs := seen.all()
	require.Len(t, reqs, 6)
	assert.Equal(t, "page=2", reqs[0].Query)
	assert.Equal(t, "category=WEDDING", reqs[3].Query)
	for _, r := range reqs {
		assert.Equal(t, "Bearer tok", r.Auth)
	}
}

func TestClientSetTokenAppliesToRequests(t *testing.T) {
	srv, seen := newAPIServer(t, map[string]string{
		"GET /inbox/unread_count/": `{"count":0}`,
	})
	c := NewClient("old", WithBaseURL(srv.URL))

	_, err := c.Inbox.UnreadCount(context.Background())
	require.NoError(t, err)
	c.SetToken("new")
	_, err = c.Inbox.UnreadCount(context.Background())
	require.NoError(t, err)

	reqs := seen.all()
	require.Len(t, reqs, 2)
	assert.Equal(t, "Bearer old", reqs[0].Auth)
	assert.Equal(t, "Bearer new", reqs[1].Auth)
}

func TestAuthClient(t *testing.T) {
	srv, seen := newAPIServer(t, map[string]string{
		"POST /auth/request-otp/":   `{}`,
		"POST /auth/verify-otp/":    `{"success":true,"data":{"access_token":"acc","refresh":"ref"}}`,
		"POST /auth/social/google/": `{"access":"g-acc","refresh":"g-ref"}`,
		"POST /auth/logout/":        `{}`,
	})
	c := NewClient("", WithBaseURL(srv.URL))
	ctx := context.Background()

	require.NoError(t, c.Auth.RequestOTP(ctx, " +255700000001 "))
	assert.Equal(t, "+255700000001", seen.all()[0].Body["phone"])

	res, err := c.Auth.VerifyOTP(ctx, "+255700000001", " 123456 ")
	require.NoError(t, err)
	assert.Equal(t, Tokens{Access: "acc", Refresh: "ref"}, res.Tokens())
	assert.Equal(t, "123456", seen.all()[1].Body["code"])

	_, err = c.Auth.SignInWithGoogle(ctx, GoogleCredential{})
	assert.Error(t, err)
	tokens, err := c.Auth.SignInWithGoogle(ctx, GoogleCredential{IDToken: "jwt"})
	require.NoError(t, err)
	assert.Equal(t, "g-acc", tokens.Access)

	c.SetToken(tokens.Access)
	require.NoError(t, c.Auth.Logout(ctx, tokens.Refresh))
	reqs := seen.all()
	last := reqs[len(reqs)-1]
	assert.Equal(t, "Bearer g-acc", last.Auth)
	assert.Equal(t, "g-ref", last.Body["refresh"])
}

func TestAPIErrors(t *testing.T) {
	srv, _ := newAPIServer(t, map[string]string{
		"GET /inbox/unread_count/": "401",
	})
	c := NewClient("stale", WithBaseURL(srv.URL))
	ctx := context.Background()

	_, err := c.Inbox.UnreadCount(ctx)
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, "API 401: Unauthorized", err.Error())

	_, err = c.Inbox.Get(ctx, 99)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsUnauthorized(err))
}

func TestTokenSourceConsultedPerRequest(t *testing.T) {
	srv, seen := newAPIServer(t, map[string]string{"GET /inbox/unread_count/": `{"count":0}`})
	token := "one"
	c := NewClient("", WithBaseURL(srv.URL), WithTokenSource(TokenFunc(func() string { return token })))

	_, _ = c.Inbox.UnreadCount(context.Background())
	token = "two"
	_, _ = c.Inbox.UnreadCount(context.Background())

	assert.Equal(t, "Bearer one", seen.all()[0].Auth)
	assert.Equal(t, "Bearer two", seen.all()[1].Auth)
}
