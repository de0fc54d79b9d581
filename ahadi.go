// Package ahadi provides a Go client for the Ahadi event-management backend.
//
// It covers the REST API (inbox, direct messages, announcements,
// invitations and their templates, public catalogue, auth) and the
// real-time WebSocket channels (direct-message chat, event chat, and
// notification feeds).
//
// Example:
//
//	client := ahadi.NewClient(token, ahadi.WithBaseURL("https://api.example.com/api/v1"))
//
//	// REST
//	count, _ := client.Inbox.UnreadCount(ctx)
//
//	// Real-time
//	chat := client.Realtime().DMChat(42)
//	defer chat.Close()
//	chat.OnMessage(func(m ahadi.DMChatMessage) { fmt.Println(m.Content) })
//	chat.SendMessage("Hello!", "")
package ahadi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/yanun0323/errors"
)

const (
	DefaultTimeout = 30 * time.Second
)

// ============================================================================
// Client
// ============================================================================

// Client is the entry point for REST and real-time access.
type Client struct {
	baseURL    string
	wsBaseURL  string
	tokenMu    sync.RWMutex
	tokens     TokenSource
	httpClient *http.Client
	dialer     Dialer
	clock      Clock
	logger     Logger

	Inbox               *InboxClient
	DirectMessages      *DirectMessagesClient
	Announcements       *AnnouncementsClient
	Invitations         *InvitationsClient
	InvitationTemplates *InvitationTemplatesClient
	Public              *PublicClient
	Auth                *AuthClient

	realtime *RealtimeClient
}

type ClientOption func(*Client)

// WithBaseURL sets the REST base URL, e.g. "https://api.example.com/api/v1".
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithWebSocketBaseURL sets the WebSocket base URL. When unset it is derived
// from the REST base URL's scheme and host.
func WithWebSocketBaseURL(u string) ClientOption {
	return func(c *Client) { c.wsBaseURL = strings.TrimRight(u, "/") }
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = client }
}

// WithTokenSource replaces the static token given to NewClient.
func WithTokenSource(ts TokenSource) ClientOption {
	return func(c *Client) { c.tokens = ts }
}

// WithDialer sets the transport used by real-time sockets.
func WithDialer(d Dialer) ClientOption {
	return func(c *Client) { c.dialer = d }
}

func WithClock(clock Clock) ClientOption {
	return func(c *Client) { c.clock = clock }
}

func WithLogger(l Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a new client. token is optional; pass "" for
// anonymous access to the public endpoints.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		tokens: StaticToken(token),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		clock:  SystemClock(),
		logger: NopLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.dialer == nil {
		c.dialer = &WebSocketDialer{HTTPClient: c.httpClient}
	}

	c.Inbox = &InboxClient{c: c}
	c.DirectMessages = &DirectMessagesClient{c: c}
	c.Announcements = &AnnouncementsClient{c: c}
	c.Invitations = &InvitationsClient{c: c}
	c.InvitationTemplates = &InvitationTemplatesClient{c: c}
	c.Public = &PublicClient{c: c}
	c.Auth = &AuthClient{c: c}
	c.realtime = &RealtimeClient{c: c}
	return c
}

// SetToken replaces the token source with a static token.
// Useful after OTP verification returns a fresh access token.
// Open sockets pick it up on their next reconnect.
func (c *Client) SetToken(token string) {
	c.tokenMu.Lock()
	c.tokens = StaticToken(token)
	c.tokenMu.Unlock()
}

func (c *Client) tokenSource() TokenSource {
	c.tokenMu.RLock()
	defer c.tokenMu.RUnlock()
	return c.tokens
}

// BaseURL returns the configured REST base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// WebSocketBaseURL returns the configured or derived WebSocket base URL.
func (c *Client) WebSocketBaseURL() string {
	if c.wsBaseURL != "" {
		return c.wsBaseURL
	}
	return deriveWebSocketBase(c.baseURL)
}

// Realtime returns the real-time channel factory.
func (c *Client) Realtime() *RealtimeClient {
	return c.realtime
}

func deriveWebSocketBase(restBase string) string {
	if restBase == "" {
		return ""
	}
	u, err := url.Parse(restBase)
	if err != nil || u.Host == "" {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	return u.Scheme + "://" + u.Host
}

// ============================================================================
// Request helpers
// ============================================================================

// Get performs an unauthenticated GET.
func (c *Client) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.doRequest(ctx, http.MethodGet, path, nil, query, false)
}

// GetWithAuth performs a GET carrying the bearer token.
func (c *Client) GetWithAuth(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.doRequest(ctx, http.MethodGet, path, nil, query, true)
}

func (c *Client) Post(ctx context.Context, path string, body any) ([]byte, error) {
	return c.doRequest(ctx, http.MethodPost, path, body, nil, true)
}

func (c *Client) Put(ctx context.Context, path string, body any) ([]byte, error) {
	return c.doRequest(ctx, http.MethodPut, path, body, nil, true)
}

func (c *Client) Patch(ctx context.Context, path string, body any) ([]byte, error) {
	return c.doRequest(ctx, http.MethodPatch, path, body, nil, true)
}

func (c *Client) Delete(ctx context.Context, path string) ([]byte, error) {
	return c.doRequest(ctx, http.MethodDelete, path, nil, nil, true)
}

func (c *Client) apiURL(path string, query url.Values) (string, error) {
	if c.baseURL == "" {
		return "", errors.New("api base URL not configured")
	}
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, query url.Values, auth bool) ([]byte, error) {
	u, err := c.apiURL(path, query)
	if err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "marshal request")
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		if token := c.tokenSource().AccessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Debugf("ahadi: %s %s -> %d", method, path, resp.StatusCode)
		return nil, &APIError{StatusCode: resp.StatusCode, Status: http.StatusText(resp.StatusCode), Body: string(data)}
	}
	return data, nil
}

func decodeJSON[T any](data []byte) (*T, error) {
	var result T
	if len(bytes.TrimSpace(data)) == 0 {
		return &result, nil
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrap(err, "unmarshal response")
	}
	return &result, nil
}

// decodeList accepts either a bare JSON array or an object carrying a
// "results" array.
func decodeList[T any](data []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, errors.Wrap(err, "unmarshal list")
		}
		return items, nil
	}
	var page struct {
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, errors.Wrap(err, "unmarshal list")
	}
	return page.Results, nil
}
