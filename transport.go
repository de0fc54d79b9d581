package ahadi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"nhooyr.io/websocket"
)

// Close codes with special meaning to Socket.
const (
	CloseNormal       = 1000
	CloseAbnormal     = 1006
	CloseUnauthorized = 4001
	CloseForbidden    = 4003
)

// Dialer opens transports. The default is WebSocketDialer.
type Dialer interface {
	Dial(ctx context.Context, url string) (Transport, error)
}

// Transport is one open bidirectional text-frame connection.
//
// Read blocks until a frame arrives. When the peer closes the connection,
// Read returns a *CloseError carrying the close code; any other error is
// treated as a transport failure.
type Transport interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close(code int, reason string) error
}

// CloseError reports a close frame received from the peer.
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("websocket closed: %d %s", e.Code, e.Reason)
}

// ============================================================================
// nhooyr.io/websocket transport
// ============================================================================

// WebSocketDialer dials with nhooyr.io/websocket.
type WebSocketDialer struct {
	HTTPClient       *http.Client
	HandshakeTimeout time.Duration
	ReadLimit        int64
}

func (d *WebSocketDialer) Dial(ctx context.Context, url string) (Transport, error) {
	timeout := d.HandshakeTimeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var opts *websocket.DialOptions
	if d.HTTPClient != nil {
		// nhooyr rejects clients with a Timeout set; the handshake has its own deadline.
		hc := *d.HTTPClient
		hc.Timeout = 0
		opts = &websocket.DialOptions{HTTPClient: &hc}
	}

	conn, _, err := websocket.Dial(dialCtx, url, opts)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	limit := d.ReadLimit
	if limit == 0 {
		limit = 1 << 20
	}
	conn.SetReadLimit(limit)
	return &wsTransport{conn: conn}, nil
}

type wsTransport struct {
	conn *websocket.Conn
}

func (t *wsTransport) Read(ctx context.Context) ([]byte, error) {
	_, data, err := t.conn.Read(ctx)
	if err != nil {
		var ce websocket.CloseError
		if errors.As(err, &ce) {
			return nil, &CloseError{Code: int(ce.Code), Reason: ce.Reason}
		}
		return nil, err
	}
	return data, nil
}

func (t *wsTransport) Write(ctx context.Context, data []byte) error {
	return t.conn.Write(ctx, websocket.MessageText, data)
}

// Close starts the close handshake without waiting for the peer.
func (t *wsTransport) Close(code int, reason string) error {
	go t.conn.Close(websocket.StatusCode(code), reason)
	return nil
}
