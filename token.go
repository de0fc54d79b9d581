package ahadi

// TokenSource supplies the current access token. It is consulted on every
// connect attempt and every authenticated request, so a refreshed token is
// picked up without rebuilding sockets.
type TokenSource interface {
	AccessToken() string
}

// StaticToken is a fixed token.
type StaticToken string

func (t StaticToken) AccessToken() string { return string(t) }

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

func (f TokenFunc) AccessToken() string {
	if f == nil {
		return ""
	}
	return f()
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
