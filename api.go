package ahadi

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/yanun0323/errors"
)

const (
	inboxPrefix          = "inbox"
	directMessagesPrefix = "direct-messages"
	announcementsPrefix  = "announcements"
	invitationsPrefix    = "invitations"
	templatesPrefix      = "invitation-templates"
	publicPrefix         = "public"
	adminPublicPrefix    = "admin/public"
	authPrefix           = "auth"
)

func resourcePath(prefix string, parts ...string) string {
	p := prefix + "/"
	for _, part := range parts {
		p += url.PathEscape(part) + "/"
	}
	return p
}

func idString(id int64) string { return strconv.FormatInt(id, 10) }

func listQuery(opts *ListOptions) url.Values {
	if opts == nil {
		return nil
	}
	q := url.Values{}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Event > 0 {
		q.Set("event", idString(opts.Event))
	}
	return q
}

func getAuthed[T any](ctx context.Context, c *Client, path string, query url.Values) (*T, error) {
	data, err := c.GetWithAuth(ctx, path, query)
	if err != nil {
		return nil, err
	}
	return decodeJSON[T](data)
}

func getPublic[T any](ctx context.Context, c *Client, path string, query url.Values) (*T, error) {
	data, err := c.Get(ctx, path, query)
	if err != nil {
		return nil, err
	}
	return decodeJSON[T](data)
}

func send[T any](ctx context.Context, c *Client, method, path string, body any) (*T, error) {
	var (
		data []byte
		err  error
	)
	switch method {
	case "POST":
		data, err = c.Post(ctx, path, body)
	case "PUT":
		data, err = c.Put(ctx, path, body)
	case "PATCH":
		data, err = c.Patch(ctx, path, body)
	default:
		return nil, errors.Errorf("unsupported method %s", method)
	}
	if err != nil {
		return nil, err
	}
	return decodeJSON[T](data)
}

// ============================================================================
// Inbox
// ============================================================================

// InboxClient reads and manages the current user's inbox.
type InboxClient struct{ c *Client }

func (i *InboxClient) List(ctx context.Context, opts *ListOptions) (*Page[InboxMessage], error) {
	return getAuthed[Page[InboxMessage]](ctx, i.c, resourcePath(inboxPrefix), listQuery(opts))
}

func (i *InboxClient) Get(ctx context.Context, id int64) (*InboxMessage, error) {
	return getAuthed[InboxMessage](ctx, i.c, resourcePath(inboxPrefix, idString(id)), nil)
}

func (i *InboxClient) Create(ctx context.Context, p *InboxPayload) (*InboxMessage, error) {
	return send[InboxMessage](ctx, i.c, "POST", resourcePath(inboxPrefix), p)
}

func (i *InboxClient) Update(ctx context.Context, id int64, p *InboxPayload) (*InboxMessage, error) {
	return send[InboxMessage](ctx, i.c, "PUT", resourcePath(inboxPrefix, idString(id)), p)
}

func (i *InboxClient) Patch(ctx context.Context, id int64, p *InboxPayload) (*InboxMessage, error) {
	return send[InboxMessage](ctx, i.c, "PATCH", resourcePath(inboxPrefix, idString(id)), p)
}

func (i *InboxClient) Delete(ctx context.Context, id int64) error {
	_, err := i.c.Delete(ctx, resourcePath(inboxPrefix, idString(id)))
	return err
}

// MarkRead marks one message read.
func (i *InboxClient) MarkRead(ctx context.Context, id int64) (*InboxMessage, error) {
	return send[InboxMessage](ctx, i.c, "POST", resourcePath(inboxPrefix, idString(id), "mark_read"), struct{}{})
}

// UnreadCount returns the number of unread messages.
func (i *InboxClient) UnreadCount(ctx context.Context) (int, error) {
	res, err := getAuthed[struct {
		Count int `json:"count"`
	}](ctx, i.c, resourcePath(inboxPrefix, "unread_count"), nil)
	if err != nil {
		return 0, err
	}
	return res.Count, nil
}

// Conversations lists messages grouped by conversation partner.
func (i *InboxClient) Conversations(ctx context.Context) ([]InboxConversation, error) {
	data, err := i.c.GetWithAuth(ctx, resourcePath(inboxPrefix, "conversations"), nil)
	if err != nil {
		return nil, err
	}
	return decodeList[InboxConversation](data)
}

func (i *InboxClient) MarkAllRead(ctx context.Context) error {
	_, err := i.c.Post(ctx, resourcePath(inboxPrefix, "mark_all_read"), struct{}{})
	return err
}

// ============================================================================
// Direct messages
// ============================================================================

// DirectMessagesClient sends and reads one-to-one messages over REST.
type DirectMessagesClient struct{ c *Client }

// Send posts a direct message. An empty title becomes DefaultDMTitle.
func (d *DirectMessagesClient) Send(ctx context.Context, p *SendDirectMessagePayload) (json.RawMessage, error) {
	if p == nil || p.RecipientID <= 0 {
		return nil, errors.New("recipient_id is required")
	}
	if strings.TrimSpace(p.Content) == "" {
		return nil, errors.New("content is required")
	}
	body := *p
	if body.Title == "" {
		body.Title = DefaultDMTitle
	}
	data, err := d.c.Post(ctx, resourcePath(directMessagesPrefix), &body)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

// Conversation returns the message history with userID.
func (d *DirectMessagesClient) Conversation(ctx context.Context, userID int64) ([]ConversationMessage, error) {
	data, err := d.c.GetWithAuth(ctx, resourcePath(directMessagesPrefix, "conversation", idString(userID)), nil)
	if err != nil {
		return nil, err
	}
	return decodeList[ConversationMessage](data)
}

// MarkConversationRead marks every message from userID read.
func (d *DirectMessagesClient) MarkConversationRead(ctx context.Context, userID int64) error {
	_, err := d.c.Post(ctx, resourcePath(directMessagesPrefix, "conversation", idString(userID), "read"), struct{}{})
	return err
}

// ============================================================================
// Announcements
// ============================================================================

type AnnouncementsClient struct{ c *Client }

func (a *AnnouncementsClient) List(ctx context.Context, opts *ListOptions) (*Page[Announcement], error) {
	return getAuthed[Page[Announcement]](ctx, a.c, resourcePath(announcementsPrefix), listQuery(opts))
}

func (a *AnnouncementsClient) Get(ctx context.Context, id int64) (*Announcement, error) {
	return getAuthed[Announcement](ctx, a.c, resourcePath(announcementsPrefix, idString(id)), nil)
}

func (a *AnnouncementsClient) Create(ctx context.Context, p *AnnouncementPayload) (*Announcement, error) {
	return send[Announcement](ctx, a.c, "POST", resourcePath(announcementsPrefix), p)
}

func (a *AnnouncementsClient) Update(ctx context.Context, id int64, p *AnnouncementPayload) (*Announcement, error) {
	return send[Announcement](ctx, a.c, "PUT", resourcePath(announcementsPrefix, idString(id)), p)
}

func (a *AnnouncementsClient) Patch(ctx context.Context, id int64, p *AnnouncementPayload) (*Announcement, error) {
	return send[Announcement](ctx, a.c, "PATCH", resourcePath(announcementsPrefix, idString(id)), p)
}

func (a *AnnouncementsClient) Delete(ctx context.Context, id int64) error {
	_, err := a.c.Delete(ctx, resourcePath(announcementsPrefix, idString(id)))
	return err
}

// ============================================================================
// Invitations
// ============================================================================

type InvitationsClient struct{ c *Client }

func (v *InvitationsClient) List(ctx context.Context, opts *ListOptions) (*Page[Invitation], error) {
	return getAuthed[Page[Invitation]](ctx, v.c, resourcePath(invitationsPrefix), listQuery(opts))
}

func (v *InvitationsClient) Get(ctx context.Context, id int64) (*Invitation, error) {
	return getAuthed[Invitation](ctx, v.c, resourcePath(invitationsPrefix, idString(id)), nil)
}

func (v *InvitationsClient) Create(ctx context.Context, p *InvitationPayload) (*Invitation, error) {
	return send[Invitation](ctx, v.c, "POST", resourcePath(invitationsPrefix), p)
}

func (v *InvitationsClient) Update(ctx context.Context, id int64, p *InvitationPayload) (*Invitation, error) {
	return send[Invitation](ctx, v.c, "PUT", resourcePath(invitationsPrefix, idString(id)), p)
}

func (v *InvitationsClient) Patch(ctx context.Context, id int64, p *InvitationPayload) (*Invitation, error) {
	return send[Invitation](ctx, v.c, "PATCH", resourcePath(invitationsPrefix, idString(id)), p)
}

func (v *InvitationsClient) Delete(ctx context.Context, id int64) error {
	_, err := v.c.Delete(ctx, resourcePath(invitationsPrefix, idString(id)))
	return err
}

// Send delivers an invitation to its participant.
func (v *InvitationsClient) Send(ctx context.Context, id int64) (*Invitation, error) {
	return send[Invitation](ctx, v.c, "POST", resourcePath(invitationsPrefix, idString(id), "send"), struct{}{})
}

// ============================================================================
// Invitation templates
// ============================================================================

type InvitationTemplatesClient struct{ c *Client }

// List returns active templates, one page at a time.
func (v *InvitationTemplatesClient) List(ctx context.Context, page int) (*Page[InvitationTemplate], error) {
	return getAuthed[Page[InvitationTemplate]](ctx, v.c, resourcePath(templatesPrefix), listQuery(&ListOptions{Page: page}))
}

func (v *InvitationTemplatesClient) Get(ctx context.Context, id int64) (*InvitationTemplate, error) {
	return getAuthed[InvitationTemplate](ctx, v.c, resourcePath(templatesPrefix, idString(id)), nil)
}

func (v *InvitationTemplatesClient) Categories(ctx context.Context) ([]TemplateCategory, error) {
	data, err := v.c.GetWithAuth(ctx, resourcePath(templatesPrefix, "categories"), nil)
	if err != nil {
		return nil, err
	}
	return decodeList[TemplateCategory](data)
}

// ByCategory filters templates by category code, e.g. "WEDDING".
func (v *InvitationTemplatesClient) ByCategory(ctx context.Context, category string) ([]InvitationTemplate, error) {
	return v.list(ctx, "by_category", url.Values{"category": {category}})
}

func (v *InvitationTemplatesClient) Free(ctx context.Context) ([]InvitationTemplate, error) {
	return v.list(ctx, "free_templates", nil)
}

func (v *InvitationTemplatesClient) Premium(ctx context.Context) ([]InvitationTemplate, error) {
	return v.list(ctx, "premium_templates", nil)
}

func (v *InvitationTemplatesClient) list(ctx context.Context, action string, query url.Values) ([]InvitationTemplate, error) {
	data, err := v.c.GetWithAuth(ctx, resourcePath(templatesPrefix, action), query)
	if err != nil {
		return nil, err
	}
	return decodeList[InvitationTemplate](data)
}

// ============================================================================
// Public catalogue (no credentials)
// ============================================================================

type PublicClient struct{ c *Client }

func (p *PublicClient) Config(ctx context.Context) (json.RawMessage, error) {
	return p.raw(ctx, resourcePath(publicPrefix, "config"))
}

func (p *PublicClient) Info(ctx context.Context) (json.RawMessage, error) {
	return p.raw(ctx, resourcePath(publicPrefix, "info"))
}

func (p *PublicClient) Plans(ctx context.Context) (json.RawMessage, error) {
	return p.raw(ctx, resourcePath(publicPrefix, "plans"))
}

func (p *PublicClient) raw(ctx context.Context, path string) (json.RawMessage, error) {
	data, err := p.c.Get(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

func (p *PublicClient) TrustedClients(ctx context.Context) ([]TrustedClient, error) {
	data, err := p.c.Get(ctx, resourcePath(adminPublicPrefix, "trusted-clients"), nil)
	if err != nil {
		return nil, err
	}
	return decodeList[TrustedClient](data)
}

func (p *PublicClient) Partners(ctx context.Context) ([]Partner, error) {
	data, err := p.c.Get(ctx, resourcePath(adminPublicPrefix, "partners"), nil)
	if err != nil {
		return nil, err
	}
	return decodeList[Partner](data)
}

// Events lists publicly visible events.
func (p *PublicClient) Events(ctx context.Context, opts *PublicEventsOptions) (*Page[PublicEvent], error) {
	var q url.Values
	if opts != nil {
		q = url.Values{}
		if opts.Page > 0 {
			q.Set("page", strconv.Itoa(opts.Page))
		}
		if opts.EventType != "" {
			q.Set("event_type", opts.EventType)
		}
		if opts.Search != "" {
			q.Set("search", opts.Search)
		}
	}
	return getPublic[Page[PublicEvent]](ctx, p.c, "events/public_events/", q)
}

func (p *PublicClient) EventTypes(ctx context.Context, page int) (*Page[EventType], error) {
	var q url.Values
	if page > 0 {
		q = url.Values{"page": {strconv.Itoa(page)}}
	}
	return getPublic[Page[EventType]](ctx, p.c, "event-types/", q)
}

// ============================================================================
// Auth
// ============================================================================

type AuthClient struct{ c *Client }

// GoogleCredential carries exactly one of IDToken or AccessToken.
type GoogleCredential struct {
	IDToken     string
	AccessToken string
}

func (a *AuthClient) SignInWithGoogle(ctx context.Context, cred GoogleCredential) (*Tokens, error) {
	var body map[string]string
	switch {
	case cred.IDToken != "":
		body = map[string]string{"id_token": cred.IDToken}
	case cred.AccessToken != "":
		body = map[string]string{"access_token": cred.AccessToken}
	default:
		return nil, errors.New("either id_token or access_token is required")
	}
	return send[Tokens](ctx, a.c, "POST", resourcePath(authPrefix, "social", "google"), body)
}

// RequestOTP asks the backend to text a one-time code to phone.
func (a *AuthClient) RequestOTP(ctx context.Context, phone string) error {
	_, err := a.c.Post(ctx, resourcePath(authPrefix, "request-otp"), map[string]string{"phone": strings.TrimSpace(phone)})
	return err
}

// VerifyOTP exchanges a one-time code for tokens.
func (a *AuthClient) VerifyOTP(ctx context.Context, phone, code string) (*VerifyOTPResult, error) {
	return send[VerifyOTPResult](ctx, a.c, "POST", resourcePath(authPrefix, "verify-otp"), map[string]string{
		"phone": strings.TrimSpace(phone),
		"code":  strings.TrimSpace(code),
	})
}

// Logout blacklists the refresh token.
func (a *AuthClient) Logout(ctx context.Context, refreshToken string) error {
	_, err := a.c.Post(ctx, resourcePath(authPrefix, "logout"), map[string]string{"refresh": refreshToken})
	return err
}
