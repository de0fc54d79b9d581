package ahadi

import (
	"bytes"
	"encoding/json"
)

// ============================================================================
// Pagination
// ============================================================================

// Page is a paginated list response.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// HasNext reports whether another page follows.
func (p *Page[T]) HasNext() bool { return p.Next != nil && *p.Next != "" }

// ListOptions filters list endpoints. Zero values are omitted.
type ListOptions struct {
	Page  int
	Event int64
}

// ============================================================================
// Inbox
// ============================================================================

type InboxMessage struct {
	ID                 int64   `json:"id"`
	Sender             int64   `json:"sender"`
	SenderID           int64   `json:"sender_id"`
	SenderName         string  `json:"sender_name"`
	Recipient          int64   `json:"recipient"`
	RecipientID        int64   `json:"recipient_id"`
	RecipientName      string  `json:"recipient_name"`
	Event              *int64  `json:"event"`
	EventTitle         *string `json:"event_title"`
	MessageType        string  `json:"message_type"`
	MessageTypeDisplay string  `json:"message_type_display"`
	Title              string  `json:"title"`
	Content            string  `json:"content"`
	CardImageURL       *string `json:"card_image_url"`
	CardPDFURL         *string `json:"card_pdf_url"`
	MediaURL           string  `json:"media_url"`
	IsRead             bool    `json:"is_read"`
	ReadAt             *string `json:"read_at"`
	CreatedAt          string  `json:"created_at"`
}

// InboxPayload creates or updates an inbox message. Zero values are omitted.
type InboxPayload struct {
	Event       int64  `json:"event,omitempty"`
	MessageType string `json:"message_type,omitempty"`
	Title       string `json:"title,omitempty"`
	Content     string `json:"content,omitempty"`
	MediaURL    string `json:"media_url,omitempty"`
	IsRead      *bool  `json:"is_read,omitempty"`
	ReadAt      string `json:"read_at,omitempty"`
}

// InboxConversation is one conversation partner. The backend names the
// partner fields inconsistently; use PartnerUserID and PartnerUserName.
type InboxConversation struct {
	PartnerID       *int64         `json:"partner_id,omitempty"`
	PartnerName     string         `json:"partner_name,omitempty"`
	OtherUserID     *int64         `json:"other_user_id,omitempty"`
	OtherPartyID    *int64         `json:"other_party_id,omitempty"`
	OtherUserName   string         `json:"other_user_name,omitempty"`
	OtherPartyName  string         `json:"other_party_name,omitempty"`
	LastMessage     string         `json:"last_message,omitempty"`
	LastMessageTime string         `json:"last_message_time,omitempty"`
	LastMessageAt   string         `json:"last_message_at,omitempty"`
	UnreadCount     int            `json:"unread_count,omitempty"`
	Messages        []InboxMessage `json:"messages,omitempty"`
}

func (c InboxConversation) PartnerUserID() int64 {
	for _, id := range []*int64{c.PartnerID, c.OtherUserID, c.OtherPartyID} {
		if id != nil {
			return *id
		}
	}
	return 0
}

func (c InboxConversation) PartnerUserName() string {
	for _, name := range []string{c.PartnerName, c.OtherUserName, c.OtherPartyName} {
		if name != "" {
			return name
		}
	}
	return ""
}

// ============================================================================
// Direct messages
// ============================================================================

type SendDirectMessagePayload struct {
	RecipientID int64  `json:"recipient_id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	EventID     int64  `json:"event_id,omitempty"`
}

type ConversationMessage struct {
	ID            int64  `json:"id"`
	Sender        int64  `json:"sender,omitempty"`
	SenderID      int64  `json:"sender_id,omitempty"`
	SenderName    string `json:"sender_name,omitempty"`
	Recipient     int64  `json:"recipient,omitempty"`
	RecipientID   int64  `json:"recipient_id,omitempty"`
	RecipientName string `json:"recipient_name,omitempty"`
	Title         string `json:"title,omitempty"`
	Content       string `json:"content,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
	IsRead        bool   `json:"is_read,omitempty"`
}

// ============================================================================
// Announcements & invitations
// ============================================================================

type Announcement struct {
	ID               int64  `json:"id"`
	Event            int64  `json:"event"`
	Author           int64  `json:"author"`
	AuthorName       string `json:"author_name"`
	Title            string `json:"title"`
	Content          string `json:"content"`
	IsPinned         bool   `json:"is_pinned"`
	SendNotification bool   `json:"send_notification"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

type AnnouncementPayload struct {
	Event            int64  `json:"event,omitempty"`
	Title            string `json:"title,omitempty"`
	Content          string `json:"content,omitempty"`
	IsPinned         *bool  `json:"is_pinned,omitempty"`
	SendNotification *bool  `json:"send_notification,omitempty"`
}

type Invitation struct {
	ID               int64   `json:"id"`
	Event            int64   `json:"event"`
	Participant      int64   `json:"participant"`
	ParticipantName  string  `json:"participant_name"`
	ParticipantPhone string  `json:"participant_phone"`
	Message          string  `json:"message"`
	Template         string  `json:"template"`
	Status           string  `json:"status"`
	SentVia          string  `json:"sent_via"`
	SentAt           *string `json:"sent_at"`
	ViewedAt         *string `json:"viewed_at"`
	PDFURL           string  `json:"pdf_url"`
	ShareLink        string  `json:"share_link"`
	ShortCode        string  `json:"short_code"`
	CreatedAt        string  `json:"created_at"`
}

// InvitationTemplate is an invitation card design.
type InvitationTemplate struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Slug            string `json:"slug"`
	Description     string `json:"description"`
	Category        string `json:"category"`
	CategoryDisplay string `json:"category_display"`
	TemplateType    string `json:"template_type"`
	CanvasStyle     string `json:"canvas_style"`
	DesignConfig    string `json:"design_config"`
	PrimaryColor    string `json:"primary_color"`
	SecondaryColor  string `json:"secondary_color"`
	AccentColor     string `json:"accent_color"`
	FontFamily      string `json:"font_family"`
	PreviewImage    string `json:"preview_image"`
	PreviewImageURL string `json:"preview_image_url"`
	IsActive        bool   `json:"is_active"`
	IsPremium       bool   `json:"is_premium"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

// TemplateCategory is one entry of the template category listing. The
// server sends either bare category codes or objects; a bare code fills
// both Category and CategoryDisplay.
type TemplateCategory struct {
	ID              int64  `json:"id,omitempty"`
	Category        string `json:"category,omitempty"`
	CategoryDisplay string `json:"category_display,omitempty"`
	Name            string `json:"name,omitempty"`
}

func (c *TemplateCategory) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var code string
		if err := json.Unmarshal(b, &code); err != nil {
			return err
		}
		*c = TemplateCategory{Category: code, CategoryDisplay: code}
		return nil
	}
	type plain TemplateCategory
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*c = TemplateCategory(p)
	return nil
}

type InvitationPayload struct {
	Event       int64  `json:"event,omitempty"`
	Participant int64  `json:"participant,omitempty"`
	Message     string `json:"message,omitempty"`
	Template    string `json:"template,omitempty"`
	Status      string `json:"status,omitempty"`
	SentVia     string `json:"sent_via,omitempty"`
}

// ============================================================================
// Public catalogue
// ============================================================================

type EventType struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	IsActive    bool   `json:"is_active"`
}

type PublicEvent struct {
	ID               int64  `json:"id"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	EventType        int64  `json:"event_type"`
	EventTypeName    string `json:"event_type_name"`
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date"`
	Location         string `json:"location"`
	VenueName        string `json:"venue_name"`
	Status           string `json:"status"`
	Visibility       string `json:"visibility"`
	Currency         string `json:"currency"`
	CoverImage       string `json:"cover_image"`
	ChatEnabled      bool   `json:"chat_enabled"`
	JoinCode         string `json:"join_code"`
	AllowPublicJoin  bool   `json:"allow_public_join"`
	JoinURL          string `json:"join_url"`
	Owner            int64  `json:"owner"`
	OwnerName        string `json:"owner_name"`
	ParticipantCount string `json:"participant_count"`
	CreatedAt        string `json:"created_at"`
}

// PublicEventsOptions filters the public events listing.
type PublicEventsOptions struct {
	Page      int
	EventType string
	Search    string
}

type TrustedClient struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Handle   string `json:"handle,omitempty"`
	Quote    string `json:"quote"`
	Avatar   string `json:"avatar,omitempty"`
	IsActive bool   `json:"is_active,omitempty"`
}

type Partner struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	ShortName   string `json:"short_name,omitempty"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	Logo        string `json:"logo,omitempty"`
	IsActive    bool   `json:"is_active,omitempty"`
}

// ============================================================================
// Auth
// ============================================================================

// Tokens is the credential pair issued by sign-in.
type Tokens struct {
	Access  string          `json:"access"`
	Refresh string          `json:"refresh"`
	User    json.RawMessage `json:"user,omitempty"`
}

// VerifyOTPResult is the verify-otp response.
type VerifyOTPResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		Access            string          `json:"access"`
		AccessToken       string          `json:"access_token"`
		Refresh           string          `json:"refresh"`
		RefreshToken      string          `json:"refresh_token"`
		User              json.RawMessage `json:"user,omitempty"`
		RequiresPhoneLink bool            `json:"requires_phone_link"`
	} `json:"data"`
}

// Tokens normalizes the alternative token field names.
func (r *VerifyOTPResult) Tokens() Tokens {
	t := Tokens{Access: r.Data.Access, Refresh: r.Data.Refresh, User: r.Data.User}
	if t.Access == "" {
		t.Access = r.Data.AccessToken
	}
	if t.Refresh == "" {
		t.Refresh = r.Data.RefreshToken
	}
	return t
}
