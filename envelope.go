package ahadi

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// TypeUnknown tags frames that were not valid JSON objects.
const TypeUnknown = "unknown"

// Envelope is one inbound frame. Data holds the whole JSON object; Raw holds
// the text of frames that could not be parsed.
type Envelope struct {
	Type string
	Raw  string
	Data json.RawMessage
}

// Decode unmarshals the frame into v. Unknown frames decode to nothing.
func (e Envelope) Decode(v any) error {
	if len(e.Data) == 0 {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}

func parseEnvelope(data []byte) Envelope {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		return Envelope{Type: TypeUnknown, Raw: string(data)}
	}
	var typ string
	if t, ok := obj["type"]; ok {
		_ = json.Unmarshal(t, &typ)
	}
	return Envelope{Type: typ, Data: json.RawMessage(data)}
}

// hasField reports whether obj carries key with a non-null value.
func hasField(obj map[string]json.RawMessage, key string) bool {
	v, ok := obj[key]
	return ok && !bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

// FlexID is an identifier the backend sends either as a string or a number.
type FlexID string

func (id *FlexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = FlexID(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = FlexID(n.String())
	return nil
}

// Int64 parses the identifier as a number.
func (id FlexID) Int64() (int64, error) {
	return strconv.ParseInt(string(id), 10, 64)
}

// ============================================================================
// Outbound frames
// ============================================================================

const (
	frameChatMessage = "chat_message"
	frameTyping      = "typing"
	frameReadReceipt = "read_receipt"
	framePing        = "ping"
	framePong        = "pong"
	frameUserJoin    = "user_join"
	frameUserLeave   = "user_leave"
	frameError       = "error"
	frameNewMessage  = "new_message"
)

type chatMessageCommand struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Title   string `json:"title,omitempty"`
}

type typingCommand struct {
	Type     string `json:"type"`
	IsTyping bool   `json:"is_typing"`
}

type bareCommand struct {
	Type string `json:"type"`
}
