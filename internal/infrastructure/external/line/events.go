package line

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ══════════════════════════════════════════════════════════════════════════════
// WEBHOOK TYPES
// ══════════════════════════════════════════════════════════════════════════════

// Event types the bot reacts to.
const (
	EventMessage      = "message"
	EventMemberJoined = "memberJoined"
	EventMemberLeft   = "memberLeft"
)

// Source types.
const (
	SourceUser  = "user"
	SourceGroup = "group"
	SourceRoom  = "room"
)

// MessageText is the only message type carrying commands.
const MessageText = "text"

// WebhookRequest is the body LINE posts to the webhook.
type WebhookRequest struct {
	Destination string  `json:"destination"`
	Events      []Event `json:"events"`
}

// ParseWebhook decodes a webhook body. A missing events array yields no events.
func ParseWebhook(body []byte) (*WebhookRequest, error) {
	var req WebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("parse webhook: %w", err)
	}
	return &req, nil
}

// Event is one webhook event. Only the fields the bot uses are decoded.
type Event struct {
	Type            string           `json:"type"`
	Mode            string           `json:"mode,omitempty"`
	Timestamp       int64            `json:"timestamp"`
	WebhookEventID  string           `json:"webhookEventId,omitempty"`
	ReplyToken      string           `json:"replyToken,omitempty"`
	Source          Source           `json:"source"`
	Message         *Message         `json:"message,omitempty"`
	Joined          *Members         `json:"joined,omitempty"`
	Left            *Members         `json:"left,omitempty"`
	DeliveryContext *DeliveryContext `json:"deliveryContext,omitempty"`
}

// Text returns the message text for text messages, or "".
func (e Event) Text() string {
	if e.Message == nil || e.Message.Type != MessageText {
		return ""
	}
	return e.Message.Text
}

// IsTextMessage reports whether the event is a message event with a text payload.
func (e Event) IsTextMessage() bool {
	return e.Type == EventMessage && e.Message != nil && e.Message.Type == MessageText
}

// IsRedelivery reports whether LINE flagged the event as a redelivery.
func (e Event) IsRedelivery() bool {
	return e.DeliveryContext != nil && e.DeliveryContext.IsRedelivery
}

// Source identifies where an event came from.
type Source struct {
	Type    string `json:"type"`
	UserID  string `json:"userId,omitempty"`
	GroupID string `json:"groupId,omitempty"`
	RoomID  string `json:"roomId,omitempty"`
}

// ChatID returns the group or room id, or "" for one-to-one chats.
func (s Source) ChatID() string {
	switch s.Type {
	case SourceGroup:
		return s.GroupID
	case SourceRoom:
		return s.RoomID
	default:
		return ""
	}
}

// IsMultiMember reports whether the source is a group or a room.
func (s Source) IsMultiMember() bool {
	return s.ChatID() != ""
}

// Message is the message payload of a message event.
type Message struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Members lists users in memberJoined/memberLeft events.
type Members struct {
	Members []Source `json:"members"`
}

// UserIDs returns the non-empty user ids.
func (m *Members) UserIDs() []string {
	if m == nil {
		return nil
	}
	ids := make([]string, 0, len(m.Members))
	for _, s := range m.Members {
		if s.UserID != "" {
			ids = append(ids, s.UserID)
		}
	}
	return ids
}

// DeliveryContext carries redelivery information.
type DeliveryContext struct {
	IsRedelivery bool `json:"isRedelivery"`
}

// ChatKind infers the chat type from a LINE id prefix
// (C for groups, R for rooms, U for users).
func ChatKind(id string) string {
	switch {
	case strings.HasPrefix(id, "C"):
		return SourceGroup
	case strings.HasPrefix(id, "R"):
		return SourceRoom
	case strings.HasPrefix(id, "U"):
		return SourceUser
	default:
		return ""
	}
}
