package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MessageRole identifies the author of a chat message
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// ContentPartType identifies the variant of a multimodal content part
type ContentPartType string

const (
	ContentPartText     ContentPartType = "text"
	ContentPartImageURL ContentPartType = "image_url"
)

// ImageURL wraps the externally hosted location of an image part.
type ImageURL struct {
	URL string `json:"url"`
}

// ContentPart is one element of a multimodal message body.
type ContentPart struct {
	Type     ContentPartType `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *ImageURL       `json:"image_url,omitempty"`
}

// MessageContent is the tagged union of message body shapes: plain
// text or an ordered list of text/image parts. Every consumer must
// handle both variants.
type MessageContent interface {
	isMessageContent()
}

// TextContent is the plain-text variant of MessageContent.
type TextContent string

func (TextContent) isMessageContent() {}

// PartsContent is the multimodal variant of MessageContent.
type PartsContent []ContentPart

func (PartsContent) isMessageContent() {}

// FlattenContent renders any content variant as plain text. Image
// parts contribute their URL so exports stay lossless enough to read.
func FlattenContent(c MessageContent) string {
	switch v := c.(type) {
	case TextContent:
		return string(v)
	case PartsContent:
		var b strings.Builder
		for i, part := range v {
			if i > 0 {
				b.WriteString("\n")
			}
			switch part.Type {
			case ContentPartImageURL:
				if part.ImageURL != nil {
					b.WriteString(part.ImageURL.URL)
				}
			default:
				b.WriteString(part.Text)
			}
		}
		return b.String()
	default:
		return ""
	}
}

// ChatMessage is one turn in a session. Content is polymorphic; the
// wire form is either a JSON string or an array of parts.
type ChatMessage struct {
	ID            string
	Role          MessageRole
	Content       MessageContent
	Timestamp     time.Time
	ExtractedData *ExtractedMemory
}

type chatMessageJSON struct {
	ID            string           `json:"id"`
	Role          MessageRole      `json:"role"`
	Content       json.RawMessage  `json:"content"`
	Timestamp     time.Time        `json:"timestamp"`
	ExtractedData *ExtractedMemory `json:"extractedData,omitempty"`
}

// MarshalJSON implements json.Marshaler
func (m ChatMessage) MarshalJSON() ([]byte, error) {
	var content json.RawMessage
	var err error

	switch v := m.Content.(type) {
	case TextContent:
		content, err = json.Marshal(string(v))
	case PartsContent:
		content, err = json.Marshal([]ContentPart(v))
	case nil:
		content, err = json.Marshal("")
	default:
		return nil, fmt.Errorf("unsupported message content type %T", m.Content)
	}
	if err != nil {
		return nil, err
	}

	return json.Marshal(chatMessageJSON{
		ID:            m.ID,
		Role:          m.Role,
		Content:       content,
		Timestamp:     m.Timestamp,
		ExtractedData: m.ExtractedData,
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	var raw chatMessageJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	m.ID = raw.ID
	m.Role = raw.Role
	m.Timestamp = raw.Timestamp
	m.ExtractedData = raw.ExtractedData

	trimmed := strings.TrimSpace(string(raw.Content))
	switch {
	case trimmed == "" || trimmed == "null":
		m.Content = TextContent("")
	case strings.HasPrefix(trimmed, "["):
		var parts []ContentPart
		if err := json.Unmarshal(raw.Content, &parts); err != nil {
			return err
		}
		m.Content = PartsContent(parts)
	default:
		var text string
		if err := json.Unmarshal(raw.Content, &text); err != nil {
			return err
		}
		m.Content = TextContent(text)
	}

	return nil
}

// ChatSession owns an ordered, append-only list of messages. The
// session manager is the only component that mutates Messages.
type ChatSession struct {
	ID        string        `json:"id"`
	SpaceID   string        `json:"spaceId"`
	Name      string        `json:"name,omitempty"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// ValidateChatSession validates a ChatSession instance
func ValidateChatSession(s *ChatSession) error {
	if s == nil {
		return fmt.Errorf("chat session cannot be nil")
	}

	if s.ID == "" {
		return fmt.Errorf("chat session ID is required")
	}

	if s.SpaceID == "" {
		return fmt.Errorf("chat session SpaceID is required")
	}

	return nil
}

// IsValidMessageRole checks if a MessageRole is valid
func IsValidMessageRole(r MessageRole) bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}
