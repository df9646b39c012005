package domain

import (
	"encoding/json"
	"fmt"
)

// Conversation roles accepted by upstream chat services.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatRequest represents a conversation to relay upstream.
type ChatRequest struct {
	Messages []Message   `json:"messages"`
	Model    string      `json:"model,omitempty"`
	Options  ChatOptions `json:"options,omitempty"`
}

// Validate checks every message carries a known role.
func (r *ChatRequest) Validate() error {
	for i, msg := range r.Messages {
		switch msg.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return fmt.Errorf("%w %q at messages[%d]", ErrInvalidRole, msg.Role, i)
		}
	}
	return nil
}

// ChatOptions carries free-form generation options (temperature, num_ctx, ...).
// Keys are not validated; the upstream service owns their meaning.
type ChatOptions map[string]any

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // user, assistant, system
	Content string `json:"content"`
}

// ChatResponse is the upstream's complete response body, passed through unmodified.
type ChatResponse = json.RawMessage

// StreamChunk represents a single streaming fragment from a provider.
type StreamChunk struct {
	Delta string `json:"delta"`
	Done  bool   `json:"done"`
	Error error  `json:"-"`
}

// SpeechRequest asks the host engine to render text.
type SpeechRequest struct {
	Text     string   `json:"text"`
	Language string   `json:"language,omitempty"`
	VoiceID  string   `json:"voice_id,omitempty"`
	Rate     *int     `json:"rate,omitempty"`   // words per minute
	Volume   *float64 `json:"volume,omitempty"` // 0.0-1.0, clamped
}

// SpeechSettings is the fully resolved engine configuration for one synthesis.
type SpeechSettings struct {
	VoiceID  string
	Language string
	Rate     int
	Volume   float64
}

// VoiceDescriptor describes one voice offered by the host engine.
type VoiceDescriptor struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Languages []string `json:"languages"`
	Gender    string   `json:"gender"`
}

// Audio is one rendered audio file.
type Audio struct {
	Filename    string
	Path        string
	ContentType string
	Data        []byte
}
