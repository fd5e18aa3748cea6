package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChatRole identifies the author of a chat message.
type ChatRole string

// Possible chat message roles.
const (
	ChatRoleUser  ChatRole = "user"
	ChatRoleCoach ChatRole = "coach"
)

// ChatMessage is one turn in a coaching conversation.
type ChatMessage struct {
	ID        uuid.UUID `json:"id"`
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// NewChatMessage creates a chat message with the given role and content.
func NewChatMessage(role ChatRole, content string) (*ChatMessage, error) {
	if content == "" {
		return nil, ErrEmptyChatContent
	}
	if role != ChatRoleUser && role != ChatRoleCoach {
		return nil, ErrInvalidChatRole
	}
	return &ChatMessage{
		ID:        uuid.New(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Transcript is the text produced by transcribing a voice recording.
type Transcript struct {
	ID           uuid.UUID `json:"id"`
	Text         string    `json:"text"`
	DurationSecs float64   `json:"duration_secs,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewTranscript creates a transcript from recognized speech.
func NewTranscript(text string, durationSecs float64) (*Transcript, error) {
	if text == "" {
		return nil, ErrEmptyTranscript
	}
	return &Transcript{
		ID:           uuid.New(),
		Text:         text,
		DurationSecs: durationSecs,
		CreatedAt:    time.Now().UTC(),
	}, nil
}
