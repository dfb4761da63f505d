package models

import "time"

const (
	ConversationIndividual = "individual"
	ConversationGroup      = "group"
)

type Conversation struct {
	ID                 int64                    `json:"id"`
	Type               string                   `json:"type"`
	Name               *string                  `json:"name,omitempty"`
	CreatedBy          int64                    `json:"created_by"`
	Participants       []int64                  `json:"participants"`
	ParticipantDetails map[int64]DirectoryEntry `json:"participant_details,omitempty"`
	CreatedAt          time.Time                `json:"created_at"`
	UpdatedAt          time.Time                `json:"updated_at"`
}

// HasParticipant reports whether userID belongs to the conversation.
func (c *Conversation) HasParticipant(userID int64) bool {
	for _, id := range c.Participants {
		if id == userID {
			return true
		}
	}
	return false
}

// Reactions maps an emoji to the ids of the users who reacted with it.
// An emoji key never maps to an empty list.
type Reactions map[string][]string

type ChatMessage struct {
	ID             string    `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	SenderID       int64     `json:"sender_id"`
	Content        string    `json:"content"`
	ReplyTo        *string   `json:"reply_to"`
	Reactions      Reactions `json:"reactions"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"timestamp"`
}

type ConversationSummary struct {
	Conversation
	LastMessage *ChatMessage `json:"last_message,omitempty"`
	UnreadCount int          `json:"unread_count"`
}
