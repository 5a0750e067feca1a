package chat

import "time"

// Sender identifies who wrote a chat message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// ChatMessage is one entry of a user's conversation with the assistant.
// Messages are append-only.
type ChatMessage struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Sender    Sender    `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type InsertChatMessage struct {
	UserID  int64  `json:"userId" validate:"required,gt=0"`
	Sender  Sender `json:"sender" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required,max=8000"`
}

// AssistantRequest asks the assistant a question on behalf of a user.
type AssistantRequest struct {
	UserID  int64  `json:"userId" validate:"required,gt=0"`
	Message string `json:"message" validate:"required,notblank,max=4000"`
}
