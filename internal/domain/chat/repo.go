package chat

import "context"

// MessageRepository stores chat messages. A missing owner is reported with
// apierror.ErrInvalidReference.
type MessageRepository interface {
	Create(ctx context.Context, m *ChatMessage) error
	GetByID(ctx context.Context, id int64) (*ChatMessage, error)
	// ListByUser returns the conversation oldest first.
	ListByUser(ctx context.Context, userID int64) ([]*ChatMessage, error)
}
