package chat

import (
	"context"
	"errors"

	"github.com/medisight/portal/internal/platform/apierror"
	"github.com/medisight/portal/internal/platform/events"
)

const msgInvalidMessage = "Invalid message data"

// Assistant answers a user's question.
type Assistant interface {
	Chat(ctx context.Context, message string) (string, error)
}

type Service struct {
	messages  MessageRepository
	assistant Assistant
	pub       events.Publisher
}

func NewService(messages MessageRepository) *Service {
	return &Service{messages: messages, pub: events.Nop{}}
}

func (s *Service) SetAssistant(a Assistant) {
	s.assistant = a
}

// SetPublisher attaches the feed that receives every new message on the
// owner's chat/<userId> topic.
func (s *Service) SetPublisher(p events.Publisher) {
	s.pub = p
}

func (s *Service) List(ctx context.Context, userID int64) ([]*ChatMessage, error) {
	return s.messages.ListByUser(ctx, userID)
}

func (s *Service) Create(ctx context.Context, in InsertChatMessage) (*ChatMessage, error) {
	m := &ChatMessage{UserID: in.UserID, Sender: in.Sender, Content: in.Content}
	if err := s.messages.Create(ctx, m); err != nil {
		if errors.Is(err, apierror.ErrInvalidReference) {
			return nil, apierror.UnknownUser(msgInvalidMessage)
		}
		return nil, err
	}

	if ev, err := events.New(events.ChatMessageCreated, events.UserTopic("chat", m.UserID),
		"chat-message", m.UserID, m.ID, m); err == nil {
		_ = s.pub.Publish(ctx, ev)
	}
	return m, nil
}

// Ask stores the user's question, asks the assistant and stores the reply.
// When the assistant fails the question stays stored and an upstream error
// is returned.
func (s *Service) Ask(ctx context.Context, req AssistantRequest) (*ChatMessage, *ChatMessage, error) {
	question, err := s.Create(ctx, InsertChatMessage{UserID: req.UserID, Sender: SenderUser, Content: req.Message})
	if err != nil {
		return nil, nil, err
	}
	if s.assistant == nil {
		return question, nil, apierror.Upstream("Assistant unavailable", errors.New("no assistant configured"))
	}

	answer, err := s.assistant.Chat(ctx, req.Message)
	if err != nil {
		return question, nil, apierror.Upstream("Assistant unavailable", err)
	}

	reply, err := s.Create(ctx, InsertChatMessage{UserID: req.UserID, Sender: SenderAssistant, Content: answer})
	if err != nil {
		return question, nil, err
	}
	return question, reply, nil
}
