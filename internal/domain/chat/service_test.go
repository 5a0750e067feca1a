package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/medisight/portal/internal/platform/apierror"
	"github.com/medisight/portal/internal/platform/events"
)

// -- Mock Repository --

type mockMessageRepo struct {
	store  []*ChatMessage
	users  map[int64]bool
	nextID int64
}

func newMockMessageRepo(userIDs ...int64) *mockMessageRepo {
	m := &mockMessageRepo{users: make(map[int64]bool)}
	for _, id := range userIDs {
		m.users[id] = true
	}
	return m
}

func (m *mockMessageRepo) Create(_ context.Context, msg *ChatMessage) error {
	if !m.users[msg.UserID] {
		return fmt.Errorf("user %d: %w", msg.UserID, apierror.ErrInvalidReference)
	}
	m.nextID++
	msg.ID = m.nextID
	cp := *msg
	m.store = append(m.store, &cp)
	return nil
}

func (m *mockMessageRepo) GetByID(_ context.Context, id int64) (*ChatMessage, error) {
	for _, msg := range m.store {
		if msg.ID == id {
			return msg, nil
		}
	}
	return nil, fmt.Errorf("chat message %d: %w", id, apierror.ErrNotFound)
}

func (m *mockMessageRepo) ListByUser(_ context.Context, userID int64) ([]*ChatMessage, error) {
	out := []*ChatMessage{}
	for _, msg := range m.store {
		if msg.UserID == userID {
			out = append(out, msg)
		}
	}
	return out, nil
}

type assistantFunc func(ctx context.Context, message string) (string, error)

func (f assistantFunc) Chat(ctx context.Context, message string) (string, error) { return f(ctx, message) }

func newTestService() (*Service, *mockMessageRepo, *events.Recorder) {
	repo := newMockMessageRepo(1)
	rec := &events.Recorder{}
	svc := NewService(repo)
	svc.SetPublisher(rec)
	svc.SetAssistant(assistantFunc(func(_ context.Context, msg string) (string, error) {
		return "You said: " + msg, nil
	}))
	return svc, repo, rec
}

func kindOf(t *testing.T, err error) apierror.Kind {
	t.Helper()
	var apiErr *apierror.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *apierror.Error, got %T (%v)", err, err)
	}
	return apiErr.Kind
}

func TestCreate_PublishesToUserTopic(t *testing.T) {
	svc, _, rec := newTestService()

	m, err := svc.Create(context.Background(), InsertChatMessage{UserID: 1, Sender: SenderUser, Content: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := rec.Events()
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].Topic != "chat/1" || got[0].Type != events.ChatMessageCreated || got[0].ResourceID != "1" {
		t.Errorf("unexpected event: %+v", got[0])
	}
	if m.ID != 1 {
		t.Errorf("expected id 1, got %d", m.ID)
	}
}

func TestCreate_UnknownUser(t *testing.T) {
	svc, _, rec := newTestService()
	_, err := svc.Create(context.Background(), InsertChatMessage{UserID: 3, Sender: SenderUser, Content: "hi"})
	if kindOf(t, err) != apierror.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
	if len(rec.Events()) != 0 {
		t.Error("nothing should be published for a rejected message")
	}
}

func TestAsk(t *testing.T) {
	svc, repo, _ := newTestService()

	q, r, err := svc.Ask(context.Background(), AssistantRequest{UserID: 1, Message: "headache?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Sender != SenderUser || r.Sender != SenderAssistant || r.Content != "You said: headache?" {
		t.Errorf("unexpected pair: %+v %+v", q, r)
	}
	if len(repo.store) != 2 || repo.store[0].ID >= repo.store[1].ID {
		t.Errorf("expected question before reply, got %+v", repo.store)
	}
}

func TestAsk_AssistantFailureKeepsQuestion(t *testing.T) {
	svc, repo, _ := newTestService()
	svc.SetAssistant(assistantFunc(func(context.Context, string) (string, error) {
		return "", errors.New("model offline")
	}))

	q, r, err := svc.Ask(context.Background(), AssistantRequest{UserID: 1, Message: "hello"})
	if kindOf(t, err) != apierror.KindUpstream {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if q == nil || r != nil {
		t.Errorf("expected question kept and no reply, got %+v %+v", q, r)
	}
	if len(repo.store) != 1 || repo.store[0].Sender != SenderUser {
		t.Errorf("expected only the question stored, got %+v", repo.store)
	}
}
