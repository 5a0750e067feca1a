package memory

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/medisight/portal/internal/domain/appointments"
	"github.com/medisight/portal/internal/domain/chat"
	"github.com/medisight/portal/internal/domain/records"
	"github.com/medisight/portal/internal/domain/screening"
	"github.com/medisight/portal/internal/domain/users"
	"github.com/medisight/portal/internal/platform/apierror"
)

func seedUser(t *testing.T, s *Store, name string) *users.User {
	t.Helper()
	u := &users.User{Username: name, PasswordHash: "h", Email: name + "@x.io"}
	if err := s.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func TestUsers_UniqueFields(t *testing.T) {
	s := New()
	uid := "fb-1"
	alice := &users.User{Username: "alice", Email: "a@x.io", FirebaseUID: &uid}
	if err := s.Users().Create(context.Background(), alice); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name  string
		user  users.User
		field string
	}{
		{"username", users.User{Username: "alice", Email: "b@x.io"}, "username"},
		{"email", users.User{Username: "bob", Email: "a@x.io"}, "email"},
		{"firebase uid", users.User{Username: "carol", Email: "c@x.io", FirebaseUID: &uid}, "firebaseUID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Users().Create(context.Background(), &tt.user)
			var dup *users.DuplicateError
			if !errors.As(err, &dup) || dup.Field != tt.field {
				t.Fatalf("expected duplicate %s, got %v", tt.field, err)
			}
			if !errors.Is(err, apierror.ErrConflict) {
				t.Error("duplicate should unwrap to ErrConflict")
			}
		})
	}

	// Two users without a firebase uid do not collide.
	if err := s.Users().Create(context.Background(), &users.User{Username: "dave", Email: "d@x.io"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Users().Create(context.Background(), &users.User{Username: "erin", Email: "e@x.io"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestForeignKeys(t *testing.T) {
	s := New()
	ctx := context.Background()

	errs := []error{
		s.Records().Create(ctx, &records.MedicalRecord{UserID: 9}),
		s.ScreeningResults().Create(ctx, &screening.ScreeningResult{UserID: 9}),
		s.Appointments().Create(ctx, &appointments.Appointment{UserID: 9}),
		s.ChatMessages().Create(ctx, &chat.ChatMessage{UserID: 9}),
	}
	for i, err := range errs {
		if !errors.Is(err, apierror.ErrInvalidReference) {
			t.Errorf("create %d: expected ErrInvalidReference, got %v", i, err)
		}
	}
}

func TestDeleteUser_Cascades(t *testing.T) {
	s := New()
	ctx := context.Background()
	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")

	for _, u := range []*users.User{alice, bob} {
		s.Records().Create(ctx, &records.MedicalRecord{UserID: u.ID})
		s.ScreeningResults().Create(ctx, &screening.ScreeningResult{UserID: u.ID})
		s.Appointments().Create(ctx, &appointments.Appointment{UserID: u.ID})
		s.ChatMessages().Create(ctx, &chat.ChatMessage{UserID: u.ID})
	}

	if err := s.Users().Delete(ctx, alice.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	recs, _ := s.Records().ListByUser(ctx, alice.ID)
	res, _ := s.ScreeningResults().ListByUser(ctx, alice.ID)
	apps, _ := s.Appointments().ListByUser(ctx, alice.ID)
	msgs, _ := s.ChatMessages().ListByUser(ctx, alice.ID)
	if len(recs)+len(res)+len(apps)+len(msgs) != 0 {
		t.Error("expected every child row of alice removed")
	}

	bobMsgs, _ := s.ChatMessages().ListByUser(ctx, bob.ID)
	if len(bobMsgs) != 1 {
		t.Errorf("bob's rows should survive, got %d messages", len(bobMsgs))
	}

	if err := s.Users().Delete(ctx, alice.ID); !errors.Is(err, apierror.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListByUser_OrderAndIsolation(t *testing.T) {
	s := New()
	ctx := context.Background()
	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")

	for i, u := range []*users.User{alice, bob, alice, alice} {
		s.ChatMessages().Create(ctx, &chat.ChatMessage{UserID: u.ID, Sender: chat.SenderUser, Content: string(rune('a' + i))})
	}

	msgs, _ := s.ChatMessages().ListByUser(ctx, alice.ID)
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i-1].ID >= msgs[i].ID {
			t.Errorf("messages out of order: %d before %d", msgs[i-1].ID, msgs[i].ID)
		}
	}

	// Returned rows are copies.
	msgs[0].Content = "mutated"
	again, _ := s.ChatMessages().ListByUser(ctx, alice.ID)
	if again[0].Content == "mutated" {
		t.Error("list returned shared pointers")
	}
}

func TestAppointments_Update(t *testing.T) {
	s := New()
	ctx := context.Background()
	alice := seedUser(t, s, "alice")
	notes := "fasting"
	a := &appointments.Appointment{UserID: alice.ID, DoctorID: "d-7", Status: appointments.StatusScheduled, Notes: &notes}
	s.Appointments().Create(ctx, a)

	done := appointments.StatusCompleted
	got, err := s.Appointments().Update(ctx, a.ID, appointments.AppointmentPatch{Status: &done})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != done || got.Notes == nil || *got.Notes != "fasting" {
		t.Errorf("unexpected appointment: %+v", got)
	}
	if got.UpdatedAt.Before(got.CreatedAt) {
		t.Error("updatedAt should not precede createdAt")
	}

	if _, err := s.Appointments().Update(ctx, 99, appointments.AppointmentPatch{}); !errors.Is(err, apierror.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestScreeningResults_CopiesData(t *testing.T) {
	s := New()
	ctx := context.Background()
	alice := seedUser(t, s, "alice")

	data := json.RawMessage(`{"a":1}`)
	s.ScreeningResults().Create(ctx, &screening.ScreeningResult{UserID: alice.ID, ResultData: data})
	data[2] = 'b'

	got, _ := s.ScreeningResults().ListByUser(ctx, alice.ID)
	if string(got[0].ResultData) != `{"a":1}` {
		t.Errorf("stored data aliased caller buffer: %s", got[0].ResultData)
	}
}

func TestGetByID_ResultsAndMessages(t *testing.T) {
	s := New()
	ctx := context.Background()
	alice := seedUser(t, s, "alice")

	res := &screening.ScreeningResult{UserID: alice.ID, ScreeningType: "voice", Result: "low_risk", ResultData: json.RawMessage(`{"a":1}`)}
	if err := s.ScreeningResults().Create(ctx, res); err != nil {
		t.Fatalf("create result: %v", err)
	}
	gotRes, err := s.ScreeningResults().GetByID(ctx, res.ID)
	if err != nil {
		t.Fatalf("get result: %v", err)
	}
	if gotRes.Result != "low_risk" || string(gotRes.ResultData) != `{"a":1}` {
		t.Errorf("unexpected result: %+v", gotRes)
	}
	gotRes.ResultData[2] = 'b'
	again, _ := s.ScreeningResults().GetByID(ctx, res.ID)
	if string(again.ResultData) != `{"a":1}` {
		t.Errorf("returned data aliased stored buffer: %s", again.ResultData)
	}
	if _, err := s.ScreeningResults().GetByID(ctx, 999); !errors.Is(err, apierror.ErrNotFound) {
		t.Errorf("expected ErrNotFound for result, got %v", err)
	}

	msg := &chat.ChatMessage{UserID: alice.ID, Sender: "user", Content: "hello"}
	if err := s.ChatMessages().Create(ctx, msg); err != nil {
		t.Fatalf("create message: %v", err)
	}
	gotMsg, err := s.ChatMessages().GetByID(ctx, msg.ID)
	if err != nil {
		t.Fatalf("get message: %v", err)
	}
	if gotMsg.Content != "hello" || gotMsg.UserID != alice.ID {
		t.Errorf("unexpected message: %+v", gotMsg)
	}
	if _, err := s.ChatMessages().GetByID(ctx, 999); !errors.Is(err, apierror.ErrNotFound) {
		t.Errorf("expected ErrNotFound for message, got %v", err)
	}
}

func TestConcurrentCreates(t *testing.T) {
	s := New()
	ctx := context.Background()
	alice := seedUser(t, s, "alice")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Records().Create(ctx, &records.MedicalRecord{UserID: alice.ID})
		}()
	}
	wg.Wait()

	recs, _ := s.Records().ListByUser(ctx, alice.ID)
	if len(recs) != 50 {
		t.Fatalf("expected 50 records, got %d", len(recs))
	}
	seen := make(map[int64]bool)
	for _, r := range recs {
		if seen[r.ID] {
			t.Fatalf("duplicate id %d", r.ID)
		}
		seen[r.ID] = true
	}
}
