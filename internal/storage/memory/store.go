// Package memory is a process-local storage backend. It enforces the same
// unique, foreign key and cascade rules as the Postgres schema and backs
// development runs and route-level tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/medisight/portal/internal/domain/appointments"
	"github.com/medisight/portal/internal/domain/chat"
	"github.com/medisight/portal/internal/domain/records"
	"github.com/medisight/portal/internal/domain/screening"
	"github.com/medisight/portal/internal/domain/users"
	"github.com/medisight/portal/internal/platform/apierror"
)

// Store holds every table behind one lock.
type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	users        map[int64]*users.User
	records      map[int64]*records.MedicalRecord
	results      map[int64]*screening.ScreeningResult
	appointments map[int64]*appointments.Appointment
	messages     map[int64]*chat.ChatMessage

	userSeq, recordSeq, resultSeq, appointmentSeq, messageSeq int64
}

func New() *Store {
	return &Store{
		now:          func() time.Time { return time.Now().UTC() },
		users:        make(map[int64]*users.User),
		records:      make(map[int64]*records.MedicalRecord),
		results:      make(map[int64]*screening.ScreeningResult),
		appointments: make(map[int64]*appointments.Appointment),
		messages:     make(map[int64]*chat.ChatMessage),
	}
}

func (s *Store) Users() users.UserRepository                      { return userRepo{s} }
func (s *Store) Records() records.RecordRepository                { return recordRepo{s} }
func (s *Store) ScreeningResults() screening.ResultRepository     { return resultRepo{s} }
func (s *Store) Appointments() appointments.AppointmentRepository { return appointmentRepo{s} }
func (s *Store) ChatMessages() chat.MessageRepository             { return messageRepo{s} }

// Ping satisfies db.Pinger so health checks work without a database.
func (s *Store) Ping(context.Context) error { return nil }

// mustOwn reports a missing owner the way the foreign keys do. Callers hold
// the write lock.
func (s *Store) mustOwn(userID int64) error {
	if _, ok := s.users[userID]; !ok {
		return fmt.Errorf("user %d: %w", userID, apierror.ErrInvalidReference)
	}
	return nil
}

// sortedByID returns copies of the rows owned by userID in id order.
func sortedByID[T any](rows map[int64]*T, owner func(*T) int64, id func(*T) int64, userID int64) []*T {
	out := []*T{}
	for _, r := range rows {
		if owner(r) == userID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return id(out[i]) < id(out[j]) })
	return out
}

// -- users --

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, u *users.User) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		switch {
		case existing.Username == u.Username:
			return &users.DuplicateError{Field: "username"}
		case existing.Email == u.Email:
			return &users.DuplicateError{Field: "email"}
		case u.FirebaseUID != nil && existing.FirebaseUID != nil && *existing.FirebaseUID == *u.FirebaseUID:
			return &users.DuplicateError{Field: "firebaseUID"}
		}
	}

	s.userSeq++
	u.ID = s.userSeq
	u.CreatedAt = s.now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (r userRepo) find(match func(*users.User) bool, what string) (*users.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", what, apierror.ErrNotFound)
}

func (r userRepo) GetByID(_ context.Context, id int64) (*users.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, apierror.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (r userRepo) GetByUsername(_ context.Context, username string) (*users.User, error) {
	return r.find(func(u *users.User) bool { return u.Username == username }, username)
}

func (r userRepo) GetByFirebaseUID(_ context.Context, uid string) (*users.User, error) {
	return r.find(func(u *users.User) bool { return u.FirebaseUID != nil && *u.FirebaseUID == uid }, uid)
}

func (r userRepo) Delete(_ context.Context, id int64) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return fmt.Errorf("user %d: %w", id, apierror.ErrNotFound)
	}
	delete(s.users, id)
	for k, v := range s.records {
		if v.UserID == id {
			delete(s.records, k)
		}
	}
	for k, v := range s.results {
		if v.UserID == id {
			delete(s.results, k)
		}
	}
	for k, v := range s.appointments {
		if v.UserID == id {
			delete(s.appointments, k)
		}
	}
	for k, v := range s.messages {
		if v.UserID == id {
			delete(s.messages, k)
		}
	}
	return nil
}

// -- medical records --

type recordRepo struct{ s *Store }

func (r recordRepo) Create(_ context.Context, rec *records.MedicalRecord) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mustOwn(rec.UserID); err != nil {
		return err
	}
	s.recordSeq++
	rec.ID = s.recordSeq
	rec.CreatedAt = s.now()
	rec.UpdatedAt = rec.CreatedAt
	cp := *rec
	s.records[rec.ID] = &cp
	return nil
}

func (r recordRepo) GetByID(_ context.Context, id int64) (*records.MedicalRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rec, ok := r.s.records[id]
	if !ok {
		return nil, fmt.Errorf("medical record %d: %w", id, apierror.ErrNotFound)
	}
	cp := *rec
	return &cp, nil
}

func (r recordRepo) ListByUser(_ context.Context, userID int64) ([]*records.MedicalRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return sortedByID(r.s.records,
		func(m *records.MedicalRecord) int64 { return m.UserID },
		func(m *records.MedicalRecord) int64 { return m.ID }, userID), nil
}

func (r recordRepo) Delete(_ context.Context, id int64) (*records.MedicalRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.records[id]
	if !ok {
		return nil, fmt.Errorf("medical record %d: %w", id, apierror.ErrNotFound)
	}
	delete(r.s.records, id)
	return rec, nil
}

// -- screening results --

type resultRepo struct{ s *Store }

func (r resultRepo) Create(_ context.Context, res *screening.ScreeningResult) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mustOwn(res.UserID); err != nil {
		return err
	}
	s.resultSeq++
	res.ID = s.resultSeq
	res.CreatedAt = s.now()
	cp := *res
	if res.ResultData != nil {
		cp.ResultData = append([]byte(nil), res.ResultData...)
	}
	s.results[res.ID] = &cp
	return nil
}

func (r resultRepo) GetByID(_ context.Context, id int64) (*screening.ScreeningResult, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	res, ok := r.s.results[id]
	if !ok {
		return nil, fmt.Errorf("screening result %d: %w", id, apierror.ErrNotFound)
	}
	cp := *res
	if res.ResultData != nil {
		cp.ResultData = append([]byte(nil), res.ResultData...)
	}
	return &cp, nil
}

func (r resultRepo) ListByUser(_ context.Context, userID int64) ([]*screening.ScreeningResult, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return sortedByID(r.s.results,
		func(m *screening.ScreeningResult) int64 { return m.UserID },
		func(m *screening.ScreeningResult) int64 { return m.ID }, userID), nil
}

// -- appointments --

type appointmentRepo struct{ s *Store }

func (r appointmentRepo) Create(_ context.Context, a *appointments.Appointment) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mustOwn(a.UserID); err != nil {
		return err
	}
	s.appointmentSeq++
	a.ID = s.appointmentSeq
	a.CreatedAt = s.now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	s.appointments[a.ID] = &cp
	return nil
}

func (r appointmentRepo) GetByID(_ context.Context, id int64) (*appointments.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.appointments[id]
	if !ok {
		return nil, fmt.Errorf("appointment %d: %w", id, apierror.ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (r appointmentRepo) ListByUser(_ context.Context, userID int64) ([]*appointments.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return sortedByID(r.s.appointments,
		func(m *appointments.Appointment) int64 { return m.UserID },
		func(m *appointments.Appointment) int64 { return m.ID }, userID), nil
}

func (r appointmentRepo) Update(_ context.Context, id int64, patch appointments.AppointmentPatch) (*appointments.Appointment, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.appointments[id]
	if !ok {
		return nil, fmt.Errorf("appointment %d: %w", id, apierror.ErrNotFound)
	}
	if patch.Status != nil {
		a.Status = *patch.Status
	}
	if patch.Notes != nil {
		notes := *patch.Notes
		a.Notes = &notes
	}
	a.UpdatedAt = s.now()
	cp := *a
	return &cp, nil
}

// -- chat messages --

type messageRepo struct{ s *Store }

func (r messageRepo) Create(_ context.Context, m *chat.ChatMessage) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mustOwn(m.UserID); err != nil {
		return err
	}
	s.messageSeq++
	m.ID = s.messageSeq
	m.CreatedAt = s.now()
	cp := *m
	s.messages[m.ID] = &cp
	return nil
}

func (r messageRepo) GetByID(_ context.Context, id int64) (*chat.ChatMessage, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.messages[id]
	if !ok {
		return nil, fmt.Errorf("chat message %d: %w", id, apierror.ErrNotFound)
	}
	cp := *m
	return &cp, nil
}

func (r messageRepo) ListByUser(_ context.Context, userID int64) ([]*chat.ChatMessage, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return sortedByID(r.s.messages,
		func(m *chat.ChatMessage) int64 { return m.UserID },
		func(m *chat.ChatMessage) int64 { return m.ID }, userID), nil
}
