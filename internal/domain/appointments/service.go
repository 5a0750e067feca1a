package appointments

import (
	"context"
	"errors"
	"time"

	"github.com/medisight/portal/internal/platform/apierror"
	"github.com/medisight/portal/internal/platform/events"
)

const (
	msgInvalidAppointment = "Invalid appointment data"
	msgInvalidUpdate      = "Invalid update data"
)

type Service struct {
	appointments AppointmentRepository
	pub          events.Publisher
}

func NewService(appointments AppointmentRepository) *Service {
	return &Service{appointments: appointments, pub: events.Nop{}}
}

func (s *Service) SetPublisher(p events.Publisher) {
	s.pub = p
}

func (s *Service) List(ctx context.Context, userID int64) ([]*Appointment, error) {
	return s.appointments.ListByUser(ctx, userID)
}

func (s *Service) Create(ctx context.Context, in InsertAppointment) (*Appointment, error) {
	date, err := time.Parse(time.RFC3339, in.AppointmentDate)
	if err != nil {
		return nil, apierror.Validation(msgInvalidAppointment,
			apierror.FieldError{Field: "appointmentDate", Message: "must be an RFC 3339 timestamp"})
	}

	a := &Appointment{
		UserID:          in.UserID,
		DoctorID:        in.DoctorID,
		AppointmentDate: date.UTC(),
		Status:          in.Status,
		Notes:           in.Notes,
	}
	if err := s.appointments.Create(ctx, a); err != nil {
		if errors.Is(err, apierror.ErrInvalidReference) {
			return nil, apierror.UnknownUser(msgInvalidAppointment)
		}
		return nil, err
	}
	s.publish(ctx, events.AppointmentCreated, a)
	return a, nil
}

// Patch applies a partial update and returns the full appointment.
func (s *Service) Patch(ctx context.Context, id int64, patch AppointmentPatch) (*Appointment, error) {
	a, err := s.appointments.Update(ctx, id, patch)
	if errors.Is(err, apierror.ErrNotFound) {
		return nil, apierror.NotFound("Appointment not found")
	}
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.AppointmentUpdated, a)
	return a, nil
}

func (s *Service) publish(ctx context.Context, typ string, a *Appointment) {
	ev, err := events.New(typ, events.UserTopic("appointments", a.UserID), "appointment", a.UserID, a.ID, a)
	if err != nil {
		return
	}
	_ = s.pub.Publish(ctx, ev)
}
