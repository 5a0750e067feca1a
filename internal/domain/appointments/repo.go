package appointments

import "context"

// AppointmentRepository stores appointments. Missing rows are reported with
// apierror.ErrNotFound and a missing owner with apierror.ErrInvalidReference.
type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id int64) (*Appointment, error)
	ListByUser(ctx context.Context, userID int64) ([]*Appointment, error)
	// Update applies patch and returns the full row after the change.
	Update(ctx context.Context, id int64, patch AppointmentPatch) (*Appointment, error)
}
