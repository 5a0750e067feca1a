package appointments

import "time"

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Appointment is a booking with a doctor from the directory. DoctorID is a
// free-text reference and is not checked against the directory.
type Appointment struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"userId"`
	DoctorID        string    `json:"doctorId"`
	AppointmentDate time.Time `json:"appointmentDate"`
	Status          Status    `json:"status"`
	Notes           *string   `json:"notes"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type InsertAppointment struct {
	UserID          int64   `json:"userId" validate:"required,gt=0"`
	DoctorID        string  `json:"doctorId" validate:"required,notblank,max=64"`
	AppointmentDate string  `json:"appointmentDate" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	Status          Status  `json:"status" validate:"required,oneof=scheduled completed cancelled"`
	Notes           *string `json:"notes" validate:"omitempty,max=2000"`
}

// AppointmentPatch updates status and notes. Nil fields are left alone.
type AppointmentPatch struct {
	Status *Status `json:"status" validate:"omitempty,oneof=scheduled completed cancelled"`
	Notes  *string `json:"notes" validate:"omitempty,max=2000"`
}
