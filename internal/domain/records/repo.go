package records

import "context"

// RecordRepository stores medical records. Missing rows are reported with
// apierror.ErrNotFound and a missing owner with apierror.ErrInvalidReference.
type RecordRepository interface {
	Create(ctx context.Context, r *MedicalRecord) error
	GetByID(ctx context.Context, id int64) (*MedicalRecord, error)
	// ListByUser returns the user's records in insertion order.
	ListByUser(ctx context.Context, userID int64) ([]*MedicalRecord, error)
	// Delete removes the record and returns it as it was.
	Delete(ctx context.Context, id int64) (*MedicalRecord, error)
}
