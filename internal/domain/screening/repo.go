package screening

import "context"

// ResultRepository stores screening results. A missing owner is reported
// with apierror.ErrInvalidReference.
type ResultRepository interface {
	Create(ctx context.Context, r *ScreeningResult) error
	// GetByID wraps apierror.ErrNotFound when no result has the id.
	GetByID(ctx context.Context, id int64) (*ScreeningResult, error)
	// ListByUser returns the user's results in insertion order.
	ListByUser(ctx context.Context, userID int64) ([]*ScreeningResult, error)
}
