package records

import (
	"context"
	"errors"

	"github.com/medisight/portal/internal/platform/apierror"
	"github.com/medisight/portal/internal/platform/events"
)

const msgInvalidRecord = "Invalid record data"

type Service struct {
	records RecordRepository
	pub     events.Publisher
}

func NewService(records RecordRepository) *Service {
	return &Service{records: records, pub: events.Nop{}}
}

// SetPublisher attaches the publisher for record.created and record.deleted.
func (s *Service) SetPublisher(p events.Publisher) {
	s.pub = p
}

func (s *Service) List(ctx context.Context, userID int64) ([]*MedicalRecord, error) {
	return s.records.ListByUser(ctx, userID)
}

func (s *Service) Create(ctx context.Context, in InsertMedicalRecord) (*MedicalRecord, error) {
	rec := &MedicalRecord{
		UserID:     in.UserID,
		FileName:   in.FileName,
		FileType:   in.FileType,
		FileSize:   in.FileSize,
		FileURL:    in.FileURL,
		RecordType: in.RecordType,
		Source:     in.Source,
	}
	if err := s.records.Create(ctx, rec); err != nil {
		if errors.Is(err, apierror.ErrInvalidReference) {
			return nil, apierror.UnknownUser(msgInvalidRecord)
		}
		return nil, err
	}
	s.publish(ctx, events.RecordCreated, rec)
	return rec, nil
}

// Delete removes a record. A missing id is reported as not found.
func (s *Service) Delete(ctx context.Context, id int64) error {
	rec, err := s.records.Delete(ctx, id)
	if errors.Is(err, apierror.ErrNotFound) {
		return apierror.NotFound("Record not found")
	}
	if err != nil {
		return err
	}
	s.publish(ctx, events.RecordDeleted, rec)
	return nil
}

func (s *Service) publish(ctx context.Context, typ string, rec *MedicalRecord) {
	ev, err := events.New(typ, events.UserTopic("records", rec.UserID), "record", rec.UserID, rec.ID, rec)
	if err != nil {
		return
	}
	_ = s.pub.Publish(ctx, ev)
}
