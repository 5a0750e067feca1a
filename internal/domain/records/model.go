package records

import "time"

// RecordType classifies a medical record.
type RecordType string

const (
	RecordTypeLabResults   RecordType = "Lab Results"
	RecordTypeImaging      RecordType = "Imaging"
	RecordTypePrescription RecordType = "Prescription"
	RecordTypeOther        RecordType = "Other"
)

// MedicalRecord is the metadata of a file a user keeps in the portal. The
// file itself lives in the blob store at FileURL.
type MedicalRecord struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"userId"`
	FileName   string     `json:"fileName"`
	FileType   string     `json:"fileType"`
	FileSize   string     `json:"fileSize"`
	FileURL    string     `json:"fileURL"`
	RecordType RecordType `json:"recordType"`
	Source     *string    `json:"source"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

type InsertMedicalRecord struct {
	UserID     int64      `json:"userId" validate:"required,gt=0"`
	FileName   string     `json:"fileName" validate:"required,notblank,max=255"`
	FileType   string     `json:"fileType" validate:"required,notblank,max=128"`
	FileSize   string     `json:"fileSize" validate:"required,max=32"`
	FileURL    string     `json:"fileURL" validate:"required,notblank"`
	RecordType RecordType `json:"recordType" validate:"required,oneof='Lab Results' Imaging Prescription Other"`
	Source     *string    `json:"source" validate:"omitempty,max=128"`
}
