package screening

import (
	"encoding/json"
	"time"
)

// Screening types produced by the analysis endpoints.
const (
	TypeVoiceAnalysis = "Voice Analysis"
	TypeLungCT        = "Lung CT Analysis"
)

// ScreeningResult is an immutable screening outcome. ResultData is stored
// and returned as given.
type ScreeningResult struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"userId"`
	ScreeningType string          `json:"screeningType"`
	Result        string          `json:"result"`
	Confidence    *string         `json:"confidence"`
	ResultData    json.RawMessage `json:"resultData"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type InsertScreeningResult struct {
	UserID        int64           `json:"userId" validate:"required,gt=0"`
	ScreeningType string          `json:"screeningType" validate:"required,notblank,max=128"`
	Result        string          `json:"result" validate:"required"`
	Confidence    *string         `json:"confidence" validate:"omitempty,max=32"`
	ResultData    json.RawMessage `json:"resultData"`
}

// normalizeData maps an explicit JSON null to no data.
func normalizeData(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return raw
}
