package screening

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/medisight/portal/internal/platform/apierror"
	"github.com/medisight/portal/internal/platform/events"
	"github.com/medisight/portal/internal/platform/inference"
)

const msgInvalidResult = "Invalid result data"

// Analyzer scores uploaded recordings and scans.
type Analyzer interface {
	AnalyzeVoice(ctx context.Context, filename string, audio io.Reader) (*inference.VoiceAnalysis, error)
	ClassifyImage(ctx context.Context, filename string, image io.Reader) (*inference.ImageClassification, error)
}

type Service struct {
	results  ResultRepository
	analyzer Analyzer
	pub      events.Publisher
}

func NewService(results ResultRepository) *Service {
	return &Service{results: results, pub: events.Nop{}}
}

// SetAnalyzer enables the voice and imaging analysis endpoints.
func (s *Service) SetAnalyzer(a Analyzer) {
	s.analyzer = a
}

func (s *Service) SetPublisher(p events.Publisher) {
	s.pub = p
}

func (s *Service) List(ctx context.Context, userID int64) ([]*ScreeningResult, error) {
	return s.results.ListByUser(ctx, userID)
}

func (s *Service) Create(ctx context.Context, in InsertScreeningResult) (*ScreeningResult, error) {
	res := &ScreeningResult{
		UserID:        in.UserID,
		ScreeningType: in.ScreeningType,
		Result:        in.Result,
		Confidence:    in.Confidence,
		ResultData:    normalizeData(in.ResultData),
	}
	if err := s.results.Create(ctx, res); err != nil {
		if errors.Is(err, apierror.ErrInvalidReference) {
			return nil, apierror.UnknownUser(msgInvalidResult)
		}
		return nil, err
	}

	if ev, err := events.New(events.ScreeningResultCreated, events.UserTopic("screening", res.UserID),
		"screening-result", res.UserID, res.ID, res); err == nil {
		_ = s.pub.Publish(ctx, ev)
	}
	return res, nil
}

// AnalyzeVoice scores a voice recording and stores the outcome as a
// "Voice Analysis" result. Confidence keeps two decimals.
func (s *Service) AnalyzeVoice(ctx context.Context, userID int64, filename string, audio io.Reader) (*ScreeningResult, error) {
	if s.analyzer == nil {
		return nil, apierror.Upstream("Analysis service unavailable", errors.New("no analyzer configured"))
	}
	out, err := s.analyzer.AnalyzeVoice(ctx, filename, audio)
	if err != nil {
		return nil, apierror.Upstream("Voice analysis failed", err)
	}

	confidence := fmt.Sprintf("%.2f", out.Probability)
	return s.Create(ctx, InsertScreeningResult{
		UserID:        userID,
		ScreeningType: TypeVoiceAnalysis,
		Result:        out.Prediction,
		Confidence:    &confidence,
		ResultData:    out.Raw,
	})
}

// ClassifyImage classifies a lung CT scan and stores the predicted class.
func (s *Service) ClassifyImage(ctx context.Context, userID int64, filename string, image io.Reader) (*ScreeningResult, error) {
	if s.analyzer == nil {
		return nil, apierror.Upstream("Analysis service unavailable", errors.New("no analyzer configured"))
	}
	out, err := s.analyzer.ClassifyImage(ctx, filename, image)
	if err != nil {
		return nil, apierror.Upstream("Image analysis failed", err)
	}

	return s.Create(ctx, InsertScreeningResult{
		UserID:        userID,
		ScreeningType: TypeLungCT,
		Result:        out.PredictedClass,
		ResultData:    out.Raw,
	})
}
