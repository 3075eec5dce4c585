// Package services – ScreeningService
//
// This file implements ScreeningService, which owns the screening catalog,
// the formal screening log (pending -> completed with an attached result),
// and the orchestration of a live run against the external screening
// service: health probe, model initialization, the blocking run itself,
// derivation of risk and score from the verdict and confidence, synthesis of
// the progress metrics, and recording through both the formal tables and the
// flat result cache.
package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/earlyvue/go-screening-backend/internal/domain"
	"github.com/earlyvue/go-screening-backend/internal/mlbackend"
	"github.com/earlyvue/go-screening-backend/internal/repo"
)

// ScreeningType describes one entry of the screening catalog.
type ScreeningType struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Duration        string   `json:"duration"`
	DurationSeconds int      `json:"duration_seconds"`
	Features        []string `json:"features"`
}

// catalog is the fixed set of offered screening types.
var catalog = []ScreeningType{
	{
		ID:              "basic-asd",
		Name:            "Basic ASD Screening",
		Description:     "Quick screening for autism spectrum disorder indicators using eye tracking",
		Duration:        "1 minute",
		DurationSeconds: 60,
		Features:        []string{"Eye-tracking analysis", "AI-powered assessment", "Instant PDF report"},
	},
	{
		ID:              "advanced-asd",
		Name:            "Advanced ASD Screening",
		Description:     "Extended screening with more comprehensive data collection and analysis",
		Duration:        "2 minutes",
		DurationSeconds: 120,
		Features:        []string{"Extended eye-tracking", "Deep learning analysis", "Detailed behavioral patterns", "Enhanced PDF report"},
	},
}

// ScreeningBackend is the contract the orchestrator needs from the external
// screening service client.
type ScreeningBackend interface {
	Health(ctx context.Context) error
	Initialize(ctx context.Context, csvPath string) error
	StartScreening(ctx context.Context, req mlbackend.ScreeningRequest) (*mlbackend.ScreeningResponse, error)
	ReportURL(filename string) string
}

// ScreeningService coordinates screening runs and the formal screening log.
type ScreeningService struct {
	DB      *gorm.DB
	Backend ScreeningBackend
	Results *ResultService

	// FeaturesCSV is handed to the backend's initialize call.
	FeaturesCSV string

	// Rand yields values in [0,1) for progress-metric synthesis. Defaults to
	// math/rand; tests inject a fixed source.
	Rand func() float64

	// Now is the clock for record dates. Defaults to time.Now.
	Now func() time.Time
}

// Types returns the screening catalog.
func (s *ScreeningService) Types() []ScreeningType {
	out := make([]ScreeningType, len(catalog))
	copy(out, catalog)
	return out
}

// TypeByID looks up one catalog entry.
func (s *ScreeningService) TypeByID(id string) (ScreeningType, bool) {
	for _, t := range catalog {
		if t.ID == id {
			return t, true
		}
	}
	return ScreeningType{}, false
}

// ListByUser returns the user's formal screenings joined with their owning
// child profiles, newest first.
func (s *ScreeningService) ListByUser(ctx context.Context, userID string) ([]repo.ScreeningWithPatient, error) {
	tr := otel.Tracer("services/ScreeningService")
	ctx, span := tr.Start(ctx, "ListByUser",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	return repo.ListScreeningsByUser(ctx, s.DB, userID)
}

// LogInput carries a manually logged screening with its observed result,
// e.g. one performed in a clinic rather than through a live run.
type LogInput struct {
	PatientID          string
	ScreeningType      string
	Score              int
	RiskLevel          string
	DurationSeconds    int
	SocialAttention    int
	NonSocialAttention int
	Improvement        float64
	Recommendations    []string
	Strengths          []string
	AreasForAttention  []string
}

// Log records a completed screening with its result in one transaction and
// mirrors it into the flat result cache.
func (s *ScreeningService) Log(ctx context.Context, userID string, in LogInput) (*domain.Screening, *domain.ResultRecord, error) {
	tr := otel.Tracer("services/ScreeningService")
	ctx, span := tr.Start(ctx, "Log",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("patient.id", in.PatientID),
		),
	)
	defer span.End()

	patient, err := repo.GetPatientOwned(ctx, s.DB, in.PatientID, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	if in.RiskLevel != domain.RiskLow && in.RiskLevel != domain.RiskMedium && in.RiskLevel != domain.RiskHigh {
		return nil, nil, fmt.Errorf("%w: risk_level must be low, medium, or high", ErrInvalidInput)
	}
	if in.Score < 0 || in.Score > 100 {
		return nil, nil, fmt.Errorf("%w: score must be between 0 and 100", ErrInvalidInput)
	}

	screening := &domain.Screening{
		ID:            uuid.NewString(),
		PatientID:     patient.ID,
		ScreeningType: in.ScreeningType,
	}
	result := &domain.ScreeningResult{
		ID:                           uuid.NewString(),
		Score:                        in.Score,
		RiskLevel:                    in.RiskLevel,
		DurationSeconds:              in.DurationSeconds,
		SocialAttentionPercentage:    in.SocialAttention,
		NonSocialAttentionPercentage: in.NonSocialAttention,
		ImprovementPercentage:        in.Improvement,
		Recommendations:              datatypes.NewJSONSlice(in.Recommendations),
		Strengths:                    datatypes.NewJSONSlice(in.Strengths),
		AreasForAttention:            datatypes.NewJSONSlice(in.AreasForAttention),
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.CreateScreening(ctx, tx, screening); err != nil {
			return err
		}
		result.ScreeningID = screening.ID
		_, err := repo.CreateScreeningResult(ctx, tx, result)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	record, err := s.Results.Append(ctx, userID, domain.ResultRecord{
		ChildID:            patient.ID,
		ChildName:          patient.Name,
		Date:               now.Format("2006-01-02"),
		Type:               in.ScreeningType,
		Risk:               in.RiskLevel,
		Score:              in.Score,
		Duration:           domain.FormatDuration(in.DurationSeconds),
		SocialAttention:    in.SocialAttention,
		NonSocialAttention: in.NonSocialAttention,
		Improvement:        in.Improvement,
		Timestamp:          now.UTC(),
	})
	if err != nil {
		return nil, nil, err
	}
	return screening, record, nil
}

// Run executes a live screening for one of the user's children: probe,
// initialize, blocking run, derivation, synthesis, and recording. The
// returned record is the flat cache entry visible in history.
//
// mlbackend.ErrUnreachable and mlbackend.ErrScreeningFailed pass through so
// the transport layer can distinguish "service down" from "run failed".
func (s *ScreeningService) Run(ctx context.Context, userID, patientID, screeningType string) (*domain.ResultRecord, error) {
	tr := otel.Tracer("services/ScreeningService")
	ctx, span := tr.Start(ctx, "Run",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("patient.id", patientID),
			attribute.String("screening.type", screeningType),
		),
	)
	defer span.End()

	st, ok := s.TypeByID(screeningType)
	if !ok {
		return nil, ErrUnknownScreeningType
	}
	patient, err := repo.GetPatientOwned(ctx, s.DB, patientID, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := s.Backend.Health(ctx); err != nil {
		return nil, err
	}
	if err := s.Backend.Initialize(ctx, s.FeaturesCSV); err != nil {
		return nil, err
	}

	resp, err := s.Backend.StartScreening(ctx, mlbackend.ScreeningRequest{
		PatientName:   patient.Name,
		PatientID:     patient.ID,
		PatientAge:    strconv.Itoa(patient.AgeMonths),
		Duration:      st.DurationSeconds,
		ScreeningType: st.ID,
	})
	if err != nil {
		return nil, err
	}

	outcome := resp.Result
	risk := domain.RiskFromVerdict(outcome.Verdict)
	score := domain.ScoreFromConfidence(outcome.Confidence)
	social, nonSocial, improvement := s.synthesizeProgress(risk)

	runDuration := resp.Duration
	if runDuration <= 0 {
		runDuration = st.DurationSeconds
	}

	screening := &domain.Screening{
		ID:            uuid.NewString(),
		PatientID:     patient.ID,
		ScreeningType: st.ID,
	}
	result := &domain.ScreeningResult{
		ID:                           uuid.NewString(),
		Score:                        score,
		RiskLevel:                    risk,
		DurationSeconds:              runDuration,
		SocialAttentionPercentage:    social,
		NonSocialAttentionPercentage: nonSocial,
		ImprovementPercentage:        improvement,
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.CreateScreening(ctx, tx, screening); err != nil {
			return err
		}
		result.ScreeningID = screening.ID
		_, err := repo.CreateScreeningResult(ctx, tx, result)
		return err
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	return s.Results.Append(ctx, userID, domain.ResultRecord{
		ChildID:            patient.ID,
		ChildName:          patient.Name,
		Date:               now.Format("2006-01-02"),
		Type:               st.ID,
		Risk:               risk,
		Score:              score,
		Duration:           domain.FormatDuration(runDuration),
		Verdict:            outcome.Verdict,
		Confidence:         outcome.Confidence,
		ModelProbs:         datatypes.NewJSONType(outcome.ModelProbs),
		SocialAttention:    social,
		NonSocialAttention: nonSocial,
		Improvement:        improvement,
		PDFReportURL:       s.Backend.ReportURL(outcome.PDFReportFilename),
		Timestamp:          now.UTC(),
	})
}

// synthesizeProgress derives the attention split and improvement trend from
// the risk band. Low risk samples social attention in [75,90) floored at 65;
// elevated risk samples [30,50) floored at 30. The two attention shares
// always sum to 100. Improvement is rounded to one decimal.
func (s *ScreeningService) synthesizeProgress(risk string) (social, nonSocial int, improvement float64) {
	var socialF, improvementF float64
	if risk == domain.RiskLow {
		socialF = math.Max(65, 75+s.rand()*15)
		improvementF = math.Max(5, 10+s.rand()*15)
	} else {
		socialF = math.Max(30, 50-s.rand()*20)
		improvementF = math.Max(-10, -5+s.rand()*10)
	}
	social = int(math.Round(socialF))
	nonSocial = 100 - social
	improvement = math.Round(improvementF*10) / 10
	return social, nonSocial, improvement
}

func (s *ScreeningService) rand() float64 {
	if s.Rand != nil {
		return s.Rand()
	}
	return rand.Float64()
}

func (s *ScreeningService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
