// Package services – DemoSeeder
//
// This file implements DemoSeeder, which populates a freshly registered
// account with a sample child profile and two completed screenings so the
// dashboard and history views are not empty on first login. The fixture is
// fixed; only identifiers and dates are minted per account.
package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/earlyvue/go-screening-backend/internal/domain"
	"github.com/earlyvue/go-screening-backend/internal/repo"
)

// demoScreening is one entry of the seeded fixture.
type demoScreening struct {
	screeningType      string
	daysAgo            int
	score              int
	durationSeconds    int
	socialAttention    int
	nonSocialAttention int
	improvement        float64
	recommendations    []string
	strengths          []string
	areasForAttention  []string
}

var demoScreenings = []demoScreening{
	{
		screeningType:      "ASD Screening",
		daysAgo:            15,
		score:              25,
		durationSeconds:    252,
		socialAttention:    75,
		nonSocialAttention: 25,
		improvement:        15,
		recommendations: []string{
			"Continue monitoring developmental milestones",
			"Engage in regular play-based learning activities",
			"Schedule follow-up screening in 6 months",
		},
		strengths: []string{
			"Good eye contact during interactions",
			"Responds well to familiar voices",
			"Shows interest in social games",
		},
		areasForAttention: []string{
			"Limited use of gestures to communicate needs",
			"Occasional difficulty with transitions between activities",
		},
	},
	{
		screeningType:      "Developmental Assessment",
		daysAgo:            45,
		score:              28,
		durationSeconds:    228,
		socialAttention:    72,
		nonSocialAttention: 28,
		improvement:        12,
		recommendations: []string{
			"Maintain current developmental support activities",
			"Continue regular pediatric check-ups",
			"Monitor language development progress",
		},
		strengths: []string{
			"Age-appropriate motor skills",
			"Good social engagement",
			"Following simple instructions",
		},
		areasForAttention: []string{
			"Vocabulary development slightly behind peers",
		},
	},
}

// DemoSeeder creates the first-login sample data for a new account.
type DemoSeeder struct {
	DB *gorm.DB

	// Now is the clock used for screening dates. Defaults to time.Now.
	Now func() time.Time
}

// Seed inserts the fixture child with two completed screenings, their
// results, and matching flat cache records, all owned by userID. Everything
// happens in one transaction; a failed seed leaves the account empty rather
// than half-populated.
func (s *DemoSeeder) Seed(ctx context.Context, userID string) error {
	tr := otel.Tracer("services/DemoSeeder")
	ctx, span := tr.Start(ctx, "Seed",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}

	patient := &domain.Patient{
		ID:          "patient-" + strconv.FormatInt(now.UnixMilli(), 10),
		UserID:      userID,
		Name:        "Emma Johnson",
		DateOfBirth: "2022-06-15",
		AgeMonths:   30,
		Gender:      "Female",
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.CreatePatient(ctx, tx, patient); err != nil {
			return fmt.Errorf("seed patient: %w", err)
		}

		for i, d := range demoScreenings {
			screening := &domain.Screening{
				ID:            uuid.NewString(),
				PatientID:     patient.ID,
				ScreeningType: d.screeningType,
			}
			if _, err := repo.CreateScreening(ctx, tx, screening); err != nil {
				return fmt.Errorf("seed screening %d: %w", i, err)
			}
			performedAt := now.AddDate(0, 0, -d.daysAgo)
			if err := tx.Model(&domain.Screening{}).
				Where("id = ?", screening.ID).
				Update("created_at", performedAt).Error; err != nil {
				return fmt.Errorf("seed screening %d date: %w", i, err)
			}

			result := &domain.ScreeningResult{
				ID:                           uuid.NewString(),
				ScreeningID:                  screening.ID,
				Score:                        d.score,
				RiskLevel:                    domain.RiskLow,
				DurationSeconds:              d.durationSeconds,
				SocialAttentionPercentage:    d.socialAttention,
				NonSocialAttentionPercentage: d.nonSocialAttention,
				ImprovementPercentage:        d.improvement,
				Recommendations:              datatypes.NewJSONSlice(d.recommendations),
				Strengths:                    datatypes.NewJSONSlice(d.strengths),
				AreasForAttention:            datatypes.NewJSONSlice(d.areasForAttention),
			}
			if _, err := repo.CreateScreeningResult(ctx, tx, result); err != nil {
				return fmt.Errorf("seed result %d: %w", i, err)
			}

			record := &domain.ResultRecord{
				ID:                 now.UnixMilli() + int64(i),
				UserID:             userID,
				ChildID:            patient.ID,
				ChildName:          patient.Name,
				Date:               performedAt.Format("2006-01-02"),
				Type:               d.screeningType,
				Risk:               domain.RiskLow,
				Score:              d.score,
				Duration:           domain.FormatDuration(d.durationSeconds),
				SocialAttention:    d.socialAttention,
				NonSocialAttention: d.nonSocialAttention,
				Improvement:        d.improvement,
				Timestamp:          performedAt.UTC(),
			}
			if _, err := repo.AppendResult(ctx, tx, record); err != nil {
				return fmt.Errorf("seed record %d: %w", i, err)
			}
		}
		return nil
	})
}
