// Package services – ResultService
//
// This file implements ResultService, the accessor for the flat result
// cache that history, stats, and dashboard views render. Listings are always
// scoped to the owning user; the optional child filter compares ids
// stringwise, with "all" meaning no filter. The service also owns the login
// repair path that claims orphaned records, the dashboard aggregates, the
// recent slice, and the spreadsheet export.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/earlyvue/go-screening-backend/internal/domain"
	"github.com/earlyvue/go-screening-backend/internal/events"
	"github.com/earlyvue/go-screening-backend/internal/repo"
)

// FilterAll disables child filtering in List.
const FilterAll = "all"

// RecentLimit is the number of results shown on the dashboard.
const RecentLimit = 4

// ResultStats aggregates a result listing for the dashboard and history
// header: counts per risk band plus averaged progress metrics.
type ResultStats struct {
	Total              int     `json:"total"`
	LowRisk            int     `json:"low_risk"`
	MediumRisk         int     `json:"medium_risk"`
	HighRisk           int     `json:"high_risk"`
	AvgSocialAttention float64 `json:"avg_social_attention"`
	AvgNonSocial       float64 `json:"avg_non_social_attention"`
	AvgImprovement     float64 `json:"avg_improvement"`
}

// ResultService reads and mutates the per-user result cache.
type ResultService struct {
	DB *gorm.DB

	// Broadcast, when set, receives every record stored through Append.
	Broadcast *events.ResultBroadcast
}

// List returns the user's records oldest-first, optionally narrowed to one
// child. childID == "all" (or empty) returns everything.
func (s *ResultService) List(ctx context.Context, userID, childID string) ([]domain.ResultRecord, error) {
	tr := otel.Tracer("services/ResultService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("child.filter", childID),
		),
	)
	defer span.End()

	all, err := repo.ListResultsByUser(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	childID = strings.TrimSpace(childID)
	if childID == "" || childID == FilterAll {
		return all, nil
	}
	out := make([]domain.ResultRecord, 0, len(all))
	for _, r := range all {
		if strings.TrimSpace(r.ChildID) == childID {
			out = append(out, r)
		}
	}
	return out, nil
}

// Append stores a record for userID and publishes it on the broadcast. The
// record's owner field is overwritten with userID regardless of input.
func (s *ResultService) Append(ctx context.Context, userID string, r domain.ResultRecord) (*domain.ResultRecord, error) {
	tr := otel.Tracer("services/ResultService")
	ctx, span := tr.Start(ctx, "Append",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	r.UserID = userID
	stored, err := repo.AppendResult(ctx, s.DB, &r)
	if err != nil {
		return nil, err
	}
	if s.Broadcast != nil {
		s.Broadcast.Publish(*stored)
	}
	return stored, nil
}

// Delete removes one record by id, scoped to the owner.
func (s *ResultService) Delete(ctx context.Context, userID string, id int64) error {
	tr := otel.Tracer("services/ResultService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int64("result.id", id),
		),
	)
	defer span.End()

	err := repo.DeleteResult(ctx, s.DB, userID, id)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrResultNotFound
	}
	return err
}

// Stats computes the listing aggregates, honoring the same child filter as
// List. Averages are zero when the filtered set is empty.
func (s *ResultService) Stats(ctx context.Context, userID, childID string) (*ResultStats, error) {
	tr := otel.Tracer("services/ResultService")
	ctx, span := tr.Start(ctx, "Stats",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	results, err := s.List(ctx, userID, childID)
	if err != nil {
		return nil, err
	}

	st := &ResultStats{Total: len(results)}
	var social, nonSocial, improvement float64
	for _, r := range results {
		switch r.Risk {
		case domain.RiskLow:
			st.LowRisk++
		case domain.RiskMedium:
			st.MediumRisk++
		case domain.RiskHigh:
			st.HighRisk++
		}
		social += float64(r.SocialAttention)
		nonSocial += float64(r.NonSocialAttention)
		improvement += r.Improvement
	}
	if st.Total > 0 {
		n := float64(st.Total)
		st.AvgSocialAttention = social / n
		st.AvgNonSocial = nonSocial / n
		st.AvgImprovement = improvement / n
	}
	return st, nil
}

// Recent returns the newest records for the dashboard, most recent first,
// capped at RecentLimit.
func (s *ResultService) Recent(ctx context.Context, userID string) ([]domain.ResultRecord, error) {
	tr := otel.Tracer("services/ResultService")
	ctx, span := tr.Start(ctx, "Recent",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	all, err := repo.ListResultsByUser(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	start := len(all) - RecentLimit
	if start < 0 {
		start = 0
	}
	tail := all[start:]
	out := make([]domain.ResultRecord, 0, len(tail))
	for i := len(tail) - 1; i >= 0; i-- {
		out = append(out, tail[i])
	}
	return out, nil
}

// RepairOnLogin backfills ownerless records that reference one of the user's
// children, so results saved during a registration race become visible.
// Returns the number of claimed records.
func (s *ResultService) RepairOnLogin(ctx context.Context, userID string) (int64, error) {
	tr := otel.Tracer("services/ResultService")
	ctx, span := tr.Start(ctx, "RepairOnLogin",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	return repo.RepairOrphanedResults(ctx, s.DB, userID)
}

// exportHeader is the column layout of the spreadsheet export.
var exportHeader = []string{
	"Date", "Child", "Screening Type", "Risk", "Score",
	"Duration", "Verdict", "Confidence",
	"Social Attention %", "Non-Social Attention %", "Improvement %",
}

// ExportXLSX renders the user's (optionally child-filtered) results as a
// single-sheet .xlsx workbook and returns the serialized bytes.
func (s *ResultService) ExportXLSX(ctx context.Context, userID, childID string) ([]byte, error) {
	tr := otel.Tracer("services/ResultService")
	ctx, span := tr.Start(ctx, "ExportXLSX",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	results, err := s.List(ctx, userID, childID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Results"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	for col, h := range exportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}
	for i, r := range results {
		row := []any{
			r.Date, r.ChildName, r.Type, r.Risk, r.Score,
			r.Duration, r.Verdict, r.Confidence,
			r.SocialAttention, r.NonSocialAttention, r.Improvement,
		}
		for col, v := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}
