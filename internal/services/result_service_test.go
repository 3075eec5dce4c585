package services

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/earlyvue/go-screening-backend/internal/domain"
	"github.com/earlyvue/go-screening-backend/internal/events"
)

func seedResults(t *testing.T, svc *ResultService, userID string, records ...domain.ResultRecord) {
	t.Helper()
	for i := range records {
		if _, err := svc.Append(context.Background(), userID, records[i]); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}
}

func TestResultService_ListChildFilter(t *testing.T) {
	db := newServiceDB(t)
	svc := &ResultService{DB: db}
	ctx := context.Background()

	seedResults(t, svc, "u1",
		domain.ResultRecord{ID: 1, ChildID: "7", Risk: domain.RiskLow},
		domain.ResultRecord{ID: 2, ChildID: "8", Risk: domain.RiskHigh},
		domain.ResultRecord{ID: 3, ChildID: "7", Risk: domain.RiskLow},
	)

	all, err := svc.List(ctx, "u1", FilterAll)
	if err != nil || len(all) != 3 {
		t.Fatalf("filter all: %d records, err=%v", len(all), err)
	}

	only7, err := svc.List(ctx, "u1", "7")
	if err != nil || len(only7) != 2 {
		t.Fatalf("filter 7: %d records, err=%v", len(only7), err)
	}
	for _, r := range only7 {
		if r.ChildID != "7" {
			t.Fatalf("stray record: %+v", r)
		}
	}

	// The specific-child filter is stringwise; "007" is not "7" here.
	none, err := svc.List(ctx, "u1", "007")
	if err != nil || len(none) != 0 {
		t.Fatalf("stringwise filter leaked: %+v err=%v", none, err)
	}
}

func TestResultService_AppendPublishesAndStampsOwner(t *testing.T) {
	db := newServiceDB(t)
	var bc events.ResultBroadcast
	svc := &ResultService{DB: db, Broadcast: &bc}

	var published []domain.ResultRecord
	bc.Subscribe(func(r domain.ResultRecord) { published = append(published, r) })

	stored, err := svc.Append(context.Background(), "u1", domain.ResultRecord{
		ID:      10,
		UserID:  "someone-else", // must be overwritten
		ChildID: "7",
		Risk:    domain.RiskHigh,
		Score:   82,
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if stored.UserID != "u1" {
		t.Fatalf("owner not stamped: %+v", stored)
	}
	if len(published) != 1 || published[0].ID != stored.ID || published[0].Score != 82 {
		t.Fatalf("broadcast mismatch: %+v", published)
	}
}

func TestResultService_DeleteScopedToOwner(t *testing.T) {
	db := newServiceDB(t)
	svc := &ResultService{DB: db}
	ctx := context.Background()

	seedResults(t, svc, "u1", domain.ResultRecord{ID: 5, ChildID: "7"})

	if err := svc.Delete(ctx, "u2", 5); !errors.Is(err, ErrResultNotFound) {
		t.Fatalf("foreign delete: %v", err)
	}
	if err := svc.Delete(ctx, "u1", 5); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, "u1", 5); !errors.Is(err, ErrResultNotFound) {
		t.Fatalf("double delete: %v", err)
	}
}

func TestResultService_Stats(t *testing.T) {
	db := newServiceDB(t)
	svc := &ResultService{DB: db}

	seedResults(t, svc, "u1",
		domain.ResultRecord{ID: 1, ChildID: "7", Risk: domain.RiskLow, SocialAttention: 75, NonSocialAttention: 25, Improvement: 15},
		domain.ResultRecord{ID: 2, ChildID: "7", Risk: domain.RiskLow, SocialAttention: 72, NonSocialAttention: 28, Improvement: 12},
		domain.ResultRecord{ID: 3, ChildID: "8", Risk: domain.RiskHigh, SocialAttention: 40, NonSocialAttention: 60, Improvement: -5},
		domain.ResultRecord{ID: 4, ChildID: "8", Risk: domain.RiskMedium, SocialAttention: 55, NonSocialAttention: 45, Improvement: 2},
	)

	st, err := svc.Stats(context.Background(), "u1", FilterAll)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Total != 4 || st.LowRisk != 2 || st.MediumRisk != 1 || st.HighRisk != 1 {
		t.Fatalf("counts wrong: %+v", st)
	}
	if st.AvgSocialAttention != 60.5 || st.AvgNonSocial != 39.5 || st.AvgImprovement != 6 {
		t.Fatalf("averages wrong: %+v", st)
	}

	filtered, err := svc.Stats(context.Background(), "u1", "7")
	if err != nil {
		t.Fatalf("filtered Stats: %v", err)
	}
	if filtered.Total != 2 || filtered.LowRisk != 2 || filtered.AvgImprovement != 13.5 {
		t.Fatalf("filtered stats wrong: %+v", filtered)
	}

	empty, err := svc.Stats(context.Background(), "nobody", FilterAll)
	if err != nil || empty.Total != 0 || empty.AvgSocialAttention != 0 {
		t.Fatalf("empty stats wrong: %+v err=%v", empty, err)
	}
}

func TestResultService_RecentLastFourNewestFirst(t *testing.T) {
	db := newServiceDB(t)
	svc := &ResultService{DB: db}

	for id := int64(1); id <= 6; id++ {
		seedResults(t, svc, "u1", domain.ResultRecord{ID: id, ChildID: "7"})
	}

	recent, err := svc.Recent(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 4 {
		t.Fatalf("len = %d, want 4", len(recent))
	}
	for i, want := range []int64{6, 5, 4, 3} {
		if recent[i].ID != want {
			t.Fatalf("recent[%d] = %d, want %d", i, recent[i].ID, want)
		}
	}
}

func TestResultService_ExportXLSX(t *testing.T) {
	db := newServiceDB(t)
	svc := &ResultService{DB: db}

	seedResults(t, svc, "u1",
		domain.ResultRecord{
			ID: 1, ChildID: "7", ChildName: "Emma Johnson", Date: "2026-08-01",
			Type: "basic-asd", Risk: domain.RiskLow, Score: 25, Duration: "4.2 minutes",
			Verdict: "Not Autistic", Confidence: 0.25,
			SocialAttention: 75, NonSocialAttention: 25, Improvement: 15,
		},
	)

	raw, err := svc.ExportXLSX(context.Background(), "u1", FilterAll)
	if err != nil {
		t.Fatalf("ExportXLSX: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Results")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header + 1", len(rows))
	}
	if rows[0][0] != "Date" || rows[1][1] != "Emma Johnson" || rows[1][3] != "low" {
		t.Fatalf("unexpected sheet content: %v", rows)
	}
}

func TestResultService_RepairOnLogin(t *testing.T) {
	db := newServiceDB(t)
	svc := &ResultService{DB: db}
	ctx := context.Background()

	userID := seedUser(t, db, "u1", "a@x.com")
	psvc := NewPatientService(db)
	psvc.NewID = func() string { return "7" }
	if _, err := psvc.Create(ctx, userID, PatientInput{Name: "Emma", DateOfBirth: "2024-01-01"}); err != nil {
		t.Fatalf("seed patient: %v", err)
	}

	// Orphan written before the owner was known.
	seedResults(t, svc, "", domain.ResultRecord{ID: 1, ChildID: "7", Risk: domain.RiskHigh})

	if got, err := svc.List(ctx, userID, FilterAll); err != nil || len(got) != 0 {
		t.Fatalf("orphan must be invisible before repair: %+v err=%v", got, err)
	}

	n, err := svc.RepairOnLogin(ctx, userID)
	if err != nil || n != 1 {
		t.Fatalf("RepairOnLogin: n=%d err=%v", n, err)
	}
	if got, err := svc.List(ctx, userID, FilterAll); err != nil || len(got) != 1 {
		t.Fatalf("repaired record must be visible: %+v err=%v", got, err)
	}
}
