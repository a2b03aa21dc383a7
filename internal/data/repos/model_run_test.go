package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/textbook-analytics/internal/data/repos/testutil"
	types "github.com/yungbote/textbook-analytics/internal/domain"
)

func TestModelRunRepoGetLatest(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewModelRunRepo(db, testutil.Logger(t))

	base := time.Date(2025, 9, 2, 8, 0, 0, 0, time.UTC)
	testutil.SeedRun(t, ctx, tx, base, true)
	latest := testutil.SeedRun(t, ctx, tx, base.Add(time.Hour), true)
	// Unfinished runs never surface as latest.
	testutil.SeedRun(t, ctx, tx, base.Add(2*time.Hour), false)

	got, err := repo.GetLatest(ctx, tx)
	if err != nil {
		t.Fatalf("GetLatest: %v", err)
	}
	if got == nil || got.ID != latest.ID {
		t.Fatalf("GetLatest: want=%v got=%+v", latest.ID, got)
	}
}

func TestModelRunRepoGetLatestEmpty(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewModelRunRepo(db, testutil.Logger(t))
	got, err := repo.GetLatest(context.Background(), tx)
	if err != nil {
		t.Fatalf("GetLatest: %v", err)
	}
	if got != nil {
		t.Fatalf("GetLatest on empty table: want=nil got=%+v", got)
	}
}

func TestModelResultAndPredictionByRun(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	runRepo := NewModelRunRepo(db, testutil.Logger(t))
	resRepo := NewModelResultRepo(db, testutil.Logger(t))
	predRepo := NewHeldoutPredictionRepo(db, testutil.Logger(t))

	run, err := runRepo.Create(ctx, tx, &types.ModelRun{StartedAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("Create run: %v", err)
	}

	results := []*types.ModelResult{
		{RunID: run.ID, Name: "base_attempt", Rank: 2, AIC: 110, Coefficients: datatypes.JSON([]byte("{}"))},
		{RunID: run.ID, Name: "base", Rank: 1, AIC: 100, Coefficients: datatypes.JSON([]byte("{}"))},
	}
	if _, err := resRepo.Create(ctx, tx, results); err != nil {
		t.Fatalf("Create results: %v", err)
	}
	got, err := resRepo.GetByRunID(ctx, tx, run.ID)
	if err != nil {
		t.Fatalf("GetByRunID: %v", err)
	}
	if len(got) != 2 || got[0].Name != "base" || got[1].Name != "base_attempt" {
		t.Fatalf("results must come back rank-ordered: got %+v", got)
	}

	preds := []*types.HeldoutPrediction{
		{RunID: run.ID, SeqID: 1, StudentID: "s2", Chapter: 1, Score: 0.5},
		{RunID: run.ID, SeqID: 0, StudentID: "s1", Chapter: 1, Score: 0.75},
	}
	if _, err := predRepo.Create(ctx, tx, preds); err != nil {
		t.Fatalf("Create predictions: %v", err)
	}
	gotPreds, err := predRepo.GetByRunID(ctx, tx, run.ID)
	if err != nil {
		t.Fatalf("GetByRunID preds: %v", err)
	}
	if len(gotPreds) != 2 || gotPreds[0].SeqID != 0 || gotPreds[1].SeqID != 1 {
		t.Fatalf("predictions must come back seq-ordered: got %+v", gotPreds)
	}

	if rows, err := resRepo.GetByRunID(ctx, tx, uuid.Nil); err != nil || len(rows) != 0 {
		t.Fatalf("nil run id: err=%v len=%d", err, len(rows))
	}
}
