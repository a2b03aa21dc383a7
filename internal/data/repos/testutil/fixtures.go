package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/textbook-analytics/internal/domain"
)

// SeedAttempt inserts one attempt row with sensible defaults. createdAt
// controls ingest order for ListAll assertions.
func SeedAttempt(tb testing.TB, ctx context.Context, tx *gorm.DB, student string, chapter int, item string, createdAt time.Time) *types.Attempt {
	tb.Helper()
	started := createdAt.Add(-2 * time.Minute)
	a := &types.Attempt{
		ID:             uuid.New(),
		BookID:         "bk1",
		ReleaseID:      "r1",
		InstitutionID:  "inst1",
		ClassID:        "c1",
		StudentID:      student,
		Chapter:        chapter,
		ItemID:         item,
		AttemptIndex:   1,
		StartedAt:      &started,
		SubmittedAt:    &createdAt,
		PageCompleted:  true,
		PointsPossible: 1,
		PointsEarned:   1,
		CreatedAt:      createdAt,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed attempt: %v", err)
	}
	return a
}

func SeedHeldout(tb testing.TB, ctx context.Context, tx *gorm.DB, student string, chapter int, createdAt time.Time) *types.HeldoutResponse {
	tb.Helper()
	h := &types.HeldoutResponse{
		ID:            uuid.New(),
		BookID:        "bk1",
		ReleaseID:     "r1",
		InstitutionID: "inst1",
		ClassID:       "hc1",
		StudentID:     student,
		Chapter:       chapter,
		ItemID:        "item-h",
		CreatedAt:     createdAt,
	}
	if err := tx.WithContext(ctx).Create(h).Error; err != nil {
		tb.Fatalf("seed heldout: %v", err)
	}
	return h
}

func SeedRun(tb testing.TB, ctx context.Context, tx *gorm.DB, startedAt time.Time, finished bool) *types.ModelRun {
	tb.Helper()
	run := &types.ModelRun{
		ID:        uuid.New(),
		StartedAt: startedAt,
		CreatedAt: startedAt,
	}
	if finished {
		fin := startedAt.Add(time.Minute)
		run.FinishedAt = &fin
	}
	if err := tx.WithContext(ctx).Create(run).Error; err != nil {
		tb.Fatalf("seed run: %v", err)
	}
	return run
}
