package repos

import (
	"context"

	"gorm.io/gorm"

	types "github.com/yungbote/textbook-analytics/internal/domain"
	"github.com/yungbote/textbook-analytics/internal/platform/logger"
)

type HeldoutRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.HeldoutResponse) ([]*types.HeldoutResponse, error)
	// ListAll returns the held-out rows in ingest order, which fixes the
	// sequence ids assigned during prediction aggregation.
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.HeldoutResponse, error)
}

type heldoutRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewHeldoutRepo(db *gorm.DB, baseLog *logger.Logger) HeldoutRepo {
	repoLog := baseLog.With("repo", "HeldoutRepo")
	return &heldoutRepo{db: db, log: repoLog}
}

func (r *heldoutRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.HeldoutResponse) ([]*types.HeldoutResponse, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(rows) == 0 {
		return []*types.HeldoutResponse{}, nil
	}

	if err := transaction.WithContext(ctx).CreateInBatches(&rows, 500).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *heldoutRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.HeldoutResponse, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.HeldoutResponse
	if err := transaction.WithContext(ctx).
		Order("created_at, id").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
