package repos

import (
	"context"

	"gorm.io/gorm"

	types "github.com/yungbote/textbook-analytics/internal/domain"
	"github.com/yungbote/textbook-analytics/internal/platform/logger"
)

type AttemptRepo interface {
	Create(ctx context.Context, tx *gorm.DB, attempts []*types.Attempt) ([]*types.Attempt, error)
	// ListAll returns every attempt in ingest order. Downstream reduction
	// depends on this order being stable across runs.
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Attempt, error)
	Count(ctx context.Context, tx *gorm.DB) (int64, error)
}

type attemptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAttemptRepo(db *gorm.DB, baseLog *logger.Logger) AttemptRepo {
	repoLog := baseLog.With("repo", "AttemptRepo")
	return &attemptRepo{db: db, log: repoLog}
}

func (r *attemptRepo) Create(ctx context.Context, tx *gorm.DB, attempts []*types.Attempt) ([]*types.Attempt, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(attempts) == 0 {
		return []*types.Attempt{}, nil
	}

	if err := transaction.WithContext(ctx).CreateInBatches(&attempts, 500).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}

func (r *attemptRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Attempt, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Attempt
	if err := transaction.WithContext(ctx).
		Order("created_at, id").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *attemptRepo) Count(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var n int64
	if err := transaction.WithContext(ctx).Model(&types.Attempt{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
