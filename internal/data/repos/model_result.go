package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/textbook-analytics/internal/domain"
	"github.com/yungbote/textbook-analytics/internal/platform/logger"
)

type ModelResultRepo interface {
	Create(ctx context.Context, tx *gorm.DB, results []*types.ModelResult) ([]*types.ModelResult, error)
	GetByRunID(ctx context.Context, tx *gorm.DB, runID uuid.UUID) ([]*types.ModelResult, error)
}

type modelResultRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewModelResultRepo(db *gorm.DB, baseLog *logger.Logger) ModelResultRepo {
	repoLog := baseLog.With("repo", "ModelResultRepo")
	return &modelResultRepo{db: db, log: repoLog}
}

func (r *modelResultRepo) Create(ctx context.Context, tx *gorm.DB, results []*types.ModelResult) ([]*types.ModelResult, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(results) == 0 {
		return []*types.ModelResult{}, nil
	}

	for _, res := range results {
		if res.ID == uuid.Nil {
			res.ID = uuid.New()
		}
	}
	if err := transaction.WithContext(ctx).Create(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *modelResultRepo) GetByRunID(ctx context.Context, tx *gorm.DB, runID uuid.UUID) ([]*types.ModelResult, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ModelResult
	if runID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("rank").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
