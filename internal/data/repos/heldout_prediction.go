package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/textbook-analytics/internal/domain"
	"github.com/yungbote/textbook-analytics/internal/platform/logger"
)

type HeldoutPredictionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, preds []*types.HeldoutPrediction) ([]*types.HeldoutPrediction, error)
	GetByRunID(ctx context.Context, tx *gorm.DB, runID uuid.UUID) ([]*types.HeldoutPrediction, error)
}

type heldoutPredictionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewHeldoutPredictionRepo(db *gorm.DB, baseLog *logger.Logger) HeldoutPredictionRepo {
	repoLog := baseLog.With("repo", "HeldoutPredictionRepo")
	return &heldoutPredictionRepo{db: db, log: repoLog}
}

func (r *heldoutPredictionRepo) Create(ctx context.Context, tx *gorm.DB, preds []*types.HeldoutPrediction) ([]*types.HeldoutPrediction, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(preds) == 0 {
		return []*types.HeldoutPrediction{}, nil
	}

	for _, p := range preds {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
	}
	if err := transaction.WithContext(ctx).CreateInBatches(&preds, 500).Error; err != nil {
		return nil, err
	}
	return preds, nil
}

func (r *heldoutPredictionRepo) GetByRunID(ctx context.Context, tx *gorm.DB, runID uuid.UUID) ([]*types.HeldoutPrediction, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.HeldoutPrediction
	if runID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("seq_id").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
