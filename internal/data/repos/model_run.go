package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/textbook-analytics/internal/domain"
	"github.com/yungbote/textbook-analytics/internal/platform/logger"
)

type ModelRunRepo interface {
	Create(ctx context.Context, tx *gorm.DB, run *types.ModelRun) (*types.ModelRun, error)
	Update(ctx context.Context, tx *gorm.DB, run *types.ModelRun) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ModelRun, error)
	// GetLatest returns the most recently started finished run, or nil when
	// no run has completed yet.
	GetLatest(ctx context.Context, tx *gorm.DB) (*types.ModelRun, error)
}

type modelRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewModelRunRepo(db *gorm.DB, baseLog *logger.Logger) ModelRunRepo {
	repoLog := baseLog.With("repo", "ModelRunRepo")
	return &modelRunRepo{db: db, log: repoLog}
}

func (r *modelRunRepo) Create(ctx context.Context, tx *gorm.DB, run *types.ModelRun) (*types.ModelRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (r *modelRunRepo) Update(ctx context.Context, tx *gorm.DB, run *types.ModelRun) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).Save(run).Error
}

func (r *modelRunRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ModelRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var run types.ModelRun
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *modelRunRepo) GetLatest(ctx context.Context, tx *gorm.DB) (*types.ModelRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var run types.ModelRun
	err := transaction.WithContext(ctx).
		Where("finished_at IS NOT NULL").
		Order("started_at DESC").
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}
