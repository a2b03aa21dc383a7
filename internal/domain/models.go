package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Attempt is one submission event from the interactive textbook logs.
// Rows are loaded once and never mutated by the pipeline.
type Attempt struct {
	ID uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`

	BookID        string `json:"book_id" gorm:"index:idx_attempt_group"`
	ReleaseID     string `json:"release_id" gorm:"index:idx_attempt_group"`
	InstitutionID string `json:"institution_id" gorm:"index:idx_attempt_group"`
	ClassID       string `json:"class_id" gorm:"index:idx_attempt_group"`
	StudentID     string `json:"student_id" gorm:"index:idx_attempt_group"`
	Chapter       int    `json:"chapter" gorm:"index:idx_attempt_group"`
	ItemID        string `json:"item_id" gorm:"index:idx_attempt_group"`

	AttemptIndex int `json:"attempt_index"`

	StartedAt   *time.Time `json:"started_at"`
	SubmittedAt *time.Time `json:"submitted_at"`

	PageCompleted  bool    `json:"page_completed"`
	PointsPossible float64 `json:"points_possible"`
	PointsEarned   float64 `json:"points_earned"`

	CreatedAt time.Time `json:"created_at"`
}

// HeldoutResponse is one row of the held-out evaluation table. It shares the
// grouping/chapter/book schema with Attempt but carries no engagement or lag
// features; its class and student ids are disjoint from the training groups.
type HeldoutResponse struct {
	ID uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`

	BookID        string `json:"book_id"`
	ReleaseID     string `json:"release_id"`
	InstitutionID string `json:"institution_id"`
	ClassID       string `json:"class_id" gorm:"index"`
	StudentID     string `json:"student_id" gorm:"index"`
	Chapter       int    `json:"chapter"`
	ItemID        string `json:"item_id"`

	CreatedAt time.Time `json:"created_at"`
}

// ModelRun records one end-to-end pipeline execution.
type ModelRun struct {
	ID uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`

	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`

	AttemptRows  int    `json:"attempt_rows"`
	ReducedRows  int    `json:"reduced_rows"`
	ChapterRows  int    `json:"chapter_rows"`
	BestModel    string `json:"best_model"`
	HeldoutModel string `json:"heldout_model"`

	Metadata datatypes.JSON `json:"metadata" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
}

// ModelResult is one fitted configuration within a run, ranked by AIC.
type ModelResult struct {
	ID    uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	RunID uuid.UUID `json:"run_id" gorm:"type:uuid;index"`

	Name      string `json:"name"`
	Rank      int    `json:"rank"`
	Converged bool   `json:"converged"`
	Message   string `json:"message"`

	Rows int     `json:"rows"`
	AIC  float64 `json:"aic"`
	BIC  float64 `json:"bic"`
	RMSE float64 `json:"rmse"`

	ClassVariance   float64 `json:"class_variance"`
	StudentVariance float64 `json:"student_variance"`

	Coefficients datatypes.JSON `json:"coefficients" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
}

// HeldoutPrediction is one aggregated (student, chapter) prediction from the
// held-out set. SeqID is the contiguous zero-based identifier emitted in the
// final result table, assigned in aggregation order.
type HeldoutPrediction struct {
	ID    uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	RunID uuid.UUID `json:"run_id" gorm:"type:uuid;index"`

	SeqID     int     `json:"seq_id"`
	StudentID string  `json:"student_id"`
	Chapter   int     `json:"chapter"`
	Score     float64 `json:"score"`

	CreatedAt time.Time `json:"created_at"`
}
