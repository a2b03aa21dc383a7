// Package study runs the end-to-end chapter outcome analysis: reduce raw
// attempt logs to a longitudinal panel, fit the candidate mixed models in
// parallel, rank them, score the held-out table, and persist every artifact.
package study

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/yungbote/textbook-analytics/internal/data/repos"
	types "github.com/yungbote/textbook-analytics/internal/domain"
	"github.com/yungbote/textbook-analytics/internal/modules/glmm"
	"github.com/yungbote/textbook-analytics/internal/modules/panel"
	"github.com/yungbote/textbook-analytics/internal/observability"
	"github.com/yungbote/textbook-analytics/internal/platform/logger"
)

type RunDeps struct {
	Log *logger.Logger

	Attempts    repos.AttemptRepo
	Heldout     repos.HeldoutRepo
	Runs        repos.ModelRunRepo
	Results     repos.ModelResultRepo
	Predictions repos.HeldoutPredictionRepo
}

type RunInput struct {
	Solver  glmm.FitConfig
	CSVPath string
}

type RunOutput struct {
	RunID uuid.UUID

	AttemptRows int
	ReducedRows int
	ChapterRows int

	Ranking      []glmm.Comparison
	BestModel    string
	HeldoutModel string
	Predictions  []glmm.HeldoutScore
}

// Run executes one full pipeline pass. The four candidate models fit
// concurrently; everything else is sequential. A configuration that cannot
// be fit at all is surfaced with a warning and skipped, non-convergence is
// recorded on its result row; the run aborts only when no model fits.
func Run(ctx context.Context, deps RunDeps, input RunInput) (RunOutput, error) {
	out := RunOutput{}
	if deps.Attempts == nil || deps.Heldout == nil || deps.Runs == nil || deps.Results == nil || deps.Predictions == nil {
		return out, fmt.Errorf("study: missing deps")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	log := deps.Log
	if log == nil {
		var err error
		log, err = logger.New("production")
		if err != nil {
			return out, err
		}
	}
	log = log.With("module", "study")

	startedAt := time.Now().UTC()
	run, err := deps.Runs.Create(ctx, nil, &types.ModelRun{StartedAt: startedAt})
	if err != nil {
		return out, fmt.Errorf("study: create run: %w", err)
	}
	out.RunID = run.ID

	frame, stats, err := buildFrame(ctx, deps, log)
	if err != nil {
		return out, err
	}
	out.AttemptRows = stats.attemptRows
	out.ReducedRows = stats.reducedRows
	out.ChapterRows = stats.chapterRows

	fits, err := fitAll(ctx, frame, input.Solver, log)
	if err != nil {
		return out, err
	}

	ranking := glmm.Compare(fits, frame)
	out.Ranking = ranking
	out.BestModel = ranking[0].Name

	byName := make(map[string]*glmm.FitResult, len(fits))
	for _, f := range fits {
		byName[f.Spec.Name] = f
	}

	// Held-out rows carry no engagement or lag features, so scoring falls to
	// the best-ranked model whose predictors the held-out table can supply.
	heldoutFit := pickHeldoutFit(ranking, byName)
	if heldoutFit == nil {
		return out, fmt.Errorf("study: no fitted model is usable on the held-out table")
	}
	out.HeldoutModel = heldoutFit.Spec.Name

	scores, err := scoreHeldout(ctx, deps, heldoutFit, log)
	if err != nil {
		return out, err
	}
	out.Predictions = scores

	if input.CSVPath != "" {
		if err := WriteCSV(input.CSVPath, scores); err != nil {
			return out, fmt.Errorf("study: export csv: %w", err)
		}
		log.Info("held-out predictions exported", "path", input.CSVPath, "rows", len(scores))
	}

	if err := persist(ctx, deps, run, &out, byName, startedAt); err != nil {
		return out, err
	}

	log.Info("run complete",
		"run_id", run.ID,
		"best_model", out.BestModel,
		"heldout_model", out.HeldoutModel,
		"predictions", len(scores),
	)
	return out, nil
}

type frameStats struct {
	attemptRows int
	reducedRows int
	chapterRows int
}

func buildFrame(ctx context.Context, deps RunDeps, log *logger.Logger) ([]panel.FrameRow, frameStats, error) {
	ctx, span := observability.StartStage(ctx, "study.build_frame")
	defer span.End()

	stats := frameStats{}

	rows, err := deps.Attempts.ListAll(ctx, nil)
	if err != nil {
		return nil, stats, fmt.Errorf("study: load attempts: %w", err)
	}
	if len(rows) == 0 {
		return nil, stats, fmt.Errorf("study: no attempt rows loaded")
	}
	attempts := make([]types.Attempt, len(rows))
	for i, r := range rows {
		attempts[i] = *r
	}
	stats.attemptRows = len(attempts)

	items := panel.Reduce(attempts)
	stats.reducedRows = len(items)

	summaries := panel.AggregateChapters(items)
	summaries, err = panel.BuildLagFeatures(summaries)
	if err != nil {
		return nil, stats, fmt.Errorf("study: lag features: %w", err)
	}
	stats.chapterRows = len(summaries)

	frame, err := panel.BuildFrame(items, summaries)
	if err != nil {
		return nil, stats, fmt.Errorf("study: build frame: %w", err)
	}

	span.SetAttributes(
		attribute.Int("attempt_rows", stats.attemptRows),
		attribute.Int("reduced_rows", stats.reducedRows),
		attribute.Int("chapter_rows", stats.chapterRows),
	)
	log.Info("analysis frame built",
		"attempt_rows", stats.attemptRows,
		"reduced_rows", stats.reducedRows,
		"chapter_rows", stats.chapterRows,
		"frame_rows", len(frame),
	)
	return frame, stats, nil
}

func fitAll(ctx context.Context, frame []panel.FrameRow, cfg glmm.FitConfig, log *logger.Logger) ([]*glmm.FitResult, error) {
	ctx, span := observability.StartStage(ctx, "study.fit_models")
	defer span.End()

	specs := glmm.CanonicalModels()
	results := make([]*glmm.FitResult, len(specs))
	failures := make([]error, len(specs))

	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range specs {
		g.Go(func() error {
			d, err := glmm.NewDesign(frame, spec)
			if err != nil {
				failures[i] = err
				return nil
			}
			fit, err := glmm.Fit(gctx, d, cfg, log)
			if err != nil {
				failures[i] = err
				return nil
			}
			results[i] = fit
			return nil
		})
	}
	_ = g.Wait()

	// A configuration that cannot be fit is surfaced and skipped; the
	// remaining configurations still rank.
	fits := make([]*glmm.FitResult, 0, len(specs))
	for i, fit := range results {
		if fit == nil {
			log.Warn("model configuration failed, continuing", "model", specs[i].Name, "error", failures[i])
			continue
		}
		fits = append(fits, fit)
	}
	if len(fits) == 0 {
		return nil, fmt.Errorf("study: every model configuration failed to fit")
	}
	return fits, nil
}

func pickHeldoutFit(ranking []glmm.Comparison, byName map[string]*glmm.FitResult) *glmm.FitResult {
	for _, c := range ranking {
		f := byName[c.Name]
		if f != nil && !f.Spec.NeedsEngagement() {
			return f
		}
	}
	return nil
}

func scoreHeldout(ctx context.Context, deps RunDeps, fit *glmm.FitResult, log *logger.Logger) ([]glmm.HeldoutScore, error) {
	ctx, span := observability.StartStage(ctx, "study.score_heldout")
	defer span.End()

	rows, err := deps.Heldout.ListAll(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("study: load held-out rows: %w", err)
	}
	if len(rows) == 0 {
		log.Warn("held-out table is empty, skipping prediction")
		return []glmm.HeldoutScore{}, nil
	}

	frame := make([]panel.FrameRow, len(rows))
	for i, r := range rows {
		frame[i] = panel.FrameRow{
			BookID:    r.BookID,
			ClassID:   r.ClassID,
			StudentID: r.StudentID,
			Chapter:   r.Chapter,
		}
	}

	scores, err := glmm.PredictHeldout(fit, frame)
	if err != nil {
		return nil, fmt.Errorf("study: held-out scoring: %w", err)
	}
	span.SetAttributes(attribute.Int("groups", len(scores)))
	return scores, nil
}

func persist(ctx context.Context, deps RunDeps, run *types.ModelRun, out *RunOutput, byName map[string]*glmm.FitResult, startedAt time.Time) error {
	ctx, span := observability.StartStage(ctx, "study.persist")
	defer span.End()

	results := make([]*types.ModelResult, 0, len(out.Ranking))
	for _, c := range out.Ranking {
		fit := byName[c.Name]
		coefs, err := coefficientsJSON(fit)
		if err != nil {
			return fmt.Errorf("study: encode coefficients for %s: %w", c.Name, err)
		}
		results = append(results, &types.ModelResult{
			RunID:           run.ID,
			Name:            c.Name,
			Rank:            c.Rank,
			Converged:       c.Converged,
			Message:         c.Message,
			Rows:            c.Rows,
			AIC:             c.AIC,
			BIC:             c.BIC,
			RMSE:            c.RMSE,
			ClassVariance:   fit.ClassVariance,
			StudentVariance: fit.StudentVariance,
			Coefficients:    coefs,
		})
	}
	if _, err := deps.Results.Create(ctx, nil, results); err != nil {
		return fmt.Errorf("study: persist results: %w", err)
	}

	preds := make([]*types.HeldoutPrediction, 0, len(out.Predictions))
	for _, s := range out.Predictions {
		preds = append(preds, &types.HeldoutPrediction{
			RunID:     run.ID,
			SeqID:     s.SeqID,
			StudentID: s.StudentID,
			Chapter:   s.Chapter,
			Score:     s.Score,
		})
	}
	if _, err := deps.Predictions.Create(ctx, nil, preds); err != nil {
		return fmt.Errorf("study: persist predictions: %w", err)
	}

	meta, err := json.Marshal(map[string]interface{}{
		"models":   len(out.Ranking),
		"duration": time.Since(startedAt).String(),
	})
	if err != nil {
		return err
	}

	finishedAt := time.Now().UTC()
	run.FinishedAt = &finishedAt
	run.AttemptRows = out.AttemptRows
	run.ReducedRows = out.ReducedRows
	run.ChapterRows = out.ChapterRows
	run.BestModel = out.BestModel
	run.HeldoutModel = out.HeldoutModel
	run.Metadata = datatypes.JSON(meta)
	if err := deps.Runs.Update(ctx, nil, run); err != nil {
		return fmt.Errorf("study: finalize run: %w", err)
	}
	return nil
}

func coefficientsJSON(fit *glmm.FitResult) (datatypes.JSON, error) {
	named := make(map[string]float64, len(fit.Cols))
	for i, col := range fit.Cols {
		named[col] = fit.Coef[i]
	}
	raw, err := json.Marshal(named)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
