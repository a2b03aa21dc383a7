package glmm

import (
	"fmt"

	"github.com/yungbote/textbook-analytics/internal/modules/panel"
)

// HeldoutScore is one aggregated held-out prediction: the mean fixed-effects
// probability over a (student, chapter) group, with a contiguous zero-based
// identifier assigned in aggregation order.
type HeldoutScore struct {
	SeqID     int
	StudentID string
	Chapter   int
	Score     float64
}

// PredictHeldout scores a held-out frame whose class and student levels are
// disjoint from training. Predictions are fixed-effects only: per-group
// intercepts for unseen levels are undefined, so the random effects are held
// at the population average. Item-level probabilities are averaged to one row
// per (student, chapter) in first-appearance order.
//
// The fitted model must not require engagement or lag features; the held-out
// table does not carry them.
func PredictHeldout(fit *FitResult, rows []panel.FrameRow) ([]HeldoutScore, error) {
	if fit == nil {
		return nil, fmt.Errorf("glmm: no fitted model for held-out scoring")
	}
	if fit.Spec.NeedsEngagement() {
		return nil, fmt.Errorf("glmm: model %s requires engagement features absent from the held-out table", fit.Spec.Name)
	}

	type groupKey struct {
		studentID string
		chapter   int
	}
	type acc struct {
		sum   float64
		count int
	}

	preds := fit.PredictFixed(rows)

	groups := make(map[groupKey]*acc)
	order := make([]groupKey, 0)
	for i, row := range rows {
		key := groupKey{studentID: row.StudentID, chapter: row.Chapter}
		g, ok := groups[key]
		if !ok {
			g = &acc{}
			groups[key] = g
			order = append(order, key)
		}
		g.sum += preds[i]
		g.count++
	}

	out := make([]HeldoutScore, 0, len(order))
	for seq, key := range order {
		g := groups[key]
		out = append(out, HeldoutScore{
			SeqID:     seq,
			StudentID: key.studentID,
			Chapter:   key.chapter,
			Score:     g.sum / float64(g.count),
		})
	}
	return out, nil
}
