package glmm

import (
	"math"

	"github.com/yungbote/textbook-analytics/internal/modules/panel"
)

// PredictFixed returns population-level probabilities: fixed effects only,
// random intercepts forced to zero. Grouping levels absent from training are
// fine here by construction, which is what held-out scoring relies on.
func (r *FitResult) PredictFixed(rows []panel.FrameRow) []float64 {
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = sigmoid(r.linear(row))
	}
	return out
}

// PredictConditional adds the estimated class and student intercepts for
// levels seen in training. Unseen levels contribute nothing, so the
// prediction degrades to the population level instead of failing; rows
// missing a required predictor yield NaN and are the caller's to filter.
func (r *FitResult) PredictConditional(rows []panel.FrameRow) []float64 {
	out := make([]float64, len(rows))
	for i, row := range rows {
		if r.Spec.has(PredScorePrev) && row.ScorePrev == nil {
			out[i] = math.NaN()
			continue
		}
		eta := r.linear(row)
		if u, ok := r.ClassEffects[row.ClassID]; ok {
			eta += u
		}
		if v, ok := r.StudentEffects[row.StudentID]; ok {
			eta += v
		}
		out[i] = sigmoid(eta)
	}
	return out
}

func (r *FitResult) linear(row panel.FrameRow) float64 {
	x := r.enc.Encode(row)
	eta := 0.0
	for j, xj := range x {
		eta += xj * r.Coef[j]
	}
	return eta
}
