package glmm

import (
	"math"
	"sort"

	"github.com/yungbote/textbook-analytics/internal/modules/panel"
)

// Comparison is one row of the ranked model table.
type Comparison struct {
	Name      string
	Rank      int
	Converged bool
	Message   string

	Rows int
	AIC  float64
	BIC  float64
	RMSE float64
}

// Compare ranks fitted models by AIC ascending. RMSE is the in-sample root
// mean squared error between conditional predicted probability and the 0/1
// outcome on each model's own complete-case frame; rows with undefined
// predictions are dropped from both numerator and denominator, so a
// partially-NaN vector can never poison the metric.
func Compare(fits []*FitResult, frame []panel.FrameRow) []Comparison {
	out := make([]Comparison, 0, len(fits))
	for _, f := range fits {
		rows := CompleteCases(frame, f.Spec)
		out = append(out, Comparison{
			Name:      f.Spec.Name,
			Converged: f.Converged,
			Message:   f.Message,
			Rows:      f.NObs,
			AIC:       f.AIC,
			BIC:       f.BIC,
			RMSE:      RMSE(f.PredictConditional(rows), outcomes(rows)),
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].AIC < out[j].AIC })
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// RMSE computes sqrt(mean((pred-obs)^2)) over the rows where the prediction
// is defined. NaN when no row is.
func RMSE(pred, obs []float64) float64 {
	sum := 0.0
	count := 0
	for i := range pred {
		if i >= len(obs) {
			break
		}
		if math.IsNaN(pred[i]) || math.IsInf(pred[i], 0) {
			continue
		}
		d := pred[i] - obs[i]
		sum += d * d
		count++
	}
	if count == 0 {
		return math.NaN()
	}
	return math.Sqrt(sum / float64(count))
}

func outcomes(rows []panel.FrameRow) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.Correct
	}
	return out
}
