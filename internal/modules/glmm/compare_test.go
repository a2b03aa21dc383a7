package glmm

import (
	"math"
	"testing"

	"github.com/yungbote/textbook-analytics/internal/modules/panel"
)

func TestRMSEPerfectPredictionIsZero(t *testing.T) {
	obs := []float64{1, 0, 1, 1, 0}
	if got := RMSE(obs, obs); got != 0 {
		t.Fatalf("perfect prediction RMSE: want=0 got=%v", got)
	}
}

func TestRMSEFiltersUndefinedPredictions(t *testing.T) {
	pred := []float64{1, math.NaN(), 0}
	obs := []float64{1, 1, 1}
	// Only rows 0 and 2 count: sqrt((0+1)/2).
	want := math.Sqrt(0.5)
	if got := RMSE(pred, obs); math.Abs(got-want) > 1e-15 {
		t.Fatalf("filtered RMSE: want=%v got=%v", want, got)
	}
}

func TestRMSEAllUndefinedIsNaN(t *testing.T) {
	if got := RMSE([]float64{math.NaN()}, []float64{1}); !math.IsNaN(got) {
		t.Fatalf("all-undefined RMSE: want=NaN got=%v", got)
	}
}

func TestCompareRanksByAICAscending(t *testing.T) {
	frame := []panel.FrameRow{
		frameRow("bk1", "c1", "s1", 1, 1),
		frameRow("bk1", "c1", "s2", 2, 0),
	}
	spec := ModelSpec{Name: "", Predictors: []Predictor{PredChapter, PredBook}}
	mk := func(name string, aic float64) *FitResult {
		s := spec
		s.Name = name
		enc := newEncoder(s, frame)
		return &FitResult{
			Spec:      s,
			Converged: true,
			NObs:      len(frame),
			Cols:      enc.Columns(),
			Coef:      make([]float64, len(enc.Columns())),
			AIC:       aic,
			enc:       enc,
		}
	}

	ranked := Compare([]*FitResult{
		mk("model1", 100),
		mk("model2", 90),
		mk("model3", 95),
		mk("model4", 85),
	}, frame)

	wantOrder := []string{"model4", "model2", "model3", "model1"}
	for i, want := range wantOrder {
		if ranked[i].Name != want {
			t.Fatalf("rank %d: want=%s got=%s", i+1, want, ranked[i].Name)
		}
		if ranked[i].Rank != i+1 {
			t.Fatalf("rank field for %s: want=%d got=%d", want, i+1, ranked[i].Rank)
		}
	}
}
