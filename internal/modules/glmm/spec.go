// Package glmm fits binomial logit mixed models with crossed random
// intercepts for class and student, compares them by information criteria,
// and scores held-out rows at the fixed-effects level.
package glmm

import "github.com/yungbote/textbook-analytics/internal/modules/panel"

// Predictor names one fixed effect. Model formulas are enumerated predictor
// sets, never composed strings.
type Predictor string

const (
	PredChapter     Predictor = "chapter"
	PredBook        Predictor = "book"
	PredAttempt     Predictor = "attempt"
	PredScorePrev   Predictor = "score_prev_chapter"
	PredPrevMissing Predictor = "prev_missing"
)

// ModelSpec is one fixed-effects configuration. Every model additionally
// carries the two crossed random intercepts (class, student).
type ModelSpec struct {
	Name       string
	Predictors []Predictor
}

// CanonicalModels returns the four configurations fit on every run: the
// content-progression base, base plus attempt effort, base plus the prior
// chapter score, and the full union.
func CanonicalModels() []ModelSpec {
	return []ModelSpec{
		{Name: "base", Predictors: []Predictor{PredChapter, PredBook}},
		{Name: "base_attempt", Predictors: []Predictor{PredChapter, PredBook, PredAttempt}},
		{Name: "base_lag", Predictors: []Predictor{PredChapter, PredBook, PredScorePrev, PredPrevMissing}},
		{Name: "full", Predictors: []Predictor{PredChapter, PredBook, PredAttempt, PredScorePrev, PredPrevMissing}},
	}
}

func (s ModelSpec) has(p Predictor) bool {
	for _, q := range s.Predictors {
		if q == p {
			return true
		}
	}
	return false
}

// NeedsEngagement reports whether the model requires features the held-out
// table does not carry (attempt counts or lag scores). Held-out scoring is
// restricted to models where this is false.
func (s ModelSpec) NeedsEngagement() bool {
	return s.has(PredAttempt) || s.has(PredScorePrev) || s.has(PredPrevMissing)
}

// CompleteCases filters the frame to rows with values for every predictor
// this model needs. Only the lag score can be missing after the join, so the
// filter is a no-op for models without it. The returned count is the row
// count the model reports.
func CompleteCases(rows []panel.FrameRow, spec ModelSpec) []panel.FrameRow {
	if !spec.has(PredScorePrev) {
		out := make([]panel.FrameRow, len(rows))
		copy(out, rows)
		return out
	}
	out := make([]panel.FrameRow, 0, len(rows))
	for _, r := range rows {
		if r.ScorePrev == nil {
			continue
		}
		out = append(out, r)
	}
	return out
}
