package glmm

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/yungbote/textbook-analytics/internal/modules/panel"
)

// Encoder maps a frame row to its fixed-effects vector. Book is dummy-coded
// against the first training level in sorted order; a book level never seen
// in training encodes as the reference (all dummies zero), so new levels are
// permitted rather than fatal.
type Encoder struct {
	spec       ModelSpec
	bookLevels []string
	bookCol    map[string]int
	cols       []string

	chapterPos     int
	attemptPos     int
	scorePrevPos   int
	prevMissingPos int
}

func newEncoder(spec ModelSpec, rows []panel.FrameRow) Encoder {
	e := Encoder{
		spec:           spec,
		bookCol:        map[string]int{},
		chapterPos:     -1,
		attemptPos:     -1,
		scorePrevPos:   -1,
		prevMissingPos: -1,
	}
	e.cols = append(e.cols, "(Intercept)")
	if spec.has(PredChapter) {
		e.chapterPos = len(e.cols)
		e.cols = append(e.cols, "chapter")
	}
	if spec.has(PredBook) {
		e.bookLevels = distinctSorted(rows, func(r panel.FrameRow) string { return r.BookID })
		for _, lvl := range e.bookLevels[1:] {
			e.bookCol[lvl] = len(e.cols)
			e.cols = append(e.cols, "book:"+lvl)
		}
	}
	if spec.has(PredAttempt) {
		e.attemptPos = len(e.cols)
		e.cols = append(e.cols, "attempt")
	}
	if spec.has(PredScorePrev) {
		e.scorePrevPos = len(e.cols)
		e.cols = append(e.cols, "score_prev_chapter")
	}
	if spec.has(PredPrevMissing) {
		e.prevMissingPos = len(e.cols)
		e.cols = append(e.cols, "prev_missing")
	}
	return e
}

// Columns returns the fixed-effect column names in design order.
func (e Encoder) Columns() []string { return e.cols }

// Encode builds the fixed-effects row vector. Callers must have applied
// CompleteCases first; a nil lag score encodes as 0 only because filtered
// frames never contain one.
func (e Encoder) Encode(r panel.FrameRow) []float64 {
	x := make([]float64, len(e.cols))
	x[0] = 1
	if e.chapterPos >= 0 {
		x[e.chapterPos] = float64(r.Chapter)
	}
	if col, ok := e.bookCol[r.BookID]; ok {
		x[col] = 1
	}
	if e.attemptPos >= 0 {
		x[e.attemptPos] = r.Attempts
	}
	if e.scorePrevPos >= 0 && r.ScorePrev != nil {
		x[e.scorePrevPos] = *r.ScorePrev
	}
	if e.prevMissingPos >= 0 && r.PrevMissing {
		x[e.prevMissingPos] = 1
	}
	return x
}

// Design is the numeric view of one model's fitting frame: the fixed-effects
// matrix, the 0/1 response, and the level index vectors for the two crossed
// random intercepts.
type Design struct {
	Spec ModelSpec
	Rows []panel.FrameRow
	Enc  Encoder

	X *mat.Dense
	Y []float64

	ClassLevels   []string
	StudentLevels []string
	ClassIdx      []int
	StudentIdx    []int
}

// NewDesign builds the design for one model from the shared frame, applying
// that model's complete-case filter. Invariant: X has exactly one row per
// complete-case frame row, so the row count any model reports equals its
// complete-data count.
func NewDesign(frame []panel.FrameRow, spec ModelSpec) (*Design, error) {
	rows := CompleteCases(frame, spec)
	if len(rows) == 0 {
		return nil, fmt.Errorf("glmm: model %s has no complete rows", spec.Name)
	}

	enc := newEncoder(spec, rows)
	d := &Design{
		Spec:          spec,
		Rows:          rows,
		Enc:           enc,
		Y:             make([]float64, len(rows)),
		ClassLevels:   distinctSorted(rows, func(r panel.FrameRow) string { return r.ClassID }),
		StudentLevels: distinctSorted(rows, func(r panel.FrameRow) string { return r.StudentID }),
		ClassIdx:      make([]int, len(rows)),
		StudentIdx:    make([]int, len(rows)),
	}

	classAt := indexOf(d.ClassLevels)
	studentAt := indexOf(d.StudentLevels)

	d.X = mat.NewDense(len(rows), len(enc.cols), nil)
	for i, r := range rows {
		d.X.SetRow(i, enc.Encode(r))
		d.Y[i] = r.Correct
		d.ClassIdx[i] = classAt[r.ClassID]
		d.StudentIdx[i] = studentAt[r.StudentID]
	}
	return d, nil
}

func distinctSorted(rows []panel.FrameRow, field func(panel.FrameRow) string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, r := range rows {
		v := field(r)
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func indexOf(levels []string) map[string]int {
	m := make(map[string]int, len(levels))
	for i, lvl := range levels {
		m[lvl] = i
	}
	return m
}
