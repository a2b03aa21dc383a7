package glmm

import (
	"testing"

	"github.com/yungbote/textbook-analytics/internal/modules/panel"
)

func frameRow(book, class, student string, chapter int, correct float64) panel.FrameRow {
	zero := 0.0
	return panel.FrameRow{
		BookID:      book,
		ClassID:     class,
		StudentID:   student,
		Chapter:     chapter,
		Correct:     correct,
		Attempts:    1,
		ScorePrev:   &zero,
		PrevMissing: chapter == 1,
	}
}

func TestEncoderColumnsAndDummyCoding(t *testing.T) {
	rows := []panel.FrameRow{
		frameRow("bkB", "c1", "s1", 1, 1),
		frameRow("bkA", "c1", "s2", 2, 0),
	}
	d, err := NewDesign(rows, ModelSpec{Name: "base", Predictors: []Predictor{PredChapter, PredBook}})
	if err != nil {
		t.Fatalf("NewDesign: %v", err)
	}

	cols := d.Enc.Columns()
	want := []string{"(Intercept)", "chapter", "book:bkB"}
	if len(cols) != len(want) {
		t.Fatalf("columns: want=%v got=%v", want, cols)
	}
	for i := range want {
		if cols[i] != want[i] {
			t.Fatalf("column %d: want=%s got=%s", i, want[i], cols[i])
		}
	}

	// bkA sorts first and is the reference level.
	x := d.Enc.Encode(rows[1])
	if x[0] != 1 || x[1] != 2 || x[2] != 0 {
		t.Fatalf("reference level row: want=[1 2 0] got=%v", x)
	}
	x = d.Enc.Encode(rows[0])
	if x[2] != 1 {
		t.Fatalf("bkB dummy: want=1 got=%v", x[2])
	}

	// A book never seen in training encodes as the reference, not an error.
	x = d.Enc.Encode(frameRow("bkZ", "c9", "s9", 3, 0))
	if x[2] != 0 {
		t.Fatalf("unseen book level must encode as reference, got %v", x[2])
	}
}

func TestCompleteCasesPerModel(t *testing.T) {
	withLag := frameRow("bk1", "c1", "s1", 2, 1)
	noLag := frameRow("bk1", "c1", "s2", 2, 0)
	noLag.ScorePrev = nil
	frame := []panel.FrameRow{withLag, noLag}

	base := ModelSpec{Name: "base", Predictors: []Predictor{PredChapter, PredBook}}
	lag := ModelSpec{Name: "base_lag", Predictors: []Predictor{PredChapter, PredBook, PredScorePrev, PredPrevMissing}}

	if got := len(CompleteCases(frame, base)); got != 2 {
		t.Fatalf("base complete cases: want=2 got=%d", got)
	}
	if got := len(CompleteCases(frame, lag)); got != 1 {
		t.Fatalf("lag complete cases: want=1 got=%d", got)
	}

	d, err := NewDesign(frame, lag)
	if err != nil {
		t.Fatalf("NewDesign: %v", err)
	}
	r, c := d.X.Dims()
	if r != 1 {
		t.Fatalf("design rows must equal complete cases: want=1 got=%d", r)
	}
	if c != len(d.Enc.Columns()) {
		t.Fatalf("design cols: want=%d got=%d", len(d.Enc.Columns()), c)
	}
}

func TestCanonicalModels(t *testing.T) {
	models := CanonicalModels()
	if len(models) != 4 {
		t.Fatalf("canonical models: want=4 got=%d", len(models))
	}
	if models[0].NeedsEngagement() {
		t.Fatal("base model must not need engagement features")
	}
	for _, m := range models[1:] {
		if !m.NeedsEngagement() {
			t.Fatalf("model %s must need engagement features", m.Name)
		}
	}
	for _, m := range models {
		if !m.has(PredChapter) || !m.has(PredBook) {
			t.Fatalf("model %s must include chapter and book", m.Name)
		}
	}
}
