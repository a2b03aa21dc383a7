package panel

import (
	"testing"
	"time"

	types "github.com/yungbote/textbook-analytics/internal/domain"
)

func attempt(student, item string, chapter, attemptIdx int, earned float64) types.Attempt {
	return types.Attempt{
		BookID:         "bk1",
		ReleaseID:      "r1",
		InstitutionID:  "inst1",
		ClassID:        "c1",
		StudentID:      student,
		Chapter:        chapter,
		ItemID:         item,
		AttemptIndex:   attemptIdx,
		PointsPossible: 1,
		PointsEarned:   earned,
	}
}

func TestReduceKeepsMaxAttemptPerItem(t *testing.T) {
	in := []types.Attempt{
		attempt("s1", "i1", 1, 1, 0),
		attempt("s1", "i1", 1, 3, 1),
		attempt("s1", "i1", 1, 2, 0),
		attempt("s1", "i2", 1, 1, 1),
		attempt("s2", "i1", 1, 2, 0),
	}

	out := Reduce(in)
	if len(out) != 3 {
		t.Fatalf("reduced rows: want=3 got=%d", len(out))
	}
	seen := map[ItemKey]bool{}
	for _, r := range out {
		if seen[r.ItemKey] {
			t.Fatalf("duplicate key after reduce: %+v", r.ItemKey)
		}
		seen[r.ItemKey] = true
	}
	if out[0].AttemptIndex != 3 || out[0].PointsEarned != 1 {
		t.Fatalf("s1/i1: want attempt=3 earned=1 got attempt=%d earned=%v", out[0].AttemptIndex, out[0].PointsEarned)
	}
}

func TestReduceTieKeepsFirstInInputOrder(t *testing.T) {
	first := attempt("s1", "i1", 1, 2, 1)
	second := attempt("s1", "i1", 1, 2, 0)
	second.PageCompleted = true

	out := Reduce([]types.Attempt{first, second})
	if len(out) != 1 {
		t.Fatalf("reduced rows: want=1 got=%d", len(out))
	}
	if out[0].PointsEarned != 1 || out[0].PageCompleted {
		t.Fatalf("tie must keep first record: got earned=%v completed=%v", out[0].PointsEarned, out[0].PageCompleted)
	}
}

func TestReduceTimeSpent(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Second)

	withBoth := attempt("s1", "i1", 1, 1, 1)
	withBoth.StartedAt = &start
	withBoth.SubmittedAt = &end

	inverted := attempt("s1", "i2", 1, 1, 1)
	inverted.StartedAt = &end
	inverted.SubmittedAt = &start

	missing := attempt("s1", "i3", 1, 1, 1)
	missing.SubmittedAt = &end

	out := Reduce([]types.Attempt{withBoth, inverted, missing})
	if len(out) != 3 {
		t.Fatalf("reduced rows: want=3 got=%d", len(out))
	}
	if out[0].TimeSpentMin == nil || *out[0].TimeSpentMin != 1.5 {
		t.Fatalf("time spent: want=1.5 got=%v", out[0].TimeSpentMin)
	}
	if out[1].TimeSpentMin != nil {
		t.Fatalf("inverted timestamps must yield missing time, got %v", *out[1].TimeSpentMin)
	}
	if out[2].TimeSpentMin != nil {
		t.Fatalf("missing start must yield missing time, got %v", *out[2].TimeSpentMin)
	}
}

func TestCorrectBinarization(t *testing.T) {
	full := ItemResponse{PointsPossible: 2, PointsEarned: 2}
	partial := ItemResponse{PointsPossible: 2, PointsEarned: 1}
	wrong := ItemResponse{PointsPossible: 1, PointsEarned: 0}

	if full.Correct() != 1 {
		t.Fatalf("full credit: want=1 got=%v", full.Correct())
	}
	if partial.Correct() != 0 {
		t.Fatalf("partial credit: want=0 got=%v", partial.Correct())
	}
	if wrong.Correct() != 0 {
		t.Fatalf("no credit: want=0 got=%v", wrong.Correct())
	}
}
