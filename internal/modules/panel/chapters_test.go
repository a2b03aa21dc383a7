package panel

import (
	"testing"
)

func response(student string, chapter int, item string, earned float64, completed bool, attemptIdx int) ItemResponse {
	return ItemResponse{
		ItemKey: ItemKey{
			ChapterKey: ChapterKey{
				StudentKey: StudentKey{
					BookID:        "bk1",
					ReleaseID:     "r1",
					InstitutionID: "inst1",
					ClassID:       "c1",
					StudentID:     student,
				},
				Chapter: chapter,
			},
			ItemID: item,
		},
		AttemptIndex:   attemptIdx,
		PointsPossible: 1,
		PointsEarned:   earned,
		PageCompleted:  completed,
	}
}

func TestAggregateChaptersMeans(t *testing.T) {
	tm := 4.0
	a := response("s1", 1, "i1", 1, true, 1)
	a.TimeSpentMin = &tm
	b := response("s1", 1, "i2", 0, false, 3)

	out := AggregateChapters([]ItemResponse{a, b})
	if len(out) != 1 {
		t.Fatalf("summary rows: want=1 got=%d", len(out))
	}
	s := out[0]
	if s.Score == nil || *s.Score != 0.5 {
		t.Fatalf("score: want=0.5 got=%v", s.Score)
	}
	if s.CompletionRate == nil || *s.CompletionRate != 0.5 {
		t.Fatalf("completion: want=0.5 got=%v", s.CompletionRate)
	}
	if s.MeanTimeMin == nil || *s.MeanTimeMin != 4.0 {
		t.Fatalf("mean time must ignore the missing value: want=4.0 got=%v", s.MeanTimeMin)
	}
	if s.MeanAttempts == nil || *s.MeanAttempts != 2.0 {
		t.Fatalf("mean attempts: want=2.0 got=%v", s.MeanAttempts)
	}
}

func TestAggregateMultiPointItemsStayInUnitRange(t *testing.T) {
	full := response("s1", 1, "i1", 2, true, 1)
	full.PointsPossible = 2
	half := response("s1", 1, "i2", 1, true, 1)
	half.PointsPossible = 2

	out := AggregateChapters([]ItemResponse{full, half})
	if len(out) != 1 {
		t.Fatalf("summary rows: want=1 got=%d", len(out))
	}
	// (2/2 + 1/2) / 2: points are normalized per item before averaging.
	if out[0].Score == nil || *out[0].Score != 0.75 {
		t.Fatalf("multi-point score: want=0.75 got=%v", out[0].Score)
	}
}

func TestScoreFractionClampsAndMatchesCorrect(t *testing.T) {
	extra := response("s1", 1, "i1", 3, true, 1)
	extra.PointsPossible = 2
	if got := extra.ScoreFraction(); got != 1 {
		t.Fatalf("extra credit must clamp to 1, got %v", got)
	}
	zeroPossible := response("s1", 1, "i2", 1, true, 1)
	zeroPossible.PointsPossible = 0
	if zeroPossible.ScoreFraction() != zeroPossible.Correct() {
		t.Fatal("zero-possible items must grade like Correct")
	}
}

func TestAggregateSingleItemRoundTrip(t *testing.T) {
	out := AggregateChapters([]ItemResponse{response("s1", 1, "i1", 1.0, true, 1)})
	if len(out) != 1 {
		t.Fatalf("summary rows: want=1 got=%d", len(out))
	}
	if out[0].Score == nil || *out[0].Score != 1.0 {
		t.Fatalf("score round trip: want=1.0 got=%v", out[0].Score)
	}
}

func TestAggregateAllMissingMetricStaysMissing(t *testing.T) {
	// No item carries a time: the time aggregate is nil, not zero, and the
	// row is kept.
	out := AggregateChapters([]ItemResponse{
		response("s1", 1, "i1", 1, true, 1),
		response("s1", 1, "i2", 0, true, 1),
	})
	if len(out) != 1 {
		t.Fatalf("summary rows: want=1 got=%d", len(out))
	}
	if out[0].MeanTimeMin != nil {
		t.Fatalf("all-missing time must stay missing, got %v", *out[0].MeanTimeMin)
	}
}

func TestAggregateOutputSortedByChapter(t *testing.T) {
	out := AggregateChapters([]ItemResponse{
		response("s2", 3, "i1", 1, true, 1),
		response("s1", 2, "i1", 1, true, 1),
		response("s1", 1, "i1", 1, true, 1),
		response("s2", 1, "i1", 1, true, 1),
	})
	if err := VerifyChapterOrder(out); err != nil {
		t.Fatalf("output order: %v", err)
	}
	if out[0].StudentID != "s1" || out[0].Chapter != 1 {
		t.Fatalf("first row: want s1/ch1 got %s/ch%d", out[0].StudentID, out[0].Chapter)
	}
	if out[1].StudentID != "s1" || out[1].Chapter != 2 {
		t.Fatalf("second row: want s1/ch2 got %s/ch%d", out[1].StudentID, out[1].Chapter)
	}
}

func TestVerifyChapterOrderRejectsDuplicatesAndDisorder(t *testing.T) {
	a := ChapterSummary{ChapterKey: ChapterKey{StudentKey: StudentKey{StudentID: "s1"}, Chapter: 2}}
	b := ChapterSummary{ChapterKey: ChapterKey{StudentKey: StudentKey{StudentID: "s1"}, Chapter: 1}}
	if err := VerifyChapterOrder([]ChapterSummary{a, b}); err == nil {
		t.Fatal("descending chapters must fail verification")
	}
	if err := VerifyChapterOrder([]ChapterSummary{a, a}); err == nil {
		t.Fatal("duplicate (student, chapter) must fail verification")
	}
}
