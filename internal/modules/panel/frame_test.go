package panel

import "testing"

func TestBuildFrameJoinsLagFeatures(t *testing.T) {
	items := []ItemResponse{
		response("s1", 1, "i1", 1, true, 2),
		response("s1", 2, "i1", 0, true, 1),
	}
	sums, err := BuildLagFeatures(AggregateChapters(items))
	if err != nil {
		t.Fatalf("BuildLagFeatures: %v", err)
	}

	frame, err := BuildFrame(items, sums)
	if err != nil {
		t.Fatalf("BuildFrame: %v", err)
	}
	if len(frame) != 2 {
		t.Fatalf("frame rows: want=2 got=%d", len(frame))
	}

	first := frame[0]
	if !first.PrevMissing || first.ScorePrev == nil || *first.ScorePrev != 0 {
		t.Fatalf("chapter 1 row: want zero-filled flagged lag, got prev=%v missing=%v", first.ScorePrev, first.PrevMissing)
	}
	if first.Correct != 1 || first.Attempts != 2 {
		t.Fatalf("chapter 1 row: want correct=1 attempts=2 got correct=%v attempts=%v", first.Correct, first.Attempts)
	}

	second := frame[1]
	if second.PrevMissing {
		t.Fatal("chapter 2 row must not flag prev_missing")
	}
	if second.ScorePrev == nil || *second.ScorePrev != 1 {
		t.Fatalf("chapter 2 row lag: want=1 got=%v", second.ScorePrev)
	}
}

func TestBuildFrameMissingSummaryFails(t *testing.T) {
	items := []ItemResponse{response("s1", 1, "i1", 1, true, 1)}
	if _, err := BuildFrame(items, nil); err == nil {
		t.Fatal("missing chapter summary must fail the join")
	}
}
