package panel

import "fmt"

// BuildFrame joins every deduplicated item response to its (student, chapter)
// summary's lag features, producing the item-level analysis table. Grouping
// ids stay as categorical identifiers; per-model complete-case filtering
// happens later, against each model's own predictor set.
func BuildFrame(items []ItemResponse, summaries []ChapterSummary) ([]FrameRow, error) {
	lags := make(map[ChapterKey]ChapterSummary, len(summaries))
	for _, s := range summaries {
		lags[s.ChapterKey] = s
	}

	out := make([]FrameRow, 0, len(items))
	for _, it := range items {
		s, ok := lags[it.ChapterKey]
		if !ok {
			return nil, fmt.Errorf("panel: no chapter summary for student=%s chapter=%d", it.StudentID, it.Chapter)
		}
		row := FrameRow{
			BookID:      it.BookID,
			ClassID:     it.ClassID,
			StudentID:   it.StudentID,
			Chapter:     it.Chapter,
			Correct:     it.Correct(),
			Attempts:    float64(it.AttemptIndex),
			PrevMissing: s.PrevMissing,
		}
		if s.ScorePrev != nil {
			v := *s.ScorePrev
			row.ScorePrev = &v
		}
		out = append(out, row)
	}
	return out, nil
}
