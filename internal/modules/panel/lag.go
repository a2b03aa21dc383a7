package panel

// BuildLagFeatures fills ScorePrev and PrevMissing on a chapter-ordered
// summary slice. The lag comes from the previous *present* row in the sorted
// sequence, not the previous chapter number: a student with data for chapters
// 1 and 3 gets chapter 1's score as chapter 3's lag. The first observed
// chapter for a student gets ScorePrev = 0 with PrevMissing set; the zero is
// a fill constant paired with the flag, not an imputation.
//
// The input must already satisfy VerifyChapterOrder; the precondition is
// checked, not assumed.
func BuildLagFeatures(summaries []ChapterSummary) ([]ChapterSummary, error) {
	if err := VerifyChapterOrder(summaries); err != nil {
		return nil, err
	}

	out := make([]ChapterSummary, len(summaries))
	copy(out, summaries)

	zero := 0.0
	for i := range out {
		first := i == 0 || out[i].StudentKey != out[i-1].StudentKey
		if first {
			out[i].ScorePrev = &zero
			out[i].PrevMissing = true
			continue
		}
		out[i].PrevMissing = false
		if prev := out[i-1].Score; prev != nil {
			v := *prev
			out[i].ScorePrev = &v
		} else {
			// Previous chapter had no valid score observations: the lag is
			// missing, and rows needing it drop out per model.
			out[i].ScorePrev = nil
		}
	}
	return out, nil
}
