package panel

import (
	"fmt"
	"sort"
)

// AggregateChapters folds deduplicated item responses into one ChapterSummary
// per (student, chapter). Means ignore missing values; a metric with zero
// valid observations becomes a nil aggregate, never a dropped row. Output is
// sorted by chapter ascending within each student key, the order the lag
// builder requires.
func AggregateChapters(items []ItemResponse) []ChapterSummary {
	type acc struct {
		scores      []float64
		completions []float64
		times       []float64
		attempts    []float64
	}

	groups := make(map[ChapterKey]*acc)
	order := make([]ChapterKey, 0)

	for _, it := range items {
		key := it.ChapterKey
		g, ok := groups[key]
		if !ok {
			g = &acc{}
			groups[key] = g
			order = append(order, key)
		}
		g.scores = append(g.scores, it.ScoreFraction())
		if it.PageCompleted {
			g.completions = append(g.completions, 1)
		} else {
			g.completions = append(g.completions, 0)
		}
		if it.TimeSpentMin != nil {
			g.times = append(g.times, *it.TimeSpentMin)
		}
		g.attempts = append(g.attempts, float64(it.AttemptIndex))
	}

	out := make([]ChapterSummary, 0, len(order))
	for _, key := range order {
		g := groups[key]
		out = append(out, ChapterSummary{
			ChapterKey:     key,
			Score:          meanOf(g.scores),
			CompletionRate: meanOf(g.completions),
			MeanTimeMin:    meanOf(g.times),
			MeanAttempts:   meanOf(g.attempts),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return lessChapterKey(out[i].ChapterKey, out[j].ChapterKey)
	})
	return out
}

// VerifyChapterOrder asserts the ordering contract the lag builder depends
// on: summaries sorted by student key then chapter ascending, with no
// duplicate (student, chapter) pair.
func VerifyChapterOrder(summaries []ChapterSummary) error {
	for i := 1; i < len(summaries); i++ {
		prev, cur := summaries[i-1].ChapterKey, summaries[i].ChapterKey
		if prev == cur {
			return fmt.Errorf("panel: duplicate chapter row for student=%s chapter=%d", cur.StudentID, cur.Chapter)
		}
		if lessChapterKey(cur, prev) {
			return fmt.Errorf("panel: chapter summaries out of order at row %d (student=%s chapter=%d)", i, cur.StudentID, cur.Chapter)
		}
	}
	return nil
}

func lessChapterKey(a, b ChapterKey) bool {
	if a.StudentKey != b.StudentKey {
		return lessStudentKey(a.StudentKey, b.StudentKey)
	}
	return a.Chapter < b.Chapter
}

func lessStudentKey(a, b StudentKey) bool {
	if a.BookID != b.BookID {
		return a.BookID < b.BookID
	}
	if a.ReleaseID != b.ReleaseID {
		return a.ReleaseID < b.ReleaseID
	}
	if a.InstitutionID != b.InstitutionID {
		return a.InstitutionID < b.InstitutionID
	}
	if a.ClassID != b.ClassID {
		return a.ClassID < b.ClassID
	}
	return a.StudentID < b.StudentID
}

func meanOf(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	m := sum / float64(len(values))
	return &m
}
