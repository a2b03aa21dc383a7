package panel

import (
	"time"

	types "github.com/yungbote/textbook-analytics/internal/domain"
)

// Reduce collapses raw attempt events to one ItemResponse per
// (book, release, institution, class, student, chapter, item) group, keeping
// the record with the highest attempt index. Ties on the max index keep the
// first record in input order, so output is deterministic for a fixed input
// ordering. Output groups appear in order of first appearance.
func Reduce(attempts []types.Attempt) []ItemResponse {
	best := make(map[ItemKey]ItemResponse, len(attempts))
	order := make([]ItemKey, 0, len(attempts))

	for _, a := range attempts {
		key := ItemKey{
			ChapterKey: ChapterKey{
				StudentKey: StudentKey{
					BookID:        a.BookID,
					ReleaseID:     a.ReleaseID,
					InstitutionID: a.InstitutionID,
					ClassID:       a.ClassID,
					StudentID:     a.StudentID,
				},
				Chapter: a.Chapter,
			},
			ItemID: a.ItemID,
		}
		cur, seen := best[key]
		if !seen {
			order = append(order, key)
		}
		// Strict > keeps the first-encountered record on ties.
		if !seen || a.AttemptIndex > cur.AttemptIndex {
			best[key] = ItemResponse{
				ItemKey:        key,
				AttemptIndex:   a.AttemptIndex,
				PointsPossible: a.PointsPossible,
				PointsEarned:   a.PointsEarned,
				PageCompleted:  a.PageCompleted,
				TimeSpentMin:   timeSpentMinutes(a.StartedAt, a.SubmittedAt),
			}
		}
	}

	out := make([]ItemResponse, 0, len(order))
	for _, key := range order {
		out = append(out, best[key])
	}
	return out
}

// timeSpentMinutes derives the working duration of an attempt. Missing or
// inverted timestamps yield nil rather than a negative duration; the record
// is still kept.
func timeSpentMinutes(started, submitted *time.Time) *float64 {
	if started == nil || submitted == nil {
		return nil
	}
	if submitted.Before(*started) {
		return nil
	}
	m := submitted.Sub(*started).Minutes()
	return &m
}
