package panel

// StudentKey identifies one student within one release of one book at one
// institution. All grouping in the reduction pipeline happens under this key.
type StudentKey struct {
	BookID        string
	ReleaseID     string
	InstitutionID string
	ClassID       string
	StudentID     string
}

// ChapterKey is a StudentKey narrowed to a single content chapter.
type ChapterKey struct {
	StudentKey
	Chapter int
}

// ItemKey is a ChapterKey narrowed to a single gradable item.
type ItemKey struct {
	ChapterKey
	ItemID string
}

// ItemResponse is the deduplicated record for one (student, item) pair: the
// highest-numbered attempt that student made on that item.
type ItemResponse struct {
	ItemKey

	AttemptIndex   int
	PointsPossible float64
	PointsEarned   float64
	PageCompleted  bool

	// TimeSpentMin is submitted minus started in minutes. Nil when either
	// timestamp is absent or the pair is inverted; never negative.
	TimeSpentMin *float64
}

// Correct is the binary correctness response used for model fitting: full
// credit counts as correct, partial credit does not.
func (r ItemResponse) Correct() float64 {
	if r.PointsPossible > 0 {
		if r.PointsEarned >= r.PointsPossible {
			return 1
		}
		return 0
	}
	if r.PointsEarned >= 1 {
		return 1
	}
	return 0
}

// ScoreFraction is the graded score as a share of available points, clamped
// to [0,1] so multi-point items aggregate on the same scale as binary ones.
// Zero-possible items grade like Correct.
func (r ItemResponse) ScoreFraction() float64 {
	if r.PointsPossible > 0 {
		f := r.PointsEarned / r.PointsPossible
		if f < 0 {
			return 0
		}
		if f > 1 {
			return 1
		}
		return f
	}
	return r.Correct()
}

// ChapterSummary is one (student, chapter) row of the longitudinal panel.
// Aggregates are nil when the chapter had no valid observations for that
// metric; the row itself is always kept.
type ChapterSummary struct {
	ChapterKey

	Score          *float64
	CompletionRate *float64
	MeanTimeMin    *float64
	MeanAttempts   *float64

	// ScorePrev is the score of this student's previous observed chapter in
	// chapter order. For the student's first observed chapter it is 0 with
	// PrevMissing set; nil when the previous chapter's score aggregate was
	// itself missing.
	ScorePrev   *float64
	PrevMissing bool
}

// FrameRow is one item-level row of the analysis table: the deduplicated
// response joined to its chapter's lag features, with grouping fields kept as
// categorical identifiers.
type FrameRow struct {
	BookID    string
	ClassID   string
	StudentID string
	Chapter   int

	Correct  float64
	Attempts float64

	ScorePrev   *float64
	PrevMissing bool
}
