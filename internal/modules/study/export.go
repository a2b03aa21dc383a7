package study

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/yungbote/textbook-analytics/internal/modules/glmm"
)

// WriteCSV writes the final result table: one (id, score) row per held-out
// (student, chapter) group, in sequence order. Student and chapter stay in
// the store; the exported file carries only the re-indexed identifier and the
// predicted probability.
func WriteCSV(path string, scores []glmm.HeldoutScore) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "score"}); err != nil {
		_ = f.Close()
		return err
	}
	for _, s := range scores {
		record := []string{
			strconv.Itoa(s.SeqID),
			strconv.FormatFloat(s.Score, 'f', 6, 64),
		}
		if err := w.Write(record); err != nil {
			_ = f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
