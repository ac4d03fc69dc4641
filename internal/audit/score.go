package audit

import "github.com/example/violation-audit/internal/violation"

// Score turns matches into a Result. considered is the number of diagnostics the matcher
// looked at and only affects Proportional scoring.
func Score(def Definition, matches []violation.Match, considered int) Result {
	items := make([]violation.Match, len(matches))
	copy(items, matches)

	score := 1.0
	display := DisplayBinary
	switch def.Scoring {
	case Proportional:
		display = DisplayNumeric
		score = proportionalScore(len(items), considered)
	default:
		if len(items) > 0 {
			score = 0
		}
	}

	return Result{
		ID:               def.ID,
		Score:            &score,
		ScoreDisplayMode: display,
		Details: Table{
			Type:     "table",
			Headings: def.Headings,
			Items:    items,
		},
	}
}

func proportionalScore(violations, considered int) float64 {
	if violations == 0 {
		return 1
	}
	if considered < violations {
		considered = violations
	}
	return 1 - float64(violations)/float64(considered)
}
