package scoring

import (
	"github.com/stemsi/exstem-quiz/internal/model"
)

// DefaultBands is the banding used when a quiz does not configure its own
// thresholds.
var DefaultBands = model.DefaultFeedbackBands

// TierFor maps a score to a feedback tier. fullMark needs every point, so a
// percentage that only rounds to 100 is still excellent. The bands compare
// against the unrounded percentage. maxScore 0 means nothing was
// auto-scorable.
func TierFor(score, maxScore float64, bands model.FeedbackBands) model.Tier {
	if maxScore <= 0 {
		return model.TierPending
	}
	percent := score / maxScore * 100
	switch {
	case score >= maxScore:
		return model.TierFullMark
	case percent >= bands.Excellent:
		return model.TierExcellent
	case percent >= bands.VeryGood:
		return model.TierVeryGood
	case percent >= bands.Good:
		return model.TierGood
	case percent >= bands.Fair:
		return model.TierFair
	default:
		return model.TierPoor
	}
}

// Message returns the configured text for a tier.
func Message(t model.Tier, m model.FeedbackMessages) string {
	switch t {
	case model.TierFullMark:
		return m.FullMark
	case model.TierExcellent:
		return m.Excellent
	case model.TierVeryGood:
		return m.VeryGood
	case model.TierGood:
		return m.Good
	case model.TierFair:
		return m.Fair
	case model.TierPoor:
		return m.Poor
	default:
		return ""
	}
}

// ValidBands reports whether thresholds are within 0..100 and strictly
// descending.
func ValidBands(b model.FeedbackBands) bool {
	seq := []float64{100, b.Excellent, b.VeryGood, b.Good, b.Fair}
	for i := 1; i < len(seq); i++ {
		if seq[i] < 0 || seq[i] >= seq[i-1] {
			return false
		}
	}
	return true
}
