package domain

import (
	"cmp"
	"slices"
	"strings"
)

// SortOrder selects how evaluation history is ordered.
type SortOrder int

const (
	MostRecent SortOrder = iota
	HighestMatch
	LowestMatch
)

func (s SortOrder) String() string {
	switch s {
	case HighestMatch:
		return "highest_match"
	case LowestMatch:
		return "lowest_match"
	default:
		return "most_recent"
	}
}

// ParseSortOrder accepts "most_recent", "highest_match", "lowest_match" in any case,
// with spaces, dashes or underscores as separators. Unknown values mean MostRecent.
func ParseSortOrder(s string) SortOrder {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	switch key {
	case "highest_match", "highest":
		return HighestMatch
	case "lowest_match", "lowest":
		return LowestMatch
	default:
		return MostRecent
	}
}

// Rank returns a sorted copy of evals. Equal keys keep their input order.
func Rank(evals []EvaluationResult, by SortOrder) []EvaluationResult {
	out := slices.Clone(evals)

	var compare func(a, b EvaluationResult) int
	switch by {
	case HighestMatch:
		compare = func(a, b EvaluationResult) int {
			return cmp.Compare(b.MatchPercent, a.MatchPercent)
		}
	case LowestMatch:
		compare = func(a, b EvaluationResult) int {
			return cmp.Compare(a.MatchPercent, b.MatchPercent)
		}
	default:
		compare = func(a, b EvaluationResult) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		}
	}

	slices.SortStableFunc(out, compare)
	return out
}

// FilterByKeyword keeps the evaluations whose summary contains text, ignoring case.
// A blank text keeps everything.
func FilterByKeyword(evals []EvaluationResult, text string) []EvaluationResult {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return slices.Clone(evals)
	}

	out := make([]EvaluationResult, 0, len(evals))
	for _, e := range evals {
		if strings.Contains(strings.ToLower(e.Summary), needle) {
			out = append(out, e)
		}
	}
	return out
}

// RankedEvaluation pairs an evaluation with its 1-based position.
type RankedEvaluation struct {
	Rank       int
	Evaluation EvaluationResult
}

// AssignRank numbers already-sorted evaluations 1..n. Ties get distinct ranks.
func AssignRank(sorted []EvaluationResult) []RankedEvaluation {
	out := make([]RankedEvaluation, len(sorted))
	for i, e := range sorted {
		out[i] = RankedEvaluation{Rank: i + 1, Evaluation: e}
	}
	return out
}
