package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scored(id uint, score int) EvaluationResult {
	return EvaluationResult{ID: id, MatchPercent: NewMatchScore(score)}
}

func ids(evals []EvaluationResult) []uint {
	out := make([]uint, len(evals))
	for i, e := range evals {
		out[i] = e.ID
	}
	return out
}

func TestRankHighestMatchIsStable(t *testing.T) {
	evals := []EvaluationResult{scored(1, 70), scored(2, 95), scored(3, 40), scored(4, 95)}

	ranked := Rank(evals, HighestMatch)

	assert.Equal(t, []uint{2, 4, 1, 3}, ids(ranked))
	assert.Equal(t, []uint{1, 2, 3, 4}, ids(evals), "input must not be reordered")

	positions := AssignRank(ranked)
	require.Len(t, positions, 4)
	for i, p := range positions {
		assert.Equal(t, i+1, p.Rank)
	}
	assert.Equal(t, uint(2), positions[0].Evaluation.ID)
	assert.Equal(t, uint(4), positions[1].Evaluation.ID)
}

func TestRankLowestMatchIsStable(t *testing.T) {
	evals := []EvaluationResult{scored(1, 50), scored(2, 10), scored(3, 50), scored(4, 0)}

	assert.Equal(t, []uint{4, 2, 1, 3}, ids(Rank(evals, LowestMatch)))
}

func TestRankTreatsMalformedScoresAsZero(t *testing.T) {
	evals := []EvaluationResult{
		{ID: 1, MatchPercent: ParseMatchScore("abc")},
		{ID: 2, MatchPercent: ParseMatchScore("30%")},
		{ID: 3, MatchPercent: ParseMatchScore("250%")},
	}

	assert.Equal(t, []uint{2, 1, 3}, ids(Rank(evals, HighestMatch)))
}

func TestRankMostRecent(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	evals := []EvaluationResult{
		{ID: 1, CreatedAt: base},
		{ID: 2, CreatedAt: base.Add(2 * time.Hour)},
		{ID: 3, CreatedAt: base.Add(time.Hour)},
		{ID: 4, CreatedAt: base.Add(2 * time.Hour)},
	}

	assert.Equal(t, []uint{2, 4, 3, 1}, ids(Rank(evals, MostRecent)))
}

func TestFilterByKeyword(t *testing.T) {
	evals := []EvaluationResult{
		{ID: 1, Summary: "Strong Go engineer with Docker experience"},
		{ID: 2, Summary: "Frontend focus, React"},
		{ID: 3, Summary: "Ships services with DOCKER and Kubernetes"},
		{ID: 4, Summary: "", Name: "docker"},
	}

	assert.Equal(t, []uint{1, 3}, ids(FilterByKeyword(evals, "docker")))
	assert.Equal(t, []uint{1, 2, 3, 4}, ids(FilterByKeyword(evals, "  ")))
	assert.Empty(t, FilterByKeyword(evals, "rust"))
	assert.Empty(t, FilterByKeyword(nil, "go"))
}

func TestAssignRankEmpty(t *testing.T) {
	assert.Empty(t, AssignRank(nil))
}

func TestParseSortOrder(t *testing.T) {
	cases := map[string]SortOrder{
		"":              MostRecent,
		"Most Recent":   MostRecent,
		"highest_match": HighestMatch,
		"Highest Match": HighestMatch,
		"lowest-match":  LowestMatch,
		"LOWEST":        LowestMatch,
		"bogus":         MostRecent,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseSortOrder(in), "input %q", in)
	}
	assert.Equal(t, "highest_match", HighestMatch.String())
}
