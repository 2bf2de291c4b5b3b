package usecase

import (
	"context"
	"slices"

	"ats-evaluator/domain"
	"ats-evaluator/infrastructure"
)

// HistoryQuery selects evaluations for browsing. A nil JobDescriptionID means all of them.
type HistoryQuery struct {
	JobDescriptionID *uint
	Sort             domain.SortOrder
	Search           string
}

// Ranking is the ordered candidate list for one job description.
type Ranking struct {
	JobDescription domain.JobDescription
	Candidates     []domain.RankedEvaluation
}

type History struct {
	store Store
}

func NewHistory(store Store) *History {
	return &History{store: store}
}

// List returns stored evaluations sorted by q.Sort, then filtered by q.Search on the summary.
func (h *History) List(ctx context.Context, q HistoryQuery) ([]domain.EvaluationResult, error) {
	evals, err := h.store.ListEvaluations(ctx, infrastructure.EvaluationFilter{JobDescriptionID: q.JobDescriptionID})
	if err != nil {
		return nil, err
	}
	return domain.FilterByKeyword(domain.Rank(evals, q.Sort), q.Search), nil
}

// Ranking orders a job description's candidates by match, best first.
// Equal scores keep submission order.
func (h *History) Ranking(ctx context.Context, jobDescriptionID uint) (*Ranking, error) {
	jd, err := h.store.GetJobDescription(ctx, jobDescriptionID)
	if err != nil {
		return nil, err
	}

	evals, err := h.store.ListEvaluations(ctx, infrastructure.EvaluationFilter{JobDescriptionID: &jd.ID})
	if err != nil {
		return nil, err
	}
	// The store lists newest first.
	slices.Reverse(evals)

	return &Ranking{
		JobDescription: *jd,
		Candidates:     domain.AssignRank(domain.Rank(evals, domain.HighestMatch)),
	}, nil
}
