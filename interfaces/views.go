package interfaces

import (
	"time"

	"ats-evaluator/domain"
	"ats-evaluator/usecase"
)

const displayLayout = "2006-01-02 15:04"

type JobDescriptionView struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
}

type EvaluationView struct {
	ID               uint            `json:"id"`
	Name             string          `json:"name"`
	Email            string          `json:"email"`
	ResumeName       string          `json:"resume_name"`
	JobDescriptionID uint            `json:"job_description_id"`
	JobTitle         string          `json:"job_title"`
	MatchPercent     string          `json:"match_percent"`
	Summary          string          `json:"summary"`
	MatchedKeywords  domain.Keywords `json:"matched_keywords"`
	MissingKeywords  domain.Keywords `json:"missing_keywords"`
	CreatedAt        string          `json:"created_at"`
}

type RankedView struct {
	Rank int `json:"rank"`
	EvaluationView
}

type RankingView struct {
	JobDescription JobDescriptionView `json:"job_description"`
	Candidates     []RankedView       `json:"candidates"`
}

type EvaluateResponse struct {
	Evaluation EvaluationView `json:"evaluation"`
	Degraded   bool           `json:"degraded"`
	// Response is the raw model reply, set only when it could not be parsed.
	Response   string         `json:"response,omitempty"`
	Warnings   []string       `json:"warnings"`
}

// presenter renders domain values for one request in the display time zone.
type presenter struct {
	loc *time.Location
}

func (p presenter) timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(p.loc).Format(displayLayout)
}

func (p presenter) jobDescription(jd domain.JobDescription) JobDescriptionView {
	return JobDescriptionView{
		ID:          jd.ID,
		Title:       jd.Title,
		Description: jd.Description,
		CreatedAt:   p.timestamp(jd.CreatedAt),
	}
}

func (p presenter) jobDescriptions(jds []domain.JobDescription) []JobDescriptionView {
	out := make([]JobDescriptionView, 0, len(jds))
	for _, jd := range jds {
		out = append(out, p.jobDescription(jd))
	}
	return out
}

func (p presenter) evaluation(e domain.EvaluationResult) EvaluationView {
	return EvaluationView{
		ID:               e.ID,
		Name:             e.Name,
		Email:            e.Email,
		ResumeName:       e.ResumeName,
		JobDescriptionID: e.JobDescriptionID,
		JobTitle:         e.JobTitle(),
		MatchPercent:     e.MatchPercent.String(),
		Summary:          e.Summary,
		MatchedKeywords:  e.MatchedKeywords,
		MissingKeywords:  e.MissingKeywords,
		CreatedAt:        p.timestamp(e.CreatedAt),
	}
}

func (p presenter) evaluations(evals []domain.EvaluationResult) []EvaluationView {
	out := make([]EvaluationView, 0, len(evals))
	for _, e := range evals {
		out = append(out, p.evaluation(e))
	}
	return out
}

func (p presenter) ranking(r *usecase.Ranking) RankingView {
	candidates := make([]RankedView, 0, len(r.Candidates))
	for _, c := range r.Candidates {
		candidates = append(candidates, RankedView{Rank: c.Rank, EvaluationView: p.evaluation(c.Evaluation)})
	}
	return RankingView{
		JobDescription: p.jobDescription(r.JobDescription),
		Candidates:     candidates,
	}
}

func (p presenter) report(r *usecase.Report) EvaluateResponse {
	warnings := r.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	out := EvaluateResponse{
		Evaluation: p.evaluation(*r.Evaluation),
		Warnings:   warnings,
	}
	if d, ok := r.Outcome.(*domain.Degraded); ok {
		out.Degraded = true
		out.Response = d.Response
	}
	return out
}
