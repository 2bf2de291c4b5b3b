package domain

import "time"

// EvaluationResult is the stored outcome of one résumé evaluated against one job description.
// Rows are written once and never updated.
type EvaluationResult struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Name             string     `gorm:"size:255" json:"name"`
	Email            string     `gorm:"size:255" json:"email"`
	ResumeName       string     `gorm:"size:255;uniqueIndex:idx_results_resume_job" json:"resume_name"`
	ResumeBlob       []byte     `gorm:"size:33554432" json:"-"`
	JobDescriptionID uint       `gorm:"not null;index;uniqueIndex:idx_results_resume_job" json:"job_description_id"`
	MatchPercent     MatchScore `gorm:"type:varchar(8)" json:"match_percent"`
	Summary          string     `gorm:"type:text" json:"summary"`
	MatchedKeywords  Keywords   `gorm:"type:text" json:"matched_keywords"`
	MissingKeywords  Keywords   `gorm:"type:text" json:"missing_keywords"`
	CreatedAt        time.Time  `gorm:"autoCreateTime;<-:create" json:"created_at"`

	JobDescription *JobDescription `gorm:"constraint:OnDelete:CASCADE;" json:"job_description,omitempty"`
}

func (EvaluationResult) TableName() string {
	return "results"
}

// JobTitle returns the title of the joined job description, or "" when it was not loaded.
func (e EvaluationResult) JobTitle() string {
	if e.JobDescription == nil {
		return ""
	}
	return e.JobDescription.Title
}

// EvaluationEvent is the outbound notification fired after an evaluation is stored.
type EvaluationEvent struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	JobDescriptionID uint   `json:"job_description_id"`
}

// Extraction is the best-effort text pulled out of an uploaded document.
type Extraction struct {
	Text     string
	Warnings []string
}
