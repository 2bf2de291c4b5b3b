package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ats-evaluator/domain"
	"ats-evaluator/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EvaluationStore is the only writer of job descriptions and evaluation results.
type EvaluationStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewEvaluationStore(db *gorm.DB, log *zap.Logger) *EvaluationStore {
	return &EvaluationStore{db: db, logger: logger.OrNop(log)}
}

// EvaluationFilter narrows ListEvaluations. A nil JobDescriptionID lists everything.
type EvaluationFilter struct {
	JobDescriptionID *uint
}

func normalizeJobDescription(title, description string) (string, string, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" || description == "" {
		return "", "", fmt.Errorf("%w: title and description are required", domain.ErrEmptyField)
	}
	return title, description, nil
}

func (s *EvaluationStore) AddJobDescription(ctx context.Context, title, description string) (*domain.JobDescription, error) {
	title, description, err := normalizeJobDescription(title, description)
	if err != nil {
		return nil, err
	}

	jd := domain.JobDescription{Title: title, Description: description}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureTitleFree(tx, title, 0); err != nil {
			return err
		}
		if err := tx.Create(&jd).Error; err != nil {
			return translateWriteError(err, domain.ErrDuplicateTitle)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("add job description %q: %w", title, err)
	}

	s.logger.Info("job description added", zap.Uint("job_description_id", jd.ID), zap.String("title", jd.Title))
	return &jd, nil
}

func (s *EvaluationStore) UpdateJobDescription(ctx context.Context, id uint, title, description string) error {
	title, description, err := normalizeJobDescription(title, description)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findJobDescription(tx, id); err != nil {
			return err
		}
		if err := ensureTitleFree(tx, title, id); err != nil {
			return err
		}
		err := tx.Model(&domain.JobDescription{}).
			Where("id = ?", id).
			Updates(map[string]any{"title": title, "description": description}).Error
		return translateWriteError(err, domain.ErrDuplicateTitle)
	})
	if err != nil {
		return fmt.Errorf("update job description %d: %w", id, err)
	}

	s.logger.Info("job description updated", zap.Uint("job_description_id", id))
	return nil
}

// DeleteJobDescription removes the job description and every evaluation referencing it.
func (s *EvaluationStore) DeleteJobDescription(ctx context.Context, id uint) error {
	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findJobDescription(tx, id); err != nil {
			return err
		}
		res := tx.Where("job_description_id = ?", id).Delete(&domain.EvaluationResult{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected
		return tx.Delete(&domain.JobDescription{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("delete job description %d: %w", id, err)
	}

	s.logger.Info("job description deleted",
		zap.Uint("job_description_id", id),
		zap.Int64("evaluations_removed", removed),
	)
	return nil
}

func (s *EvaluationStore) GetJobDescription(ctx context.Context, id uint) (*domain.JobDescription, error) {
	jd, err := findJobDescription(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, fmt.Errorf("get job description %d: %w", id, err)
	}
	return jd, nil
}

// ListJobDescriptions returns job descriptions newest first.
func (s *EvaluationStore) ListJobDescriptions(ctx context.Context) ([]domain.JobDescription, error) {
	var jds []domain.JobDescription
	if err := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&jds).Error; err != nil {
		return nil, fmt.Errorf("list job descriptions: %w", err)
	}
	return jds, nil
}

// FindDuplicateEvaluation returns the evaluation already stored for the pair, or nil.
func (s *EvaluationStore) FindDuplicateEvaluation(ctx context.Context, resumeName string, jobDescriptionID uint) (*domain.EvaluationResult, error) {
	dup, err := findDuplicate(s.db.WithContext(ctx), resumeName, jobDescriptionID)
	if err != nil {
		return nil, fmt.Errorf("find duplicate evaluation: %w", err)
	}
	return dup, nil
}

// AddEvaluation inserts a new evaluation. It fails with domain.ErrForeignKey when the job
// description is gone and with domain.ErrDuplicateSubmission when the pair already exists.
func (s *EvaluationStore) AddEvaluation(ctx context.Context, e *domain.EvaluationResult) error {
	if e.MatchedKeywords == nil {
		e.MatchedKeywords = domain.Keywords{}
	}
	if e.MissingKeywords == nil {
		e.MissingKeywords = domain.Keywords{}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findJobDescription(tx, e.JobDescriptionID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrForeignKey
			}
			return err
		}

		dup, err := findDuplicate(tx, e.ResumeName, e.JobDescriptionID)
		if err != nil {
			return err
		}
		if dup != nil {
			return domain.ErrDuplicateSubmission
		}

		if err := tx.Omit(clause.Associations).Create(e).Error; err != nil {
			if errors.Is(err, gorm.ErrForeignKeyViolated) {
				return domain.ErrForeignKey
			}
			return translateWriteError(err, domain.ErrDuplicateSubmission)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("add evaluation for %q: %w", e.ResumeName, err)
	}

	s.logger.Info("evaluation stored",
		zap.Uint("evaluation_id", e.ID),
		zap.Uint("job_description_id", e.JobDescriptionID),
		zap.String("match_percent", e.MatchPercent.String()),
	)
	return nil
}

// ListEvaluations returns evaluations newest first with the job description joined in.
func (s *EvaluationStore) ListEvaluations(ctx context.Context, filter EvaluationFilter) ([]domain.EvaluationResult, error) {
	q := s.db.WithContext(ctx).Joins("JobDescription")
	if filter.JobDescriptionID != nil {
		q = q.Where("results.job_description_id = ?", *filter.JobDescriptionID)
	}

	var evals []domain.EvaluationResult
	if err := q.Order("results.created_at DESC").Order("results.id DESC").Find(&evals).Error; err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	return evals, nil
}

func (s *EvaluationStore) GetEvaluation(ctx context.Context, id uint) (*domain.EvaluationResult, error) {
	var e domain.EvaluationResult
	err := s.db.WithContext(ctx).Joins("JobDescription").Where("results.id = ?", id).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("get evaluation %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get evaluation %d: %w", id, err)
	}
	return &e, nil
}

func findJobDescription(tx *gorm.DB, id uint) (*domain.JobDescription, error) {
	var jd domain.JobDescription
	err := tx.Where("id = ?", id).Take(&jd).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &jd, nil
}

func findDuplicate(tx *gorm.DB, resumeName string, jobDescriptionID uint) (*domain.EvaluationResult, error) {
	var e domain.EvaluationResult
	err := tx.Where("resume_name = ? AND job_description_id = ?", resumeName, jobDescriptionID).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ensureTitleFree fails when another job description (other than exceptID) has the title.
func ensureTitleFree(tx *gorm.DB, title string, exceptID uint) error {
	var count int64
	q := tx.Model(&domain.JobDescription{}).Where("title = ?", title)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return domain.ErrDuplicateTitle
	}
	return nil
}

// translateWriteError maps unique-constraint violations to conflict.
func translateWriteError(err error, conflict error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
		return conflict
	}
	return err
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate entry") ||
		strings.Contains(msg, "duplicate key value")
}
