package usecase

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"ats-evaluator/domain"
	"ats-evaluator/infrastructure"
	"ats-evaluator/logger"

	"go.uber.org/zap"
)

const defaultMaxLogLength = 500

// Store is the persistence surface the pipeline and history queries need.
type Store interface {
	GetJobDescription(ctx context.Context, id uint) (*domain.JobDescription, error)
	FindDuplicateEvaluation(ctx context.Context, resumeName string, jobDescriptionID uint) (*domain.EvaluationResult, error)
	AddEvaluation(ctx context.Context, e *domain.EvaluationResult) error
	ListEvaluations(ctx context.Context, filter infrastructure.EvaluationFilter) ([]domain.EvaluationResult, error)
}

type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

type Extractor interface {
	Extract(filename string, data []byte) domain.Extraction
}

type Notifier interface {
	Notify(ctx context.Context, event domain.EvaluationEvent) error
}

// Submission is one candidate upload.
type Submission struct {
	Name             string
	Email            string
	JobDescriptionID uint
	ResumeName       string
	Resume           []byte
}

// Report is what a successful evaluation hands back to the caller.
type Report struct {
	Evaluation *domain.EvaluationResult
	Outcome    domain.Outcome
	Warnings   []string
}

type Evaluator struct {
	store        Store
	generator    Generator
	extractor    Extractor
	notifier     Notifier
	logger       *zap.Logger
	maxLogLength int
}

type Option func(*Evaluator)

// WithNotifier registers the post-write notifier. Without one nothing is sent.
func WithNotifier(n Notifier) Option {
	return func(e *Evaluator) { e.notifier = n }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Evaluator) { e.logger = logger.OrNop(l) }
}

// WithMaxLogLength bounds prompt and response previews in debug logs.
func WithMaxLogLength(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.maxLogLength = n
		}
	}
}

func NewEvaluator(store Store, generator Generator, extractor Extractor, opts ...Option) *Evaluator {
	e := &Evaluator{
		store:        store,
		generator:    generator,
		extractor:    extractor,
		logger:       zap.NewNop(),
		maxLogLength: defaultMaxLogLength,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs one submission through extraction, the model, parsing and persistence.
// Nothing is stored when the submission is a duplicate or the model call fails.
func (ev *Evaluator) Evaluate(ctx context.Context, sub Submission) (*Report, error) {
	sub, err := validateSubmission(sub)
	if err != nil {
		return nil, err
	}

	log := logger.WithFields(ev.logger,
		zap.String("resume", sub.ResumeName),
		zap.Uint("job_description_id", sub.JobDescriptionID),
	)

	jd, err := ev.store.GetJobDescription(ctx, sub.JobDescriptionID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("job description %d: %w", sub.JobDescriptionID, domain.ErrForeignKey)
	}
	if err != nil {
		return nil, err
	}

	dup, err := ev.store.FindDuplicateEvaluation(ctx, sub.ResumeName, jd.ID)
	if err != nil {
		return nil, err
	}
	if dup != nil {
		log.Info("duplicate submission rejected", zap.Uint("existing_evaluation_id", dup.ID))
		return nil, fmt.Errorf("%q for job description %d: %w", sub.ResumeName, jd.ID, domain.ErrDuplicateSubmission)
	}

	extraction := ev.extractor.Extract(sub.ResumeName, sub.Resume)
	warnings := append([]string(nil), extraction.Warnings...)

	prompt := infrastructure.BuildPrompt(extraction.Text, jd.Description)
	log.Debug("sending prompt",
		zap.String("model", ev.generator.Model()),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, ev.maxLogLength)),
	)

	raw, err := ev.generator.GenerateContent(ctx, prompt)
	if err != nil {
		log.Error("model call failed", zap.Error(err))
		if !errors.Is(err, domain.ErrModelCall) {
			err = fmt.Errorf("%w: %w", domain.ErrModelCall, err)
		}
		return nil, err
	}
	log.Debug("model responded", zap.String("response_preview", logger.TruncateForLog(raw, ev.maxLogLength)))

	outcome := infrastructure.ParseResponse(raw)
	if _, degraded := outcome.(*domain.Degraded); degraded {
		log.Warn("model response could not be parsed, storing defaults")
		warnings = append(warnings, "model response was not valid JSON; default values were stored")
	}
	fields := outcome.Fields()

	result := &domain.EvaluationResult{
		Name:             sub.Name,
		Email:            sub.Email,
		ResumeName:       sub.ResumeName,
		ResumeBlob:       sub.Resume,
		JobDescriptionID: jd.ID,
		MatchPercent:     fields.Score,
		Summary:          fields.Summary,
		MatchedKeywords:  fields.Matched,
		MissingKeywords:  fields.Missing,
	}
	if err := ev.store.AddEvaluation(ctx, result); err != nil {
		return nil, err
	}
	result.JobDescription = jd

	ev.notify(ctx, log, domain.EvaluationEvent{
		Name:             result.Name,
		Email:            result.Email,
		JobDescriptionID: result.JobDescriptionID,
	})

	log.Info("evaluation completed",
		zap.Uint("evaluation_id", result.ID),
		zap.String("match_percent", result.MatchPercent.String()),
		zap.Int("warnings", len(warnings)),
	)
	return &Report{Evaluation: result, Outcome: outcome, Warnings: warnings}, nil
}

func (ev *Evaluator) notify(ctx context.Context, log *zap.Logger, event domain.EvaluationEvent) {
	if ev.notifier == nil {
		return
	}
	if err := ev.notifier.Notify(ctx, event); err != nil {
		log.Warn("notification failed", zap.Error(err))
	}
}

func validateSubmission(sub Submission) (Submission, error) {
	sub.Name = strings.TrimSpace(sub.Name)
	sub.Email = strings.TrimSpace(sub.Email)
	sub.ResumeName = sanitizeFilename(sub.ResumeName)

	switch {
	case sub.Name == "":
		return sub, fmt.Errorf("%w: name is required", domain.ErrEmptyField)
	case sub.Email == "":
		return sub, fmt.Errorf("%w: email is required", domain.ErrEmptyField)
	case sub.ResumeName == "":
		return sub, fmt.Errorf("%w: resume file name is required", domain.ErrEmptyField)
	case len(sub.Resume) == 0:
		return sub, fmt.Errorf("%w: resume is empty", domain.ErrEmptyField)
	}
	return sub, nil
}

// sanitizeFilename keeps only the base name, so uploads cannot smuggle directories.
func sanitizeFilename(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, `\`, "/"))
	if name == "" {
		return ""
	}
	base := path.Base(name)
	if base == "." || base == "/" || base == ".." {
		return ""
	}
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, base)
}
