package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/cv-tailor/internal/keywords"
	"github.com/spigell/cv-tailor/internal/storage"
	"github.com/spigell/cv-tailor/internal/tailor"
)

const (
	StepScoreBefore  = "score_before"
	StepTailorCV     = "tailor_cv"
	StepCoverLetters = "cover_letters"
	StepScoreAfter   = "score_after"
	StepStore        = "store"
)

// ErrNoWriter is returned when a generating step runs without a writer.
var ErrNoWriter = errors.New("no language model is configured")

// DefaultSteps returns a fresh list of every step in execution order.
func DefaultSteps() []Step {
	return []Step{
		NewScoreBefore(),
		NewTailorCV(),
		NewCoverLetters(),
		NewScoreAfter(),
		NewStore(),
	}
}

type toggle struct {
	disabled bool
	reason   string
}

func (t *toggle) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return !t.disabled }

func (t *toggle) DisabledReason() string { return t.reason }

type scoreBeforeStep struct{ toggle }

// NewScoreBefore creates the step that scores the original résumé.
func NewScoreBefore() Step { return &scoreBeforeStep{} }

func (st *scoreBeforeStep) Name() string { return StepScoreBefore }

func (st *scoreBeforeStep) Validate(_ Deps, s *Session) error {
	if strings.TrimSpace(s.Resume) == "" {
		return errors.New("resume text is required")
	}
	if strings.TrimSpace(s.JobDescription) == "" {
		return errors.New("job description is required")
	}
	return nil
}

func (st *scoreBeforeStep) Apply(_ context.Context, _ Deps, s *Session) (Outcome, error) {
	s.Before = keywords.Analyze(s.Resume, s.JobDescription)
	return Outcome{Fields: reportFields(s.Before)}, nil
}

type tailorCVStep struct{ toggle }

// NewTailorCV creates the step that rewrites the résumé for the job.
func NewTailorCV() Step { return &tailorCVStep{} }

func (st *tailorCVStep) Name() string { return StepTailorCV }

func (st *tailorCVStep) Validate(deps Deps, _ *Session) error {
	if deps.Writer == nil {
		return ErrNoWriter
	}
	return nil
}

func (st *tailorCVStep) Apply(ctx context.Context, deps Deps, s *Session) (Outcome, error) {
	before := s.Before
	if before == nil {
		before = keywords.Analyze(s.Resume, s.JobDescription)
	}

	rows := before.Breakdown(keywords.DisplayLimit)
	jobKeywords := make([]string, 0, len(rows))
	for _, row := range rows {
		jobKeywords = append(jobKeywords, row.Term)
	}

	cv, err := deps.Writer.TailorCV(ctx, tailor.CVRequest{
		Resume:          s.Resume,
		JobDescription:  s.JobDescription,
		JobType:         s.Options.JobType,
		Tone:            s.Options.CVTone,
		FocusAreas:      s.Options.FocusAreas,
		Keywords:        jobKeywords,
		MissingKeywords: before.HighPriorityMissing,
	})
	if err != nil {
		return Outcome{}, err
	}

	s.TailoredCV = cv
	return Outcome{Fields: []zap.Field{zap.Int("cv_length", len(cv))}}, nil
}

type coverLettersStep struct{ toggle }

// NewCoverLetters creates the step that drafts one or several cover letters.
func NewCoverLetters() Step { return &coverLettersStep{} }

func (st *coverLettersStep) Name() string { return StepCoverLetters }

func (st *coverLettersStep) Validate(deps Deps, _ *Session) error {
	if deps.Writer == nil {
		return ErrNoWriter
	}
	return nil
}

func (st *coverLettersStep) Apply(ctx context.Context, deps Deps, s *Session) (Outcome, error) {
	var tones []string
	if s.Options.MultipleLetters {
		tones = tailor.LetterTones
	}

	letters, err := deps.Writer.CoverLetters(ctx, tailor.CoverLetterRequest{
		Resume:         s.Resume,
		JobDescription: s.JobDescription,
		Company:        s.Options.Company,
		HiringManager:  s.Options.HiringManager,
		Tone:           s.Options.LetterTone,
	}, tones)
	if err != nil {
		return Outcome{}, err
	}

	s.Letters = letters

	names := make([]string, 0, len(letters))
	for _, l := range letters {
		names = append(names, l.Tone)
	}
	return Outcome{Fields: []zap.Field{zap.Strings("tones", names)}}, nil
}

type scoreAfterStep struct{ toggle }

// NewScoreAfter creates the step that scores the tailored CV against the same job.
func NewScoreAfter() Step { return &scoreAfterStep{} }

func (st *scoreAfterStep) Name() string { return StepScoreAfter }

func (st *scoreAfterStep) Validate(Deps, *Session) error { return nil }

func (st *scoreAfterStep) Apply(_ context.Context, _ Deps, s *Session) (Outcome, error) {
	if strings.TrimSpace(s.TailoredCV) == "" {
		return Outcome{Skipped: true, Reason: "no tailored cv"}, nil
	}

	s.After = keywords.Analyze(s.TailoredCV, s.JobDescription)

	fields := reportFields(s.After)
	if s.Before != nil {
		fields = append(fields, zap.Float64("improvement", s.After.MatchPercentage-s.Before.MatchPercentage))
	}
	return Outcome{Fields: fields}, nil
}

type storeStep struct{ toggle }

// NewStore creates the step that writes the session documents to the configured store.
func NewStore() Step { return &storeStep{} }

func (st *storeStep) Name() string { return StepStore }

func (st *storeStep) Validate(Deps, *Session) error { return nil }

func (st *storeStep) Apply(ctx context.Context, deps Deps, s *Session) (Outcome, error) {
	if deps.Store == nil {
		return Outcome{Skipped: true, Reason: "no output store configured"}, nil
	}

	put := func(name string, content []byte, contentType string) error {
		obj, err := deps.Store.Put(ctx, storage.Key(s.ID, name), content, contentType)
		if err != nil {
			return fmt.Errorf("store %s: %w", name, err)
		}
		s.Objects = append(s.Objects, obj)
		return nil
	}

	if s.TailoredCV != "" {
		if err := put(storage.CVFile, []byte(s.TailoredCV), storage.ContentTypeMarkdown); err != nil {
			return Outcome{}, err
		}
	}

	for _, letter := range s.Letters {
		if err := put(storage.CoverLetterFile(letter.Tone), []byte(letter.Text), storage.ContentTypeMarkdown); err != nil {
			return Outcome{}, err
		}
	}

	if s.Before != nil {
		report, err := json.MarshalIndent(NewMatchReport(s), "", "  ")
		if err != nil {
			return Outcome{}, fmt.Errorf("encode match report: %w", err)
		}
		if err := put(storage.ReportFile, report, storage.ContentTypeJSON); err != nil {
			return Outcome{}, err
		}
	}

	return Outcome{Fields: []zap.Field{zap.Int("objects", len(s.Objects))}}, nil
}

// MatchReport is the stored summary of a session's keyword scores.
type MatchReport struct {
	SessionID   string           `json:"session_id"`
	Before      *keywords.Report `json:"before"`
	After       *keywords.Report `json:"after,omitempty"`
	Improvement *float64         `json:"improvement,omitempty"`
}

// NewMatchReport summarizes the scores of s.
func NewMatchReport(s *Session) MatchReport {
	r := MatchReport{SessionID: s.ID, Before: s.Before, After: s.After}
	if s.Before != nil && s.After != nil {
		diff := s.After.MatchPercentage - s.Before.MatchPercentage
		r.Improvement = &diff
	}
	return r
}

func reportFields(r *keywords.Report) []zap.Field {
	return []zap.Field{
		zap.Float64("match_percentage", r.MatchPercentage),
		zap.String("rating", string(r.Rating())),
		zap.Int("job_keywords", r.JobKeywordCount),
		zap.Int("missing", len(r.MissingKeywords)),
	}
}
