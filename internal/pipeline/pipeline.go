// Package pipeline runs the tailoring session: score, rewrite, draft letters, rescore, store.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/cv-tailor/internal/keywords"
	"github.com/spigell/cv-tailor/internal/logger"
	"github.com/spigell/cv-tailor/internal/storage"
	"github.com/spigell/cv-tailor/internal/tailor"
	"github.com/spigell/cv-tailor/internal/tracking"
)

// Step is a single named stage of a tailoring session.
type Step interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate(deps Deps, s *Session) error
	Apply(ctx context.Context, deps Deps, s *Session) (Outcome, error)
}

// Deps aggregates the collaborators shared across steps. Store and Tracker are optional.
type Deps struct {
	Writer  *tailor.Writer
	Store   storage.Store
	Tracker *tracking.Tracker
	Logger  *zap.Logger
}

// Outcome describes what a step did.
type Outcome struct {
	Skipped bool
	Reason  string
	Fields  []zap.Field
}

// Options are the user choices for one session.
type Options struct {
	JobType         tailor.JobType
	CVTone          string
	LetterTone      string
	FocusAreas      []string
	MultipleLetters bool
	Company         string
	HiringManager   string
}

// Session carries the inputs and everything produced for them.
type Session struct {
	ID             string
	Resume         string
	ResumeName     string
	JobDescription string
	Options        Options

	Before     *keywords.Report
	After      *keywords.Report
	TailoredCV string
	Letters    []tailor.Letter
	Objects    []storage.Object

	tracked bool
}

// NewSession creates a session with a fresh id.
func NewSession(resume, jobDescription string, opts Options) *Session {
	return &Session{
		ID:             uuid.NewString(),
		Resume:         resume,
		JobDescription: jobDescription,
		Options:        opts,
	}
}

// Status represents runtime information about a step.
type Status struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Reason  string `json:"reason,omitempty"`
}

// DisableByName marks a step with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Step, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Run validates the enabled steps and then applies them in order. A finished
// session is reported to the tracker.
func Run(ctx context.Context, deps Deps, steps []Step, s *Session) error {
	if s == nil {
		return fmt.Errorf("session is required")
	}
	if strings.TrimSpace(s.ID) == "" {
		s.ID = uuid.NewString()
	}

	log := logger.WithSession(deps.Logger, s.ID)

	for _, step := range steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(deps, s); err != nil {
			return fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	for _, step := range steps {
		if !step.IsEnabled() {
			log.Info("step disabled", zap.String("name", step.Name()))
			continue
		}

		outcome, err := step.Apply(ctx, deps, s)
		if err != nil {
			return fmt.Errorf("%s: %w", step.Name(), err)
		}

		if outcome.Skipped {
			log.Info("step skipped", zap.String("name", step.Name()), zap.String("reason", outcome.Reason))
			continue
		}

		log.Info("pipeline step", append([]zap.Field{zap.String("name", step.Name())}, outcome.Fields...)...)
	}

	// a session is reported once, even when later steps (store) run separately
	if !s.tracked && (s.TailoredCV != "" || len(s.Letters) > 0) {
		deps.Tracker.TrackGeneration(s.ID, generationInput(s))
		s.tracked = true
	}

	return nil
}

// Describe returns status entries for the provided steps.
func Describe(steps []Step) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		status := Status{Name: step.Name(), Enabled: step.IsEnabled()}
		if r, ok := step.(interface{ DisabledReason() string }); ok {
			status.Reason = r.DisabledReason()
		}
		statuses = append(statuses, status)
	}
	return statuses
}

func generationInput(s *Session) tracking.GenerationInput {
	in := tracking.GenerationInput{
		OriginalCV:     s.Resume,
		JobDescription: s.JobDescription,
		GeneratedCV:    s.TailoredCV,
		Company:        s.Options.Company,
	}
	if len(s.Letters) > 0 {
		in.CoverLetter = s.Letters[0].Text
	}
	if s.Before != nil {
		in.MatchBefore = s.Before.MatchPercentage
	}
	if s.After != nil {
		in.MatchAfter = s.After.MatchPercentage
	}
	return in
}
