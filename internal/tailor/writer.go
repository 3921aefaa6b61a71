// Package tailor asks an LLM to rewrite a CV and draft cover letters for a job description.
package tailor

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spigell/cv-tailor/internal/ai"
	"github.com/spigell/cv-tailor/internal/logger"
	"github.com/spigell/cv-tailor/internal/utils"
	"go.uber.org/zap"
)

const (
	CVToneTechnical   = "Technical"
	CVToneAchievement = "Achievement-focused"
	CVToneLeadership  = "Leadership-oriented"

	ToneProfessional = "professional"
	ToneEnthusiastic = "enthusiastic"
	ToneCreative     = "creative"

	defaultCompany       = "[Company Name]"
	defaultHiringManager = "Hiring Manager"

	defaultMaxLogLength = 200
	noneListed          = "none"
)

var (
	//go:embed prompts/cv_system.md
	cvSystemTemplate string
	//go:embed prompts/cv_user.md
	cvUserTemplate string
	//go:embed prompts/cover_letter_system.md
	letterSystemTemplate string
	//go:embed prompts/cover_letter_user.md
	letterUserTemplate string
)

// DefaultFocusAreas are used when a CV request names none.
var DefaultFocusAreas = []string{"Technical Skills", "Achievements"}

// CVTones lists the supported CV tones.
var CVTones = []string{CVToneTechnical, CVToneAchievement, CVToneLeadership}

// LetterTones lists the cover letter tones generated when several versions are requested.
var LetterTones = []string{ToneProfessional, ToneEnthusiastic, ToneCreative}

// CVRequest describes a CV rewrite.
type CVRequest struct {
	Resume          string
	JobDescription  string
	JobType         JobType
	Tone            string
	FocusAreas      []string
	Keywords        []string
	MissingKeywords []string
}

// CoverLetterRequest describes a single cover letter.
type CoverLetterRequest struct {
	Resume         string
	JobDescription string
	Company        string
	HiringManager  string
	Tone           string
}

// Letter is a generated cover letter and the tone it was written in.
type Letter struct {
	Tone string `json:"tone"`
	Text string `json:"text"`
}

// Writer drafts documents through an ai.Generator.
type Writer struct {
	generator ai.Generator
	logger    *zap.Logger
	maxLogLen int
}

func NewWriter(generator ai.Generator, log *zap.Logger) *Writer {
	var model string
	if generator != nil {
		model = generator.Model()
	}

	return &Writer{
		generator: generator,
		logger:    logger.WithFields(log, logger.StringFields(logger.StringField{Key: logger.FieldModel, Value: model})...),
		maxLogLen: defaultMaxLogLength,
	}
}

// TailorCV rewrites the résumé for the job description and returns Markdown.
func (w *Writer) TailorCV(ctx context.Context, req CVRequest) (string, error) {
	if err := validateInputs(req.Resume, req.JobDescription); err != nil {
		return "", err
	}

	jobType := ParseJobType(string(req.JobType))

	tone := SanitizeLine(req.Tone)
	if tone == "" {
		tone = CVToneTechnical
	}

	focus := sanitizeList(req.FocusAreas)
	if len(focus) == 0 {
		focus = DefaultFocusAreas
	}

	system := strings.NewReplacer(
		"{{ROLE_PREAMBLE}}", jobType.preamble(),
		"{{ROLE_LABEL}}", jobType.Label(),
		"{{CV_TONE}}", strings.ToLower(tone),
	).Replace(cvSystemTemplate)

	message := strings.NewReplacer(
		"{{RESUME}}", strings.TrimSpace(req.Resume),
		"{{JOB_DESCRIPTION}}", strings.TrimSpace(req.JobDescription),
		"{{JOB_KEYWORDS}}", joinOrNone(req.Keywords),
		"{{MISSING_KEYWORDS}}", joinOrNone(req.MissingKeywords),
		"{{FOCUS_AREAS}}", strings.Join(focus, ", "),
	).Replace(cvUserTemplate)

	return w.generate(ctx, "tailored cv", system, message, zap.String("job_type", string(jobType)), zap.String("cv_tone", tone))
}

// CoverLetter drafts one cover letter in the requested tone.
func (w *Writer) CoverLetter(ctx context.Context, req CoverLetterRequest) (string, error) {
	if err := validateInputs(req.Resume, req.JobDescription); err != nil {
		return "", err
	}

	company := SanitizeLine(req.Company)
	if company == "" {
		company = defaultCompany
	}

	manager := SanitizeLine(req.HiringManager)
	if manager == "" {
		manager = defaultHiringManager
	}

	tone := strings.ToLower(SanitizeLine(req.Tone))
	if tone == "" {
		tone = ToneProfessional
	}

	system := strings.ReplaceAll(letterSystemTemplate, "{{TONE}}", tone)
	message := strings.NewReplacer(
		"{{RESUME}}", strings.TrimSpace(req.Resume),
		"{{JOB_DESCRIPTION}}", strings.TrimSpace(req.JobDescription),
		"{{COMPANY}}", company,
		"{{HIRING_MANAGER}}", manager,
	).Replace(letterUserTemplate)

	return w.generate(ctx, "cover letter", system, message, zap.String("tone", tone), zap.String("company", company))
}

// CoverLetters drafts one letter per tone, in order. An empty tone list uses the
// request tone only.
func (w *Writer) CoverLetters(ctx context.Context, req CoverLetterRequest, tones []string) ([]Letter, error) {
	if len(tones) == 0 {
		tones = []string{req.Tone}
	}

	letters := make([]Letter, 0, len(tones))
	for _, tone := range tones {
		single := req
		single.Tone = tone

		text, err := w.CoverLetter(ctx, single)
		if err != nil {
			return nil, fmt.Errorf("cover letter %q: %w", tone, err)
		}

		normalized := strings.ToLower(SanitizeLine(tone))
		if normalized == "" {
			normalized = ToneProfessional
		}
		letters = append(letters, Letter{Tone: normalized, Text: text})
	}

	return letters, nil
}

func (w *Writer) generate(ctx context.Context, kind, system, message string, fields ...zap.Field) (string, error) {
	if w == nil || w.generator == nil {
		return "", errors.New("no language model is configured")
	}

	log := w.logger.With(fields...)
	log.Info("generating "+kind, zap.Int("prompt_length", len(message)))
	start := time.Now()

	raw, err := w.generator.GenerateContent(ctx, system, message)
	if err != nil {
		return "", fmt.Errorf("generate %s: %w", kind, err)
	}

	text := ai.CleanResponse(raw)
	if text == "" {
		return "", fmt.Errorf("generate %s: %w", kind, ai.ErrEmptyResponse)
	}

	log.Debug("generated "+kind,
		zap.Duration("elapsed", time.Since(start)),
		zap.String("preview", utils.TruncateForLog(text, w.maxLogLen)),
	)

	return text, nil
}

func validateInputs(resume, jobDescription string) error {
	if strings.TrimSpace(resume) == "" {
		return errors.New("resume text is required")
	}
	if strings.TrimSpace(jobDescription) == "" {
		return errors.New("job description is required")
	}
	return nil
}

func joinOrNone(values []string) string {
	values = sanitizeList(values)
	if len(values) == 0 {
		return noneListed
	}
	return strings.Join(values, ", ")
}
