package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/cv-tailor/internal/document"
	"github.com/spigell/cv-tailor/internal/keywords"
	"github.com/spigell/cv-tailor/internal/pipeline"
	"github.com/spigell/cv-tailor/internal/resume"
	"github.com/spigell/cv-tailor/internal/storage"
	"github.com/spigell/cv-tailor/internal/tailor"
)

type scoreRequest struct {
	Resume         string `json:"resume"`
	JobDescription string `json:"job_description"`
	Vacancy        string `json:"vacancy"`
	Details        int    `json:"details"`
}

type scoreResponse struct {
	*keywords.Report
	Rating       keywords.Rating         `json:"rating"`
	Advice       string                  `json:"advice,omitempty"`
	OtherMissing []string                `json:"other_missing"`
	Breakdown    []keywords.KeywordMatch `json:"breakdown,omitempty"`
}

type extractResponse struct {
	SessionID string           `json:"session_id"`
	Filename  string           `json:"filename"`
	Text      string           `json:"text"`
	Details   resume.Details   `json:"details"`
	Checklist resume.Checklist `json:"checklist"`
	Missing   []string         `json:"missing"`
}

type tailorRequest struct {
	SessionID       string   `json:"session_id"`
	Resume          string   `json:"resume"`
	JobDescription  string   `json:"job_description"`
	Vacancy         string   `json:"vacancy"`
	JobType         string   `json:"job_type"`
	CVTone          string   `json:"cv_tone"`
	CoverLetterTone string   `json:"cover_letter_tone"`
	FocusAreas      []string `json:"focus_areas"`
	MultipleLetters bool     `json:"multiple_letters"`
	SkipCoverLetter bool     `json:"skip_cover_letter"`
	Company         string   `json:"company"`
	HiringManager   string   `json:"hiring_manager"`
}

type tailorResponse struct {
	SessionID    string               `json:"session_id"`
	TailoredCV   string               `json:"tailored_cv"`
	CoverLetters []tailor.Letter      `json:"cover_letters"`
	Match        pipeline.MatchReport `json:"match"`
	Objects      []storage.Object     `json:"objects,omitempty"`
	Steps        []pipeline.Status    `json:"steps"`
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"llm":    s.deps.Writer != nil,
		"store":  s.deps.Store != nil,
	})
}

func (s *Server) score(c *fiber.Ctx) error {
	var req scoreRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	// empty texts are scored as they are and give a 0% match
	var job string
	if strings.TrimSpace(req.JobDescription) != "" || strings.TrimSpace(req.Vacancy) != "" {
		var err error
		job, err = s.jobDescription(c.UserContext(), req.JobDescription, req.Vacancy)
		if err != nil {
			return err
		}
	}

	report := keywords.Analyze(req.Resume, job)
	resp := scoreResponse{
		Report:       report,
		Rating:       report.Rating(),
		Advice:       report.Advice(),
		OtherMissing: report.OtherMissing(),
	}
	if req.Details > 0 {
		resp.Breakdown = report.Breakdown(req.Details)
	}

	return c.JSON(resp)
}

func (s *Server) extract(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "file is required")
	}

	if !document.Supported(header.Filename) {
		return fiber.NewError(fiber.StatusUnsupportedMediaType,
			fmt.Sprintf("unsupported file type, expected one of %s", strings.Join(document.SupportedExtensions, ", ")))
	}
	if header.Size > s.maxSize {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, document.ErrTooLarge.Error())
	}

	f, err := header.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "cannot open uploaded file")
	}
	defer f.Close()

	text, err := document.Read(header.Filename, f, s.maxSize)
	switch {
	case errors.Is(err, document.ErrTooLarge):
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, document.ErrUnsupportedFormat):
		return fiber.NewError(fiber.StatusUnsupportedMediaType, err.Error())
	case err != nil:
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	sessionID := strings.TrimSpace(c.FormValue("session_id"))
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	s.deps.Tracker.TrackUpload(sessionID, header.Filename, text)

	checklist := resume.Check(text)
	return c.JSON(extractResponse{
		SessionID: sessionID,
		Filename:  header.Filename,
		Text:      text,
		Details:   resume.ParseDetails(text),
		Checklist: checklist,
		Missing:   checklist.Missing(),
	})
}

func (s *Server) tailor(c *fiber.Ctx) error {
	if s.deps.Writer == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, pipeline.ErrNoWriter.Error())
	}

	var req tailorRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if strings.TrimSpace(req.Resume) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "resume is required")
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), s.timeout)
	defer cancel()

	job, err := s.jobDescription(ctx, req.JobDescription, req.Vacancy)
	if err != nil {
		return err
	}

	session := pipeline.NewSession(req.Resume, job, pipeline.Options{
		JobType:         tailor.ParseJobType(req.JobType),
		CVTone:          req.CVTone,
		LetterTone:      req.CoverLetterTone,
		FocusAreas:      req.FocusAreas,
		MultipleLetters: req.MultipleLetters,
		Company:         req.Company,
		HiringManager:   req.HiringManager,
	})
	if id := strings.TrimSpace(req.SessionID); id != "" {
		session.ID = id
	}

	steps := pipeline.DefaultSteps()
	if req.SkipCoverLetter {
		pipeline.DisableByName(steps, pipeline.StepCoverLetters, "skipped by request")
	}

	if err := pipeline.Run(ctx, s.deps, steps, session); err != nil {
		s.logger.Warn("tailoring failed", zap.String("session_id", session.ID), zap.Error(err))
		return fiber.NewError(fiber.StatusBadGateway, "generation failed: "+err.Error())
	}

	letters := session.Letters
	if letters == nil {
		letters = []tailor.Letter{}
	}

	return c.JSON(tailorResponse{
		SessionID:    session.ID,
		TailoredCV:   session.TailoredCV,
		CoverLetters: letters,
		Match:        pipeline.NewMatchReport(session),
		Objects:      session.Objects,
		Steps:        pipeline.Describe(steps),
	})
}

func (s *Server) jobDescription(ctx context.Context, text, ref string) (string, error) {
	if strings.TrimSpace(text) != "" {
		return text, nil
	}

	if strings.TrimSpace(ref) == "" {
		return "", fiber.NewError(fiber.StatusBadRequest, "job_description or vacancy is required")
	}
	if s.jobs == nil {
		return "", fiber.NewError(fiber.StatusBadRequest, "vacancy lookup is not configured")
	}

	job, err := s.jobs.FetchJobDescription(ctx, ref)
	if err != nil {
		return "", fiber.NewError(fiber.StatusBadGateway, "fetch vacancy: "+err.Error())
	}
	if strings.TrimSpace(job) == "" {
		return "", fiber.NewError(fiber.StatusBadGateway, "vacancy has no description")
	}

	return job, nil
}
