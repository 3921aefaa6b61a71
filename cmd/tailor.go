package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cv-tailor/internal/logger"
	"github.com/spigell/cv-tailor/internal/pipeline"
	"github.com/spigell/cv-tailor/internal/tailor"
	"github.com/spigell/cv-tailor/internal/tracking"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var tailorFlags = map[string]string{
	"resume":                       "resume",
	"job.file":                     "job",
	"job.vacancy":                  "vacancy",
	"job.company":                  "company",
	"job.hiring-manager":           "hiring-manager",
	"generation.job-type":          "job-type",
	"generation.cv-tone":           "cv-tone",
	"generation.cover-letter-tone": "cover-letter-tone",
	"generation.focus-areas":       "focus",
	"generation.multiple-letters":  "multiple-letters",
	"output.dir":                   "output",
}

var tailorCmd = &cobra.Command{
	Use:   "tailor",
	Short: "Rewrite a resume for a job description and draft cover letters",
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return bindFlags(cmd, tailorFlags)
	},
	Run: func(cmd *cobra.Command, _ []string) {
		runTailor(cmd)
	},
}

func init() {
	rootCmd.AddCommand(tailorCmd)

	tailorCmd.Flags().StringP("resume", "r", "", "resume file (.txt, .md, .pdf or .docx)")
	tailorCmd.Flags().String("job", "", "job description file")
	tailorCmd.Flags().String("vacancy", "", "headhunter vacancy id or url to fetch the job description from")
	tailorCmd.Flags().String("company", "", "company name for the cover letter")
	tailorCmd.Flags().String("hiring-manager", "", "hiring manager name for the cover letter")
	tailorCmd.Flags().String("job-type", "", fmt.Sprintf("role profile: %s", strings.Join(jobTypeNames(), ", ")))
	tailorCmd.Flags().String("cv-tone", "", fmt.Sprintf("cv tone: %s", strings.Join(tailor.CVTones, ", ")))
	tailorCmd.Flags().String("cover-letter-tone", "", "cover letter tone (default professional)")
	tailorCmd.Flags().StringSlice("focus", nil, "focus areas for the rewrite, comma separated")
	tailorCmd.Flags().Bool("multiple-letters", false, "draft a cover letter in every tone")
	tailorCmd.Flags().Bool("no-cover-letter", false, "skip the cover letter")
	tailorCmd.Flags().StringP("output", "o", "", "directory for the generated files")
	tailorCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation before saving")
}

func jobTypeNames() []string {
	names := make([]string, 0, len(tailor.JobTypes()))
	for _, jt := range tailor.JobTypes() {
		names = append(names, string(jt))
	}
	return names
}

func runTailor(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the cv-tailor", zap.String("version", version))

	autoApprove, _ := cmd.Flags().GetBool("yes")
	noLetter, _ := cmd.Flags().GetBool("no-cover-letter")

	writer, err := newWriter(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("creating a language model client", zap.Error(err),
			zap.String("hint", "set GROQ_API_KEY or GEMINI_API_KEY, or the 'ai.<provider>.api-key-file' key in the configuration file"))
	}

	hh, err := newHeadhunter(config.Headhunter, logger)
	if err != nil {
		logger.Fatal("creating a headhunter client", zap.Error(err))
	}

	resumeText, jobText, err := readInputs(ctx, config, hh)
	if err != nil {
		logger.Fatal("reading inputs", zap.Error(err))
	}

	tracker, err := newTracker(ctx, config.Tracking, logger)
	if err != nil {
		logger.Fatal("creating a tracker", zap.Error(err))
	}

	err = tailorResume(ctx, tailorRun{
		config:      config,
		resume:      resumeText,
		job:         jobText,
		writer:      writer,
		tracker:     tracker,
		logger:      logger,
		out:         cmd.OutOrStdout(),
		autoApprove: autoApprove,
		noLetter:    noLetter,
	})

	// Fatal skips deferred calls, queued events are flushed first
	if err := tracker.Close(ctx); err != nil {
		logger.Warn("closing the tracker", zap.Error(err))
	}
	if err != nil {
		logger.Fatal("tailoring the resume", zap.Error(err))
	}
}

type tailorRun struct {
	config  *Config
	resume  string
	job     string
	writer  *tailor.Writer
	tracker *tracking.Tracker
	logger  *zap.Logger
	out     io.Writer

	autoApprove bool
	noLetter    bool
}

// tailorResume runs the generation steps, prints the result and saves it
// once the user agrees.
func tailorResume(ctx context.Context, r tailorRun) error {
	config := r.config

	jobType := config.Generation.JobType
	if jobType == "" && !r.autoApprove {
		var err error
		jobType, err = selectJobType()
		if err != nil {
			return fmt.Errorf("selecting a job type: %w", err)
		}
	}

	s := pipeline.NewSession(r.resume, r.job, pipeline.Options{
		JobType:         tailor.ParseJobType(jobType),
		CVTone:          config.Generation.CVTone,
		LetterTone:      config.Generation.CoverLetterTone,
		FocusAreas:      config.Generation.FocusAreas,
		MultipleLetters: config.Generation.MultipleLetters,
		Company:         config.Job.Company,
		HiringManager:   config.Job.HiringManager,
	})
	s.ResumeName = filepath.Base(config.Resume)

	r.tracker.TrackUpload(s.ID, s.ResumeName, r.resume)

	deps := pipeline.Deps{Writer: r.writer, Tracker: r.tracker, Logger: r.logger}

	steps := pipeline.DefaultSteps()
	pipeline.DisableByName(steps, pipeline.StepStore, "saved after confirmation")
	if r.noLetter {
		pipeline.DisableByName(steps, pipeline.StepCoverLetters, "disabled by --no-cover-letter")
	}

	if err := pipeline.Run(ctx, deps, steps, s); err != nil {
		return err
	}

	printSession(r.out, s)

	store, location, err := newStore(ctx, config.Output)
	if err != nil {
		return fmt.Errorf("creating an output store: %w", err)
	}

	if !r.autoApprove {
		save, err := confirm(fmt.Sprintf("Save the results to %s?", location))
		if err != nil {
			return err
		}
		if !save {
			r.logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return nil
		}
	}

	deps.Store = store
	if err := pipeline.Run(ctx, deps, []pipeline.Step{pipeline.NewStore()}, s); err != nil {
		return fmt.Errorf("saving the results: %w", err)
	}

	for _, obj := range s.Objects {
		r.logger.Info("saved", zap.String("location", obj.Location), zap.Int("size", obj.Size))
	}
	return nil
}

func printSession(out io.Writer, s *pipeline.Session) {
	fmt.Fprintf(out, "\n===== Tailored CV =====\n\n%s\n", s.TailoredCV)
	for _, letter := range s.Letters {
		fmt.Fprintf(out, "\n===== Cover letter (%s) =====\n\n%s\n", letter.Tone, letter.Text)
	}

	if s.Before != nil && s.After != nil {
		fmt.Fprintln(out)
		writeComparison(out, s.Before, s.After)
	}
}

func selectJobType() (string, error) {
	names := jobTypeNames()
	items := make([]string, 0, len(names))
	for _, jt := range tailor.JobTypes() {
		items = append(items, jt.Label())
	}

	prompt := promptui.Select{
		Label: "Job type",
		Items: items,
	}

	i, _, err := prompt.Run()
	if err != nil {
		return "", err
	}
	return names[i], nil
}

func confirm(label string) (bool, error) {
	prompt := promptui.Select{
		Label: label,
		Items: []string{PromptYes, PromptNo},
	}

	_, answer, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) {
			return false, nil
		}
		return false, err
	}
	return answer == PromptYes, nil
}
