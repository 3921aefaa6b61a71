package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cv-tailor/internal/keywords"
	"github.com/spigell/cv-tailor/internal/logger"
	"github.com/spigell/cv-tailor/internal/resume"
)

var scoreFlags = map[string]string{
	"resume":      "resume",
	"job.file":    "job",
	"job.vacancy": "vacancy",
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score how well a resume matches a job description",
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return bindFlags(cmd, scoreFlags)
	},
	Run: func(cmd *cobra.Command, _ []string) {
		score(cmd)
	},
}

type scoreOutput struct {
	*keywords.Report
	Rating       keywords.Rating         `json:"rating"`
	Advice       string                  `json:"advice,omitempty"`
	OtherMissing []string                `json:"other_missing"`
	Breakdown    []keywords.KeywordMatch `json:"breakdown,omitempty"`
	Details      *resume.Details         `json:"details,omitempty"`
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringP("resume", "r", "", "resume file (.txt, .md, .pdf or .docx)")
	scoreCmd.Flags().String("job", "", "job description file")
	scoreCmd.Flags().String("vacancy", "", "headhunter vacancy id or url to fetch the job description from")
	scoreCmd.Flags().Bool("details", false, "include the keyword breakdown and the parsed resume profile")
}

func score(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	hh, err := newHeadhunter(config.Headhunter, logger)
	if err != nil {
		logger.Fatal("creating a headhunter client", zap.Error(err),
			zap.String("hint", "check the 'headhunter.token-file' key in the configuration file"))
	}

	resumeText, jobText, err := readInputs(ctx, config, hh)
	if err != nil {
		if errors.Is(err, errNoJob) {
			logger.Fatal("reading inputs", zap.Error(err),
				zap.String("hint", "pass a job description file with --job or a vacancy with --vacancy"))
		}
		logger.Fatal("reading inputs", zap.Error(err))
	}

	if missing := resume.Check(resumeText).Missing(); len(missing) > 0 {
		logger.Warn("resume looks incomplete", zap.Strings("missing", missing))
	}

	details, _ := cmd.Flags().GetBool("details")
	report := keywords.Analyze(resumeText, jobText)

	logger.Debug("scored resume",
		zap.Float64("match_percentage", report.MatchPercentage),
		zap.Int("resume_keywords", report.ResumeKeywordCount),
		zap.Int("job_keywords", report.JobKeywordCount),
	)

	if viper.GetBool("json") {
		out := scoreOutput{
			Report:       report,
			Rating:       report.Rating(),
			Advice:       report.Advice(),
			OtherMissing: report.OtherMissing(),
		}
		if details {
			profile := resume.ParseDetails(resumeText)
			out.Breakdown = report.Breakdown(keywords.DefaultBreakdownLimit)
			out.Details = &profile
		} else {
			report.ResumeKeywords = nil
			report.JobKeywords = nil
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			logger.Fatal("writing report", zap.Error(err))
		}
		return
	}

	if err := writeReport(os.Stdout, report, details); err != nil {
		logger.Fatal("writing report", zap.Error(err))
	}
}
