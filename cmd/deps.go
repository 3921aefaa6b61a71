package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cv-tailor/internal/ai"
	"github.com/spigell/cv-tailor/internal/ai/gemini"
	"github.com/spigell/cv-tailor/internal/ai/groq"
	"github.com/spigell/cv-tailor/internal/api"
	"github.com/spigell/cv-tailor/internal/document"
	"github.com/spigell/cv-tailor/internal/headhunter"
	"github.com/spigell/cv-tailor/internal/logger"
	"github.com/spigell/cv-tailor/internal/secrets"
	"github.com/spigell/cv-tailor/internal/storage"
	"github.com/spigell/cv-tailor/internal/tailor"
	"github.com/spigell/cv-tailor/internal/tracking"
)

var errNoJob = errors.New("a job description is required (use --job or --vacancy)")

// bindFlags binds the flags of the running command to viper keys. Several
// commands share keys, so the binding happens only for the command being run.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for key, flag := range keys {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			return fmt.Errorf("unknown flag %q", flag)
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding %s: %w", flag, err)
		}
	}
	return nil
}

func newGenerator(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Generator, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = ai.ProviderGroq
	}

	switch provider {
	case ai.ProviderGroq:
		g := cfg.Groq
		if g == nil {
			g = &GroqConfig{}
		}

		apiKey, err := secrets.Load(secrets.Source{
			Name:  "groq api key",
			Value: g.APIKey,
			File:  g.APIKeyFile,
			Env:   "GROQ_API_KEY",
		})
		if err != nil {
			return nil, err
		}

		return groq.NewGenerator(groq.Config{
			APIKey:            apiKey,
			BaseURL:           g.BaseURL,
			Model:             g.Model,
			Temperature:       g.Temperature,
			MaxTokens:         g.MaxTokens,
			MaxRetries:        g.MaxRetries,
			RequestsPerMinute: g.RequestsPerMinute,
		}, logger.WithCommonFields(log, ai.ProviderGroq, g.Model))
	case ai.ProviderGemini:
		g := cfg.Gemini
		if g == nil {
			g = &GeminiConfig{}
		}

		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			Value: g.APIKey,
			File:  g.APIKeyFile,
			Env:   "GEMINI_API_KEY",
		})
		if err != nil {
			return nil, err
		}

		return gemini.NewGenerator(ctx, gemini.Config{
			APIKey:      apiKey,
			Model:       g.Model,
			Temperature: g.Temperature,
			MaxTokens:   g.MaxTokens,
			MaxRetries:  g.MaxRetries,
		}, logger.WithCommonFields(log, ai.ProviderGemini, g.Model))
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
}

func newWriter(ctx context.Context, cfg *AIConfig, log *zap.Logger) (*tailor.Writer, error) {
	generator, err := newGenerator(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return tailor.NewWriter(generator, log), nil
}

// newStore prefers the bucket when one is configured. The second value names
// the destination for prompts and logs.
func newStore(ctx context.Context, cfg *OutputConfig) (storage.Store, string, error) {
	if cfg.S3 != nil && strings.TrimSpace(cfg.S3.Bucket) != "" {
		s3, err := storage.NewS3(ctx, *cfg.S3)
		if err != nil {
			return nil, "", err
		}
		return s3, "s3://" + strings.TrimSpace(cfg.S3.Bucket), nil
	}

	local, err := storage.NewLocal(cfg.Dir)
	if err != nil {
		return nil, "", err
	}
	return local, cfg.Dir, nil
}

// newTracker returns nil when tracking is disabled. A nil tracker is a no-op.
func newTracker(ctx context.Context, cfg *TrackingConfig, log *zap.Logger) (*tracking.Tracker, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	configs, err := tracking.DecodeSinkConfigs(cfg.Sinks)
	if err != nil {
		return nil, err
	}
	if len(configs) == 0 {
		configs = []tracking.SinkConfig{{Type: tracking.SinkLog}}
	}

	sinks, err := tracking.BuildSinks(ctx, configs, log)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(sinks))
	for _, sink := range sinks {
		names = append(names, sink.Name())
	}
	log.Debug("tracking enabled", zap.Strings("sinks", names))

	return tracking.New(cfg.Config, sinks, log), nil
}

func newHeadhunter(cfg *HeadhunterConfig, log *zap.Logger) (*headhunter.Client, error) {
	var token string
	if strings.TrimSpace(cfg.TokenFile) != "" {
		var err error
		token, err = secrets.Load(secrets.Source{Name: "headhunter token", File: cfg.TokenFile})
		if err != nil {
			return nil, err
		}
	}

	hh := headhunter.New(log, token)
	if cfg.UserAgent != "" {
		hh.UserAgent = cfg.UserAgent
	}
	return hh, nil
}

// readInputs loads the résumé and the job description. A job file wins over a vacancy reference.
func readInputs(ctx context.Context, config *Config, jobs api.JobFetcher) (string, string, error) {
	if strings.TrimSpace(config.Resume) == "" {
		return "", "", errors.New("a resume file is required (use --resume)")
	}

	resumeText, err := document.ReadFile(config.Resume, document.DefaultMaxSize)
	if err != nil {
		return "", "", fmt.Errorf("reading resume %q: %w", config.Resume, err)
	}

	switch {
	case strings.TrimSpace(config.Job.File) != "":
		jobText, err := document.ReadFile(config.Job.File, document.DefaultMaxSize)
		if err != nil {
			return "", "", fmt.Errorf("reading job description %q: %w", config.Job.File, err)
		}
		return resumeText, jobText, nil
	case strings.TrimSpace(config.Job.Vacancy) != "":
		jobText, err := jobs.FetchJobDescription(ctx, config.Job.Vacancy)
		if err != nil {
			return "", "", fmt.Errorf("fetching vacancy: %w", err)
		}
		return resumeText, jobText, nil
	default:
		return "", "", errNoJob
	}
}
