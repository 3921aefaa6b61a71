package cmd

import (
	"errors"
	"io/fs"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/cv-tailor/internal/api"
	"github.com/spigell/cv-tailor/internal/storage"
	"github.com/spigell/cv-tailor/internal/tracking"
)

const (
	app       = "cv-tailor"
	envPrefix = "CV_TAILOR"
)

type Config struct {
	Resume     string            `mapstructure:"resume"`
	Job        *JobConfig        `mapstructure:"job"`
	Generation *GenerationConfig `mapstructure:"generation"`
	AI         *AIConfig         `mapstructure:"ai"`
	Output     *OutputConfig     `mapstructure:"output"`
	Tracking   *TrackingConfig   `mapstructure:"tracking"`
	Headhunter *HeadhunterConfig `mapstructure:"headhunter"`
	Server     *ServerConfig     `mapstructure:"server"`
}

type JobConfig struct {
	File          string `mapstructure:"file"`
	Vacancy       string `mapstructure:"vacancy"`
	Company       string `mapstructure:"company"`
	HiringManager string `mapstructure:"hiring-manager"`
}

type GenerationConfig struct {
	JobType         string   `mapstructure:"job-type"`
	CVTone          string   `mapstructure:"cv-tone"`
	CoverLetterTone string   `mapstructure:"cover-letter-tone"`
	FocusAreas      []string `mapstructure:"focus-areas"`
	MultipleLetters bool     `mapstructure:"multiple-letters"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
	Groq     *GroqConfig   `mapstructure:"groq"`
}

type GeminiConfig struct {
	APIKey      string  `mapstructure:"api-key"`
	APIKeyFile  string  `mapstructure:"api-key-file"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max-tokens"`
	MaxRetries  int     `mapstructure:"max-retries"`
}

type GroqConfig struct {
	APIKey            string  `mapstructure:"api-key"`
	APIKeyFile        string  `mapstructure:"api-key-file"`
	BaseURL           string  `mapstructure:"base-url"`
	Model             string  `mapstructure:"model"`
	Temperature       float64 `mapstructure:"temperature"`
	MaxTokens         int     `mapstructure:"max-tokens"`
	MaxRetries        int     `mapstructure:"max-retries"`
	RequestsPerMinute int     `mapstructure:"requests-per-minute"`
}

type OutputConfig struct {
	Dir string            `mapstructure:"dir"`
	S3  *storage.S3Config `mapstructure:"s3"`
}

type TrackingConfig struct {
	tracking.Config `mapstructure:",squash"`

	Enabled bool `mapstructure:"enabled"`
	// Sinks is decoded per sink type by the tracking package.
	Sinks any `mapstructure:"sinks"`
}

type HeadhunterConfig struct {
	TokenFile string `mapstructure:"token-file"`
	UserAgent string `mapstructure:"user-agent"`
}

type ServerConfig struct {
	api.Config `mapstructure:",squash"`

	Listen string `mapstructure:"listen"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "cv-tailor scores a CV against a job description and rewrites it with an LLM",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is cv-tailor.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging and reports")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ai.provider", "groq")
	v.SetDefault("output.dir", "output")
	v.SetDefault("tracking.enabled", false)
	v.SetDefault("server.listen", ":8080")
}

func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env file: %v", err)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// Only an explicitly requested config file is mandatory.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config == nil {
		config = &Config{}
	}

	if config.Job == nil {
		config.Job = &JobConfig{}
	}
	if config.Generation == nil {
		config.Generation = &GenerationConfig{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.Output == nil {
		config.Output = &OutputConfig{}
	}
	if config.Tracking == nil {
		config.Tracking = &TrackingConfig{}
	}
	if config.Headhunter == nil {
		config.Headhunter = &HeadhunterConfig{}
	}
	if config.Server == nil {
		config.Server = &ServerConfig{}
	}

	return config, nil
}
