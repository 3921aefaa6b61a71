package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cv-tailor/internal/tracking"
)

const testConfig = `
resume: cv.pdf
job:
  vacancy: https://hh.ru/vacancy/123
  company: Acme
  hiring-manager: Jane Doe
generation:
  job-type: devops_engineer
  focus-areas: [Kubernetes, Terraform]
  multiple-letters: true
ai:
  provider: gemini
  gemini:
    model: gemini-2.5-flash
    max-retries: 3
output:
  s3:
    bucket: cvs
    use-path-style: true
tracking:
  enabled: true
  workers: 4
  write-timeout: 3s
  sinks:
    - type: log
    - type: sql
      driver: sqlite
      dsn: tracking.db
server:
  max-upload-size: 1024
  request-timeout: 30s
`

func TestDecodeConfig(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(testConfig)); err != nil {
		t.Fatalf("read config: %v", err)
	}

	config, err := decodeConfig(v)
	if err != nil {
		t.Fatalf("decode config: %v", err)
	}

	if config.Resume != "cv.pdf" || config.Job.Company != "Acme" || config.Job.HiringManager != "Jane Doe" {
		t.Fatalf("unexpected job config: %+v %+v", config, config.Job)
	}
	if config.Generation.JobType != "devops_engineer" || len(config.Generation.FocusAreas) != 2 || !config.Generation.MultipleLetters {
		t.Fatalf("unexpected generation config: %+v", config.Generation)
	}
	if config.AI.Provider != "gemini" || config.AI.Gemini.Model != "gemini-2.5-flash" || config.AI.Gemini.MaxRetries != 3 {
		t.Fatalf("unexpected ai config: %+v", config.AI)
	}
	if config.Output.Dir != "output" || config.Output.S3.Bucket != "cvs" || !config.Output.S3.UsePathStyle {
		t.Fatalf("unexpected output config: %+v", config.Output)
	}
	if !config.Tracking.Enabled || config.Tracking.Workers != 4 || config.Tracking.WriteTimeout != 3*time.Second {
		t.Fatalf("unexpected tracking config: %+v", config.Tracking)
	}
	if config.Server.Listen != ":8080" || config.Server.MaxUploadSize != 1024 || config.Server.RequestTimeout != 30*time.Second {
		t.Fatalf("unexpected server config: %+v", config.Server)
	}

	sinks, err := tracking.DecodeSinkConfigs(config.Tracking.Sinks)
	if err != nil {
		t.Fatalf("decode sinks: %v", err)
	}
	if len(sinks) != 2 || sinks[1].Type != tracking.SinkSQL || sinks[1].Settings["driver"] != "sqlite" {
		t.Fatalf("unexpected sinks: %+v", sinks)
	}
}

func TestDecodeConfigFillsSections(t *testing.T) {
	config, err := decodeConfig(viper.New())
	if err != nil {
		t.Fatalf("decode config: %v", err)
	}

	if config.Job == nil || config.Generation == nil || config.AI == nil || config.Output == nil ||
		config.Tracking == nil || config.Headhunter == nil || config.Server == nil {
		t.Fatalf("expected every section to be set: %+v", config)
	}
}

func TestBindFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("job", "", "")

	if err := bindFlags(cmd, map[string]string{"job.file": "missing"}); err == nil {
		t.Fatal("expected error for an unknown flag")
	}

	if err := cmd.Flags().Set("job", "job.txt"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	if err := bindFlags(cmd, map[string]string{"job.file": "job"}); err != nil {
		t.Fatalf("bind flags: %v", err)
	}
	if got := viper.GetString("job.file"); got != "job.txt" {
		t.Fatalf("expected bound value, got %q", got)
	}
}

type fakeFetcher struct {
	ref  string
	text string
	err  error
}

func (f *fakeFetcher) FetchJobDescription(_ context.Context, ref string) (string, error) {
	f.ref = ref
	return f.text, f.err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestReadInputs(t *testing.T) {
	dir := t.TempDir()
	resumePath := writeFile(t, dir, "cv.txt", "Jane Roe, Go developer")
	jobPath := writeFile(t, dir, "job.md", "Go engineer wanted")

	fetcher := &fakeFetcher{text: "# Platform engineer"}

	config := &Config{Resume: resumePath, Job: &JobConfig{File: jobPath, Vacancy: "123"}}
	resumeText, jobText, err := readInputs(context.Background(), config, fetcher)
	if err != nil {
		t.Fatalf("read inputs: %v", err)
	}
	if resumeText != "Jane Roe, Go developer" || jobText != "Go engineer wanted" {
		t.Fatalf("unexpected texts: %q %q", resumeText, jobText)
	}
	if fetcher.ref != "" {
		t.Fatal("a job file should win over the vacancy")
	}

	config.Job.File = ""
	if _, jobText, err = readInputs(context.Background(), config, fetcher); err != nil {
		t.Fatalf("read inputs with vacancy: %v", err)
	}
	if jobText != "# Platform engineer" || fetcher.ref != "123" {
		t.Fatalf("unexpected vacancy result: %q ref=%q", jobText, fetcher.ref)
	}

	boom := errors.New("boom")
	fetcher.err = boom
	if _, _, err = readInputs(context.Background(), config, fetcher); !errors.Is(err, boom) {
		t.Fatalf("expected fetch error, got %v", err)
	}

	config.Job.Vacancy = ""
	if _, _, err = readInputs(context.Background(), config, fetcher); !errors.Is(err, errNoJob) {
		t.Fatalf("expected errNoJob, got %v", err)
	}

	config.Resume = ""
	if _, _, err = readInputs(context.Background(), config, fetcher); err == nil {
		t.Fatal("expected error without a resume")
	}

	config.Resume = filepath.Join(dir, "cv.doc")
	if _, _, err = readInputs(context.Background(), config, fetcher); err == nil {
		t.Fatal("expected error for an unsupported resume")
	}
}

func TestNewStoreAndTracker(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	store, location, err := newStore(context.Background(), &OutputConfig{Dir: dir})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if store == nil || location != dir {
		t.Fatalf("unexpected store %v at %q", store, location)
	}

	tracker, err := newTracker(context.Background(), &TrackingConfig{}, zap.NewNop())
	if err != nil || tracker != nil {
		t.Fatalf("expected no tracker when disabled, got %v %v", tracker, err)
	}

	tracker, err = newTracker(context.Background(), &TrackingConfig{Enabled: true}, zap.NewNop())
	if err != nil || tracker == nil {
		t.Fatalf("expected a tracker with the default log sink, got %v %v", tracker, err)
	}
	if err := tracker.Close(context.Background()); err != nil {
		t.Fatalf("close tracker: %v", err)
	}

	_, err = newTracker(context.Background(), &TrackingConfig{
		Enabled: true,
		Sinks:   []any{map[string]any{"type": "kafka"}},
	}, zap.NewNop())
	if err == nil {
		t.Fatal("expected error for an unknown sink")
	}
}

func TestNewGenerator(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")

	if _, err := newGenerator(context.Background(), &AIConfig{Provider: "openai"}, zap.NewNop()); err == nil {
		t.Fatal("expected error for an unsupported provider")
	}
	if _, err := newGenerator(context.Background(), &AIConfig{}, zap.NewNop()); err == nil || !strings.Contains(err.Error(), "GROQ_API_KEY") {
		t.Fatalf("expected missing key error, got %v", err)
	}

	gen, err := newGenerator(context.Background(), &AIConfig{Provider: "Groq", Groq: &GroqConfig{APIKey: "key", Model: "llama"}}, zap.NewNop())
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	if gen.Model() != "llama" {
		t.Fatalf("unexpected model %q", gen.Model())
	}
}

func TestNewHeadhunter(t *testing.T) {
	hh, err := newHeadhunter(&HeadhunterConfig{UserAgent: "test-agent"}, zap.NewNop())
	if err != nil {
		t.Fatalf("new headhunter: %v", err)
	}
	if hh.UserAgent != "test-agent" {
		t.Fatalf("unexpected user agent %q", hh.UserAgent)
	}

	if _, err := newHeadhunter(&HeadhunterConfig{TokenFile: filepath.Join(t.TempDir(), "missing")}, zap.NewNop()); err == nil {
		t.Fatal("expected error for a missing token file")
	}
}
