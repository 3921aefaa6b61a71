package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/cv-tailor/internal/storage"
	"github.com/spigell/cv-tailor/internal/tailor"
	"github.com/spigell/cv-tailor/internal/tracking"
)

const (
	testResume = "Jane Roe\njane@example.com\nPython developer with Docker experience."
	testJob    = "We need a Python engineer with Kubernetes, Docker and AWS experience."
)

type stubGenerator struct {
	mu    sync.Mutex
	calls int
	text  string
	err   error
}

func (s *stubGenerator) GenerateContent(context.Context, string, string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

func (s *stubGenerator) Model() string { return "stub" }

type recordingSink struct {
	mu     sync.Mutex
	events []tracking.Event
}

func (r *recordingSink) Name() string { return "recording" }

func (r *recordingSink) Write(_ context.Context, e tracking.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingSink) Close() error { return nil }

type failingStore struct{ err error }

func (f failingStore) Put(context.Context, string, []byte, string) (storage.Object, error) {
	return storage.Object{}, f.err
}

func TestRunFullSession(t *testing.T) {
	gen := &stubGenerator{text: "# Jane Roe\nPython engineer. Kubernetes, Docker and AWS in production."}
	dir := t.TempDir()
	store, err := storage.NewLocal(dir)
	if err != nil {
		t.Fatalf("new local store: %v", err)
	}

	sink := &recordingSink{}
	tracker := tracking.New(tracking.Config{Workers: 1}, []tracking.Sink{sink}, zap.NewNop())

	deps := Deps{
		Writer:  tailor.NewWriter(gen, zap.NewNop()),
		Store:   store,
		Tracker: tracker,
		Logger:  zap.NewNop(),
	}

	s := NewSession(testResume, testJob, Options{Company: "Acme", MultipleLetters: true})
	if err := Run(context.Background(), deps, DefaultSteps(), s); err != nil {
		t.Fatalf("run: %v", err)
	}

	if gen.calls != 4 {
		t.Fatalf("expected 4 generator calls, got %d", gen.calls)
	}
	if s.Before == nil || s.After == nil {
		t.Fatal("expected both reports")
	}
	if s.After.MatchPercentage <= s.Before.MatchPercentage {
		t.Fatalf("expected improvement, before=%v after=%v", s.Before.MatchPercentage, s.After.MatchPercentage)
	}

	if len(s.Letters) != 3 || s.Letters[0].Tone != tailor.ToneProfessional || s.Letters[2].Tone != tailor.ToneCreative {
		t.Fatalf("unexpected letters: %+v", s.Letters)
	}

	if len(s.Objects) != 5 {
		t.Fatalf("expected 5 stored objects, got %d", len(s.Objects))
	}

	data, err := os.ReadFile(filepath.Join(dir, s.ID, storage.ReportFile))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var report MatchReport
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.SessionID != s.ID || report.Improvement == nil || *report.Improvement <= 0 {
		t.Fatalf("unexpected report: %+v", report)
	}

	if _, err := os.Stat(filepath.Join(dir, s.ID, "cover_letter_enthusiastic.md")); err != nil {
		t.Fatalf("expected enthusiastic letter on disk: %v", err)
	}

	if err := tracker.Close(context.Background()); err != nil {
		t.Fatalf("close tracker: %v", err)
	}
	if len(sink.events) != 1 || sink.events[0].Action != tracking.ActionGeneration {
		t.Fatalf("expected one generation event, got %+v", sink.events)
	}
	if g := sink.events[0].Generation; g.Company != "Acme" || g.MatchAfter != s.After.MatchPercentage {
		t.Fatalf("unexpected generation payload: %+v", g)
	}
}

func TestRunRequiresWriterForGeneratingSteps(t *testing.T) {
	s := NewSession(testResume, testJob, Options{})
	err := Run(context.Background(), Deps{}, DefaultSteps(), s)
	if !errors.Is(err, ErrNoWriter) {
		t.Fatalf("expected ErrNoWriter, got %v", err)
	}
	if s.Before != nil {
		t.Fatal("no step should run when validation fails")
	}
}

func TestRunWithDisabledSteps(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	sink := &recordingSink{}
	tracker := tracking.New(tracking.Config{}, []tracking.Sink{sink}, zap.NewNop())

	steps := DefaultSteps()
	DisableByName(steps, StepTailorCV, "scoring only")
	DisableByName(steps, StepCoverLetters, "scoring only")

	s := NewSession(testResume, testJob, Options{})
	if err := Run(context.Background(), Deps{Tracker: tracker, Logger: zap.New(core)}, steps, s); err != nil {
		t.Fatalf("run: %v", err)
	}

	if s.Before == nil || s.After != nil {
		t.Fatalf("expected only the before report, got before=%v after=%v", s.Before, s.After)
	}

	if got := observed.FilterMessage("step disabled").Len(); got != 2 {
		t.Fatalf("expected 2 disabled entries, got %d", got)
	}
	skipped := observed.FilterMessage("step skipped").All()
	if len(skipped) != 2 {
		t.Fatalf("expected score_after and store to be skipped, got %d", len(skipped))
	}
	for _, entry := range observed.FilterMessage("pipeline step").All() {
		if entry.ContextMap()["session_id"] != s.ID {
			t.Fatalf("expected session id on log entries, got %v", entry.ContextMap())
		}
	}

	if err := tracker.Close(context.Background()); err != nil {
		t.Fatalf("close tracker: %v", err)
	}
	if len(sink.events) != 0 {
		t.Fatalf("expected no generation event, got %d", len(sink.events))
	}

	statuses := Describe(steps)
	expect := []Status{
		{Name: StepScoreBefore, Enabled: true},
		{Name: StepTailorCV, Enabled: false, Reason: "scoring only"},
		{Name: StepCoverLetters, Enabled: false, Reason: "scoring only"},
		{Name: StepScoreAfter, Enabled: true},
		{Name: StepStore, Enabled: true},
	}
	for i := range expect {
		if statuses[i] != expect[i] {
			t.Fatalf("status %d: expected %+v, got %+v", i, expect[i], statuses[i])
		}
	}
}

func TestRunValidationAndFailures(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name   string
		resume string
		job    string
		deps   func() Deps
		expect error
		part   string
	}{
		{
			name:   "empty resume",
			resume: " ",
			job:    testJob,
			deps:   func() Deps { return Deps{Writer: tailor.NewWriter(&stubGenerator{text: "x"}, nil)} },
			part:   "score_before: resume text is required",
		},
		{
			name:   "empty job",
			resume: testResume,
			job:    "",
			deps:   func() Deps { return Deps{Writer: tailor.NewWriter(&stubGenerator{text: "x"}, nil)} },
			part:   "score_before: job description is required",
		},
		{
			name:   "generator failure",
			resume: testResume,
			job:    testJob,
			deps:   func() Deps { return Deps{Writer: tailor.NewWriter(&stubGenerator{err: boom}, nil)} },
			expect: boom,
			part:   "tailor_cv:",
		},
		{
			name:   "store failure",
			resume: testResume,
			job:    testJob,
			deps: func() Deps {
				return Deps{Writer: tailor.NewWriter(&stubGenerator{text: "cv"}, nil), Store: failingStore{err: boom}}
			},
			expect: boom,
			part:   "store: store tailored_cv.md",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Run(context.Background(), tt.deps(), DefaultSteps(), NewSession(tt.resume, tt.job, Options{}))
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.expect != nil && !errors.Is(err, tt.expect) {
				t.Fatalf("expected %v, got %v", tt.expect, err)
			}
			if got := err.Error(); len(got) < len(tt.part) || got[:len(tt.part)] != tt.part {
				t.Fatalf("expected error to start with %q, got %q", tt.part, got)
			}
		})
	}
}

func TestRunAssignsMissingID(t *testing.T) {
	s := &Session{Resume: testResume, JobDescription: testJob}
	steps := []Step{NewScoreBefore()}
	if err := Run(context.Background(), Deps{}, steps, s); err != nil {
		t.Fatalf("run: %v", err)
	}
	if s.ID == "" {
		t.Fatal("expected a session id to be assigned")
	}

	if err := Run(context.Background(), Deps{}, steps, nil); err == nil {
		t.Fatal("expected error for nil session")
	}
}

func TestSessionIsTrackedOnce(t *testing.T) {
	sink := &recordingSink{}
	tracker := tracking.New(tracking.Config{Workers: 1}, []tracking.Sink{sink}, zap.NewNop())
	store, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("new local store: %v", err)
	}

	deps := Deps{Writer: tailor.NewWriter(&stubGenerator{text: "cv"}, nil), Tracker: tracker}
	steps := DefaultSteps()
	DisableByName(steps, StepStore, "ask first")

	s := NewSession(testResume, testJob, Options{})
	if err := Run(context.Background(), deps, steps, s); err != nil {
		t.Fatalf("run: %v", err)
	}

	deps.Store = store
	if err := Run(context.Background(), deps, []Step{NewStore()}, s); err != nil {
		t.Fatalf("store run: %v", err)
	}
	if len(s.Objects) != 3 {
		t.Fatalf("expected cv, letter and report to be stored, got %d", len(s.Objects))
	}

	if err := tracker.Close(context.Background()); err != nil {
		t.Fatalf("close tracker: %v", err)
	}
	if len(sink.events) != 1 {
		t.Fatalf("expected a single generation event, got %d", len(sink.events))
	}
}
