package tracking

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingSink struct {
	mu      sync.Mutex
	events  []Event
	entered chan struct{}
	release chan struct{}
	err     error
	closed  bool
	writing bool
	// closedDuringWrite is set when Close runs while a Write is in progress.
	closedDuringWrite bool
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Write(ctx context.Context, e Event) error {
	s.mu.Lock()
	s.writing = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.writing = false
		s.mu.Unlock()
	}()

	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			// let Close overlap with the write if it is going to
			time.Sleep(20 * time.Millisecond)
			return ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.writing {
		s.closedDuringWrite = true
	}
	return nil
}

func (s *recordingSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

func TestTrackerDeliversEvents(t *testing.T) {
	sink := &recordingSink{}
	tracker := New(Config{Workers: 1}, []Sink{sink}, zap.NewNop())

	tracker.TrackUpload("s1", "cv.pdf", "Jane Roe\njane@example.com\nPython developer")
	tracker.TrackGeneration("s1", GenerationInput{
		OriginalCV:     "one two three",
		JobDescription: "Python Python engineer needed",
		GeneratedCV:    "new cv",
		CoverLetter:    "letter",
		Company:        "Acme",
		MatchBefore:    40,
		MatchAfter:     80,
	})

	if err := tracker.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	events := sink.snapshot()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	upload := events[0]
	if upload.Action != ActionUpload || upload.SessionID != "s1" || upload.ID == "" || upload.Timestamp.IsZero() {
		t.Fatalf("unexpected upload event: %+v", upload)
	}
	if upload.Upload.Details.Email != "jane@example.com" || upload.Upload.WordCount != 5 {
		t.Fatalf("unexpected upload payload: %+v", upload.Upload)
	}

	generation := events[1]
	if generation.Action != ActionGeneration {
		t.Fatalf("unexpected action: %s", generation.Action)
	}
	expect := &Generation{
		Company:           "Acme",
		JobKeywords:       []string{"python", "engineer", "needed"},
		OriginalWordCount: 3,
		GeneratedCV:       "new cv",
		CoverLetter:       "letter",
		MatchBefore:       40,
		MatchAfter:        80,
	}
	if !reflect.DeepEqual(generation.Generation, expect) {
		t.Fatalf("unexpected generation payload: %+v", generation.Generation)
	}

	if !sink.closed {
		t.Fatal("expected sink to be closed")
	}

	// events after close are ignored
	tracker.TrackUpload("s2", "cv.txt", "text")
	if err := tracker.Close(context.Background()); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestTrackerDropsWhenQueueFull(t *testing.T) {
	sink := &recordingSink{entered: make(chan struct{}, 4), release: make(chan struct{})}
	core, observed := observer.New(zapcore.WarnLevel)
	tracker := New(Config{Workers: 1, QueueSize: 1}, []Sink{sink}, zap.New(core))

	tracker.TrackUpload("s1", "a.txt", "first")
	select {
	case <-sink.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not pick up the first event")
	}

	tracker.TrackUpload("s2", "b.txt", "second")
	tracker.TrackUpload("s3", "c.txt", "third")

	dropped := observed.FilterMessage("tracking queue is full, dropping event").All()
	if len(dropped) != 1 {
		t.Fatalf("expected one dropped event, got %d", len(dropped))
	}
	if dropped[0].ContextMap()["session_id"] != "s3" {
		t.Fatalf("unexpected dropped event: %v", dropped[0].ContextMap())
	}

	close(sink.release)
	if err := tracker.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	if got := len(sink.snapshot()); got != 2 {
		t.Fatalf("expected 2 delivered events, got %d", got)
	}
}

func TestTrackerLogsSinkFailures(t *testing.T) {
	sink := &recordingSink{err: errors.New("boom")}
	core, observed := observer.New(zapcore.WarnLevel)
	tracker := New(Config{}, []Sink{sink}, zap.New(core))

	tracker.TrackUpload("s1", "cv.txt", "text")
	if err := tracker.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	entries := observed.FilterMessage("tracking sink failed").All()
	if len(entries) != 1 {
		t.Fatalf("expected sink failure to be logged, got %d entries", len(entries))
	}
}

func TestTrackerCloseHonoursContext(t *testing.T) {
	sink := &recordingSink{entered: make(chan struct{}, 1), release: make(chan struct{})}
	tracker := New(Config{Workers: 1}, []Sink{sink}, zap.NewNop())

	tracker.TrackUpload("s1", "cv.txt", "text")
	<-sink.entered

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := tracker.Close(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	close(sink.release)
}

func TestTrackerCloseWaitsForCancelledWrites(t *testing.T) {
	sink := &recordingSink{entered: make(chan struct{}, 2), release: make(chan struct{})}
	tracker := New(Config{Workers: 1, WriteTimeout: time.Hour}, []Sink{sink}, zap.NewNop())

	tracker.TrackUpload("s1", "cv.txt", "text")
	tracker.TrackUpload("s2", "cv.txt", "text")
	<-sink.entered

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := tracker.Close(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if !sink.closed {
		t.Fatal("expected the sink to be closed")
	}
	if sink.closedDuringWrite {
		t.Fatal("sink was closed while a write was still running")
	}
	if len(sink.events) != 0 {
		t.Fatalf("expected no delivered events, got %d", len(sink.events))
	}
}

func TestNilTrackerIsNoop(t *testing.T) {
	var tracker *Tracker
	tracker.TrackUpload("s", "f", "t")
	tracker.TrackGeneration("s", GenerationInput{})
	if err := tracker.Close(context.Background()); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestTopKeywords(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		text   string
		n      int
		expect []string
	}{
		{
			name:   "frequency then first appearance",
			text:   "Kubernetes and Terraform. Docker docker DOCKER terraform with kubernetes golang",
			n:      10,
			expect: []string{"docker", "kubernetes", "terraform", "golang"},
		},
		{
			name:   "skips short and non alphabetic words",
			text:   "go sql aws2 c++ python3 rust rust",
			n:      10,
			expect: []string{"rust"},
		},
		{
			name:   "limits result",
			text:   "alpha beta gamma delta",
			n:      2,
			expect: []string{"alpha", "beta"},
		},
		{
			name:   "empty",
			text:   "",
			n:      5,
			expect: []string{},
		},
		{
			name:   "non positive limit",
			text:   "alpha",
			n:      0,
			expect: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := TopKeywords(tt.text, tt.n)
			if !reflect.DeepEqual(got, tt.expect) {
				t.Fatalf("expected %v, got %v", tt.expect, got)
			}
		})
	}
}

func TestUploadEventClipsText(t *testing.T) {
	e := NewUploadEvent("s", "cv.txt", strings.Repeat("a", textLimit+100))
	if got := len(e.Upload.Text); got != textLimit {
		t.Fatalf("expected text clipped to %d, got %d", textLimit, got)
	}
}
