// Package tracking records anonymous usage events in the background.
//
// A nil *Tracker is valid and drops every event, so callers never need to
// check whether tracking is enabled.
package tracking

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultWorkers      = 2
	defaultQueueSize    = 64
	defaultWriteTimeout = 10 * time.Second
)

// Sink stores or forwards events.
type Sink interface {
	Name() string
	Write(ctx context.Context, e Event) error
	Close() error
}

// Config sizes the worker pool.
type Config struct {
	Workers      int           `mapstructure:"workers"`
	QueueSize    int           `mapstructure:"queue-size"`
	WriteTimeout time.Duration `mapstructure:"write-timeout"`
}

// Tracker fans events out to its sinks from a bounded queue.
type Tracker struct {
	queue        chan Event
	sinks        []Sink
	logger       *zap.Logger
	writeTimeout time.Duration

	// base parents every sink write; abort cancels it when Close gives up.
	base  context.Context
	abort context.CancelFunc

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// New starts the workers. Close must be called to drain the queue.
func New(cfg Config, sinks []Sink, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	size := cfg.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}

	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}

	base, abort := context.WithCancel(context.Background())

	t := &Tracker{
		queue:        make(chan Event, size),
		sinks:        sinks,
		logger:       logger,
		writeTimeout: timeout,
		base:         base,
		abort:        abort,
	}

	t.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go t.work()
	}

	return t
}

// TrackUpload records a parsed résumé upload.
func (t *Tracker) TrackUpload(sessionID, filename, text string) {
	if t == nil {
		return
	}
	t.enqueue(NewUploadEvent(sessionID, filename, text))
}

// TrackGeneration records generated documents for a session.
func (t *Tracker) TrackGeneration(sessionID string, in GenerationInput) {
	if t == nil {
		return
	}
	t.enqueue(NewGenerationEvent(sessionID, in))
}

func (t *Tracker) enqueue(e Event) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return
	}

	select {
	case t.queue <- e:
	default:
		t.logger.Warn("tracking queue is full, dropping event",
			zap.String("action", e.Action),
			zap.String("session_id", e.SessionID),
		)
	}
}

func (t *Tracker) work() {
	defer t.wg.Done()

	for e := range t.queue {
		if t.base.Err() != nil {
			// Close gave up; the rest of the queue is discarded
			continue
		}
		for _, sink := range t.sinks {
			ctx, cancel := context.WithTimeout(t.base, t.writeTimeout)
			if err := sink.Write(ctx, e); err != nil {
				t.logger.Warn("tracking sink failed",
					zap.String("sink", sink.Name()),
					zap.String("action", e.Action),
					zap.Error(err),
				)
			}
			cancel()
		}
	}
}

// Close stops accepting events, waits for queued ones until ctx is done and
// closes the sinks. When ctx ends first, writes in progress are cancelled and
// the sinks are closed only after every worker has returned; sinks must honour
// the context passed to Write.
func (t *Tracker) Close(ctx context.Context) error {
	if t == nil {
		return nil
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	close(t.queue)
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	var errs []error
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, ctx.Err())
		t.abort()
		<-done
	}
	t.abort()

	for _, sink := range t.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
