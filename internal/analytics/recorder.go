package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/shortloop/link-resolver/internal/domain"
	"github.com/shortloop/link-resolver/internal/logger"
	"github.com/shortloop/link-resolver/internal/metrics"
)

// sinkTimeout bounds one sink write; a slow sink must not stall the drain
// of the buffer behind it.
const sinkTimeout = 5 * time.Second

// Sink is one destination for click events. Writes from different sinks are
// independent: a failure in one never skips another.
type Sink interface {
	// Name labels the sink in logs and metrics.
	Name() string
	Write(ctx context.Context, event *domain.ClickEvent) error
}

// Recorder is the fire-and-forget event pipeline. Record hands an event to
// a bounded buffer and returns immediately; a background worker fans each
// event out to every sink. When the buffer is full the event is dropped,
// logged, and counted, never blocked on.
type Recorder struct {
	events chan *domain.ClickEvent
	sinks  []Sink
	log    logger.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
}

// NewRecorder creates a Recorder with the given buffer capacity.
func NewRecorder(bufferSize int, sinks []Sink, log logger.Logger) *Recorder {
	return &Recorder{
		events: make(chan *domain.ClickEvent, bufferSize),
		sinks:  sinks,
		log:    log,
		done:   make(chan struct{}),
	}
}

// Start launches the background worker. Safe to call once.
func (r *Recorder) Start() {
	r.startOnce.Do(func() {
		go r.run()
	})
}

// Record enqueues an event without blocking. The redirect path calls this
// and moves on; it never waits for sink completion.
func (r *Recorder) Record(event *domain.ClickEvent) {
	select {
	case r.events <- event:
	default:
		metrics.AnalyticsDroppedTotal.Inc()
		r.log.Warn("Analytics buffer full, dropping event",
			logger.String("slug", event.Slug),
			logger.String("workspace_id", event.WorkspaceID),
		)
	}
}

// Stop closes the buffer and waits for the worker to drain it, bounded by
// the context deadline.
func (r *Recorder) Stop(ctx context.Context) error {
	r.stopOnce.Do(func() {
		close(r.events)
	})

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) run() {
	defer close(r.done)

	for event := range r.events {
		r.dispatch(event)
	}
}

// dispatch writes one event to every sink, each with its own error
// handling. Failures are logged and counted, then dropped: there is no
// retry queue, analytics loss is acceptable.
func (r *Recorder) dispatch(event *domain.ClickEvent) {
	for _, sink := range r.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		err := sink.Write(ctx, event)
		cancel()

		if err != nil {
			metrics.AnalyticsEventsTotal.WithLabelValues(sink.Name(), "error").Inc()
			r.log.Error("Analytics sink write failed",
				logger.String("sink", sink.Name()),
				logger.String("slug", event.Slug),
				logger.Error(err),
			)
			continue
		}
		metrics.AnalyticsEventsTotal.WithLabelValues(sink.Name(), "ok").Inc()
	}
}
