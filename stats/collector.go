// Package stats observes a running devi.Devi, turning its dispatch stream
// into Prometheus metrics and an OpenTelemetry span tree, plus an in-memory
// snapshot a report can render without scraping an HTTP endpoint.
package stats

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/primemover/event"
	"github.com/signalsfoundry/primemover/internal/observability"
)

// Collector implements devi.Observer, recording one counter sample per
// dispatched signature, one histogram sample per dispatch duration, and -
// when a tracer is configured - a span per dispatched Record. A span is a
// child of its Caller's span only while that span is still open (a caller
// suspended in a blocking call); an event whose caller has already
// completed is parented under the root context instead.
type Collector struct {
	tracer  trace.Tracer
	rootCtx context.Context

	dispatched *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	total      prometheus.Counter
	errors     prometheus.Counter

	mu       sync.Mutex
	spectrum map[string]uint64
	spanCtx  map[*event.Record]context.Context
	started  time.Time
	ended    time.Time
}

// Option configures a Collector at construction time.
type Option func(*Collector)

// WithTracer attaches an OpenTelemetry tracer and the context each run's
// root span should nest under; without one, Collector skips span creation
// entirely.
func WithTracer(tracer trace.Tracer, rootCtx context.Context) Option {
	return func(c *Collector) {
		c.tracer = tracer
		c.rootCtx = rootCtx
	}
}

// New registers Collector's Prometheus vectors against reg (the global
// registry when reg is nil) and returns a ready-to-use Collector.
func New(reg prometheus.Registerer, opts ...Option) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	dispatched := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "primemover_events_dispatched_total",
		Help: "Total number of events dispatched, labeled by event signature.",
	}, []string{"signature"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "primemover_dispatch_duration_seconds",
		Help:    "Wall-clock duration of a single event dispatch, labeled by signature.",
		Buckets: prometheus.DefBuckets,
	}, []string{"signature"})
	total := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "primemover_events_total",
		Help: "Total number of events dispatched across all signatures.",
	})
	errs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "primemover_dispatch_errors_total",
		Help: "Total number of dispatches that completed with a non-nil error.",
	})

	c := &Collector{
		rootCtx:  context.Background(),
		spectrum: make(map[string]uint64),
		spanCtx:  make(map[*event.Record]context.Context),
	}

	var err error
	if c.dispatched, err = observability.RegisterCounterVec(reg, dispatched, "primemover_events_dispatched_total"); err != nil {
		return nil, err
	}
	if c.duration, err = observability.RegisterHistogramVec(reg, duration, "primemover_dispatch_duration_seconds"); err != nil {
		return nil, err
	}
	if c.total, err = observability.RegisterCounter(reg, total, "primemover_events_total"); err != nil {
		return nil, err
	}
	if c.errors, err = observability.RegisterCounter(reg, errs, "primemover_dispatch_errors_total"); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// OnPosted records nothing; Collector only observes dispatch and
// completion, since a posted-but-not-yet-dispatched event carries no
// duration or outcome yet.
func (c *Collector) OnPosted(*event.Record) {}

// OnDispatched starts a span for ev, parented under its Caller's still-open
// span when one is tracked (falling back to the run's root context
// otherwise), realizing the Continuation/Caller chain as a span tree. The
// Caller link is only populated when the devi.Devi this Collector observes
// was constructed with TrackEventSources enabled; otherwise every span
// parents directly under the run's root.
func (c *Collector) OnDispatched(ev *event.Record) {
	c.mu.Lock()
	if c.started.IsZero() {
		c.started = time.Now()
	}
	c.mu.Unlock()

	if c.tracer == nil || ev == nil {
		return
	}

	parent := c.rootCtx
	if ev.Caller != nil {
		c.mu.Lock()
		if ctx, ok := c.spanCtx[ev.Caller]; ok {
			parent = ctx
		}
		c.mu.Unlock()
	}

	ctx, _ := c.tracer.Start(parent, ev.Signature())
	c.mu.Lock()
	c.spanCtx[ev] = ctx
	c.mu.Unlock()
}

// OnCompleted records the dispatch's outcome: a counter sample, a
// histogram sample, and a spectrum tally for a clean dispatch, plus - if a
// span was opened for ev - ends it with the outcome's status. A dispatch
// that returned an error bumps only the error counter: the spectrum and
// total counts track completed work, not attempts.
func (c *Collector) OnCompleted(ev *event.Record, elapsed time.Duration, err error) {
	sig := ev.Signature()

	if err != nil {
		c.errors.Inc()
	} else {
		c.dispatched.WithLabelValues(sig).Inc()
		c.duration.WithLabelValues(sig).Observe(elapsed.Seconds())
		c.total.Inc()
	}

	c.mu.Lock()
	if err == nil {
		c.spectrum[sig]++
	}
	c.ended = time.Now()
	ctx, ok := c.spanCtx[ev]
	if ok {
		delete(c.spanCtx, ev)
	}
	c.mu.Unlock()

	if ok {
		span := trace.SpanFromContext(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// Snapshot returns a point-in-time copy of the dispatch spectrum and
// overall window, suitable for building a report.Report.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	spectrum := make(map[string]uint64, len(c.spectrum))
	var total uint64
	for sig, n := range c.spectrum {
		spectrum[sig] = n
		total += n
	}
	return Snapshot{
		Spectrum:    spectrum,
		TotalEvents: total,
		Started:     c.started,
		Ended:       c.ended,
	}
}

// Snapshot is an immutable view of a Collector's counters at the moment it
// was taken.
type Snapshot struct {
	Spectrum    map[string]uint64
	TotalEvents uint64
	Started     time.Time
	Ended       time.Time
}
