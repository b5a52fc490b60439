package tracker

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/steveyegge/git-start/internal/telemetry"
	"github.com/steveyegge/git-start/internal/types"
)

const trackerScopeName = "github.com/steveyegge/git-start/tracker"

// InstrumentedTracker wraps a StoryTracker with OTel tracing and metrics.
// Every call gets a span and is counted in gitstart.tracker.* metrics.
type InstrumentedTracker struct {
	inner  StoryTracker
	tracer trace.Tracer
	ops    metric.Int64Counter
	dur    metric.Float64Histogram
	errs   metric.Int64Counter
}

// WrapTracker returns t decorated with OTel instrumentation.
// When telemetry is disabled, t is returned as-is.
func WrapTracker(t StoryTracker) StoryTracker {
	if !telemetry.Enabled() {
		return t
	}
	return newInstrumented(t)
}

func newInstrumented(t StoryTracker) *InstrumentedTracker {
	m := telemetry.Meter(trackerScopeName)
	ops, _ := m.Int64Counter("gitstart.tracker.operations",
		metric.WithDescription("Total tracker API operations executed"),
	)
	dur, _ := m.Float64Histogram("gitstart.tracker.operation.duration",
		metric.WithDescription("Tracker operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs, _ := m.Int64Counter("gitstart.tracker.errors",
		metric.WithDescription("Total tracker operation errors"),
	)
	return &InstrumentedTracker{
		inner:  t,
		tracer: telemetry.Tracer(trackerScopeName),
		ops:    ops,
		dur:    dur,
		errs:   errs,
	}
}

func (t *InstrumentedTracker) op(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time) {
	all := append([]attribute.KeyValue{
		attribute.String("tracker.operation", name),
		attribute.String("tracker.name", t.inner.Name()),
	}, attrs...)
	ctx, span := t.tracer.Start(ctx, "tracker."+name,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	t.ops.Add(ctx, 1, metric.WithAttributes(all...))
	return ctx, span, time.Now()
}

func (t *InstrumentedTracker) done(ctx context.Context, span trace.Span, start time.Time, err error) {
	ms := float64(time.Since(start).Milliseconds())
	t.dur.Record(ctx, ms)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		t.errs.Add(ctx, 1)
	}
	span.End()
}

func (t *InstrumentedTracker) Name() string        { return t.inner.Name() }
func (t *InstrumentedTracker) DisplayName() string { return t.inner.DisplayName() }

func (t *InstrumentedTracker) SearchStories(ctx context.Context, projectID int64, query string, limit, offset int) (Page, error) {
	ctx, span, start := t.op(ctx, "SearchStories",
		attribute.Int64("tracker.project_id", projectID),
		attribute.String("tracker.query", query),
		attribute.Int("tracker.limit", limit),
		attribute.Int("tracker.offset", offset),
	)
	page, err := t.inner.SearchStories(ctx, projectID, query, limit, offset)
	if err == nil {
		span.SetAttributes(
			attribute.Int("tracker.result.count", len(page.Stories)),
			attribute.Bool("tracker.result.has_more", page.HasMore),
		)
	}
	t.done(ctx, span, start, err)
	return page, err
}

func (t *InstrumentedTracker) UpdateStory(ctx context.Context, projectID, storyID int64, update types.StoryUpdate) error {
	ctx, span, start := t.op(ctx, "UpdateStory",
		attribute.Int64("tracker.project_id", projectID),
		attribute.Int64("tracker.story_id", storyID),
		attribute.String("tracker.story_state", string(update.State)),
	)
	err := t.inner.UpdateStory(ctx, projectID, storyID, update)
	t.done(ctx, span, start, err)
	return err
}
