// Package logging implements the narrow Logger interface the core depends
// on (spec §6), the way pkg/observability wires structured logging and
// OpenTelemetry metrics in the teacher. publishEvent/publishErrorEvent
// feed the event publishing queue (C4); publishMetric is unconditional —
// see the Open Question in spec §9: both source variants of the
// original's timeOperation fire their metric whether the operation
// resolved or threw, so this logger never gates PublishMetric on error.
package logging

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mindburn-labs/integration-core/pkg/ierr"
	"github.com/mindburn-labs/integration-core/pkg/model"
)

// Enqueuer accepts a lifecycle event for ordered delivery to the remote
// sync endpoint. pkg/eventqueue.Queue satisfies this.
type Enqueuer interface {
	Enqueue(name string, payload map[string]any)
}

// Logger is the slog + OTEL backed implementation of model.Logger.
type Logger struct {
	slog      *slog.Logger
	queue     Enqueuer
	meter     metric.Meter
	histogram metric.Float64Histogram
	bindings  map[string]any
}

// Option configures a Logger at construction.
type Option func(*Logger)

// WithMeter attaches an OTEL meter for PublishMetric recording, the same
// RED-metrics pattern pkg/observability.Provider uses.
func WithMeter(m metric.Meter) Option {
	return func(l *Logger) {
		l.meter = m
		if m != nil {
			h, err := m.Float64Histogram("integration.step.metric",
				metric.WithDescription("Values published by integration steps via publishMetric"))
			if err == nil {
				l.histogram = h
			}
		}
	}
}

// New constructs a root Logger writing JSON to stdout, matching the
// teacher's slog.Default()-with-component idiom.
func New(queue Enqueuer, opts ...Option) *Logger {
	l := &Logger{
		slog:  slog.New(slog.NewJSONHandler(os.Stdout, nil)),
		queue: queue,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Logger) Info(msg string, fields ...any)  { l.slog.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...any)  { l.slog.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...any) { l.slog.Error(msg, fields...) }
func (l *Logger) Trace(msg string, fields ...any) { l.slog.Debug(msg, fields...) }

// Child returns a logger with merged bindings, matching slog.Logger.With.
func (l *Logger) Child(bindings map[string]any) model.Logger {
	args := make([]any, 0, len(bindings)*2)
	merged := make(map[string]any, len(l.bindings)+len(bindings))
	for k, v := range l.bindings {
		merged[k] = v
	}
	for k, v := range bindings {
		merged[k] = v
		args = append(args, k, v)
	}
	return &Logger{
		slog:      l.slog.With(args...),
		queue:     l.queue,
		meter:     l.meter,
		histogram: l.histogram,
		bindings:  merged,
	}
}

func (l *Logger) PublishEvent(event model.Event) {
	if l.queue != nil {
		l.queue.Enqueue(event.Name, map[string]any{"description": event.Description})
	}
}

func (l *Logger) PublishErrorEvent(event model.ErrorEvent) {
	errorID := uuid.NewString()
	payload := map[string]any{
		"message": event.Message,
		"errorId": errorID,
	}
	for k, v := range event.EventData {
		payload[k] = v
	}
	if event.Err != nil {
		payload["error"] = event.Err.Error()
	}
	logFields := []any{"errorId", errorID, "message", event.Message}
	for k, v := range event.LogData {
		logFields = append(logFields, k, v)
	}
	l.slog.Error(event.Name, logFields...)
	if l.queue != nil {
		l.queue.Enqueue(event.Name, payload)
	}
}

func (l *Logger) PublishMetric(m model.Metric) {
	if l.histogram != nil {
		l.histogram.Record(context.Background(), m.Value,
			metric.WithAttributes(
				attribute.String("metric_name", m.MetricName),
				attribute.String("unit", string(m.Unit)),
			))
	}
	l.slog.Info("metric", "metricName", m.MetricName, "unit", m.Unit, "value", m.Value, "timestamp", m.Timestamp)
}

func (l *Logger) StepStart(step model.Step) {
	l.slog.Info("step_start", "step", step.ID, "stepName", step.Name)
	l.PublishEvent(model.Event{Name: "step_start", Description: "Starting step " + step.Name})
}

func (l *Logger) StepSuccess(step model.Step) {
	l.slog.Info("step_end", "step", step.ID, "status", "success")
	l.PublishEvent(model.Event{Name: "step_end", Description: "Completed step " + step.Name})
}

func (l *Logger) StepFailure(step model.Step, err error) {
	wrapped := ierr.StepExecution(step.ID, err)
	l.slog.Error("step_failure", "step", step.ID, "error", wrapped.Error())
	l.PublishErrorEvent(model.ErrorEvent{
		Name:    "step_failure",
		Message: wrapped.Describe("Step " + step.Name + " failed"),
		Err:     wrapped,
	})
}

func (l *Logger) ValidationFailure(err error) {
	wrapped := ierr.Unexpected(err)
	l.slog.Error("validation_failure", "error", wrapped.Error())
	l.PublishErrorEvent(model.ErrorEvent{Name: "validation_failure", Message: wrapped.Describe("Validation failed"), Err: wrapped})
}

func (l *Logger) SynchronizationUploadStart(job model.SynchronizationJob) {
	l.slog.Info("sync_upload_start", "jobId", job.ID)
	l.PublishEvent(model.Event{Name: "sync_upload_start", Description: "Starting synchronization upload for job " + job.ID})
}

func (l *Logger) SynchronizationUploadEnd(job model.SynchronizationJob) {
	l.slog.Info("sync_upload_end", "jobId", job.ID)
	l.PublishEvent(model.Event{Name: "sync_upload_end", Description: "Finished synchronization upload for job " + job.ID})
}

// IsHandledError reports whether err is one of the core's typed errors,
// i.e. something already accounted for in the result rather than an
// uncaught panic-shaped failure.
func (l *Logger) IsHandledError(err error) bool {
	_, ok := err.(*ierr.Error)
	return ok
}
