// Package telemetry wraps tracing and experiment tracking behind a
// single run-and-never-fail contract: no failure in here may abort or
// delay the user-facing request beyond the backends' own call latency.
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/prodapt-cloud/Pioneer-Training/pkg/utils"
)

// Telemetry wraps pipeline stages in optional spans and experiment
// records. The tracer is never nil (no-op when disabled); the tracker
// is nil when experiment tracking is disabled or failed at startup.
type Telemetry struct {
	tracer  trace.Tracer
	tracker *MLflowClient
	logger  *utils.Logger
}

// New builds a Telemetry facade. Pass a nil tracker to run with
// experiment tracking absent.
func New(tracer trace.Tracer, tracker *MLflowClient, logger *utils.Logger) *Telemetry {
	if tracer == nil {
		tracer = NoopTracer()
	}
	return &Telemetry{tracer: tracer, tracker: tracker, logger: logger}
}

// TrackingEnabled reports whether an experiment tracker is attached
func (t *Telemetry) TrackingEnabled() bool {
	return t.tracker != nil
}

// Span runs fn inside a named span. fn's error propagates to the
// caller and is recorded on the span; span bookkeeping itself can
// never fail the stage.
func (t *Telemetry) Span(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := t.tracer.Start(ctx, name)
	defer span.End()

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// guard runs one tracker call, absorbing errors and panics
func (t *Telemetry) guard(what string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Warn("Telemetry call panicked", "op", what, "panic", r)
		}
	}()
	if err := fn(); err != nil {
		t.logger.Warn("Telemetry call failed", "op", what, "error", err)
	}
}

// Record is the experiment record for one request. A Record is always
// usable: when the tracker is absent or the run could not be opened,
// every method is an inert no-op. Close is idempotent and runs at most
// once.
type Record struct {
	t     *Telemetry
	runID string
	once  sync.Once
}

// StartRecord opens an experiment run for one request. Never returns
// nil and never fails the caller.
func (t *Telemetry) StartRecord(runName string) *Record {
	rec := &Record{t: t}
	if t.tracker == nil {
		return rec
	}
	t.guard("runs/create", func() error {
		id, err := t.tracker.CreateRun(runName)
		if err != nil {
			return err
		}
		rec.runID = id
		return nil
	})
	return rec
}

// Active reports whether the record is backed by an open run
func (r *Record) Active() bool {
	return r.runID != ""
}

// Param logs a run parameter, best-effort
func (r *Record) Param(key, value string) {
	if r.runID == "" {
		return
	}
	r.t.guard("runs/log-parameter", func() error {
		return r.t.tracker.LogParam(r.runID, key, value)
	})
}

// Metric logs a run metric, best-effort
func (r *Record) Metric(key string, value float64) {
	if r.runID == "" {
		return
	}
	r.t.guard("runs/log-metric", func() error {
		return r.t.tracker.LogMetric(r.runID, key, value)
	})
}

// Tag sets a run tag, best-effort
func (r *Record) Tag(key, value string) {
	if r.runID == "" {
		return
	}
	r.t.guard("runs/set-tag", func() error {
		return r.t.tracker.SetTag(r.runID, key, value)
	})
}

// Text logs a text artifact, best-effort
func (r *Record) Text(name, content string) {
	if r.runID == "" {
		return
	}
	r.t.guard("artifacts/put", func() error {
		return r.t.tracker.LogText(r.runID, name, content)
	})
}

// Close terminates the run exactly once. A non-nil err marks the run
// FAILED and records the error as run metadata rather than dropping it.
func (r *Record) Close(err error) {
	r.once.Do(func() {
		if r.runID == "" {
			return
		}
		status := "FINISHED"
		if err != nil {
			status = "FAILED"
			r.Param("error", err.Error())
			r.Metric("error_occurred", 1)
		}
		r.t.guard("runs/update", func() error {
			return r.t.tracker.TerminateRun(r.runID, status)
		})
	})
}
