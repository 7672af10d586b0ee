/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Push results used as the "result" label.
const (
	PushOK       = "ok"
	PushUpToDate = "up_to_date"
	PushFailed   = "failed"
)

// AttributeEnricher adds contextual attributes before an OpenTelemetry
// measurement is recorded.
type AttributeEnricher func(ctx context.Context, baseAttrs []attribute.KeyValue) []attribute.KeyValue

// Activity records what the simulator does. Counters are exported both to
// the process Prometheus registry and, for pushed commits, through the global
// OpenTelemetry meter provider.
type Activity struct {
	pushedCommits metric.Int64Counter
	attrEnricher  AttributeEnricher
}

// NewActivity creates an Activity recorder. If the OpenTelemetry counter
// cannot be created a warning is logged and a no-op counter is used instead.
func NewActivity(meterName string) *Activity {
	meter := otel.Meter(meterName, metric.WithInstrumentationVersion("1.0.0"))

	pushedCommits, err := meter.Int64Counter("gitsim.commits.pushed",
		metric.WithDescription("The number of commits delivered to the remote"),
		metric.WithUnit("{commits}"))
	if err != nil {
		slog.Warn("Failed to create pushed commits counter, metrics will be disabled", "error", err, "meter", meterName)
		pushedCommits = noop.Int64Counter{}
	}

	return &Activity{pushedCommits: pushedCommits}
}

// SetAttributeEnricher sets the enricher applied to OpenTelemetry
// measurements.
func (a *Activity) SetAttributeEnricher(enricher AttributeEnricher) {
	a.attrEnricher = enricher
}

// RecordTick counts one tick that chose action.
func (a *Activity) RecordTick(action string) {
	tickCounter.WithLabelValues(action).Inc()
}

// RecordCommits counts n freshly created commits.
func (a *Activity) RecordCommits(n int) {
	if n > 0 {
		commitCounter.Add(float64(n))
	}
}

// RecordBranchCreated counts a new simulator branch.
func (a *Activity) RecordBranchCreated() {
	branchCounter.Inc()
}

// RecordTickError counts a tick that failed at stage.
func (a *Activity) RecordTickError(stage string) {
	tickErrorCounter.WithLabelValues(stage).Inc()
}

// RecordPush counts a push attempt with the given result and, when it
// delivered anything, the commits that went with it.
func (a *Activity) RecordPush(ctx context.Context, result string, commits int) {
	pushCounter.WithLabelValues(result).Inc()
	if result == PushFailed || commits <= 0 {
		return
	}

	attrs := []attribute.KeyValue{attribute.String("result", result)}
	if a.attrEnricher != nil {
		attrs = a.attrEnricher(ctx, attrs)
	}
	a.pushedCommits.Add(ctx, int64(commits), metric.WithAttributes(attrs...))
}
