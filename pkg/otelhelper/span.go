package otelhelper

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SetError marks span as failed. A nil error leaves the span untouched.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if err == nil {
		return
	}

	span.RecordError(err, trace.WithAttributes(attrs...))
	span.SetStatus(codes.Error, err.Error())
}

// SetOutcome records the validation outcome carried by span.
func SetOutcome(span trace.Span, outcome string) {
	span.SetAttributes(attribute.String(OutcomeKey, outcome))
}

// SetPublishState records the publish state a submission ended in.
func SetPublishState(span trace.Span, state string) {
	span.SetAttributes(attribute.String(PublishStateKey, state))
}
