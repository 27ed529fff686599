package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryMetrics reports script failures and bridge activity to Sentry.
// Every method is a no-op until sentry.Init has been called.
type SentryMetrics struct {
	enabled bool
}

// NewSentryMetrics creates a new Sentry metrics client
func NewSentryMetrics() *SentryMetrics {
	return &SentryMetrics{
		enabled: true, // Always enabled if Sentry is configured
	}
}

// Disabled returns a client that reports nothing.
func Disabled() *SentryMetrics {
	return &SentryMetrics{}
}

// RecordHookError reports a controller hook that failed or panicked.
func (m *SentryMetrics) RecordHookError(host, hook string, err error) {
	if m == nil || !m.enabled || err == nil {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("host", host)
		scope.SetTag("hook", hook)
		sentry.CaptureException(err)
	})
}

// RecordProbe records the outcome of probing one host adapter.
func (m *SentryMetrics) RecordProbe(host string, err error) {
	if m == nil || !m.enabled {
		return
	}

	span := sentry.StartSpan(context.Background(), "host.probe")
	defer span.Finish()

	compatible := err == nil
	span.SetTag("host", host)
	span.SetTag("compatible", fmt.Sprintf("%t", compatible))
	span.SetData("compatible", compatible)
	if err != nil {
		span.SetData("reason", err.Error())
	}

	span.Status = sentry.SpanStatusOK
	span.Description = fmt.Sprintf("Probe %s: %t", host, compatible)
}

// RecordRemoteCall records one facade call made through a bridge.
func (m *SentryMetrics) RecordRemoteCall(ctx context.Context, function string, duration time.Duration, success bool) {
	if m == nil || !m.enabled {
		return
	}

	span := sentry.StartSpan(ctx, "remote.call")
	defer span.Finish()

	// Set span tags
	span.SetTag("function", function)
	span.SetTag("success", fmt.Sprintf("%t", success))

	// Set span data
	span.SetData("duration_ms", duration.Milliseconds())
	span.SetData("success", success)

	if success {
		span.Status = sentry.SpanStatusOK
	} else {
		span.Status = sentry.SpanStatusInternalError
	}

	span.Description = fmt.Sprintf("Remote Call: %s", function)
}
