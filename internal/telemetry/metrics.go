// Package telemetry holds the OpenTelemetry metric instruments for the
// dictation pipeline. Instruments are recorded through the OTel Metrics API
// and exposed to Prometheus via the exporter bridge configured at startup.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope for all hushkey metrics.
const meterName = "github.com/hushkey/hushkey"

// Metrics holds the metric instruments. All fields are safe for concurrent
// use; the underlying OTel types handle their own synchronisation.
type Metrics struct {
	// CaptureDuration tracks recorded audio length per session.
	CaptureDuration metric.Float64Histogram

	// TranscriptionDuration tracks speech-to-text latency.
	TranscriptionDuration metric.Float64Histogram

	// Recordings counts completed recordings. Use with attribute:
	//   attribute.String("status", ...)
	Recordings metric.Int64Counter

	// Overflows counts dropped-frame reports from the audio device.
	Overflows metric.Int64Counter

	// InjectionFailures counts transcripts that could not be typed.
	InjectionFailures metric.Int64Counter

	// ActiveSessions tracks live capture sessions (0 or 1 in practice).
	ActiveSessions metric.Int64UpDownCounter
}

// durationBuckets covers typical dictation lengths and STT latencies, in
// seconds.
var durationBuckets = []float64{
	0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120,
}

// NewMetrics creates a fully initialised Metrics struct using the given
// meter provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.CaptureDuration, err = m.Float64Histogram("hushkey.capture.duration",
		metric.WithDescription("Recorded audio length per session."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranscriptionDuration, err = m.Float64Histogram("hushkey.transcription.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Recordings, err = m.Int64Counter("hushkey.recordings",
		metric.WithDescription("Completed recordings by status."),
	); err != nil {
		return nil, err
	}
	if met.Overflows, err = m.Int64Counter("hushkey.capture.overflows",
		metric.WithDescription("Audio chunks the device reported as overflowed."),
	); err != nil {
		return nil, err
	}
	if met.InjectionFailures, err = m.Int64Counter("hushkey.injection.failures",
		metric.WithDescription("Transcripts that could not be injected."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("hushkey.active_sessions",
		metric.WithDescription("Number of live capture sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level Metrics instance, creating it on
// first call from the global meter provider. Panics if instrument creation
// fails, which cannot happen with the global provider.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("telemetry: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordRecording records one completed recording with its status and
// captured duration.
func (m *Metrics) RecordRecording(ctx context.Context, status string, captured time.Duration) {
	m.Recordings.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	if captured > 0 {
		m.CaptureDuration.Record(ctx, captured.Seconds())
	}
}
