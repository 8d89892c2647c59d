// Package metrics exposes the detection activity as OpenTelemetry
// instruments.
package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/xaionaro-go/voiceguard"

const (
	NameWindows      = "voiceguard.windows"
	NameAlertsRaised = "voiceguard.alerts.raised"
	NamePFakeSmooth  = "voiceguard.p_fake_smooth"
)

var probabilityBuckets = []float64{
	0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9,
}

// Metrics is safe for concurrent use.
type Metrics struct {
	// Windows counts processed windows, with attribute "speech".
	Windows metric.Int64Counter

	// AlertsRaised counts transitions of the alert from lowered to raised.
	AlertsRaised metric.Int64Counter

	// PFakeSmooth is the distribution of the smoothed probability over
	// speech windows.
	PFakeSmooth metric.Float64Histogram
}

func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Windows, err = m.Int64Counter(NameWindows,
		metric.WithDescription("Processed analysis windows."),
	); err != nil {
		return nil, fmt.Errorf("unable to create '%s': %w", NameWindows, err)
	}
	if met.AlertsRaised, err = m.Int64Counter(NameAlertsRaised,
		metric.WithDescription("Raised synthetic speech alerts."),
	); err != nil {
		return nil, fmt.Errorf("unable to create '%s': %w", NameAlertsRaised, err)
	}
	if met.PFakeSmooth, err = m.Float64Histogram(NamePFakeSmooth,
		metric.WithDescription("Smoothed probability of synthetic speech per speech window."),
		metric.WithExplicitBucketBoundaries(probabilityBuckets...),
	); err != nil {
		return nil, fmt.Errorf("unable to create '%s': %w", NamePFakeSmooth, err)
	}
	return met, nil
}

// RecordWindow records one processed window; pFakeSmooth is ignored for
// non-speech windows.
func (m *Metrics) RecordWindow(
	ctx context.Context,
	isSpeech bool,
	pFakeSmooth float64,
) {
	if m == nil {
		return
	}
	m.Windows.Add(ctx, 1, metric.WithAttributes(attribute.Bool("speech", isSpeech)))
	if isSpeech {
		m.PFakeSmooth.Record(ctx, pFakeSmooth)
	}
}

func (m *Metrics) RecordAlertRaised(ctx context.Context) {
	if m == nil {
		return
	}
	m.AlertsRaised.Add(ctx, 1)
}
