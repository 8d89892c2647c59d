package pipeline

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/voiceguard/pkg/config"
	"github.com/xaionaro-go/voiceguard/pkg/metrics"
	"github.com/xaionaro-go/voiceguard/pkg/vad"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.WindowSec = 0.5
	cfg.HopSec = 0.25
	cfg.AlertThreshold = 0.7
	return cfg
}

func quiet(sec float64, sampleRate uint32) []float64 {
	r := make([]float64, int(sec*float64(sampleRate)))
	for i := range r {
		r[i] = 1e-4
	}
	return r
}

// tone is a loud pure low tone, which looks as band-limited as synthetic
// speech gets.
func tone(sec float64, sampleRate uint32) []float64 {
	r := make([]float64, int(sec*float64(sampleRate)))
	for i := range r {
		r[i] = 0.5 * math.Sin(2*math.Pi*300*float64(i)/float64(sampleRate))
	}
	return r
}

func TestNewInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.HopSec = 0
	_, err := New(context.Background(), cfg)
	require.Error(t, err)
}

func TestPushTimes(t *testing.T) {
	ctx := context.Background()
	p, err := New(ctx, config.Default())
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, 2*time.Second, p.WindowDuration())
	assert.Equal(t, 500*time.Millisecond, p.HopDuration())

	points := p.Push(ctx, make([]float64, 40000))
	require.Len(t, points, 2)
	assert.Equal(t, uint64(0), points[0].StartSample)
	assert.Equal(t, 0.0, points[0].TStart)
	assert.Equal(t, 2.0, points[0].TEnd)
	assert.Equal(t, uint64(8000), points[1].StartSample)
	assert.Equal(t, 0.5, points[1].TStart)
	assert.Equal(t, 2.5, points[1].TEnd)
	for _, point := range points {
		assert.False(t, point.Result.IsSpeech)
		assert.False(t, point.Alert)
	}

	assert.Nil(t, p.Push(ctx, make([]float64, 100)))
}

func TestAlertRaisesAndHolds(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	p, err := New(ctx, cfg)
	require.NoError(t, err)
	defer p.Close()

	points := p.Push(ctx, quiet(0.5, cfg.SampleRate))
	require.Len(t, points, 1)
	require.False(t, points[0].Result.IsSpeech)

	points = p.Push(ctx, tone(3, cfg.SampleRate))
	require.NotEmpty(t, points)
	last := points[len(points)-1]
	require.True(t, last.Result.IsSpeech, spew.Sdump(last))
	assert.True(t, last.Alert, spew.Sdump(last))
	assert.Greater(t, last.Result.PFakeSmooth.Value, cfg.AlertThreshold)

	// the alert is held for alert_hold_sec after the last trigger
	points = p.Push(ctx, quiet(0.75, cfg.SampleRate))
	require.Len(t, points, 3)
	for _, point := range points {
		assert.True(t, point.Alert, spew.Sdump(point))
	}
	points = p.Push(ctx, quiet(5, cfg.SampleRate))
	require.NotEmpty(t, points)
	assert.False(t, points[len(points)-1].Alert)
}

func TestFileModeShortHold(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	p, err := New(ctx, cfg, OptionFileMode(true))
	require.NoError(t, err)
	defer p.Close()

	p.Push(ctx, quiet(0.5, cfg.SampleRate))
	points := p.Push(ctx, tone(3, cfg.SampleRate))
	require.NotEmpty(t, points)
	last := points[len(points)-1]
	require.True(t, last.Alert, spew.Sdump(last))

	points = p.Push(ctx, quiet(0.75, cfg.SampleRate))
	require.Len(t, points, 3)
	assert.False(t, points[len(points)-1].Alert)
}

func TestVADOption(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	p, err := New(ctx, cfg, OptionVAD{VAD: vad.NewDummy(cfg.SampleRate, false)})
	require.NoError(t, err)
	defer p.Close()

	p.Push(ctx, quiet(0.5, cfg.SampleRate))
	for _, point := range p.Push(ctx, tone(2, cfg.SampleRate)) {
		assert.False(t, point.Result.IsSpeech)
		assert.False(t, point.Alert)
	}
}

func TestSetAlertThreshold(t *testing.T) {
	ctx := context.Background()
	p, err := New(ctx, testConfig())
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.SetAlertThreshold(0.9))
	assert.Equal(t, 0.9, p.Tracker.Threshold())
	assert.Equal(t, 0.9, p.Config.AlertThreshold)
	require.Error(t, p.SetAlertThreshold(-1))
	assert.Equal(t, 0.9, p.Config.AlertThreshold)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	p, err := New(ctx, cfg)
	require.NoError(t, err)
	defer p.Close()

	p.Push(ctx, quiet(0.5, cfg.SampleRate))
	p.Push(ctx, tone(1.1, cfg.SampleRate))
	p.Reset()

	assert.Equal(t, 0, p.Segmenter.Backlog())
	assert.False(t, p.Engine.State().NoiseFloorDB.Valid)
	assert.Equal(t, float64(0), p.Tracker.HoldRemaining())

	points := p.Push(ctx, tone(0.5, cfg.SampleRate))
	require.Len(t, points, 1)
	assert.Equal(t, uint64(0), points[0].StartSample)
	// the first window after a reset seeds the noise floor
	assert.False(t, points[0].Result.IsSpeech)
}

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(ctx)
	m, err := metrics.NewMetrics(mp)
	require.NoError(t, err)

	cfg := testConfig()
	p, err := New(ctx, cfg, OptionMetrics{Metrics: m})
	require.NoError(t, err)
	defer p.Close()

	var points []Point
	points = append(points, p.Push(ctx, quiet(0.5, cfg.SampleRate))...)
	points = append(points, p.Push(ctx, tone(3, cfg.SampleRate))...)
	var speech int64
	for _, point := range points {
		if point.Result.IsSpeech {
			speech++
		}
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	var windows, alerts int64
	for _, sm := range rm.ScopeMetrics {
		for _, met := range sm.Metrics {
			sum, ok := met.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				switch met.Name {
				case metrics.NameWindows:
					windows += dp.Value
				case metrics.NameAlertsRaised:
					alerts += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(len(points)), windows)
	assert.Equal(t, int64(1), alerts)
	assert.Greater(t, speech, int64(0))
}
