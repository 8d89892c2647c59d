package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/datacounter"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/voiceguard/pkg/alert"
	"github.com/xaionaro-go/voiceguard/pkg/analysis"
	"github.com/xaionaro-go/voiceguard/pkg/audio"
	"github.com/xaionaro-go/voiceguard/pkg/audio/backends/pulseaudio"
	"github.com/xaionaro-go/voiceguard/pkg/config"
	"github.com/xaionaro-go/voiceguard/pkg/detectorstream"
	"github.com/xaionaro-go/voiceguard/pkg/metrics"
	"github.com/xaionaro-go/voiceguard/pkg/pipeline"
	"github.com/xaionaro-go/voiceguard/pkg/report"
)

const (
	inputStdin = "-"
)

func main() {
	loggerLevel := logger.LevelInfo
	pflag.Var(&loggerLevel, "log-level", "Log level")
	configPath := pflag.String("config", "voiceguard.yaml", "path to the YAML config; a missing file means the defaults")
	profile := pflag.String("profile", "", "alert threshold preset: call, noisy or studio")
	alertThreshold := pflag.Float64("alert-threshold", 0, "overrides the alert threshold of the config and the profile")
	input := pflag.String("input", "", "'-' to read mono float32 little-endian PCM at the configured sample rate from stdin; empty to capture the default audio source")
	bufferSize := pflag.Uint("buffer-size", 1<<20, "size of the PCM ring buffer in bytes")
	metricsAddr := pflag.String("metrics-listen-addr", "", "an address to expose Prometheus metrics at /metrics")
	writeReport := pflag.Bool("report", false, "write a JSON report of the session on exit")
	writeHTMLReport := pflag.Bool("report-html", false, "with --report, also write an HTML rendition of the report")
	reportDir := pflag.String("report-dir", "", "directory for the JSON report (default: reports_dir of the config)")
	netPprofAddr := pflag.String("net-pprof-listen-addr", "", "an address to listen for incoming net/pprof connections")
	pflag.Parse()

	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}
	defer belt.Flush(ctx)

	ctx, cancelFunc := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancelFunc()

	cfg, err := config.LoadFile(*configPath)
	assertNoError(err)
	if *profile != "" {
		assertNoError(cfg.ApplyProfile(config.Profile(*profile)))
	}
	if pflag.CommandLine.Changed("alert-threshold") {
		cfg.AlertThreshold = *alertThreshold
	}
	assertNoError(cfg.Validate())
	if *reportDir == "" {
		*reportDir = cfg.ReportsDir
	}

	if *netPprofAddr != "" {
		observability.Go(ctx, func() { l.Error(http.ListenAndServe(*netPprofAddr, nil)) })
	}

	var opts []pipeline.Option
	if *metricsAddr != "" {
		mp, err := metrics.NewPrometheusProvider()
		assertNoError(err)
		defer mp.Shutdown(context.Background())
		m, err := metrics.NewMetrics(mp)
		assertNoError(err)
		opts = append(opts, pipeline.OptionMetrics{Metrics: m})

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		observability.Go(ctx, func() { l.Error(http.ListenAndServe(*metricsAddr, mux)) })
	}

	p, err := pipeline.New(ctx, cfg, opts...)
	assertNoError(err)
	defer p.Close()

	var pcmInput io.Reader
	switch *input {
	case inputStdin:
		pcmInput = os.Stdin
	case "":
		pcmInput = startCapture(ctx, cfg)
	default:
		panic(fmt.Errorf("unknown input '%s', expected '-' or nothing", *input))
	}

	stream, err := detectorstream.NewDetectorStream(ctx, pcmInput, audio.PCMFormatFloat32LE, 1, p, *bufferSize)
	assertNoError(err)
	defer stream.Close()

	logger.Infof(ctx, "monitoring: window %v, hop %v, alert threshold %.2f", p.WindowDuration(), p.HopDuration(), cfg.AlertThreshold)
	segments := alert.NewSegmentRecorder()
	var (
		lastTEnd float64
		points   []pipeline.Point
	)
	for point := range stream.Points() {
		lastTEnd = point.TEnd
		if *writeReport {
			points = append(points, point)
		}
		logger.Debugf(ctx, "%6.2fs-%6.2fs: %s", point.TStart, point.TEnd, point.Result)
		if !segments.Observe(point.TStart, point.TEnd, point.Alert) {
			continue
		}
		if point.Alert {
			logger.Warnf(ctx, "ALERT at %.2fs: likely synthetic voice (p_fake %s, confidence %.2f)", point.TStart, point.Result.PFakeSmooth, point.Result.Confidence)
		} else {
			all := segments.Segments()
			logger.Infof(ctx, "the alert is over: %s", all[len(all)-1])
		}
	}
	segments.Finalize(lastTEnd)
	if err := stream.Err(); err != nil {
		logger.Errorf(ctx, "the stream ended with an error: %v", err)
	}
	logger.Infof(ctx, "alert segments: %v", segments.Segments())

	if !*writeReport {
		return
	}
	result := &analysis.Result{
		Config:  cfg,
		Windows: points,
		Summary: analysis.Summarize(points, cfg.AlertThreshold),
	}
	result.Summary.AlertSegments = segments.Segments()
	source := "capture"
	if *input == inputStdin {
		source = "stdin"
	}
	r := report.New(report.SourceKindLive, source, result)
	fmt.Println(r.String())
	reportPath, err := r.WriteFile(*reportDir)
	assertNoError(err)
	logger.Infof(ctx, "the session report is written to '%s'", reportPath)
	if *writeHTMLReport {
		htmlPath, err := r.WriteHTMLFile(*reportDir)
		assertNoError(err)
		logger.Infof(ctx, "the HTML session report is written to '%s'", htmlPath)
	}
}

func startCapture(
	ctx context.Context,
	cfg config.Config,
) io.Reader {
	recorder := audio.NewRecorderAuto(ctx)
	if recorder.IsDummy() {
		panic(fmt.Errorf("no audio capture backend is available; use '--input -' to read PCM from stdin"))
	}

	r, w := io.Pipe()
	wc := datacounter.NewWriterCounter(w)
	streamRecord, err := recorder.RecordPCM(ctx, audio.SampleRate(cfg.SampleRate), 1, audio.PCMFormatFloat32LE, wc)
	assertNoError(err)

	observability.Go(ctx, func() {
		defer recorder.Close()
		defer func() {
			w.Close()
			if err := streamRecord.Close(); err != nil {
				logger.Errorf(ctx, "unable to close the record stream: %v", err)
			}
		}()
		t := time.NewTicker(10 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				logger.Debugf(ctx, "captured: %d bytes", wc.Count())
				if pulseStreamRecord, ok := streamRecord.(*pulseaudio.RecordStream); ok {
					logger.Debugf(ctx, "record stream status: running:%v, closed:%v, err:%v", pulseStreamRecord.Running(), pulseStreamRecord.Closed(), pulseStreamRecord.Error())
				}
			}
		}
	})
	return r
}

func assertNoError(err error) {
	if err != nil {
		panic(err)
	}
}
