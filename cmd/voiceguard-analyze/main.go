package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/voiceguard/pkg/analysis"
	"github.com/xaionaro-go/voiceguard/pkg/audio"
	"github.com/xaionaro-go/voiceguard/pkg/audio/source"
	"github.com/xaionaro-go/voiceguard/pkg/config"
	"github.com/xaionaro-go/voiceguard/pkg/report"
	"golang.org/x/sync/errgroup"
)

func main() {
	loggerLevel := logger.LevelWarning
	pflag.Var(&loggerLevel, "log-level", "Log level")
	configPath := pflag.String("config", "voiceguard.yaml", "path to the YAML config; a missing file means the defaults")
	profile := pflag.String("profile", "", "alert threshold preset: call, noisy or studio")
	alertThreshold := pflag.Float64("alert-threshold", 0, "overrides the alert threshold of the config and the profile")
	writeReports := pflag.Bool("report", false, "write a JSON report per file")
	writeHTMLReports := pflag.Bool("report-html", false, "with --report, also write an HTML rendition of each report")
	reportDir := pflag.String("report-dir", "", "directory for the JSON reports (default: reports_dir of the config)")
	concurrency := pflag.Int("concurrency", runtime.NumCPU(), "how many files to analyze at the same time")
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <file>...\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if pflag.NArg() == 0 {
		pflag.Usage()
		os.Exit(2)
	}

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
	logger.Debugf(ctx, "config:\n%s", cfg.Bytes())

	reports := make([]*report.Report, pflag.NArg())
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(*concurrency, 1))
	for idx, path := range pflag.Args() {
		g.Go(func() error {
			r, err := analyzeFile(ctx, path, cfg)
			if err != nil {
				return fmt.Errorf("unable to analyze '%s': %w", path, err)
			}
			reports[idx] = r
			if !*writeReports {
				return nil
			}
			reportPath, err := r.WriteFile(*reportDir)
			if err != nil {
				return fmt.Errorf("unable to write the report of '%s': %w", path, err)
			}
			logger.Infof(ctx, "the report of '%s' is written to '%s'", path, reportPath)
			if !*writeHTMLReports {
				return nil
			}
			htmlPath, err := r.WriteHTMLFile(*reportDir)
			if err != nil {
				return fmt.Errorf("unable to write the HTML report of '%s': %w", path, err)
			}
			logger.Infof(ctx, "the HTML report of '%s' is written to '%s'", path, htmlPath)
			return nil
		})
	}
	err = g.Wait()

	for _, r := range reports {
		if r != nil {
			fmt.Println(r.String())
		}
	}
	if err != nil {
		logger.Error(ctx, err)
		belt.Flush(ctx)
		os.Exit(1)
	}
}

func analyzeFile(
	ctx context.Context,
	path string,
	cfg config.Config,
) (*report.Report, error) {
	clip, err := source.Open(ctx, path, audio.SampleRate(cfg.SampleRate))
	if err != nil {
		return nil, err
	}
	logger.Debugf(ctx, "'%s': %v of audio, originally %d Hz %d channels", path, clip.Duration(), clip.OriginalSampleRate, clip.OriginalChannels)

	result, err := analysis.Analyze(ctx, clip, cfg, func(processed, total int) {
		logger.Debugf(ctx, "'%s': %d/%d windows", path, processed, total)
	})
	if err != nil {
		return nil, err
	}
	return report.New(report.SourceKindFile, path, result), nil
}

func assertNoError(err error) {
	if err != nil {
		panic(err)
	}
}
