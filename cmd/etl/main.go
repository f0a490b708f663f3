package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"salesload/internal/config"
	"salesload/internal/logging"
	"salesload/internal/metrics"
	"salesload/internal/metrics/datadog"
	"salesload/internal/metrics/prompush"
	"salesload/internal/pipeline"

	// register all backends with the storage factory; DB_DRIVER picks one.
	_ "salesload/internal/storage/all"
)

const jobName = "salesload"

// main loads .env, then runs one load and exits 0 on success, 1 otherwise.
func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}
	os.Exit(run(os.Args[1:], os.Getenv, os.Stdout))
}

func run(args []string, getenv func(string) string, stdout io.Writer) int {
	fs := flag.NewFlagSet("salesload", flag.ContinueOnError)
	fs.SetOutput(stdout)
	cfg, err := config.LoadFromArgs(fs, getenv, args)
	if err != nil {
		fmt.Fprintf(stdout, "parse flags: %v\n", err)
		return 1
	}

	if cfg.ValidateOnly {
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(stdout, "configuration is invalid: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "configuration is valid: driver=%s dsn=%s\n", cfg.DBDriver, cfg.Redacted())
		return 0
	}

	runID := uuid.NewString()
	logger, closeLog, err := logging.New(logging.Config{
		File:       cfg.LogFile,
		Stdout:     stdout,
		FluentHost: cfg.FluentHost,
		FluentPort: cfg.FluentPort,
		RunID:      runID,
	})
	if err != nil {
		fmt.Fprintf(stdout, "logging: %v\n", err)
		return 1
	}
	defer func() {
		if err := closeLog(); err != nil {
			fmt.Fprintf(stdout, "logging: close: %v\n", err)
		}
	}()

	rec := newRecorder(cfg, logger)
	defer func() {
		if err := rec.Flush(); err != nil {
			logger.Printf("metrics: flush error: %v", err)
		}
		if c, ok := rec.Backend.(io.Closer); ok {
			_ = c.Close()
		}
	}()

	start := time.Now()
	res, err := pipeline.Run(context.Background(), pipeline.Options{
		Config:  cfg,
		Logger:  logger,
		Metrics: rec,
		RunID:   runID,
	})
	if err != nil {
		logger.Printf("run failed: run_id=%s error=%v", runID, err)
		return 1
	}
	logger.Printf("completed: run_id=%s rows=%d in %s", runID, res.Rows, time.Since(start).Truncate(time.Millisecond))
	return 0
}

// newRecorder picks the metrics backend. A backend that fails to initialize
// degrades to the no-op one.
func newRecorder(cfg *config.Config, logger *log.Logger) *metrics.Recorder {
	switch cfg.MetricsBackend {
	case config.MetricsPushgateway:
		b, err := prompush.NewBackend(jobName, cfg.PushgatewayURL)
		if err != nil {
			logger.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			break
		}
		logger.Printf("metrics: url=%v, backend=%v, job_name=%v", cfg.PushgatewayURL, cfg.MetricsBackend, jobName)
		return metrics.NewRecorder(jobName, b)

	case config.MetricsDatadog:
		b, err := datadog.NewBackend(datadog.Config{Addr: cfg.DogStatsDAddr, Namespace: jobName + "."})
		if err != nil {
			logger.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			break
		}
		logger.Printf("metrics: addr=%v, backend=%v", cfg.DogStatsDAddr, cfg.MetricsBackend)
		return metrics.NewRecorder(jobName, b)

	case "", config.MetricsNone:

	default:
		logger.Printf("metrics: unknown backend %q; metrics disabled", cfg.MetricsBackend)
	}
	return metrics.NewRecorder(jobName, nil)
}
