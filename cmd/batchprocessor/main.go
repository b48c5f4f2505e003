package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/marco-teran27/BatchProcessor/internal/analytics"
	"github.com/marco-teran27/BatchProcessor/internal/circuitbreaker"
	"github.com/marco-teran27/BatchProcessor/internal/completion"
	"github.com/marco-teran27/BatchProcessor/internal/config"
	"github.com/marco-teran27/BatchProcessor/internal/domain"
	"github.com/marco-teran27/BatchProcessor/internal/host"
	"github.com/marco-teran27/BatchProcessor/internal/metrics"
	"github.com/marco-teran27/BatchProcessor/internal/monitor"
	"github.com/marco-teran27/BatchProcessor/internal/orchestrator"
	"github.com/marco-teran27/BatchProcessor/internal/retry"
	"github.com/marco-teran27/BatchProcessor/internal/runlog"
	"github.com/marco-teran27/BatchProcessor/internal/schedule"
	"github.com/marco-teran27/BatchProcessor/internal/state"
	"github.com/marco-teran27/BatchProcessor/internal/timeout"
)

// Build-time variables set via -ldflags
var (
	version = "dev"
	commit  = "unknown"
)

const (
	exitSuccess       = 0
	exitRuntimeError  = 1
	exitInvalidConfig = 2
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(exitRuntimeError)
	}

	cmd := os.Args[1]

	switch cmd {
	case "run":
		os.Exit(runBatch(configArg()))
	case "validate":
		os.Exit(runValidate(configArg()))
	case "config":
		os.Exit(runConfig(configArg()))
	case "version":
		os.Exit(runVersion())
	case "--help", "-h", "help":
		printUsage()
		os.Exit(exitSuccess)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(exitRuntimeError)
	}
}

func configArg() string {
	if len(os.Args) >= 3 {
		return os.Args[2]
	}
	return "batchprocessor.json"
}

func printUsage() {
	fmt.Println(`batchprocessor - resilient batch runner for host-application model files

Usage:
  batchprocessor <command> [config-file]

Commands:
  run        Execute the batch described by the configuration file
  validate   Validate the configuration file (no processing)
  config     Print effective configuration as JSON (credentials masked)
  version    Print version information

The configuration file defaults to "batchprocessor.json" in the working
directory. It names the project, the model and output directories, the
processing script, and the resilience tuning (timeouts, circuit breaker,
retries, reprocess mode, optional cron schedule).`)
}

func runBatch(path string) int {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitInvalidConfig
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return exitInvalidConfig
	}

	if err := os.MkdirAll(filepath.Join(cfg.OutputDirectory, domain.CompletionDirName), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create completion directory: %v\n", err)
		return exitRuntimeError
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Metrics sink (optional)
	var sink metrics.Sink = metrics.NewNoopSink()
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		sink = metrics.NewPrometheusSink(prometheus.DefaultRegisterer)
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			log.Printf("batchprocessor: metrics server listening on %s", cfg.Metrics.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("batchprocessor: metrics server error: %v", err)
			}
		}()
	} else {
		log.Println("batchprocessor: metrics disabled")
	}

	// Analytics sink (optional)
	var outcomes orchestrator.OutcomeSink
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		outcomes = analytics.NewRedisSink(client, 0)
		log.Printf("batchprocessor: analytics enabled (redis=%s)", cfg.RedisAddr)
	} else {
		log.Println("batchprocessor: redis_addr not set; analytics disabled")
	}

	snapshots, err := host.NewResourceProvider()
	if err != nil {
		fmt.Fprintf(os.Stderr, "resource provider: %v\n", err)
		return exitRuntimeError
	}

	// The estimator outlives individual runs so scheduled reruns keep the
	// learned per-file timing.
	estimator := timeout.New(timeout.Config{
		Default:      cfg.Timeout.Default,
		MinSamples:   cfg.Timeout.MinSamples,
		BufferFactor: cfg.Timeout.BufferFactor,
	})

	runOnce := func(ctx context.Context) int {
		breaker := circuitbreaker.New(circuitbreaker.Config{
			CPUThreshold:     cfg.CircuitBreaker.CPUThreshold,
			MemoryThreshold:  cfg.CircuitBreaker.MemoryThreshold,
			FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
			ResetTimeout:     cfg.CircuitBreaker.ResetTimeout,
		})

		runCtx, cancelRun := context.WithCancel(ctx)
		defer cancelRun()

		mon := monitor.New(monitor.Config{Interval: cfg.MonitorInterval}, snapshots, breaker)
		monDone := make(chan struct{})
		go func() {
			mon.Run(runCtx)
			close(monDone)
		}()

		detector := completion.New(completion.Config{
			Dir:          filepath.Join(cfg.OutputDirectory, domain.CompletionDirName),
			Project:      cfg.ProjectName,
			PollInterval: cfg.PollInterval,
		}, estimator)

		tracker := state.NewTracker(state.NewCheckpointer(cfg.OutputDirectory))

		o := orchestrator.New(orchestrator.Config{
			ProjectName:    cfg.ProjectName,
			ModelDirectory: cfg.ModelDirectory,
			Filter: domain.FileFilter{
				Extensions:   cfg.Filter.Extensions,
				NamePatterns: cfg.Filter.NamePatterns,
			},
			ReprocessMode: domain.ReprocessMode(cfg.Reprocess.Mode),
			ReferenceLog:  cfg.Reprocess.ReferenceLog,
			Retry: retry.Config{
				MaxAttempts: cfg.Retry.MaxAttempts,
				Policy:      retry.Policy(cfg.Retry.Policy),
				MaxDelay:    cfg.Retry.MaxDelay,
			},
		}, orchestrator.Components{
			Documents:     host.NewDocumentClient(),
			Dispatcher:    host.NewScriptDispatcher(cfg.ScriptCommand, cfg.ScriptArgs),
			Scanner:       host.NewDirScanner(),
			Snapshots:     snapshots,
			Detector:      detector,
			Breaker:       breaker,
			Tracker:       tracker,
			Sink:          sink,
			RunLog:        runlog.NewWriter(cfg.OutputDirectory),
			Outcomes:      outcomes,
			Reporter:      consoleReporter{},
			LoadReference: runlog.Load,
		})

		run, err := o.Run(ctx)
		cancelRun()
		<-monDone

		if err != nil {
			fmt.Fprintf(os.Stderr, "run failed: %v\n", err)
			return exitRuntimeError
		}
		if run.Status != domain.RunStatusPass {
			return exitRuntimeError
		}
		return exitSuccess
	}

	code := exitSuccess
	if cfg.Schedule.Cron != "" {
		code = runScheduled(ctx, cfg, runOnce)
	} else {
		code = runOnce(ctx)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("batchprocessor: metrics server shutdown error: %v", err)
		}
	}
	return code
}

// runScheduled repeats the batch on the configured cron schedule until a
// shutdown signal arrives. Every run's exit status is logged; the process
// status reflects the last completed run.
func runScheduled(ctx context.Context, cfg config.Config, runOnce func(context.Context) int) int {
	sched, err := schedule.Parse(cfg.Schedule.Cron, cfg.Schedule.Timezone)
	if err != nil {
		fmt.Fprintf(os.Stderr, "schedule: %v\n", err)
		return exitInvalidConfig
	}

	code := exitSuccess
	schedule.NewRunner(sched).Run(ctx, func(ctx context.Context) {
		code = runOnce(ctx)
		log.Printf("batchprocessor: scheduled run finished with exit code %d", code)
	})
	return code
}

func runValidate(path string) int {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitInvalidConfig
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitInvalidConfig
	}
	fmt.Println("configuration valid")
	return exitSuccess
}

func runConfig(path string) int {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitInvalidConfig
	}
	data, err := cfg.MaskedJSON()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal config: %v\n", err)
		return exitRuntimeError
	}
	fmt.Println(string(data))
	return exitSuccess
}

func runVersion() int {
	fmt.Printf("batchprocessor version %s (commit: %s)\n", version, commit)
	return exitSuccess
}

// consoleReporter logs progress to the standard logger.
type consoleReporter struct{}

func (consoleReporter) Report(p orchestrator.Progress) {
	if p.ETA > 0 {
		log.Printf("batchprocessor: %d/%d done (last: %s, eta %s)", p.Done, p.Total, p.Current, p.ETA.Round(time.Second))
		return
	}
	log.Printf("batchprocessor: %d/%d done (last: %s)", p.Done, p.Total, p.Current)
}
