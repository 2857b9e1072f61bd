package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/qfold/internal/bootstrap"
	"github.com/example/qfold/internal/config"
	"github.com/example/qfold/internal/folding"
	"github.com/example/qfold/internal/observability"
)

func main() {
	fs := flag.NewFlagSet("fold-orchestrator", flag.ExitOnError)
	envFile := fs.String("env-file", os.Getenv("QFOLD_ENV_FILE"), "optional .env file with QFOLD_* settings")
	proteins := fs.String("proteins", "", "proteins YAML file (default: built-in benchmark list)")
	maxIter := fs.Int("max-iter", 0, "VQE iteration cap (default: QFOLD_MAX_ITER)")
	_ = fs.Parse(os.Args[1:])

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *proteins != "" {
		cfg.ProteinsFile = *proteins
	}
	if *maxIter > 0 {
		cfg.MaxIter = *maxIter
	}

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, "qfold-orchestrator")
	if err != nil {
		log.Fatalf("init tracing: %v", err)
	}
	flushTracing := func() {
		if err := observability.Flush(shutdownTracing, 5*time.Second); err != nil {
			log.Printf("flush traces: %v", err)
		}
	}
	defer flushTracing()
	// log.Fatalf skips deferred calls, so spans are flushed first.
	fatalf := func(format string, args ...any) {
		flushTracing()
		log.Fatalf(format, args...)
	}

	tasks, err := folding.LoadTasks(cfg.ProteinsFile, cfg.MaxIter)
	if err != nil {
		fatalf("load proteins: %v", err)
	}
	pipeline, err := bootstrap.NewPipeline(ctx, cfg)
	if err != nil {
		fatalf("bootstrap pipeline: %v", err)
	}
	defer pipeline.Close()

	tl, err := folding.OpenTimeLog(cfg.TimeLogPath)
	if err != nil {
		fatalf("open time log: %v", err)
	}
	defer tl.Close()

	log.Printf("qfold orchestrator starting proteins=%d max_iter=%d result_root=%s", len(tasks), cfg.MaxIter, cfg.ResultRoot)
	sums, runErr := pipeline.Orchestrator.RunAll(ctx, tasks, tl)
	if cfg.MetricsFile != "" {
		if err := observability.Default.WriteFile(cfg.MetricsFile); err != nil {
			log.Printf("write metrics file=%s: %v", cfg.MetricsFile, err)
		}
	}
	if runErr != nil {
		log.Printf("run aborted after %d of %d proteins", len(sums), len(tasks))
		tl.Close()
		pipeline.Close()
		fatalf("fold run failed: %v", runErr)
	}
	for _, s := range sums {
		log.Printf("protein=%s qubits=%d best_energy=%v structures=%d run=%s", s.ProteinID, s.Qubits, s.BestEnergy, len(s.Structures), s.RunID)
	}
	log.Printf("all proteins processed; time log written to %s", cfg.TimeLogPath)
}
