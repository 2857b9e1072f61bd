package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/qfold/internal/artifacts"
	"github.com/example/qfold/internal/config"
	"github.com/example/qfold/internal/msa"
	"github.com/example/qfold/internal/observability"
)

func main() {
	fs := flag.NewFlagSet("msa-batcher", flag.ExitOnError)
	envFile := fs.String("env-file", os.Getenv("QFOLD_ENV_FILE"), "optional .env file with QFOLD_* settings")
	fastaPath := fs.String("fasta", "", "multi-FASTA input (default: QFOLD_MSA_FASTA)")
	outDir := fs.String("out", "", "A3M output directory (default: QFOLD_MSA_DIR)")
	clustalo := fs.String("clustalo", "", "clustalo executable (default: QFOLD_CLUSTALO)")
	width := fs.Int("width", 0, "FASTA line width for per-record inputs")
	_ = fs.Parse(os.Args[1:])

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *fastaPath != "" {
		cfg.MSAFastaPath = *fastaPath
	}
	if *outDir != "" {
		cfg.MSAOutputDir = *outDir
	}
	if *clustalo != "" {
		cfg.ClustaloPath = *clustalo
	}
	if *width > 0 {
		cfg.MSALineWidth = *width
	}

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, "qfold-msa")
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

	arts, err := artifacts.New(cfg)
	if err != nil {
		fatalf("artifact backend: %v", err)
	}
	b, err := msa.New(msa.Options{
		FastaPath:  cfg.MSAFastaPath,
		OutputDir:  cfg.MSAOutputDir,
		Executable: cfg.ClustaloPath,
		LineWidth:  cfg.MSALineWidth,
		Artifacts:  arts,
	})
	if err != nil {
		fatalf("init msa batcher: %v", err)
	}
	results, err := b.Generate(ctx)
	if cfg.MetricsFile != "" {
		if werr := observability.Default.WriteFile(cfg.MetricsFile); werr != nil {
			log.Printf("write metrics file=%s: %v", cfg.MetricsFile, werr)
		}
	}
	if err != nil {
		fatalf("msa generation failed after %d records: %v", len(results), err)
	}
	log.Printf("generated %d alignments in %s", len(results), cfg.MSAOutputDir)
}
