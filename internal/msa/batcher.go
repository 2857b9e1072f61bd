// Package msa generates one A3M multiple sequence alignment per record of a
// multi-FASTA file by running Clustal Omega on each record in turn.
package msa

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/example/qfold/internal/artifacts"
	"github.com/example/qfold/internal/fasta"
	"github.com/example/qfold/internal/observability"
)

var (
	ErrToolFailed = errors.New("alignment tool failed")
	ErrInvalidID  = errors.New("record id is not a valid file name")
)

type Options struct {
	FastaPath string
	OutputDir string
	// Executable is the clustalo binary name or path.
	Executable string
	LineWidth  int
	// Artifacts, when set, receives every finished .a3m file.
	Artifacts artifacts.Store
	Metrics   *observability.Registry
}

type Result struct {
	ID          string
	Output      string
	ArtifactURI string
}

type Batcher struct {
	opts Options
}

// New creates the output directory (idempotent) and returns a Batcher.
func New(opts Options) (*Batcher, error) {
	if strings.TrimSpace(opts.Executable) == "" {
		opts.Executable = "clustalo"
	}
	if opts.LineWidth <= 0 {
		opts.LineWidth = fasta.DefaultLineWidth
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.Default
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create msa dir: %w", err)
	}
	return &Batcher{opts: opts}, nil
}

// Generate aligns every record in order. The first failure aborts the batch;
// results for records already processed are returned alongside the error.
func (b *Batcher) Generate(ctx context.Context) ([]Result, error) {
	records, err := fasta.ReadFile(b.opts.FastaPath)
	if err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(records))
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := b.alignRecord(ctx, rec)
		if err != nil {
			b.opts.Metrics.IncCounter("msa_failures_total", nil, 1)
			return results, fmt.Errorf("record %s: %w", rec.ID, err)
		}
		b.opts.Metrics.IncCounter("msa_records_total", nil, 1)
		results = append(results, res)
	}
	log.Printf("all MSAs generated dir=%s records=%d", b.opts.OutputDir, len(results))
	return results, nil
}

func (b *Batcher) alignRecord(ctx context.Context, rec fasta.Record) (res Result, err error) {
	ctx, span := observability.StartSpan(ctx, "msa.align", attribute.String("record.id", rec.ID), attribute.Int("record.length", len(rec.Seq)))
	defer func() { observability.EndSpan(span, err) }()

	if err := checkRecordID(rec.ID); err != nil {
		return Result{}, err
	}
	tmp := filepath.Join(b.opts.OutputDir, rec.ID+".fasta")
	out := filepath.Join(b.opts.OutputDir, rec.ID+".a3m")
	if err := fasta.WriteRecordFile(tmp, rec, b.opts.LineWidth); err != nil {
		return Result{}, fmt.Errorf("write temp fasta: %w", err)
	}

	log.Printf("processing record=%s output=%s", rec.ID, filepath.Base(out))
	if err := b.runTool(ctx, tmp, out); err != nil {
		return Result{}, err
	}
	if err := os.Remove(tmp); err != nil {
		return Result{}, fmt.Errorf("remove temp fasta: %w", err)
	}

	res = Result{ID: rec.ID, Output: out}
	if b.opts.Artifacts != nil {
		uri, err := b.opts.Artifacts.Publish(ctx, out, "msa/"+filepath.Base(out))
		if err != nil {
			return Result{}, fmt.Errorf("publish %s: %w", out, err)
		}
		res.ArtifactURI = uri
	}
	return res, nil
}

func (b *Batcher) runTool(ctx context.Context, in, out string) error {
	bin := lookPathWithFallback(b.opts.Executable)
	if bin == "" {
		return fmt.Errorf("%w: executable %q not found", ErrToolFailed, b.opts.Executable)
	}
	cmd := exec.CommandContext(ctx, bin, Args(in, out)...)
	cmd.Env = processEnvWithPathFallback()
	var errOut bytes.Buffer
	cmd.Stdout = os.Stdout
	cmd.Stderr = &errOut
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(errOut.String())
		if msg != "" {
			return fmt.Errorf("%w: %v: %s", ErrToolFailed, err, msg)
		}
		return fmt.Errorf("%w: %v", ErrToolFailed, err)
	}
	return nil
}

// checkRecordID keeps outputs inside the output directory.
func checkRecordID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// Args is the fixed clustalo argument list: A3M output, overwrite allowed.
func Args(in, out string) []string {
	return []string{"-i", in, "-o", out, "--outfmt", "a3m", "--force"}
}

func lookPathWithFallback(bin string) string {
	if p, err := exec.LookPath(bin); err == nil {
		return p
	}
	if strings.ContainsRune(bin, filepath.Separator) {
		return ""
	}
	for _, dir := range strings.Split(defaultExecPath(), ":") {
		p := filepath.Join(dir, bin)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p
		}
	}
	return ""
}

func processEnvWithPathFallback() []string {
	env := os.Environ()
	for i, e := range env {
		if strings.HasPrefix(e, "PATH=") {
			if strings.TrimSpace(strings.TrimPrefix(e, "PATH=")) == "" {
				env[i] = "PATH=" + defaultExecPath()
			}
			return env
		}
	}
	return append(env, "PATH="+defaultExecPath())
}

func defaultExecPath() string {
	return "/usr/local/bin:/usr/bin:/bin:/opt/homebrew/bin"
}
