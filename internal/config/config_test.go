package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("QFOLD_MAX_ITER", "")
	t.Setenv("QFOLD_RESULT_ROOT", "")
	cfg := FromEnv()
	if cfg.MaxIter != 150 {
		t.Fatalf("unexpected max iter default: %d", cfg.MaxIter)
	}
	if cfg.ResultRoot != "Result" {
		t.Fatalf("unexpected result root default: %s", cfg.ResultRoot)
	}
	if cfg.MSALineWidth != 60 {
		t.Fatalf("unexpected line width default: %d", cfg.MSALineWidth)
	}
	if cfg.HTTPRetries != 0 {
		t.Fatalf("expected no retries by default, got %d", cfg.HTTPRetries)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("QFOLD_MAX_ITER", "20")
	t.Setenv("QFOLD_POLL_MILLIS", "50")
	t.Setenv("QFOLD_OVERWRITE", "yes")
	t.Setenv("QFOLD_TOP_K", "not-a-number")
	cfg := FromEnv()
	if cfg.MaxIter != 20 {
		t.Fatalf("unexpected max iter: %d", cfg.MaxIter)
	}
	if cfg.PollInterval != 50*time.Millisecond {
		t.Fatalf("unexpected poll interval: %s", cfg.PollInterval)
	}
	if !cfg.Overwrite {
		t.Fatalf("expected overwrite enabled")
	}
	if cfg.TopK != 3 {
		t.Fatalf("invalid int should fall back to default, got %d", cfg.TopK)
	}
}

func TestLoadEnvFileDoesNotOverrideExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qfold.env")
	body := "QFOLD_QUANTUM_TOKEN=from-file\nQFOLD_QUANTUM_INSTANCE=hub/group/project\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("QFOLD_QUANTUM_TOKEN", "from-env")
	t.Setenv("QFOLD_QUANTUM_INSTANCE", "")
	os.Unsetenv("QFOLD_QUANTUM_INSTANCE")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.QuantumToken != "from-env" {
		t.Fatalf("env file must not override existing env, got %q", cfg.QuantumToken)
	}
	if cfg.QuantumInstance != "hub/group/project" {
		t.Fatalf("unexpected instance: %q", cfg.QuantumInstance)
	}
}

func TestLoadMissingEnvFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatalf("expected error for missing env file")
	}
}

func TestFromEnvTracingSettings(t *testing.T) {
	t.Setenv("QFOLD_OTEL_EXPORTER", "OTLPHTTP")
	t.Setenv("QFOLD_OTEL_ENDPOINT", "https://collector:4318")
	t.Setenv("QFOLD_OTEL_HEADERS", "authorization=Bearer x, tenant=lab ,broken")
	t.Setenv("QFOLD_OTEL_INSECURE", "false")
	t.Setenv("QFOLD_OTEL_SAMPLER", "traceidratio")
	t.Setenv("QFOLD_OTEL_SAMPLER_RATIO", "4")
	t.Setenv("QFOLD_ENVIRONMENT", "staging")
	tr := FromEnv().Tracing
	if tr.Exporter != "otlphttp" || tr.Endpoint != "https://collector:4318" || tr.Insecure {
		t.Fatalf("unexpected exporter settings: %#v", tr)
	}
	if len(tr.Headers) != 2 || tr.Headers["authorization"] != "Bearer x" || tr.Headers["tenant"] != "lab" {
		t.Fatalf("unexpected headers: %#v", tr.Headers)
	}
	if tr.Sampler != "traceidratio" || tr.SampleRatio != 1 {
		t.Fatalf("ratio must be clamped to 1: %#v", tr)
	}
	if tr.Environment != "staging" {
		t.Fatalf("unexpected environment: %q", tr.Environment)
	}
}

func TestFromEnvTracingDisabledByDefault(t *testing.T) {
	t.Setenv("QFOLD_OTEL_EXPORTER", "")
	if got := FromEnv().Tracing.Exporter; got != "none" {
		t.Fatalf("expected tracing disabled by default, got %q", got)
	}
}

func TestFromEnvClampsNegativeCounts(t *testing.T) {
	t.Setenv("QFOLD_TOP_K", "-1")
	t.Setenv("QFOLD_HTTP_RETRIES", "-3")
	cfg := FromEnv()
	if cfg.TopK != 0 || cfg.HTTPRetries != 0 {
		t.Fatalf("negative counts must clamp to 0, got top_k=%d retries=%d", cfg.TopK, cfg.HTTPRetries)
	}
}
