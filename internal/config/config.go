package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	QuantumBaseURL  string
	QuantumChannel  string
	QuantumInstance string
	QuantumToken    string
	HTTPTimeout     time.Duration
	HTTPRetries     int
	PollInterval    time.Duration
	MaxIter         int
	TopK            int
	ResultRoot      string
	TimeLogPath     string
	ProteinsFile    string
	Overwrite       bool
	Store           string
	PostgresDSN     string
	MetricsFile     string
	ArtifactBackend string
	MinIOEndpoint   string
	MinIOAccessKey  string
	MinIOSecretKey  string
	MinIOBucket     string
	MinIOUseSSL     bool
	ClustaloPath    string
	MSAFastaPath    string
	MSAOutputDir    string
	MSALineWidth    int
	Tracing         Tracing
}

// Tracing selects the span exporter. Exporter "" or "none" disables export.
type Tracing struct {
	Exporter    string
	Endpoint    string
	Headers     map[string]string
	Insecure    bool
	Sampler     string
	SampleRatio float64
	Environment string
}

// Load reads envFile (when non-empty) into the process environment without
// overriding variables that are already set, then builds the Config.
func Load(envFile string) (Config, error) {
	if strings.TrimSpace(envFile) != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}
	return FromEnv(), nil
}

func FromEnv() Config {
	resultRoot := getenv("QFOLD_RESULT_ROOT", "Result")
	return Config{
		QuantumBaseURL:  getenv("QFOLD_QUANTUM_URL", "http://localhost:8090"),
		QuantumChannel:  getenv("QFOLD_QUANTUM_CHANNEL", "ibm_quantum"),
		QuantumInstance: getenv("QFOLD_QUANTUM_INSTANCE", ""),
		QuantumToken:    getenv("QFOLD_QUANTUM_TOKEN", ""),
		HTTPTimeout:     time.Duration(getenvInt("QFOLD_HTTP_TIMEOUT_SECONDS", 30)) * time.Second,
		HTTPRetries:     max(getenvInt("QFOLD_HTTP_RETRIES", 0), 0),
		PollInterval:    time.Duration(getenvInt("QFOLD_POLL_MILLIS", 2000)) * time.Millisecond,
		MaxIter:         getenvInt("QFOLD_MAX_ITER", 150),
		TopK:            max(getenvInt("QFOLD_TOP_K", 3), 0),
		ResultRoot:      resultRoot,
		TimeLogPath:     getenv("QFOLD_TIME_LOG", "execution_time_log.txt"),
		ProteinsFile:    getenv("QFOLD_PROTEINS_FILE", ""),
		Overwrite:       getenvBool("QFOLD_OVERWRITE", false),
		Store:           getenv("QFOLD_STORE", "memory"),
		PostgresDSN:     getenv("QFOLD_POSTGRES_DSN", ""),
		MetricsFile:     getenv("QFOLD_METRICS_FILE", ""),
		ArtifactBackend: getenv("QFOLD_ARTIFACT_BACKEND", "local"),
		MinIOEndpoint:   getenv("QFOLD_MINIO_ENDPOINT", ""),
		MinIOAccessKey:  getenv("QFOLD_MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:  getenv("QFOLD_MINIO_SECRET_KEY", ""),
		MinIOBucket:     getenv("QFOLD_MINIO_BUCKET", "qfold-results"),
		MinIOUseSSL:     getenvBool("QFOLD_MINIO_USE_SSL", false),
		ClustaloPath:    getenv("QFOLD_CLUSTALO", "clustalo"),
		MSAFastaPath:    getenv("QFOLD_MSA_FASTA", "project/data/seqs/test_sequences.fasta"),
		MSAOutputDir:    getenv("QFOLD_MSA_DIR", "project/data/msa"),
		MSALineWidth:    getenvInt("QFOLD_MSA_LINE_WIDTH", 60),
		Tracing: Tracing{
			Exporter:    strings.ToLower(getenv("QFOLD_OTEL_EXPORTER", "none")),
			Endpoint:    getenv("QFOLD_OTEL_ENDPOINT", ""),
			Headers:     parseHeaders(os.Getenv("QFOLD_OTEL_HEADERS")),
			Insecure:    getenvBool("QFOLD_OTEL_INSECURE", true),
			Sampler:     strings.ToLower(getenv("QFOLD_OTEL_SAMPLER", "always_on")),
			SampleRatio: min(max(getenvFloat("QFOLD_OTEL_SAMPLER_RATIO", 1), 0), 1),
			Environment: getenv("QFOLD_ENVIRONMENT", ""),
		},
	}
}

func getenv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func getenvInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

// parseHeaders reads "k1=v1,k2=v2"; malformed pairs are dropped.
func parseHeaders(raw string) map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(pair, "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if ok && k != "" && v != "" {
			out[k] = v
		}
	}
	return out
}

func getenvBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return fallback
	}
}
