// Package artifacts mirrors result files produced on local disk to the
// configured artifact backend.
package artifacts

import (
	"context"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/example/qfold/internal/config"
)

const defaultBucket = "qfold-results"

// Store publishes a local file or directory under key and returns its URI.
type Store interface {
	Publish(ctx context.Context, localPath, key string) (string, error)
}

// New returns the backend named by cfg.ArtifactBackend.
func New(cfg config.Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.ArtifactBackend)) {
	case "", "local":
		return Local{}, nil
	case "minio", "s3":
		return NewMinIO(cfg)
	default:
		return nil, fmt.Errorf("unsupported QFOLD_ARTIFACT_BACKEND value %q", cfg.ArtifactBackend)
	}
}

// Local leaves files where they are.
type Local struct{}

func (Local) Publish(_ context.Context, localPath, key string) (string, error) {
	if _, err := os.Stat(localPath); err != nil {
		return "", err
	}
	return "artifact://local/" + strings.Trim(key, "/"), nil
}

type MinIO struct {
	client *minio.Client
	bucket string
}

func NewMinIO(cfg config.Config) (*MinIO, error) {
	endpoint := strings.TrimSpace(cfg.MinIOEndpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required when QFOLD_ARTIFACT_BACKEND=minio")
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIOAccessKey, cfg.MinIOSecretKey, ""),
		Secure: cfg.MinIOUseSSL,
	})
	if err != nil {
		return nil, err
	}
	bucket := strings.TrimSpace(cfg.MinIOBucket)
	if bucket == "" {
		bucket = defaultBucket
	}
	return &MinIO{client: client, bucket: bucket}, nil
}

// Publish uploads localPath (recursively when it is a directory) beneath
// key, creating the bucket on first use.
func (m *MinIO) Publish(ctx context.Context, localPath, key string) (string, error) {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return "", err
	}
	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
			return "", err
		}
	}
	prefix := strings.Trim(key, "/")
	objects, err := objectNames(localPath, prefix)
	if err != nil {
		return "", err
	}
	for _, o := range objects {
		_, err := m.client.FPutObject(ctx, m.bucket, o.name, o.path, minio.PutObjectOptions{ContentType: contentType(o.path)})
		if err != nil {
			return "", fmt.Errorf("upload %s: %w", o.path, err)
		}
	}
	return fmt.Sprintf("artifact://s3/%s/%s", m.bucket, prefix), nil
}

type object struct {
	path string
	name string
}

// objectNames maps every regular file under localPath to an object name
// below prefix using slash separators.
func objectNames(localPath, prefix string) ([]object, error) {
	st, err := os.Stat(localPath)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return []object{{path: localPath, name: prefix}}, nil
	}
	var out []object
	err = filepath.WalkDir(localPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(localPath, p)
		if err != nil {
			return err
		}
		out = append(out, object{path: p, name: path.Join(prefix, filepath.ToSlash(rel))})
		return nil
	})
	return out, err
}

func contentType(p string) string {
	switch filepath.Ext(p) {
	case ".xyz", ".txt", ".a3m", ".fasta":
		return "text/plain"
	}
	if t := mime.TypeByExtension(filepath.Ext(p)); t != "" {
		return t
	}
	return "application/octet-stream"
}
