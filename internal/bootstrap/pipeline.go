package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/qfold/internal/artifacts"
	"github.com/example/qfold/internal/config"
	"github.com/example/qfold/internal/folding"
	"github.com/example/qfold/internal/observability"
	"github.com/example/qfold/internal/quantum"
	"github.com/example/qfold/internal/state"
)

// Pipeline bundles the orchestrator with the resources the caller must
// release when the run ends.
type Pipeline struct {
	Orchestrator *folding.Orchestrator
	Store        state.Store
	Artifacts    artifacts.Store
}

func (p *Pipeline) Close() error {
	if p.Store == nil {
		return nil
	}
	return p.Store.Close()
}

func NewPipeline(ctx context.Context, cfg config.Config) (*Pipeline, error) {
	store, err := NewStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	arts, err := artifacts.New(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	orch := folding.New(quantum.New(cfg), folding.Options{
		ResultRoot: cfg.ResultRoot,
		TopK:       cfg.TopK,
		Overwrite:  cfg.Overwrite,
		Store:      store,
		Artifacts:  arts,
		Metrics:    observability.Default,
	})
	return &Pipeline{Orchestrator: orch, Store: store, Artifacts: arts}, nil
}

func NewStore(ctx context.Context, cfg config.Config) (state.Store, error) {
	switch strings.ToLower(cfg.Store) {
	case "", "memory":
		return state.NewMemoryStore(), nil
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("QFOLD_POSTGRES_DSN is required when QFOLD_STORE=postgres")
		}
		return state.NewPostgresStore(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unsupported QFOLD_STORE value %q", cfg.Store)
	}
}
