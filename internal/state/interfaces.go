package state

import (
	"context"
	"errors"
)

var ErrRunNotFound = errors.New("run not found")

// Store is the run ledger. StartRun assigns RunID when it is empty.
type Store interface {
	StartRun(ctx context.Context, run RunRecord) (RunRecord, error)
	FinishRun(ctx context.Context, runID string, out RunOutcome) error
	GetRun(ctx context.Context, runID string) (RunRecord, bool, error)
	ListRuns(ctx context.Context, q RunQuery) ([]RunRecord, error)
	Close() error
}
