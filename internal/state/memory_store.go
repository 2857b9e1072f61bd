package state

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryStore struct {
	mu   sync.Mutex
	runs map[string]RunRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]RunRecord)}
}

func (m *MemoryStore) StartRun(_ context.Context, run RunRecord) (RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run.RunID == "" {
		run.RunID = uuid.NewString()
	}
	if _, exists := m.runs[run.RunID]; exists {
		return RunRecord{}, fmt.Errorf("run %s already exists", run.RunID)
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = RunRunning
	}
	m.runs[run.RunID] = run
	return run, nil
}

func (m *MemoryStore) FinishRun(_ context.Context, runID string, out RunOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	applyOutcome(&run, out)
	m.runs[runID] = run
	return nil
}

func (m *MemoryStore) GetRun(_ context.Context, runID string) (RunRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	return run, ok, nil
}

func (m *MemoryStore) ListRuns(_ context.Context, q RunQuery) ([]RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RunRecord, 0, len(m.runs))
	for _, r := range m.runs {
		if q.ProteinID != "" && r.ProteinID != q.ProteinID {
			continue
		}
		if q.Status != "" && r.Status != q.Status {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].RunID < out[j].RunID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }

func applyOutcome(run *RunRecord, out RunOutcome) {
	if out.FinishedAt.IsZero() {
		out.FinishedAt = time.Now().UTC()
	}
	run.Status = out.Status
	run.Error = out.Error
	run.Qubits = out.Qubits
	run.BestEnergy = out.BestEnergy
	run.Structures = out.Structures
	run.ArtifactURI = out.ArtifactURI
	run.FinishedAt = out.FinishedAt
	run.DurationMillis = out.FinishedAt.Sub(run.StartedAt).Milliseconds()
}
