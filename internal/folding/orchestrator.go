// Package folding sequences lattice protein structure prediction: it builds
// the folding problem on the quantum service, runs VQE, and persists the
// energy trajectory, probability distribution and predicted structures of
// each protein.
package folding

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/example/qfold/internal/artifacts"
	"github.com/example/qfold/internal/observability"
	"github.com/example/qfold/internal/quantum"
	"github.com/example/qfold/internal/state"
	"github.com/example/qfold/internal/structure"
)

const (
	// AuxiliaryQubits is added to the operator width to get the qubit count
	// requested for the ansatz.
	AuxiliaryQubits = 5
	Interaction     = "miyazawa_jernigan"

	distributionTolerance = 1e-6
)

var DefaultPenalties = quantum.Penalties{ChainConnectivity: 10, Overlap: 10, Interaction: 10}

var ErrDistribution = errors.New("invalid probability distribution")

// Service is the subset of the quantum execution service the orchestrator
// drives.
type Service interface {
	BuildProblem(ctx context.Context, req quantum.ProblemRequest) (quantum.Problem, error)
	Solve(ctx context.Context, req quantum.VQERequest) (quantum.VQEResult, error)
	Distribution(ctx context.Context, ansatzID string, numQubits int, params []float64) (quantum.Distribution, error)
	Interpret(ctx context.Context, problemID string, d quantum.Distribution) (quantum.Interpretation, error)
}

type Options struct {
	ResultRoot string
	// TopK is the number of ranked alternates requested; 0 leaves it to the
	// service.
	TopK      int
	Overwrite bool
	Store     state.Store
	Artifacts artifacts.Store
	Metrics   *observability.Registry
}

type Summary struct {
	ProteinID        string
	RunID            string
	Qubits           int
	BestEnergy       float64
	EnergyFile       string
	DistributionFile string
	Structures       []string
	ArtifactURI      string
}

type Orchestrator struct {
	svc  Service
	opts Options
}

func New(svc Service, opts Options) *Orchestrator {
	if opts.ResultRoot == "" {
		opts.ResultRoot = "Result"
	}
	if opts.Store == nil {
		opts.Store = state.NewMemoryStore()
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.Default
	}
	if opts.TopK < 0 {
		opts.TopK = 0
	}
	return &Orchestrator{svc: svc, opts: opts}
}

// RunAll predicts tasks in order, appending one time log row per completed
// task. The first failure stops the run.
func (o *Orchestrator) RunAll(ctx context.Context, tasks []Task, tl *TimeLog) ([]Summary, error) {
	out := make([]Summary, 0, len(tasks))
	for _, t := range tasks {
		started := time.Now()
		sum, err := o.Predict(ctx, t)
		if err != nil {
			return out, fmt.Errorf("protein %s: %w", t.ProteinID, err)
		}
		if tl != nil {
			if err := tl.Append(t.ProteinID, time.Since(started)); err != nil {
				return out, fmt.Errorf("write time log: %w", err)
			}
		}
		out = append(out, sum)
	}
	return out, nil
}

// Predict runs the full pipeline for one task and records it in the run
// ledger. Files written before a failure are left in place.
func (o *Orchestrator) Predict(ctx context.Context, t Task) (sum Summary, err error) {
	if err := t.Validate(); err != nil {
		return Summary{}, err
	}
	ctx, span := observability.StartSpan(ctx, "folding.predict",
		attribute.String("protein.id", t.ProteinID),
		attribute.Int("protein.length", len(t.Sequence)),
		attribute.Int("vqe.max_iter", t.MaxIter),
	)
	started := time.Now()
	run, err := o.opts.Store.StartRun(ctx, state.RunRecord{
		ProteinID: t.ProteinID,
		Sequence:  t.Sequence,
		MaxIter:   t.MaxIter,
		StartedAt: started.UTC(),
	})
	if err != nil {
		observability.EndSpan(span, err)
		return Summary{}, fmt.Errorf("record run start: %w", err)
	}
	defer func() {
		o.finish(ctx, run.RunID, t.ProteinID, sum, err, time.Since(started))
		observability.EndSpan(span, err)
	}()

	sum, err = o.predict(ctx, t)
	sum.RunID = run.RunID
	return sum, err
}

func (o *Orchestrator) predict(ctx context.Context, t Task) (Summary, error) {
	log.Printf("starting prediction protein=%s sequence=%s", t.ProteinID, t.Sequence)
	dir := ProteinDir(o.opts.ResultRoot, t.ProteinID)
	if !o.opts.Overwrite {
		// Fail before any quantum job is submitted.
		found, err := existingStructures(dir, t.ProteinID)
		if err != nil {
			return Summary{}, err
		}
		if len(found) > 0 {
			return Summary{}, fmt.Errorf("%w: %s", structure.ErrExists, strings.Join(found, ", "))
		}
	}
	sideChains := SideChains(t.Sequence)
	log.Printf("protein=%s amino_acids=%d side_chain_sites=%d", t.ProteinID, len(t.Sequence), len(sideChains))

	problem, err := o.svc.BuildProblem(ctx, quantum.ProblemRequest{
		MainChain:   t.Sequence,
		SideChains:  sideChains,
		Interaction: Interaction,
		Penalties:   DefaultPenalties,
	})
	if err != nil {
		return Summary{}, err
	}
	qubits := problem.NumQubits + AuxiliaryQubits
	log.Printf("protein=%s qubits=%d", t.ProteinID, qubits)
	sum := Summary{ProteinID: t.ProteinID, Qubits: qubits}

	res, err := o.svc.Solve(ctx, quantum.VQERequest{
		ProblemID: problem.ID,
		MinQubits: qubits,
		MaxIter:   t.MaxIter,
		TopK:      o.opts.TopK,
	})
	if err != nil {
		return sum, err
	}
	sum.BestEnergy = bestEnergy(res)

	sum.EnergyFile = EnergyPath(o.opts.ResultRoot, t.ProteinID)
	if err := WriteEnergies(sum.EnergyFile, res.Energies); err != nil {
		return sum, fmt.Errorf("write energies: %w", err)
	}

	dist, err := o.distribution(ctx, res.AnsatzID, qubits, res.Result.OptimalParameters)
	if err != nil {
		return sum, err
	}
	primary, err := o.svc.Interpret(ctx, problem.ID, dist)
	if err != nil {
		return sum, err
	}
	sum.DistributionFile = DistributionPath(o.opts.ResultRoot, t.ProteinID)
	if err := WriteDistribution(sum.DistributionFile, dist); err != nil {
		return sum, fmt.Errorf("write distribution: %w", err)
	}

	path, err := structure.Save(dir, StructureName(t.ProteinID, 0), structure.FromInterpretation(primary, ""), o.opts.Overwrite)
	if err != nil {
		return sum, err
	}
	sum.Structures = append(sum.Structures, path)
	log.Printf("protein=%s structure saved file=%s", t.ProteinID, filepath.Base(path))

	top := res.Top
	if o.opts.TopK > 0 && len(top) > o.opts.TopK {
		top = top[:o.opts.TopK]
	}
	for i, c := range top {
		rank := i + 1
		log.Printf("protein=%s top=%d energy=%v", t.ProteinID, rank, c.Energy)
		d, err := o.distribution(ctx, res.AnsatzID, qubits, c.Parameters)
		if err != nil {
			return sum, fmt.Errorf("top %d: %w", rank, err)
		}
		interp, err := o.svc.Interpret(ctx, problem.ID, d)
		if err != nil {
			return sum, fmt.Errorf("top %d: %w", rank, err)
		}
		path, err := structure.Save(dir, StructureName(t.ProteinID, rank), structure.FromInterpretation(interp, ""), o.opts.Overwrite)
		if err != nil {
			return sum, err
		}
		sum.Structures = append(sum.Structures, path)
	}

	if o.opts.Artifacts != nil {
		uri, err := o.opts.Artifacts.Publish(ctx, dir, "best_group/"+t.ProteinID)
		if err != nil {
			return sum, fmt.Errorf("publish results: %w", err)
		}
		sum.ArtifactURI = uri
	}
	log.Printf("finished protein=%s structures=%d", t.ProteinID, len(sum.Structures))
	return sum, nil
}

func (o *Orchestrator) distribution(ctx context.Context, ansatzID string, qubits int, params []float64) (quantum.Distribution, error) {
	d, err := o.svc.Distribution(ctx, ansatzID, qubits, params)
	if err != nil {
		return nil, err
	}
	if err := ValidateDistribution(d); err != nil {
		return nil, err
	}
	return d, nil
}

func (o *Orchestrator) finish(ctx context.Context, runID, proteinID string, sum Summary, runErr error, elapsed time.Duration) {
	out := state.RunOutcome{
		Status:      state.RunCompleted,
		Qubits:      sum.Qubits,
		Structures:  len(sum.Structures),
		ArtifactURI: sum.ArtifactURI,
	}
	if sum.EnergyFile != "" {
		e := sum.BestEnergy
		out.BestEnergy = &e
	}
	status := "completed"
	if runErr != nil {
		out.Status = state.RunFailed
		out.Error = runErr.Error()
		status = "failed"
	}
	// Record the outcome even when ctx was cancelled mid-run.
	if err := o.opts.Store.FinishRun(context.WithoutCancel(ctx), runID, out); err != nil {
		log.Printf("record run finish failed run=%s protein=%s: %v", runID, proteinID, err)
	}
	m := o.opts.Metrics
	m.IncCounter("fold_tasks_total", map[string]string{"status": status}, 1)
	m.ObserveSeconds("fold_task", nil, elapsed.Seconds())
	if runErr == nil {
		m.SetGauge("fold_qubits", map[string]string{"protein_id": proteinID}, float64(sum.Qubits))
		m.SetGauge("fold_best_energy", map[string]string{"protein_id": proteinID}, sum.BestEnergy)
	}
}

// ValidateDistribution checks every probability is finite and non-negative
// and that the total is 1 within tolerance.
func ValidateDistribution(d quantum.Distribution) error {
	if len(d) == 0 {
		return fmt.Errorf("%w: empty", ErrDistribution)
	}
	vals := make([]float64, 0, len(d))
	for k, v := range d {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: probability %v for %q", ErrDistribution, v, k)
		}
		vals = append(vals, v)
	}
	if sum := floats.Sum(vals); !scalar.EqualWithinAbs(sum, 1, distributionTolerance) {
		return fmt.Errorf("%w: probabilities sum to %v", ErrDistribution, sum)
	}
	return nil
}

func bestEnergy(res quantum.VQEResult) float64 {
	if len(res.Energies) == 0 {
		return res.Result.OptimalValue
	}
	return floats.Min(res.Energies)
}
