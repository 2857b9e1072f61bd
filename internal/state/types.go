package state

import "time"

const (
	RunRunning   = "Running"
	RunCompleted = "Completed"
	RunFailed    = "Failed"
)

// RunRecord is one folding prediction attempt for a protein.
type RunRecord struct {
	RunID          string
	ProteinID      string
	Sequence       string
	MaxIter        int
	Status         string
	Error          string
	Qubits         int
	BestEnergy     *float64
	Structures     int
	ArtifactURI    string
	StartedAt      time.Time
	FinishedAt     time.Time
	DurationMillis int64
}

// RunOutcome carries the fields set when a run finishes.
type RunOutcome struct {
	Status      string
	Error       string
	Qubits      int
	BestEnergy  *float64
	Structures  int
	ArtifactURI string
	FinishedAt  time.Time
}

type RunQuery struct {
	ProteinID string
	Status    string
	Limit     int
}
