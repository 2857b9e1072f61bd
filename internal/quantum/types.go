package quantum

// Penalties weights the chain-connectivity, overlap and interaction
// constraint terms of the folding Hamiltonian.
type Penalties struct {
	ChainConnectivity float64 `json:"chain_connectivity"`
	Overlap           float64 `json:"overlap"`
	Interaction       float64 `json:"interaction"`
}

type ProblemRequest struct {
	MainChain   string    `json:"main_chain"`
	SideChains  []string  `json:"side_chains"`
	Interaction string    `json:"interaction"`
	Penalties   Penalties `json:"penalties"`
}

// Problem is a server-side protein folding problem. NumQubits is the width
// of its qubit operator.
type Problem struct {
	ID        string `json:"problem_id"`
	NumQubits int    `json:"num_qubits"`
}

type VQERequest struct {
	ProblemID string `json:"problem_id"`
	MinQubits int    `json:"min_qubits"`
	MaxIter   int    `json:"max_iter"`
	TopK      int    `json:"top_k,omitempty"`
}

// OptimizerResult is the raw result of the variational optimisation.
type OptimizerResult struct {
	OptimalValue      float64   `json:"optimal_value"`
	OptimalParameters []float64 `json:"optimal_parameters"`
	Evaluations       int       `json:"evaluations,omitempty"`
}

// Candidate is one ranked (energy, parameter set) pair.
type Candidate struct {
	Energy     float64   `json:"energy"`
	Parameters []float64 `json:"parameters"`
}

type VQEResult struct {
	Energies []float64       `json:"energies"`
	Result   OptimizerResult `json:"result"`
	AnsatzID string          `json:"ansatz_id"`
	Top      []Candidate     `json:"top_results"`
}

const (
	JobQueued    = "queued"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

type JobStatus struct {
	JobID  string     `json:"job_id"`
	Status string     `json:"status"`
	Error  string     `json:"error,omitempty"`
	Result *VQEResult `json:"result,omitempty"`
}

// Distribution maps measured basis-state labels to probability mass.
type Distribution map[string]float64

type Atom struct {
	Symbol string  `json:"symbol"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
}

type Interpretation struct {
	Bitstring string `json:"bitstring,omitempty"`
	Turns     []int  `json:"turns,omitempty"`
	Atoms     []Atom `json:"atoms"`
}

type submitResponse struct {
	JobID string `json:"job_id"`
}

type distributionRequest struct {
	NumQubits  int       `json:"num_qubits"`
	Parameters []float64 `json:"parameters"`
}

type distributionResponse struct {
	Distribution Distribution `json:"distribution"`
}

type interpretRequest struct {
	Distribution Distribution `json:"distribution"`
}
