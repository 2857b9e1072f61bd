package folding

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Task is one protein to fold. It is passed by value and never mutated.
type Task struct {
	Sequence  string
	ProteinID string
	MaxIter   int
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.ProteinID) == "" {
		return fmt.Errorf("protein id is required")
	}
	if strings.ContainsAny(t.ProteinID, `/\`) || t.ProteinID == "." || t.ProteinID == ".." {
		return fmt.Errorf("protein id %q is not a valid file name", t.ProteinID)
	}
	if t.Sequence == "" {
		return fmt.Errorf("protein %s: empty sequence", t.ProteinID)
	}
	for _, r := range t.Sequence {
		if r < 'A' || r > 'Z' {
			return fmt.Errorf("protein %s: invalid residue %q", t.ProteinID, r)
		}
	}
	if t.MaxIter <= 0 {
		return fmt.Errorf("protein %s: max iter must be positive", t.ProteinID)
	}
	return nil
}

// SideChains returns the side-chain placeholder list: one empty string per
// main-chain residue.
func SideChains(mainChain string) []string {
	return make([]string, len(mainChain))
}

var defaultProteins = []struct {
	seq string
	id  string
}{
	{"DGKMKGLAF", "1qin"},
	{"IHGIGGFI", "1a9m"},
	{"KSIVDSGTTNLR", "1fkn"},
	{"NNLGTIAKSGT", "3b26"},
	{"GAVEDGATMTFF", "2xxx"},
	{"DWGGM", "3ans"},
	{"YAGYS", "6mu3"},
}

// DefaultTasks is the built-in benchmark list used when no proteins file
// is configured.
func DefaultTasks(maxIter int) []Task {
	out := make([]Task, 0, len(defaultProteins))
	for _, p := range defaultProteins {
		out = append(out, Task{Sequence: p.seq, ProteinID: p.id, MaxIter: maxIter})
	}
	return out
}

type proteinsFile struct {
	MaxIter  int `yaml:"max_iter"`
	Proteins []struct {
		ID       string `yaml:"id"`
		Sequence string `yaml:"sequence"`
		MaxIter  int    `yaml:"max_iter"`
	} `yaml:"proteins"`
}

// LoadTasks reads the protein list from a YAML file. An empty path yields
// DefaultTasks. Per-protein max_iter overrides the file-level value, which
// overrides maxIter.
func LoadTasks(path string, maxIter int) ([]Task, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultTasks(maxIter), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read proteins file: %w", err)
	}
	var pf proteinsFile
	if err := yaml.Unmarshal(b, &pf); err != nil {
		return nil, fmt.Errorf("parse proteins file: %w", err)
	}
	if pf.MaxIter > 0 {
		maxIter = pf.MaxIter
	}
	tasks := make([]Task, 0, len(pf.Proteins))
	seen := make(map[string]bool, len(pf.Proteins))
	for _, p := range pf.Proteins {
		t := Task{
			Sequence:  strings.ToUpper(strings.TrimSpace(p.Sequence)),
			ProteinID: strings.TrimSpace(p.ID),
			MaxIter:   maxIter,
		}
		if p.MaxIter > 0 {
			t.MaxIter = p.MaxIter
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("proteins file %s: %w", path, err)
		}
		if seen[t.ProteinID] {
			return nil, fmt.Errorf("proteins file %s: duplicate protein id %s", path, t.ProteinID)
		}
		seen[t.ProteinID] = true
		tasks = append(tasks, t)
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("proteins file %s: no proteins listed", path)
	}
	return tasks, nil
}
