package folding

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/example/qfold/internal/quantum"
)

const (
	// Spelling matches existing result trees.
	energyDirName       = "System_Enegry"
	distributionDirName = "Prob_distribution"
	distributionFile    = "prob_distribution.txt"
)

// ProteinDir is the per-protein output directory under root.
func ProteinDir(root, proteinID string) string {
	return filepath.Join(root, "process_data", "best_group", proteinID)
}

func EnergyPath(root, proteinID string) string {
	return filepath.Join(ProteinDir(root, proteinID), energyDirName, "energy_list_"+proteinID+".txt")
}

func DistributionPath(root, proteinID string) string {
	return filepath.Join(ProteinDir(root, proteinID), distributionDirName, distributionFile)
}

// StructureName is the XYZ base name for rank (0 is the primary result).
func StructureName(proteinID string, rank int) string {
	if rank == 0 {
		return proteinID
	}
	return fmt.Sprintf("%s_top_%d", proteinID, rank)
}

// existingStructures lists the XYZ files already written for proteinID in
// dir, primary and ranked alike.
func existingStructures(dir, proteinID string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".xyz") {
			continue
		}
		if name == proteinID+".xyz" || strings.HasPrefix(name, proteinID+"_top_") {
			out = append(out, filepath.Join(dir, name))
		}
	}
	return out, nil
}

// WriteEnergies writes one decimal value per line.
func WriteEnergies(path string, energies []float64) error {
	return writeLines(path, func(w *bufio.Writer) error {
		for _, e := range energies {
			if _, err := w.WriteString(strconv.FormatFloat(e, 'f', -1, 64) + "\n"); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteDistribution writes "label: probability" lines sorted by label.
func WriteDistribution(path string, d quantum.Distribution) error {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return writeLines(path, func(w *bufio.Writer) error {
		for _, k := range keys {
			if _, err := fmt.Fprintf(w, "%s: %s\n", k, strconv.FormatFloat(d[k], 'g', -1, 64)); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeLines(path string, fill func(*bufio.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := fill(w); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// TimeLog is the tab-separated execution time log. Rows are flushed as they
// are written so a crash keeps every completed protein.
type TimeLog struct {
	w      *csv.Writer
	closer io.Closer
}

// OpenTimeLog truncates path and writes the header row.
func OpenTimeLog(path string) (*TimeLog, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	tl, err := NewTimeLog(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	tl.closer = f
	return tl, nil
}

func NewTimeLog(w io.Writer) (*TimeLog, error) {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	tl := &TimeLog{w: cw}
	if err := tl.write("Protein_ID", "Execution_Time(s)"); err != nil {
		return nil, err
	}
	return tl, nil
}

func (t *TimeLog) Append(proteinID string, elapsed time.Duration) error {
	return t.write(proteinID, strconv.FormatFloat(elapsed.Seconds(), 'f', 2, 64))
}

func (t *TimeLog) write(fields ...string) error {
	if err := t.w.Write(fields); err != nil {
		return err
	}
	t.w.Flush()
	return t.w.Error()
}

func (t *TimeLog) Close() error {
	if t.closer == nil {
		return nil
	}
	return t.closer.Close()
}
