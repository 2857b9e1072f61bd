// Package structure writes and reads predicted conformations as XYZ files.
package structure

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/example/qfold/internal/quantum"
)

var ErrExists = errors.New("structure file already exists")

const maxPrealloc = 4096

type Structure struct {
	Comment string
	Atoms   []quantum.Atom
}

func FromInterpretation(in quantum.Interpretation, comment string) Structure {
	atoms := make([]quantum.Atom, len(in.Atoms))
	copy(atoms, in.Atoms)
	return Structure{Comment: comment, Atoms: atoms}
}

// Write emits the atom count, the comment line and one "symbol x y z" line
// per atom.
func Write(w io.Writer, s Structure) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d\n", len(s.Atoms))
	fmt.Fprintf(bw, "%s\n", strings.ReplaceAll(s.Comment, "\n", " "))
	for _, a := range s.Atoms {
		fmt.Fprintf(bw, "%s %s %s %s\n", a.Symbol, formatCoord(a.X), formatCoord(a.Y), formatCoord(a.Z))
	}
	return bw.Flush()
}

// Save writes s to dir/name.xyz. Unless replace is set an existing file is
// left untouched and ErrExists is returned.
func Save(dir, name string, s Structure, replace bool) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name+".xyz")
	if !replace {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("%w: %s", ErrExists, path)
		}
	}
	tmp, err := os.CreateTemp(dir, "."+name+"-*.xyz")
	if err != nil {
		return "", err
	}
	if err := Write(tmp, s); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return path, nil
}

func Read(r io.Reader) (Structure, error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		return Structure{}, errors.New("xyz: missing atom count")
	}
	n, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
	if err != nil || n < 0 {
		return Structure{}, fmt.Errorf("xyz: invalid atom count %q", sc.Text())
	}
	if !sc.Scan() {
		return Structure{}, errors.New("xyz: missing comment line")
	}
	// The header count is untrusted until the atom lines are counted.
	s := Structure{Comment: sc.Text(), Atoms: make([]quantum.Atom, 0, min(n, maxPrealloc))}
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 4 {
			return Structure{}, fmt.Errorf("xyz: malformed atom line %q", sc.Text())
		}
		var xyz [3]float64
		for i, f := range fields[1:] {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return Structure{}, fmt.Errorf("xyz: %w", err)
			}
			xyz[i] = v
		}
		s.Atoms = append(s.Atoms, quantum.Atom{Symbol: fields[0], X: xyz[0], Y: xyz[1], Z: xyz[2]})
	}
	if err := sc.Err(); err != nil {
		return Structure{}, err
	}
	if len(s.Atoms) != n {
		return Structure{}, fmt.Errorf("xyz: header declares %d atoms, found %d", n, len(s.Atoms))
	}
	return s, nil
}

func ReadFile(path string) (Structure, error) {
	f, err := os.Open(path)
	if err != nil {
		return Structure{}, err
	}
	defer f.Close()
	return Read(f)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 10, 64)
}
