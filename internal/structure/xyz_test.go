package structure

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/qfold/internal/quantum"
)

func sample() Structure {
	return FromInterpretation(quantum.Interpretation{Atoms: []quantum.Atom{
		{Symbol: "D", X: 0, Y: 0, Z: 0},
		{Symbol: "G", X: 0.5773502692, Y: 0.5773502692, Z: -0.5773502692},
		{Symbol: "K", X: 1.1547005384, Y: 0, Z: -1.1547005384},
	}}, "1qin")
}

func TestWriteLayout(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sample()); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 5 || lines[0] != "3" || lines[1] != "1qin" {
		t.Fatalf("unexpected layout: %q", buf.String())
	}
	if lines[2] != "D 0.0000000000 0.0000000000 0.0000000000" {
		t.Fatalf("unexpected atom line: %q", lines[2])
	}
}

func TestSaveAndReadBack(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "best_group", "1qin")
	path, err := Save(dir, "1qin_top_1", sample(), false)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if filepath.Base(path) != "1qin_top_1.xyz" {
		t.Fatalf("unexpected path: %s", path)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := sample()
	if len(got.Atoms) != len(want.Atoms) {
		t.Fatalf("atom count mismatch: %d", len(got.Atoms))
	}
	for i := range want.Atoms {
		if got.Atoms[i].Symbol != want.Atoms[i].Symbol || math.Abs(got.Atoms[i].Y-want.Atoms[i].Y) > 1e-9 {
			t.Fatalf("atom %d mismatch: %#v", i, got.Atoms[i])
		}
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("temporary files left in %s: %d entries", dir, len(entries))
	}
}

func TestSaveRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	if _, err := Save(dir, "3ans", sample(), false); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if _, err := Save(dir, "3ans", sample(), false); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if _, err := Save(dir, "3ans", Structure{Atoms: sample().Atoms[:1]}, true); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, err := ReadFile(filepath.Join(dir, "3ans.xyz"))
	if err != nil || len(got.Atoms) != 1 {
		t.Fatalf("replace not applied: %v %#v", err, got)
	}
}

func TestReadRejectsCountMismatch(t *testing.T) {
	_, err := Read(strings.NewReader("2\n\nD 0 0 0\n"))
	if err == nil {
		t.Fatalf("expected count mismatch error")
	}
}

func TestReadRejectsOversizedAtomCount(t *testing.T) {
	for _, header := range []string{"9223372036854775807", "5000000"} {
		_, err := Read(strings.NewReader(header + "\ncomment\nD 0 0 0\n"))
		if err == nil || !strings.Contains(err.Error(), "found 1") {
			t.Fatalf("header %s: expected count mismatch error, got %v", header, err)
		}
	}
}
