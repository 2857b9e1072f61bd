package folding

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultTasks(t *testing.T) {
	tasks := DefaultTasks(150)
	if len(tasks) != 7 {
		t.Fatalf("expected 7 built-in proteins, got %d", len(tasks))
	}
	if tasks[0].ProteinID != "1qin" || tasks[0].Sequence != "DGKMKGLAF" || tasks[0].MaxIter != 150 {
		t.Fatalf("unexpected first task: %#v", tasks[0])
	}
	if tasks[6].ProteinID != "6mu3" || tasks[6].Sequence != "YAGYS" {
		t.Fatalf("unexpected last task: %#v", tasks[6])
	}
	for _, task := range tasks {
		if err := task.Validate(); err != nil {
			t.Fatalf("built-in task %s invalid: %v", task.ProteinID, err)
		}
	}
}

func TestTaskValidate(t *testing.T) {
	cases := []struct {
		name string
		task Task
		want string
	}{
		{name: "missing id", task: Task{Sequence: "AG", MaxIter: 1}, want: "protein id is required"},
		{name: "path id", task: Task{Sequence: "AG", ProteinID: "a/b", MaxIter: 1}, want: "not a valid file name"},
		{name: "empty sequence", task: Task{ProteinID: "x", MaxIter: 1}, want: "empty sequence"},
		{name: "lowercase residue", task: Task{Sequence: "AgK", ProteinID: "x", MaxIter: 1}, want: "invalid residue"},
		{name: "zero iterations", task: Task{Sequence: "AG", ProteinID: "x"}, want: "max iter must be positive"},
	}
	for _, tc := range cases {
		err := tc.task.Validate()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected %q, got %v", tc.name, tc.want, err)
		}
	}
}

func TestLoadTasksFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proteins.yaml")
	body := `max_iter: 40
proteins:
  - id: 1qin
    sequence: dgkmkglaf
  - id: 3ans
    sequence: DWGGM
    max_iter: 7
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	tasks, err := LoadTasks(path, 150)
	if err != nil {
		t.Fatalf("load tasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0] != (Task{Sequence: "DGKMKGLAF", ProteinID: "1qin", MaxIter: 40}) {
		t.Fatalf("unexpected first task: %#v", tasks[0])
	}
	if tasks[1] != (Task{Sequence: "DWGGM", ProteinID: "3ans", MaxIter: 7}) {
		t.Fatalf("unexpected second task: %#v", tasks[1])
	}
}

func TestLoadTasksEmptyPathUsesDefaults(t *testing.T) {
	tasks, err := LoadTasks("", 12)
	if err != nil {
		t.Fatalf("load tasks: %v", err)
	}
	if len(tasks) != 7 || tasks[3].MaxIter != 12 {
		t.Fatalf("unexpected default tasks: %#v", tasks)
	}
}

func TestLoadTasksRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"duplicate": "proteins:\n  - {id: a, sequence: AG}\n  - {id: a, sequence: GA}\n",
		"empty":     "max_iter: 3\n",
		"invalid":   "proteins:\n  - {id: a, sequence: A1}\n",
		"syntax":    "proteins: [\n",
	}
	for name, body := range cases {
		path := filepath.Join(dir, name+".yaml")
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadTasks(path, 10); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := LoadTasks(filepath.Join(dir, "missing.yaml"), 10); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestStructureNamesAndPaths(t *testing.T) {
	if StructureName("1qin", 0) != "1qin" || StructureName("1qin", 2) != "1qin_top_2" {
		t.Fatalf("unexpected structure names")
	}
	want := filepath.Join("Result", "process_data", "best_group", "1qin", "System_Enegry", "energy_list_1qin.txt")
	if got := EnergyPath("Result", "1qin"); got != want {
		t.Fatalf("energy path = %s, want %s", got, want)
	}
	want = filepath.Join("Result", "process_data", "best_group", "1qin", "Prob_distribution", "prob_distribution.txt")
	if got := DistributionPath("Result", "1qin"); got != want {
		t.Fatalf("distribution path = %s, want %s", got, want)
	}
}
